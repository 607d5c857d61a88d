package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/yasu-a/manaba-clone/internal/logger"
)

// loginCheckTitle is the <title> text of an authenticated manaba home
// page, used to probe whether the session is logged in.
const loginCheckTitle = "中央大学 manaba - home"

// userAgent is the fixed User-Agent header sent on every request.
const userAgent = "Mozilla/4.0 (compatible; MSIE 5.5; Windows NT)"

// Cookie is the cookie-backed HTTPS Fetcher implementation: a real
// net/http.Client carrying a persisted cookie jar, a RateLimiter, and the
// institutional SSO login flow.
type Cookie struct {
	client      *http.Client
	jar         *cookiejar.Jar
	jarPath     string
	rateLimiter *RateLimiter
	loginCheck  string // the authenticated home URL, e.g. https://room.chuo-u.ac.jp/ct/home_?chglistformat=list
	log         logger.Interface

	loggedInUID string
}

// NewCookie builds a Cookie fetcher. jarPath, when non-empty, is the JSON
// file the cookie jar is loaded from on construction and persisted to by
// Save; loginCheckURL is the authenticated-page probe URL
// (manaba.HomeURL(manaba.PeriodCurrent) for the reference site).
func NewCookie(jarPath, loginCheckURL string, rateLimiter *RateLimiter, log logger.Interface) (*Cookie, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Cookie{
		client:      &http.Client{Jar: jar},
		jar:         jar,
		jarPath:     jarPath,
		rateLimiter: rateLimiter,
		loginCheck:  loginCheckURL,
		log:         log,
	}

	if jarPath != "" {
		if err := loadCookieJar(jar, jarPath); err != nil {
			return nil, fmt.Errorf("load cookie jar: %w", err)
		}
	}

	return c, nil
}

// Save persists the cookie jar to its JSON file. Called on scope exit;
// the jar is loaded again on construction.
func (c *Cookie) Save() error {
	if c.jarPath == "" {
		return nil
	}
	return saveCookieJar(c.jar, c.jarPath, c.loginCheck)
}

func (c *Cookie) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Block(ctx, req.URL.String()); err != nil {
			return nil, err
		}
	}
	if c.log != nil {
		c.log.Debug("urlopen", "url", req.URL.String())
	}
	return c.client.Do(req.WithContext(ctx))
}

// Open fetches url with the authenticated client, extracting anchors with
// ExtractLinks.
func (c *Cookie) Open(ctx context.Context, rawURL string) (*Opened, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	content := string(body)
	return &Opened{Content: content, Links: ExtractLinks(content)}, nil
}

// isAuthenticated reports whether c.loginCheck currently serves the
// authenticated home page; an unauthenticated session is redirected to
// the SSO form instead.
func (c *Cookie) isAuthenticated(ctx context.Context) (bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.loginCheck, nil)
	if err != nil {
		return false, fmt.Errorf("build login-check request: %w", err)
	}
	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return false, fmt.Errorf("check login: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, fmt.Errorf("parse login-check page: %w", err)
	}
	return strings.TrimSpace(doc.Find("title").First().Text()) == loginCheckTitle, nil
}

// Login authenticates via the Chuo SSO form flow. Idempotent: a no-op
// when already authenticated. Returns an error on incorrect credentials.
func (c *Cookie) Login(ctx context.Context, credentials Credentials) error {
	authenticated, err := c.isAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if authenticated {
		if c.log != nil {
			c.log.Info("already certified")
		}
		c.loggedInUID = credentials.UID
		return nil
	}

	if err := c.submitIDPForm(ctx, credentials); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	authenticated, err = c.isAuthenticated(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if authenticated {
		c.loggedInUID = credentials.UID
		return nil
	}

	return fmt.Errorf("login failed: uid=%s", credentials.UID)
}

// submitIDPForm submits the institutional login form discovered at
// c.loginCheck's redirect target, posting the form's
// dummy/username/password/op/back/sessid fields.
func (c *Cookie) submitIDPForm(ctx context.Context, credentials Credentials) error {
	req, err := http.NewRequest(http.MethodGet, c.loginCheck, nil)
	if err != nil {
		return fmt.Errorf("build redirect probe request: %w", err)
	}
	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch login redirect: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse login form page: %w", err)
	}

	back, _ := doc.Find(`input[name="back"]`).Attr("value")
	sessID, _ := doc.Find("input#sessid").Attr("value")

	payload := url.Values{
		"dummy":    {""},
		"username": {credentials.UID},
		"password": {credentials.Password},
		"op":       {"login"},
		"back":     {back},
		"sessid":   {sessID},
	}

	submitReq, err := http.NewRequest(http.MethodPost, resp.Request.URL.String(), strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("build login submit request: %w", err)
	}
	submitReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	submitResp, err := c.doRequest(ctx, submitReq)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	defer submitResp.Body.Close()

	return nil
}

var _ Interface = (*Cookie)(nil)
