package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
)

// persistedCookie is the on-disk shape of one cookie, keyed by the host it
// was set for. The jar is persisted as a JSON array of cookies grouped by
// host; Go has no LWP cookie-jar codec.
type persistedCookie struct {
	Host   string `json:"host"`
	Cookie http.Cookie
}

func loadCookieJar(jar *cookiejar.Jar, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cookie jar file: %w", err)
	}

	var entries []persistedCookie
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode cookie jar file: %w", err)
	}

	byHost := make(map[string][]*http.Cookie)
	for i := range entries {
		e := entries[i]
		byHost[e.Host] = append(byHost[e.Host], &e.Cookie)
	}
	for host, cookies := range byHost {
		u := &url.URL{Scheme: "https", Host: host}
		jar.SetCookies(u, cookies)
	}
	return nil
}

func saveCookieJar(jar *cookiejar.Jar, path, referenceURL string) error {
	u, err := url.Parse(referenceURL)
	if err != nil {
		return fmt.Errorf("parse reference url: %w", err)
	}

	var entries []persistedCookie
	for _, cookie := range jar.Cookies(u) {
		entries = append(entries, persistedCookie{Host: u.Host, Cookie: *cookie})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookie jar file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie jar file: %w", err)
	}
	return nil
}
