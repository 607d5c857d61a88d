package fetcher

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks tokenizes content as HTML and returns every anchor href
// attribute found, in document order. Anchors are resolved and classified
// later by the caller.
func ExtractLinks(content string) []string {
	var links []string
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					links = append(links, attr.Val)
					break
				}
			}
		}
	}
}
