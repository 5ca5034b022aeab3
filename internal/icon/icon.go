// Package icon finds a picture to represent a website.
package icon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout = 5 * time.Second
	userAgent      = "Mozilla/5.0 (compatible; riffle/1.0)"
)

// Finder looks for icons on a site's home page.
type Finder struct {
	http *http.Client
}

func NewFinder(timeout time.Duration) Finder {
	return Finder{http: &http.Client{Timeout: timeout}}
}

// selectors are tried in order; the first with a usable value wins.
var selectors = []struct {
	query, attr string
}{
	{`link[rel="apple-touch-icon"]`, "href"},
	{`link[rel="apple-touch-icon-precomposed"]`, "href"},
	{`link[rel="icon"]`, "href"},
	{`link[rel="shortcut icon"]`, "href"},
	{`meta[property="og:image"]`, "content"},
}

// Find returns an absolute icon URL for the page at siteURL, or an empty
// string if the page advertises none.
func (f Finder) Find(ctx context.Context, siteURL string) (string, error) {
	if siteURL == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return "", fmt.Errorf("error building icon request: %s", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching site: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error parsing site: %s", err)
	}

	for _, s := range selectors {
		val, ok := doc.Find(s.query).First().Attr(s.attr)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		return resolve(resp.Request.URL, strings.TrimSpace(val)), nil
	}

	return "", nil
}

// resolve makes href absolute against the page it was found on.
// Scheme-relative links get https.
func resolve(base *url.URL, href string) string {
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// Reachable reports whether imageURL answers a HEAD request with an image.
// A 405 is accepted in place of a 2xx, but still has to name an image type.
func (f Finder) Reachable(ctx context.Context, imageURL string) bool {
	if imageURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok && resp.StatusCode != http.StatusMethodNotAllowed {
		return false
	}
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "image/")
}
