// Package youtube turns YouTube channel addresses into their Atom feed URLs.
package youtube

import (
	"bytes"
	"context"
	stderrs "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	feedURLFormat = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
	defaultBase   = "https://www.youtube.com"
	userAgent     = "Mozilla/5.0 (compatible; riffle/1.0)"
)

var ErrNoChannelID = stderrs.New("could not extract YouTube channel ID")

var (
	channelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtube\.com/channel/[^/]+`),
		regexp.MustCompile(`youtube\.com/c/[^/]+`),
		regexp.MustCompile(`youtube\.com/user/[^/]+`),
		regexp.MustCompile(`youtube\.com/@[^/]+`),
	}
	directID = regexp.MustCompile(`youtube\.com/channel/([^/?&#]+)`)

	// Places a channel page leaks its id, most specific first.
	pagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"channelId":"([^"]+)"`),
		regexp.MustCompile(`"externalId":"([^"]+)"`),
		regexp.MustCompile(`youtube\.com/channel/(UC[\w-]{22})`),
	}
)

// IsYouTubeURL reports whether u points anywhere on YouTube.
func IsYouTubeURL(u string) bool {
	return strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be")
}

func IsChannelURL(u string) bool {
	for _, p := range channelPatterns {
		if p.MatchString(u) {
			return true
		}
	}
	return false
}

func IsFeedURL(u string) bool {
	return strings.Contains(u, "youtube.com/feeds/videos.xml")
}

func FeedURL(channelID string) string {
	return fmt.Sprintf(feedURLFormat, url.QueryEscape(channelID))
}

// Resolver finds channel ids, scraping the channel page when the URL does not
// carry the id itself.
type Resolver struct {
	http *http.Client
	base string
}

func NewResolver(timeout time.Duration) Resolver {
	return Resolver{
		http: &http.Client{Timeout: timeout},
		base: defaultBase,
	}
}

func (r Resolver) ChannelID(ctx context.Context, channelURL string) (string, error) {
	if m := directID.FindStringSubmatch(channelURL); m != nil {
		return m[1], nil
	}

	u, err := url.Parse(channelURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoChannelID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+u.EscapedPath(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoChannelID, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoChannelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrNoChannelID, resp.StatusCode)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoChannelID, err)
	}

	if id := fromMarkup(page); id != "" {
		return id, nil
	}
	for _, p := range pagePatterns {
		if m := p.FindSubmatch(page); m != nil {
			return string(m[1]), nil
		}
	}

	return "", ErrNoChannelID
}

// fromMarkup reads the id from the page's meta tags.
func fromMarkup(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	if id, ok := doc.Find(`meta[itemprop="channelId"]`).Attr("content"); ok && id != "" {
		return id
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		if m := directID.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}
