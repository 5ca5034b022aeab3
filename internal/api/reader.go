package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sym01/htmlsanitizer"

	v1 "github.com/jdholdren/riffle/api/v1"
	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/fetch"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/serverutil"
)

const (
	defaultReaderTimeout = 5 * time.Second
	readerCacheSize      = 1024
)

// reader extracts the main content of an item's page. Results are cached by
// item id so an article is only fetched once.
type reader struct {
	client *http.Client
	cache  *lru.Cache[string, v1.ReaderResponse]
}

func newReader(timeout time.Duration) *reader {
	if timeout <= 0 {
		timeout = defaultReaderTimeout
	}
	cache, _ := lru.New[string, v1.ReaderResponse](readerCacheSize)

	return &reader{
		client: &http.Client{Timeout: timeout},
		cache:  cache,
	}
}

func (rd *reader) article(ctx context.Context, item riffle.Item) (v1.ReaderResponse, error) {
	// Cache results for less processing and prevent refetches
	if resp, ok := rd.cache.Get(item.ID); ok {
		return resp, nil
	}

	if item.Link == "" {
		return v1.ReaderResponse{}, errors.E(http.StatusUnprocessableEntity, errors.KindInput, "item has no link")
	}
	u, err := url.Parse(item.Link)
	if err != nil {
		return v1.ReaderResponse{}, errors.E(http.StatusUnprocessableEntity, errors.KindInput, fmt.Errorf("error with the item's url: %s", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Link, nil)
	if err != nil {
		return v1.ReaderResponse{}, errors.E(http.StatusUnprocessableEntity, errors.KindInput, err)
	}
	req.Header.Set("User-Agent", fetch.UserAgent)

	// Fetch the actual site
	resp, err := rd.client.Do(req)
	if err != nil {
		return v1.ReaderResponse{}, errors.E(errors.KindTransient, fmt.Errorf("error fetching article: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return v1.ReaderResponse{}, errors.E(errors.KindTransient, fetch.StatusError{Code: resp.StatusCode})
	}

	// Strip it for readability and sanitize
	parser := readability.NewParser()
	article, err := parser.Parse(resp.Body, u)
	if err != nil {
		return v1.ReaderResponse{}, errors.E(http.StatusUnprocessableEntity, errors.KindInput, fmt.Errorf("error extracting article: %w", err))
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	contents, err := sanitizer.SanitizeString(article.Content)
	if err != nil {
		return v1.ReaderResponse{}, fmt.Errorf("error sanitizing article: %w", err)
	}

	ret := v1.ReaderResponse{
		ID:      item.ID,
		URL:     item.Link,
		Title:   article.Title,
		Byline:  article.Byline,
		Content: contents,
	}
	if ret.Title == "" {
		ret.Title = item.Title
	}
	// Add to the cache for next time
	rd.cache.Add(item.ID, ret)

	return ret, nil
}

func (s Server) getReader(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	item, err := s.repo.Item(ctx, mux.Vars(r)["id"])
	if err != nil {
		return err
	}

	resp, err := s.reader.article(ctx, item)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}
