// Package fetch downloads feed documents over HTTP.
package fetch

import (
	"context"
	stderrs "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jdholdren/riffle/internal/errors"
)

const (
	UserAgent      = "riffle/1.0"
	DefaultTimeout = 10 * time.Second

	// Feeds bigger than this are cut off.
	maxBodySize = 10 << 20
)

var (
	ErrTimeout    = stderrs.New("request timed out")
	ErrConnection = stderrs.New("connection failed")
)

// StatusError is a response outside of 2xx.
type StatusError struct {
	Code int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Retryable reports whether the server might answer differently later.
func (e StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

type Client struct {
	http *http.Client
}

// New builds a client whose requests give up after timeout.
func New(timeout time.Duration) Client {
	return Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the body at url. Every failure is a transient
// *errors.Error wrapping ErrTimeout, ErrConnection or a StatusError, except
// cancellation of ctx, which comes back as context.Canceled with no kind.
func (c Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.E(errors.KindInput, fmt.Errorf("invalid url %q: %w", url, err))
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	resp, err := c.http.Do(req)
	if stderrs.Is(err, context.Canceled) {
		return nil, err
	}
	if err != nil {
		return nil, errors.E(errors.KindTransient, classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.E(errors.KindTransient, StatusError{Code: resp.StatusCode})
	}

	byts, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if stderrs.Is(err, context.Canceled) {
		return nil, err
	}
	if err != nil {
		return nil, errors.E(errors.KindTransient, classify(err))
	}

	return byts, nil
}

func classify(err error) error {
	var netErr net.Error
	if stderrs.Is(err, context.DeadlineExceeded) || (stderrs.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %s", ErrConnection, err)
}
