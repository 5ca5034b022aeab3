// Package sync subscribes to feeds and keeps every subscription current.
package sync

import (
	"context"
	stderrs "errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/fetch"
	"github.com/jdholdren/riffle/internal/normalize"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
	"github.com/jdholdren/riffle/internal/youtube"
	"github.com/jdholdren/riffle/logger"
)

type (
	Fetcher interface {
		Fetch(ctx context.Context, url string) ([]byte, error)
	}

	IconFinder interface {
		Find(ctx context.Context, siteURL string) (string, error)
		Reachable(ctx context.Context, imageURL string) bool
	}

	ChannelResolver interface {
		ChannelID(ctx context.Context, channelURL string) (string, error)
	}

	Store interface {
		Upsert(ctx context.Context, feed riffle.Feed, sourceURL string) (riffle.UpsertResult, error)
	}
)

const (
	defaultRetryDelay = 500 * time.Millisecond
	maxRetries        = 2
)

type SubscriberParams struct {
	Fetcher  Fetcher
	Icons    IconFinder
	Channels ChannelResolver
	Store    Store
	Text     normalize.TextConverter

	// Wait between fetch attempts. Zero means 500ms.
	RetryDelay time.Duration
}

// Subscriber fetches one feed, normalizes it and saves it.
type Subscriber struct {
	fetcher    Fetcher
	icons      IconFinder
	channels   ChannelResolver
	store      Store
	normalizer normalize.Normalizer
	retryDelay time.Duration
}

func NewSubscriber(p SubscriberParams) Subscriber {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return Subscriber{
		fetcher:    p.Fetcher,
		icons:      p.Icons,
		channels:   p.Channels,
		store:      p.Store,
		normalizer: normalize.New(p.Text),
		retryDelay: delay,
	}
}

// Subscribe fetches the feed at rawURL and upserts it. Subscribing to a feed
// that is already stored refreshes it.
//
// Every error is an *errors.Error whose kind says whether the input was bad,
// the remote misbehaved or the store failed.
func (s Subscriber) Subscribe(ctx context.Context, rawURL string) (riffle.UpsertResult, error) {
	feedURL := ensureProtocol(strings.TrimSpace(rawURL))
	if feedURL == "" {
		return riffle.UpsertResult{}, errors.E(errors.KindInput, "URL is required")
	}

	feedURL, err := s.resolveYouTube(ctx, feedURL)
	if err != nil {
		return riffle.UpsertResult{}, err
	}
	ctx = logger.Ctx(ctx, slog.String("feed_url", feedURL))

	raw, effectiveURL, err := s.fetch(ctx, feedURL)
	if err != nil {
		slog.WarnContext(ctx, "error fetching feed", "error", err)
		return riffle.UpsertResult{}, err
	}

	feed, err := s.parse(raw, effectiveURL)
	if err != nil {
		slog.WarnContext(ctx, "error parsing feed", "error", err)
		return riffle.UpsertResult{}, err
	}
	if feed.Skipped > 0 {
		slog.WarnContext(ctx, "skipped malformed entries", "count", feed.Skipped)
	}

	s.pickImage(ctx, &feed.Channel)

	res, err := s.store.Upsert(ctx, feed, effectiveURL)
	if err != nil {
		return riffle.UpsertResult{}, errors.E(errors.KindStorage, fmt.Errorf("error saving feed: %w", err))
	}

	slog.InfoContext(ctx, "feed synced",
		"channel", res.Channel.Link,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
	)
	return res, nil
}

// resolveYouTube turns a YouTube channel page into its upload feed. Any other
// YouTube URL has to be a feed already.
func (s Subscriber) resolveYouTube(ctx context.Context, u string) (string, error) {
	if !youtube.IsYouTubeURL(u) {
		return u, nil
	}
	if youtube.IsChannelURL(u) {
		id, err := s.channels.ChannelID(ctx, u)
		if err != nil {
			return "", errors.E(errors.KindInput, fmt.Errorf("Could not extract YouTube channel ID: %w", err))
		}
		return youtube.FeedURL(id), nil
	}
	if !youtube.IsFeedURL(u) {
		return "", errors.E(errors.KindInput, "Invalid YouTube URL")
	}
	return u, nil
}

// fetch gets the document, retrying transient failures. A connection failure
// also tries the host with "www." toggled; whichever answers is returned as
// the effective URL.
func (s Subscriber) fetch(ctx context.Context, u string) ([]byte, string, error) {
	var (
		byts      []byte
		effective string
	)
	b := retry.WithMaxRetries(maxRetries, retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		byts, err = s.fetcher.Fetch(ctx, u)
		effective = u
		if err != nil && stderrs.Is(err, fetch.ErrConnection) {
			if alt := toggleWWW(u); alt != "" {
				slog.DebugContext(ctx, "retrying with alternate host", "url", alt)
				byts, err = s.fetcher.Fetch(ctx, alt)
				effective = alt
			}
		}
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.KindOf(err) == errors.KindUnknown && !stderrs.Is(err, context.Canceled) {
			err = errors.E(errors.KindTransient, err)
		}
		return nil, "", err
	}
	return byts, effective, nil
}

func retryable(err error) bool {
	if !errors.IsTransient(err) {
		return false
	}
	var status fetch.StatusError
	if stderrs.As(err, &status) {
		return status.Retryable()
	}
	return true
}

func (s Subscriber) parse(raw []byte, feedURL string) (riffle.Feed, error) {
	if !normalize.LooksLikeFeed(raw) {
		return riffle.Feed{}, errors.E(errors.KindInput, "Invalid XML or Not a Feed")
	}

	doc, err := xmltree.ParseBytes(raw)
	if err != nil {
		return riffle.Feed{}, errors.E(errors.KindInput, fmt.Errorf("Parse Error: %w", err))
	}

	hint := normalize.HintFor(feedURL)
	if hint != normalize.FormatYouTube {
		if err := normalize.ValidateStructure(doc); err != nil {
			return riffle.Feed{}, errors.E(errors.KindInput, err)
		}
	}

	feed, err := s.normalizer.Normalize(doc, hint)
	if err != nil {
		return riffle.Feed{}, errors.E(errors.KindInput, err)
	}
	return feed, nil
}

// pickImage prefers the site's own icon over the feed's image, and drops a
// feed image that doesn't answer as an image.
func (s Subscriber) pickImage(ctx context.Context, ch *riffle.Channel) {
	if ch.Link != "" {
		icon, err := s.icons.Find(ctx, ch.Link)
		if err != nil {
			slog.DebugContext(ctx, "no icon found", "site", ch.Link, "error", err)
		}
		if icon != "" {
			ch.Image = icon
			return
		}
	}

	if ch.Image != "" && !s.icons.Reachable(ctx, ch.Image) {
		slog.DebugContext(ctx, "dropping unreachable feed image", "image", ch.Image)
		ch.Image = ""
	}
}

var hasScheme = regexp.MustCompile(`(?i)^https?://`)

func ensureProtocol(u string) string {
	if u == "" || hasScheme.MatchString(u) {
		return u
	}
	return "https://" + u
}

// toggleWWW adds "www." to a bare host or strips it from one that has it.
func toggleWWW(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if host, ok := strings.CutPrefix(u.Host, "www."); ok {
		u.Host = host
	} else {
		u.Host = "www." + u.Host
	}
	return u.String()
}
