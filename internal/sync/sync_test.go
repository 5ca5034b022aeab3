package sync

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/fetch"
	"github.com/jdholdren/riffle/internal/htmltext"
	"github.com/jdholdren/riffle/internal/normalize"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/youtube"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test RSS Feed</title>
    <description>A test RSS feed</description>
    <link>https://example.com</link>
    <image><url>https://example.com/logo.png</url></image>
    <item>
      <title>RSS Post One</title>
      <link>https://example.com/post-1</link>
      <guid>rss-guid-1</guid>
      <description>&lt;p&gt;First RSS post description&lt;/p&gt;</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>RSS Post Two</title>
      <link>https://example.com/post-2</link>
      <guid>rss-guid-2</guid>
      <description>Second RSS post description</description>
      <pubDate>Tue, 02 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const testYouTubeFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
  <title>Some Channel</title>
  <link rel="alternate" href="https://www.youtube.com/channel/UC123"/>
  <entry>
    <id>yt:video:abc</id>
    <yt:videoId>abc</yt:videoId>
    <yt:channelId>UC123</yt:channelId>
    <title>A video</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abc"/>
    <published>2024-01-01T00:00:00+00:00</published>
  </entry>
</feed>`

type fakeIcons struct {
	icon      string
	reachable bool
}

func (f fakeIcons) Find(context.Context, string) (string, error) {
	if f.icon == "" {
		return "", stderrs.New("no icon")
	}
	return f.icon, nil
}

func (f fakeIcons) Reachable(context.Context, string) bool { return f.reachable }

type fakeResolver struct {
	id  string
	err error
}

func (f fakeResolver) ChannelID(context.Context, string) (string, error) { return f.id, f.err }

// fakeFetcher serves bodies by URL and fails with a connection error for
// anything else.
type fakeFetcher struct {
	bodies map[string]string
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	f.calls = append(f.calls, u)
	body, ok := f.bodies[u]
	if !ok {
		return nil, errors.E(errors.KindTransient, fmt.Errorf("%w: dial tcp: no such host", fetch.ErrConnection))
	}
	return []byte(body), nil
}

// cancellingFetcher cancels the caller's context on the first fetch and fails
// the way the http client does when that happens.
type cancellingFetcher struct {
	cancel context.CancelFunc
	calls  []string
}

func (f *cancellingFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	f.calls = append(f.calls, u)
	f.cancel()
	return nil, &url.Error{Op: "Get", URL: u, Err: context.Canceled}
}

type recordingStore struct {
	feed      riffle.Feed
	sourceURL string
	err       error
}

func (s *recordingStore) Upsert(_ context.Context, feed riffle.Feed, sourceURL string) (riffle.UpsertResult, error) {
	if s.err != nil {
		return riffle.UpsertResult{}, s.err
	}
	s.feed = feed
	s.sourceURL = sourceURL
	return riffle.UpsertResult{Channel: feed.Channel, Inserted: len(feed.Items)}, nil
}

func newSubscriber(f Fetcher, icons IconFinder, resolver ChannelResolver, store Store) Subscriber {
	return NewSubscriber(SubscriberParams{
		Fetcher:    f,
		Icons:      icons,
		Channels:   resolver,
		Store:      store,
		Text:       htmltext.Converter{},
		RetryDelay: time.Millisecond,
	})
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSubscribe_RSS(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fetch.UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSSFeed))
	})

	store := &recordingStore{}
	sub := newSubscriber(fetch.New(time.Second), fakeIcons{reachable: true}, fakeResolver{}, store)

	res, err := sub.Subscribe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	assert.Equal(t, srv.URL, store.sourceURL)
	assert.Equal(t, "Test RSS Feed", store.feed.Channel.Title)
	assert.Equal(t, "https://example.com", store.feed.Channel.Link)
	assert.Equal(t, "https://example.com/logo.png", store.feed.Channel.Image)

	require.Len(t, store.feed.Items, 2)
	assert.Equal(t, "RSS Post One", store.feed.Items[0].Title)
	assert.Equal(t, "First RSS post description", store.feed.Items[0].Description)
	assert.Equal(t, "rss-guid-2", store.feed.Items[1].GUID)
}

func TestSubscribe_Images(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSSFeed))
	})

	tests := []struct {
		name     string
		icons    fakeIcons
		expected string
	}{
		{name: "site icon wins", icons: fakeIcons{icon: "https://example.com/apple-touch-icon.png"}, expected: "https://example.com/apple-touch-icon.png"},
		{name: "reachable feed image kept", icons: fakeIcons{reachable: true}, expected: "https://example.com/logo.png"},
		{name: "dead feed image dropped", icons: fakeIcons{reachable: false}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			sub := newSubscriber(fetch.New(time.Second), tt.icons, fakeResolver{}, store)

			_, err := sub.Subscribe(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, store.feed.Channel.Image)
		})
	}
}

func TestSubscribe_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		target  error
	}{
		{name: "html page", body: "<html><body>hello</body></html>", message: "Invalid XML or Not a Feed"},
		{name: "plain text", body: "just words", message: "Invalid XML or Not a Feed"},
		{name: "rss without channel", body: `<?xml version="1.0"?><rss version="2.0"></rss>`, target: normalize.ErrRSSMissingChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			store := &recordingStore{}
			sub := newSubscriber(fetch.New(time.Second), fakeIcons{}, fakeResolver{}, store)

			_, err := sub.Subscribe(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Equal(t, errors.KindInput, errors.KindOf(err))
			if tt.message != "" {
				var e *errors.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.message, e.Message())
			}
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Empty(t, store.sourceURL)
		})
	}
}

func TestSubscribe_Retries(t *testing.T) {
	t.Run("not found is not retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		})

		sub := newSubscriber(fetch.New(time.Second), fakeIcons{}, fakeResolver{}, &recordingStore{})
		_, err := sub.Subscribe(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Equal(t, errors.KindTransient, errors.KindOf(err))
		assert.Equal(t, "HTTP 404", err.(*errors.Error).Message())
		assert.EqualValues(t, 1, hits.Load())
	})

	t.Run("server errors retried twice", func(t *testing.T) {
		var hits atomic.Int32
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		sub := newSubscriber(fetch.New(time.Second), fakeIcons{}, fakeResolver{}, &recordingStore{})
		_, err := sub.Subscribe(context.Background(), srv.URL)
		require.Error(t, err)

		var status fetch.StatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, http.StatusServiceUnavailable, status.Code)
		assert.EqualValues(t, 3, hits.Load())
	})

	t.Run("recovers after a flaky response", func(t *testing.T) {
		var hits atomic.Int32
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(testRSSFeed))
		})

		store := &recordingStore{}
		sub := newSubscriber(fetch.New(time.Second), fakeIcons{reachable: true}, fakeResolver{}, store)
		_, err := sub.Subscribe(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Test RSS Feed", store.feed.Channel.Title)
		assert.EqualValues(t, 2, hits.Load())
	})
}

func TestSubscribe_TogglesWWW(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://www.example.com/feed": testRSSFeed,
	}}
	store := &recordingStore{}
	sub := newSubscriber(fetcher, fakeIcons{reachable: true}, fakeResolver{}, store)

	_, err := sub.Subscribe(context.Background(), "example.com/feed")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/feed", "https://www.example.com/feed"}, fetcher.calls)
	assert.Equal(t, "https://www.example.com/feed", store.sourceURL)
}

func TestSubscribe_CanceledFetchIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &cancellingFetcher{cancel: cancel}
	sub := newSubscriber(fetcher, fakeIcons{reachable: true}, fakeResolver{}, &recordingStore{})

	_, err := sub.Subscribe(ctx, "example.com/feed")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, errors.KindUnknown, errors.KindOf(err))
	assert.Equal(t, []string{"https://example.com/feed"}, fetcher.calls)
}

func TestSubscribe_YouTube(t *testing.T) {
	t.Run("channel page resolves to its feed", func(t *testing.T) {
		feedURL := youtube.FeedURL("UC123")
		fetcher := &fakeFetcher{bodies: map[string]string{feedURL: testYouTubeFeed}}
		store := &recordingStore{}
		sub := newSubscriber(fetcher, fakeIcons{reachable: true}, fakeResolver{id: "UC123"}, store)

		_, err := sub.Subscribe(context.Background(), "https://www.youtube.com/@somechannel")
		require.NoError(t, err)
		assert.Equal(t, feedURL, store.sourceURL)
		require.Len(t, store.feed.Items, 1)
		assert.Equal(t, riffle.ItemTypeVideo, store.feed.Items[0].Type)
		require.NotNil(t, store.feed.Items[0].YouTube)
		assert.Equal(t, "abc", store.feed.Items[0].YouTube.VideoID)
	})

	t.Run("unresolvable channel", func(t *testing.T) {
		sub := newSubscriber(&fakeFetcher{}, fakeIcons{}, fakeResolver{err: youtube.ErrNoChannelID}, &recordingStore{})

		_, err := sub.Subscribe(context.Background(), "https://www.youtube.com/c/nobody")
		require.Error(t, err)
		assert.Equal(t, errors.KindInput, errors.KindOf(err))
		assert.ErrorIs(t, err, youtube.ErrNoChannelID)
	})

	t.Run("video page is rejected", func(t *testing.T) {
		fetcher := &fakeFetcher{}
		sub := newSubscriber(fetcher, fakeIcons{}, fakeResolver{}, &recordingStore{})

		_, err := sub.Subscribe(context.Background(), "https://www.youtube.com/watch?v=abc")
		require.Error(t, err)
		assert.Equal(t, errors.KindInput, errors.KindOf(err))
		assert.Equal(t, "Invalid YouTube URL", err.(*errors.Error).Message())
		assert.Empty(t, fetcher.calls)
	})
}

func TestSubscribe_StoreFailure(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"https://example.com/feed": testRSSFeed}}
	sub := newSubscriber(fetcher, fakeIcons{reachable: true}, fakeResolver{}, &recordingStore{err: stderrs.New("disk full")})

	_, err := sub.Subscribe(context.Background(), "https://example.com/feed")
	require.Error(t, err)
	assert.Equal(t, errors.KindStorage, errors.KindOf(err))
}

func TestSubscribe_BlankURL(t *testing.T) {
	sub := newSubscriber(&fakeFetcher{}, fakeIcons{}, fakeResolver{}, &recordingStore{})

	_, err := sub.Subscribe(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, errors.KindInput, errors.KindOf(err))
}

func TestEnsureProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "example.com/feed", expected: "https://example.com/feed"},
		{input: "http://example.com", expected: "http://example.com"},
		{input: "HTTPS://example.com", expected: "HTTPS://example.com"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ensureProtocol(tt.input))
		})
	}
}

func TestToggleWWW(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "https://example.com/feed", expected: "https://www.example.com/feed"},
		{input: "https://www.example.com/feed?x=1", expected: "https://example.com/feed?x=1"},
		{input: "http://localhost:8080/rss", expected: "http://www.localhost:8080/rss"},
		{input: "not a url", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, toggleWWW(tt.input))
		})
	}
}
