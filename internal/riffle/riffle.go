// Package riffle holds the canonical shapes every other package reads and
// writes: channels, items and collections, plus the repository surfaces
// implemented by the store.
package riffle

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// ItemType tells apart regular articles from YouTube uploads.
type ItemType string

const (
	ItemTypeArticle ItemType = "article"
	ItemTypeVideo   ItemType = "video"
	ItemTypeShort   ItemType = "short"
)

type (
	// Channel is a subscribed feed, keyed by the site link it advertises.
	Channel struct {
		Link           string     `db:"link" json:"link"`
		Title          string     `db:"title" json:"title"`
		Description    string     `db:"description" json:"description"`
		Language       string     `db:"language" json:"language,omitempty"`
		PubDate        string     `db:"pub_date" json:"pubDate,omitempty"`
		LastBuildDate  string     `db:"last_build_date" json:"lastBuildDate,omitempty"`
		Image          string     `db:"image" json:"image,omitempty"`
		FeedURL        string     `db:"feed_url" json:"feedUrl"`
		SavedAt        int64      `db:"saved_at" json:"savedAt"`
		CollectionIDs  StringList `db:"collection_ids" json:"collectionIds"`
		HideOnMainFeed bool       `db:"hide_on_main_feed" json:"hideOnMainFeed"`
		CustomTitle    string     `db:"custom_title" json:"customTitle,omitempty"`
	}

	// Item is a single entry of a channel.
	//
	// Read, Closed and Favourite are local state: ingestion never changes them.
	Item struct {
		ID           string     `db:"id" json:"id"`
		ChannelID    string     `db:"channel_id" json:"channelId"`
		Title        string     `db:"title" json:"title"`
		Description  string     `db:"description" json:"description"`
		Link         string     `db:"link" json:"link"`
		PubDate      string     `db:"pub_date" json:"pubDate,omitempty"`
		Author       string     `db:"author" json:"author,omitempty"`
		Category     StringList `db:"category" json:"category,omitempty"`
		Image        string     `db:"image" json:"image,omitempty"`
		GUID         string     `db:"guid" json:"guid,omitempty"`
		Type         ItemType   `db:"type" json:"type"`
		YouTube      *YouTube   `db:"youtube" json:"youtube,omitempty"`
		SavedAt      int64      `db:"saved_at" json:"savedAt"`
		Timestamp    int64      `db:"timestamp" json:"timestamp"`
		Read         bool       `db:"read" json:"read"`
		Closed       bool       `db:"closed" json:"closed"`
		Favourite    int        `db:"favourite" json:"favourite"`
		SearchTokens string     `db:"search_tokens" json:"-"`
	}

	// YouTube carries the extra bits a YouTube Atom entry has.
	YouTube struct {
		VideoID    string     `json:"videoId"`
		ChannelID  string     `json:"channelId"`
		IsShort    bool       `json:"isShort"`
		Thumbnails Thumbnails `json:"thumbnails"`
	}

	Thumbnails struct {
		Default string `json:"default,omitempty"`
		Medium  string `json:"medium,omitempty"`
		High    string `json:"high,omitempty"`
	}

	// Collection is a user-named group of channels.
	Collection struct {
		ID        string `db:"id" json:"id"`
		Name      string `db:"name" json:"name"`
		CreatedAt int64  `db:"created_at" json:"createdAt"`
	}

	// Feed is what the normalizer hands to the store.
	Feed struct {
		Channel Channel
		Items   []Item

		// Entries dropped for being malformed.
		Skipped int
	}
)

// DisplayTitle is the user override if there is one.
func (c Channel) DisplayTitle() string {
	if c.CustomTitle != "" {
		return c.CustomTitle
	}
	return c.Title
}

// InCollection reports whether the channel is a member of the collection.
func (c Channel) InCollection(id string) bool {
	for _, cid := range c.CollectionIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// StringList is stored as a JSON array.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	byts, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(byts), nil
}

func (s *StringList) Scan(src any) error {
	var byts []byte
	switch src := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		byts = []byte(src)
	case []byte:
		byts = src
	default:
		return fmt.Errorf("unsupported type for string list: %T", src)
	}

	var list []string
	if err := json.Unmarshal(byts, &list); err != nil {
		return fmt.Errorf("error decoding string list: %w", err)
	}
	*s = list
	return nil
}

func (y YouTube) Value() (driver.Value, error) {
	byts, err := json.Marshal(y)
	if err != nil {
		return nil, err
	}
	return string(byts), nil
}

func (y *YouTube) Scan(src any) error {
	switch src := src.(type) {
	case string:
		return json.Unmarshal([]byte(src), y)
	case []byte:
		return json.Unmarshal(src, y)
	default:
		return fmt.Errorf("unsupported type for youtube metadata: %T", src)
	}
}
