package riffle

import (
	"context"
	"iter"
)

type (
	ChannelRepo interface {
		Channel(ctx context.Context, link string) (Channel, error)
		AllChannels(ctx context.Context) ([]Channel, error)
		Upsert(ctx context.Context, feed Feed, sourceURL string) (UpsertResult, error)
		DeleteChannel(ctx context.Context, link string) error
		UpdateChannelSettings(ctx context.Context, link string, args UpdateChannelSettingsArgs) (Channel, error)
		ToggleChannelCollection(ctx context.Context, link, collectionID string) (Channel, error)
	}

	ItemRepo interface {
		Item(ctx context.Context, id string) (Item, error)
		AllItems(ctx context.Context) ([]Item, error)
		UpdateItem(ctx context.Context, id string, args UpdateItemArgs) (Item, error)
		ScanItems(ctx context.Context, r IndexRange) iter.Seq2[Item, error]
	}

	CollectionRepo interface {
		CreateCollection(ctx context.Context, name string) (Collection, error)
		AllCollections(ctx context.Context) ([]Collection, error)
		DeleteCollection(ctx context.Context, id string) error
	}

	Repository interface {
		ChannelRepo
		ItemRepo
		CollectionRepo
	}

	// UpsertResult reports what a single channel upsert changed.
	UpsertResult struct {
		Channel   Channel
		Inserted  int
		Updated   int
		Unchanged int
	}

	// Holds the optional fields for updating a channel's user settings.
	//
	// A nil CollectionIDs leaves membership alone; an empty one clears it.
	UpdateChannelSettingsArgs struct {
		CustomTitle    *string
		HideOnMainFeed *bool
		CollectionIDs  []string
	}

	// Holds the optional fields for updating an item's local state.
	UpdateItemArgs struct {
		Read      *bool
		Closed    *bool
		Favourite *bool
	}
)

// Index names one of the item indexes the store keeps.
type Index string

const (
	IndexByChannel     Index = "items_by_channel"
	IndexByDate        Index = "items_by_date"
	IndexByChannelDate Index = "items_by_channel_date"
	IndexByFavDate     Index = "items_by_fav_date"
)

// IndexRange is a descending walk over one index.
//
// ChannelID bounds IndexByChannel and IndexByChannelDate; IndexByFavDate is
// always bounded to favourite=1.
type IndexRange struct {
	Index     Index
	ChannelID string
}

type (
	// Filter narrows a timeline query. At most one of ChannelID, CollectionID
	// and OnlyFavourites is honoured; a non-blank Search overrides all of them.
	Filter struct {
		ChannelID      string
		CollectionID   string
		OnlyFavourites bool
		Search         string
	}

	Query struct {
		Page  int
		Limit int
		Filter
	}

	// TimelineItem is an item decorated with its channel's display fields.
	TimelineItem struct {
		Item

		ChannelTitle string `json:"channelTitle"`
		ChannelImage string `json:"channelImage,omitempty"`
	}

	Page struct {
		Items []TimelineItem
		Total int
		Page  int
		Limit int
	}

	// SyncResult is the aggregate outcome of syncing every channel.
	SyncResult struct {
		Synced   int `json:"synced"`
		Errors   int `json:"errors"`
		NewItems int `json:"newItems"`
	}
)
