// Package v1 holds the request and response bodies of the HTTP API.
package v1

import (
	"strings"
	"unicode/utf8"

	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/riffle"
)

const (
	MaxTitleLength = 200
	MaxNameLength  = 100
	MaxBatchURLs   = 50
)

type (
	// SubscribeRequest takes either a single URL or a batch of them.
	SubscribeRequest struct {
		URL  string   `json:"url,omitempty"`
		URLs []string `json:"urls,omitempty"`
	}

	SubscribeResponse struct {
		Channel  riffle.Channel `json:"channel"`
		NewItems int            `json:"newItems"`
	}

	// SubscribeResult is one entry of a batch subscribe. Error is set
	// whenever Success is false.
	SubscribeResult struct {
		URL      string          `json:"url"`
		Success  bool            `json:"success"`
		Channel  *riffle.Channel `json:"channel,omitempty"`
		NewItems int             `json:"newItems,omitempty"`
		Error    string          `json:"error,omitempty"`
	}

	BatchSubscribeResponse struct {
		Results []SubscribeResult `json:"results"`
	}

	UpdateItemRequest struct {
		Read      *bool `json:"read"`
		Closed    *bool `json:"closed"`
		Favourite *bool `json:"favourite"`
	}

	UpdateChannelSettingsRequest struct {
		CustomTitle    *string  `json:"customTitle"`
		HideOnMainFeed *bool    `json:"hideOnMainFeed"`
		CollectionIDs  []string `json:"collectionIds"`
	}

	CreateCollectionRequest struct {
		Name string `json:"name"`
	}

	ItemsResponse struct {
		Items      []riffle.TimelineItem `json:"items"`
		Pagination Pagination            `json:"pagination"`
	}

	Pagination struct {
		Page    int  `json:"page"`
		Limit   int  `json:"limit"`
		Total   int  `json:"total"`
		HasMore bool `json:"hasMore"`
	}

	ChannelsResponse struct {
		Channels []riffle.Channel `json:"channels"`
	}

	CollectionsResponse struct {
		Collections []riffle.Collection `json:"collections"`
	}

	ReaderResponse struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		Title   string `json:"title"`
		Byline  string `json:"byline,omitempty"`
		Content string `json:"content"`
	}
)

func invalid(details []errors.Detail) error {
	if len(details) == 0 {
		return nil
	}
	return errors.E(errors.KindInput, "invalid request", details)
}

// Validate checks that the body (minus logic checks) is valid.
func (r SubscribeRequest) Validate() error {
	var errs []errors.Detail
	switch {
	case strings.TrimSpace(r.URL) == "" && len(r.URLs) == 0:
		errs = append(errs, errors.Detail{Field: "url", Error: "url or urls is required"})
	case r.URL != "" && len(r.URLs) > 0:
		errs = append(errs, errors.Detail{Field: "urls", Error: "cannot be combined with url"})
	case len(r.URLs) > MaxBatchURLs:
		errs = append(errs, errors.Detail{Field: "urls", Error: "too many urls"})
	}
	for _, u := range r.URLs {
		if strings.TrimSpace(u) == "" {
			errs = append(errs, errors.Detail{Field: "urls", Error: "urls cannot be blank"})
			break
		}
	}

	return invalid(errs)
}

func (r UpdateItemRequest) Validate() error {
	if r.Read == nil && r.Closed == nil && r.Favourite == nil {
		return invalid([]errors.Detail{{Field: "read", Error: "one of read, closed or favourite is required"}})
	}
	return nil
}

func (r UpdateChannelSettingsRequest) Validate() error {
	var errs []errors.Detail
	if r.CustomTitle != nil && utf8.RuneCountInString(*r.CustomTitle) > MaxTitleLength {
		errs = append(errs, errors.Detail{Field: "customTitle", Error: "too long"})
	}
	for _, id := range r.CollectionIDs {
		if id == "" {
			errs = append(errs, errors.Detail{Field: "collectionIds", Error: "ids cannot be blank"})
			break
		}
	}

	return invalid(errs)
}

func (r CreateCollectionRequest) Validate() error {
	var errs []errors.Detail
	switch name := strings.TrimSpace(r.Name); {
	case name == "":
		errs = append(errs, errors.Detail{Field: "name", Error: "required"})
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs = append(errs, errors.Detail{Field: "name", Error: "too long"})
	}

	return invalid(errs)
}
