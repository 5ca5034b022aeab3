// Package timeline answers paginated reads over the store's item indexes.
//
// Every query picks one index, walks it newest first and filters in memory,
// walking to the end so that totals are exact.
package timeline

import (
	"context"
	"fmt"
	"iter"
	"math"

	"github.com/jdholdren/riffle/internal/errors"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/search"
)

// Repo is the part of the store the timeline reads from.
type Repo interface {
	AllChannels(ctx context.Context) ([]riffle.Channel, error)
	ScanItems(ctx context.Context, r riffle.IndexRange) iter.Seq2[riffle.Item, error]
}

type Service struct {
	repo Repo
}

func NewService(repo Repo) Service {
	return Service{repo: repo}
}

// plan is what a query turned into: the index to walk and the in-memory
// filters applied to each row.
type plan struct {
	rng    riffle.IndexRange
	allow  map[string]bool // nil lets every channel through
	query  search.Query
	dedupe bool
}

func (p plan) keep(item riffle.Item) bool {
	if item.Closed {
		return false
	}
	if p.allow != nil && !p.allow[item.ChannelID] {
		return false
	}
	return p.query.Match(item.SearchTokens)
}

// planFor chooses the index for a filter. The first matching rule wins: a
// search ignores every other filter, then channel, favourites and
// collection, and only the unfiltered view hides channels and deduplicates.
func planFor(f riffle.Filter, channels []riffle.Channel) plan {
	if q := search.NewQuery(f.Search); !q.Blank() {
		return plan{rng: riffle.IndexRange{Index: riffle.IndexByDate}, query: q}
	}

	switch {
	case f.ChannelID != "":
		return plan{rng: riffle.IndexRange{Index: riffle.IndexByChannelDate, ChannelID: f.ChannelID}}
	case f.OnlyFavourites:
		return plan{rng: riffle.IndexRange{Index: riffle.IndexByFavDate}}
	case f.CollectionID != "":
		allow := map[string]bool{}
		for _, ch := range channels {
			if ch.InCollection(f.CollectionID) {
				allow[ch.Link] = true
			}
		}
		return plan{rng: riffle.IndexRange{Index: riffle.IndexByDate}, allow: allow}
	}

	p := plan{rng: riffle.IndexRange{Index: riffle.IndexByDate}, dedupe: true}
	for _, ch := range channels {
		if ch.HideOnMainFeed {
			p.allow = visible(channels)
			break
		}
	}
	return p
}

func visible(channels []riffle.Channel) map[string]bool {
	allow := map[string]bool{}
	for _, ch := range channels {
		if !ch.HideOnMainFeed {
			allow[ch.Link] = true
		}
	}
	return allow
}

// Paginate returns one page of the timeline the query describes, plus the
// number of items across all pages.
func (s Service) Paginate(ctx context.Context, q riffle.Query) (riffle.Page, error) {
	if q.Limit <= 0 {
		return riffle.Page{}, errors.E(errors.KindInput, fmt.Sprintf("limit must be positive, got %d", q.Limit))
	}
	if q.Page < 1 {
		q.Page = 1
	}

	// Channel reads finish before the scan opens its own transaction.
	channels, err := s.repo.AllChannels(ctx)
	if err != nil {
		return riffle.Page{}, errors.E(errors.KindStorage, fmt.Errorf("error listing channels: %w", err))
	}
	p := planFor(q.Filter, channels)

	// A page past what an int can address still walks the index for the total.
	skip := math.MaxInt
	if q.Page-1 <= math.MaxInt/q.Limit {
		skip = (q.Page - 1) * q.Limit
	}
	pg := pager{skip: skip, limit: q.Limit}
	if p.dedupe {
		err = s.scanDeduped(ctx, p, &pg)
	} else {
		err = s.scan(ctx, p, &pg)
	}
	if err != nil {
		return riffle.Page{}, errors.E(errors.KindStorage, err)
	}

	return riffle.Page{
		Items: decorate(pg.items, channels),
		Total: pg.total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

func (s Service) scan(ctx context.Context, p plan, pg *pager) error {
	for item, err := range s.repo.ScanItems(ctx, p.rng) {
		if err != nil {
			return err
		}
		if p.keep(item) {
			pg.add(item)
		}
	}
	return nil
}

// scanDeduped collapses items sharing a link into the one saved last. The
// survivor keeps its own place in the walk, and items without a link are
// never merged.
func (s Service) scanDeduped(ctx context.Context, p plan, pg *pager) error {
	var (
		kept   []riffle.Item
		winner = map[string]int{} // link to index in kept
	)
	for item, err := range s.repo.ScanItems(ctx, p.rng) {
		if err != nil {
			return err
		}
		if !p.keep(item) {
			continue
		}

		kept = append(kept, item)
		if item.Link == "" {
			continue
		}
		if i, ok := winner[item.Link]; !ok || item.SavedAt > kept[i].SavedAt {
			winner[item.Link] = len(kept) - 1
		}
	}

	for i, item := range kept {
		if item.Link != "" && winner[item.Link] != i {
			continue
		}
		pg.add(item)
	}
	return nil
}

// pager counts every match and keeps the ones that land on the page.
type pager struct {
	skip, limit int
	total       int
	items       []riffle.Item
}

func (p *pager) add(item riffle.Item) {
	p.total++
	if p.total > p.skip && len(p.items) < p.limit {
		p.items = append(p.items, item)
	}
}

func decorate(items []riffle.Item, channels []riffle.Channel) []riffle.TimelineItem {
	byLink := make(map[string]riffle.Channel, len(channels))
	for _, ch := range channels {
		byLink[ch.Link] = ch
	}

	out := make([]riffle.TimelineItem, 0, len(items))
	for _, item := range items {
		ch := byLink[item.ChannelID]
		out = append(out, riffle.TimelineItem{
			Item:         item,
			ChannelTitle: ch.DisplayTitle(),
			ChannelImage: ch.Image,
		})
	}
	return out
}
