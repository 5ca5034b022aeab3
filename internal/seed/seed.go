// Package seed subscribes to a list of feeds kept in a YAML file, so a fresh
// database starts out with something to read.
//
//	- url: https://go.dev/blog/feed.atom
//	  collections: [Go]
//	- url: https://www.youtube.com/@golang
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jdholdren/riffle/internal/riffle"
)

type Entry struct {
	URL         string   `yaml:"url"`
	Collections []string `yaml:"collections"`
}

// Load reads the entries of a seed file. Entries without a url are dropped.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing seed file: %w", err)
	}

	kept := entries[:0]
	for _, e := range entries {
		e.URL = strings.TrimSpace(e.URL)
		if e.URL != "" {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

type (
	Subscriber interface {
		Subscribe(ctx context.Context, rawURL string) (riffle.UpsertResult, error)
	}

	Repo interface {
		AllCollections(ctx context.Context) ([]riffle.Collection, error)
		CreateCollection(ctx context.Context, name string) (riffle.Collection, error)
		ToggleChannelCollection(ctx context.Context, link, collectionID string) (riffle.Channel, error)
	}
)

// Apply subscribes to every entry and puts it in its collections, creating
// the ones that don't exist yet by name. A feed that fails to subscribe is
// logged and skipped. Running it again changes nothing.
func Apply(ctx context.Context, entries []Entry, sub Subscriber, repo Repo) error {
	existing, err := repo.AllCollections(ctx)
	if err != nil {
		return fmt.Errorf("error listing collections: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	for _, e := range entries {
		res, err := sub.Subscribe(ctx, e.URL)
		if err != nil {
			slog.WarnContext(ctx, "error seeding feed", "url", e.URL, "error", err)
			continue
		}

		for _, name := range e.Collections {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			id, ok := byName[strings.ToLower(name)]
			if !ok {
				c, err := repo.CreateCollection(ctx, name)
				if err != nil {
					return fmt.Errorf("error creating collection %q: %w", name, err)
				}
				id = c.ID
				byName[strings.ToLower(name)] = id
			}

			// Toggling would take it back out.
			if res.Channel.InCollection(id) {
				continue
			}
			ch, err := repo.ToggleChannelCollection(ctx, res.Channel.Link, id)
			if err != nil {
				return fmt.Errorf("error adding %q to collection %q: %w", res.Channel.Link, name, err)
			}
			res.Channel = ch
		}
	}

	slog.InfoContext(ctx, "seeded", "feeds", len(entries))
	return nil
}
