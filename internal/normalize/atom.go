package normalize

import (
	"strings"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
)

func (n Normalizer) atom(feed xmltree.Node) riffle.Feed {
	items, skipped := collect(feed.Get("entry").Items(), n.atomEntry)

	return riffle.Feed{
		Channel: atomChannel(feed, channelImage(first(feed.Get("icon"), feed.Get("logo")))),
		Items:   items,
		Skipped: skipped,
	}
}

func atomChannel(feed xmltree.Node, image string) riffle.Channel {
	return riffle.Channel{
		Title:         text(feed.Get("title")),
		Description:   text(first(feed.Get("subtitle"), feed.Get("description"))),
		Link:          link(feed.Get("link")),
		Language:      text(feed.Get("language")),
		PubDate:       text(first(feed.Get("published"), feed.Get("updated"))),
		LastBuildDate: text(feed.Get("updated")),
		Image:         image,
	}
}

func (n Normalizer) atomEntry(entry xmltree.Node) riffle.Item {
	raw := rawDescription(entry, "description", "content:encoded", "summary", "content")

	return riffle.Item{
		Title:       text(entry.Get("title")),
		Description: n.plain(raw),
		Link:        link(entry.Get("link")),
		PubDate:     text(first(entry.Get("published"), entry.Get("updated"))),
		Author:      atomAuthor(entry.Get("author")),
		Category:    categories(entry),
		Image:       itemImage(entry, raw),
		GUID:        text(entry.Get("id")),
		Type:        riffle.ItemTypeArticle,
	}
}

// atomAuthor joins the names of every author element.
func atomAuthor(author xmltree.Node) string {
	if s, ok := author.Str(); ok {
		return s
	}

	var names []string
	for _, a := range author.Items() {
		if name := text(a.Get("name")); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
