package normalize

import (
	"cmp"
	"strings"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
)

func (n Normalizer) youtube(feed xmltree.Node) riffle.Feed {
	items, skipped := collect(feed.Get("entry").Items(), n.youtubeEntry)

	return riffle.Feed{
		Channel: atomChannel(feed, feed.Get("media:thumbnail").Attr("url")),
		Items:   items,
		Skipped: skipped,
	}
}

func (n Normalizer) youtubeEntry(entry xmltree.Node) riffle.Item {
	var (
		group = entry.Get("media:group")
		l     = link(entry.Get("link"))
		short = IsShort(l)
		thumb = thumbnails(group)
	)

	typ := riffle.ItemTypeVideo
	if short {
		typ = riffle.ItemTypeShort
	}

	return riffle.Item{
		Title:       text(entry.Get("title")),
		Description: text(group.Get("media:description")),
		Link:        l,
		PubDate:     text(first(entry.Get("published"), entry.Get("updated"))),
		Author:      text(entry.Path("author", "name")),
		Category:    categories(entry),
		Image:       cmp.Or(thumb.High, thumb.Medium, thumb.Default),
		GUID:        text(entry.Get("id")),
		Type:        typ,
		YouTube: &riffle.YouTube{
			VideoID:    text(entry.Get("yt:videoId")),
			ChannelID:  text(entry.Get("yt:channelId")),
			IsShort:    short,
			Thumbnails: thumb,
		},
	}
}

// IsShort reports whether a video link points at a Short.
func IsShort(link string) bool {
	return strings.Contains(link, "/shorts/")
}

// thumbnails buckets the group's thumbnails by their advertised width. A lone
// thumbnail is the default one whatever its width.
func thumbnails(group xmltree.Node) riffle.Thumbnails {
	var t riffle.Thumbnails

	thumb := group.Get("media:thumbnail")
	if thumb.Kind() != xmltree.KindArray {
		t.Default = thumb.Attr("url")
		return t
	}

	for _, th := range thumb.Items() {
		switch th.Attr("width") {
		case "480":
			t.High = th.Attr("url")
		case "320":
			t.Medium = th.Attr("url")
		case "120", "":
			t.Default = th.Attr("url")
		}
	}
	return t
}
