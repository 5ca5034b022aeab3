package normalize

import (
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
)

func (n Normalizer) rss(ch xmltree.Node) riffle.Feed {
	items, skipped := collect(ch.Get("item").Items(), n.rssItem)

	return riffle.Feed{
		Channel: riffle.Channel{
			Title:         text(ch.Get("title")),
			Description:   text(first(ch.Get("description"), ch.Get("content:encoded"))),
			Link:          link(ch.Get("link")),
			Language:      text(ch.Get("language")),
			PubDate:       text(ch.Get("pubDate")),
			LastBuildDate: text(ch.Get("lastBuildDate")),
			Image:         channelImage(ch.Get("image")),
		},
		Items:   items,
		Skipped: skipped,
	}
}

func (n Normalizer) rssItem(item xmltree.Node) riffle.Item {
	raw := rawDescription(item, "description", "content:encoded", "summary")

	guid := text(item.Get("guid"))
	if guid == "" {
		guid = text(item.Get("id"))
	}

	return riffle.Item{
		Title:       text(item.Get("title")),
		Description: n.plain(raw),
		Link:        link(first(item.Get("link"), item.Get("@_rdf:about"))),
		PubDate:     text(first(item.Get("pubDate"), item.Get("dc:date"), item.Get("published"), item.Get("updated"))),
		Author:      text(first(item.Get("author"), item.Get("dc:creator"), item.Get("itunes:author"))),
		Category:    categories(item),
		Image:       itemImage(item, raw),
		GUID:        guid,
		Type:        riffle.ItemTypeArticle,
	}
}
