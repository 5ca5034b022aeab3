package normalize

import (
	"cmp"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
)

// RDF (RSS 1.0) keeps its items as siblings of the channel, not children.
func (n Normalizer) rdf(rdf xmltree.Node) riffle.Feed {
	ch := rdf.Get("channel")
	items, skipped := collect(rdf.Get("item").Items(), n.rdfItem)

	return riffle.Feed{
		Channel: riffle.Channel{
			Title:       text(ch.Get("title")),
			Description: text(ch.Get("description")),
			Link:        link(ch.Get("link")),
			Language:    text(ch.Get("dc:language")),
			PubDate:     text(ch.Get("dc:date")),
			Image:       channelImage(ch.Get("image")),
		},
		Items:   items,
		Skipped: skipped,
	}
}

func (n Normalizer) rdfItem(item xmltree.Node) riffle.Item {
	raw := rawDescription(item, "description", "content:encoded", "summary")

	return riffle.Item{
		Title:       text(item.Get("title")),
		Description: n.plain(raw),
		Link:        link(first(item.Get("link"), item.Get("@_rdf:about"), item.Get("@_about"))),
		PubDate:     text(item.Get("dc:date")),
		Author:      text(item.Get("dc:creator")),
		Category:    categories(item),
		Image:       itemImage(item, raw),
		GUID:        cmp.Or(item.Attr("rdf:about"), item.Attr("about")),
		Type:        riffle.ItemTypeArticle,
	}
}
