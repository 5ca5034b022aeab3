// Package normalize converts parsed feed documents of any supported dialect
// into the canonical channel and item shapes.
package normalize

import (
	"errors"
	"strings"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
)

// Format is the dialect of a feed document.
type Format string

const (
	FormatUnknown Format = ""
	FormatRSS     Format = "rss"
	FormatAtom    Format = "atom"
	FormatRDF     Format = "rdf"
	FormatYouTube Format = "youtube"
)

var ErrNotYouTube = errors.New("invalid YouTube RSS feed format")

// TextConverter flattens HTML into plain text.
type TextConverter interface {
	Convert(html string) (string, error)
}

// Normalizer does no I/O. The converter is only used for descriptions that
// carry markup; a nil converter leaves them as they are.
type Normalizer struct {
	text TextConverter
}

func New(text TextConverter) Normalizer {
	return Normalizer{text: text}
}

// HintFor guesses the format from the URL a document was fetched from. Only
// YouTube feeds can be told apart this way.
func HintFor(feedURL string) Format {
	if strings.Contains(feedURL, "youtube.com/feeds/videos.xml") {
		return FormatYouTube
	}
	return FormatUnknown
}

// Detect tells the dialect from the document's root.
func Detect(doc xmltree.Node) Format {
	switch {
	case doc.Has("rss"):
		return FormatRSS
	case doc.Has("feed"):
		for _, e := range doc.Path("feed", "entry").Items() {
			if e.Has("yt:videoId") {
				return FormatYouTube
			}
		}
		return FormatAtom
	case doc.Has("rdf:RDF"):
		return FormatRDF
	}
	return FormatUnknown
}

// Normalize converts doc into a canonical feed. A document with an
// unrecognised root gives an empty feed rather than an error; only a YouTube
// hint on a non-Atom document fails.
//
// Entries that are not elements with children are skipped and counted.
func (n Normalizer) Normalize(doc xmltree.Node, hint Format) (riffle.Feed, error) {
	format := Detect(doc)
	if hint == FormatYouTube {
		if format != FormatAtom && format != FormatYouTube {
			return riffle.Feed{}, ErrNotYouTube
		}
		format = FormatYouTube
	}

	switch format {
	case FormatRSS:
		if ch := doc.Path("rss", "channel"); ch.Kind() == xmltree.KindObject {
			return n.rss(ch), nil
		}
	case FormatAtom:
		return n.atom(doc.Get("feed")), nil
	case FormatYouTube:
		return n.youtube(doc.Get("feed")), nil
	case FormatRDF:
		return n.rdf(doc.Get("rdf:RDF")), nil
	}

	return riffle.Feed{}, nil
}

// collect runs fn over each entry, skipping the ones that are not objects.
func collect(nodes []xmltree.Node, fn func(xmltree.Node) riffle.Item) ([]riffle.Item, int) {
	items := make([]riffle.Item, 0, len(nodes))
	skipped := 0
	for _, e := range nodes {
		if e.Kind() != xmltree.KindObject {
			skipped++
			continue
		}
		items = append(items, fn(e))
	}
	return items, skipped
}
