package normalize

import (
	"bytes"
	"errors"

	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/riffle/internal/xmltree"
)

var (
	ErrRSSMissingChannel = errors.New("RSS feed missing required <channel> element")
	ErrRSSMissingTitle   = errors.New("RSS channel missing required title or link")
	ErrAtomMissingTitle  = errors.New("Atom feed missing required <title> element")
	ErrRDFMissingChannel = errors.New("RDF feed missing required <channel> element")
	ErrUnrecognized      = errors.New("Unrecognized feed format. Must be RSS 2.0, Atom, or RDF")
)

var feedMarkers = [][]byte{[]byte("<?xml"), []byte("<rss"), []byte("<feed"), []byte("<rdf:RDF")}

// LooksLikeFeed is a cheap sniff of a fetched body before it is parsed: it
// must be markup that mentions a feed root, and gofeed must find an RSS or
// Atom root in it.
func LooksLikeFeed(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}

	marked := false
	for _, m := range feedMarkers {
		if bytes.Contains(trimmed, m) {
			marked = true
			break
		}
	}
	if !marked {
		return false
	}

	return gofeed.DetectFeedType(bytes.NewReader(trimmed)) != gofeed.FeedTypeUnknown
}

// ValidateStructure checks the minimum a document needs to be worth
// normalizing.
func ValidateStructure(doc xmltree.Node) error {
	switch {
	case doc.Has("rss"):
		ch := doc.Path("rss", "channel")
		if !present(ch) {
			return ErrRSSMissingChannel
		}
		if !present(ch.Get("title")) && !present(ch.Get("link")) {
			return ErrRSSMissingTitle
		}
	case doc.Has("feed"):
		if !present(doc.Path("feed", "title")) {
			return ErrAtomMissingTitle
		}
	case doc.Has("rdf:RDF"):
		if !present(doc.Path("rdf:RDF", "channel")) {
			return ErrRDFMissingChannel
		}
	default:
		return ErrUnrecognized
	}

	return nil
}
