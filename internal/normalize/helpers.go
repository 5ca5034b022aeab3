package normalize

import (
	"regexp"
	"strings"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/xmltree"
)

var (
	htmlTag = regexp.MustCompile(`(?is)<[a-z].*>`)
	imgSrc  = regexp.MustCompile(`(?i)<img[^>]+src="([^">]+)"`)
)

// present mirrors what a feed author would consider "set": any node other
// than a missing one or an empty string.
func present(n xmltree.Node) bool {
	switch n.Kind() {
	case xmltree.KindNone:
		return false
	case xmltree.KindString:
		s, _ := n.Str()
		return s != ""
	default:
		return true
	}
}

// first returns the first present node.
func first(nodes ...xmltree.Node) xmltree.Node {
	for _, n := range nodes {
		if present(n) {
			return n
		}
	}
	return xmltree.Node{}
}

// text resolves a node to its text: the string itself, the #text of an
// object, or the object's first string child element. Arrays resolve to their
// first element.
func text(n xmltree.Node) string {
	switch n.Kind() {
	case xmltree.KindString:
		s, _ := n.Str()
		return s
	case xmltree.KindObject:
		if s, _ := n.Get(xmltree.TextKey).Str(); s != "" {
			return s
		}

		var out string
		n.Members(func(key string, val xmltree.Node) bool {
			if strings.HasPrefix(key, xmltree.AttrPrefix) {
				return true
			}
			if s, ok := val.Str(); ok && s != "" {
				out = s
				return false
			}
			return true
		})
		return out
	case xmltree.KindArray:
		items := n.Items()
		if len(items) > 0 {
			return text(items[0])
		}
	}

	return ""
}

// link resolves a link field. In a list of links the one marked
// rel="alternate" wins, otherwise the first usable one.
func link(n xmltree.Node) string {
	switch n.Kind() {
	case xmltree.KindString:
		s, _ := n.Str()
		return s
	case xmltree.KindObject:
		if href := n.Attr("href"); href != "" {
			return href
		}
		s, _ := n.Get(xmltree.TextKey).Str()
		return s
	case xmltree.KindArray:
		var fallback string
		for _, l := range n.Items() {
			if s, ok := l.Str(); ok {
				if fallback == "" {
					fallback = s
				}
				continue
			}

			href := l.Attr("href")
			if href == "" {
				continue
			}
			if l.Attr("rel") == "alternate" {
				return href
			}
			if fallback == "" {
				fallback = href
			}
		}
		return fallback
	}

	return ""
}

// rawDescription is the text of the first non-empty body field.
func rawDescription(entry xmltree.Node, fields ...string) string {
	for _, f := range fields {
		if desc := text(entry.Get(f)); desc != "" {
			return desc
		}
	}
	return ""
}

// plain flattens any HTML in a description. A conversion failure keeps the
// original text.
func (n Normalizer) plain(desc string) string {
	if desc == "" || !htmlTag.MatchString(desc) || n.text == nil {
		return desc
	}

	converted, err := n.text.Convert(desc)
	if err != nil {
		return desc
	}
	return strings.TrimSpace(converted)
}

// categories reads the category elements of an entry. A missing field stays
// nil.
func categories(entry xmltree.Node) riffle.StringList {
	cat := entry.Get("category")
	if !present(cat) {
		return nil
	}

	var out riffle.StringList
	for _, c := range cat.Items() {
		out = append(out, category(c))
	}
	return out
}

func category(c xmltree.Node) string {
	if s, ok := c.Str(); ok {
		return s
	}
	if s, _ := c.Get(xmltree.TextKey).Str(); s != "" {
		return s
	}
	if term := c.Attr("term"); term != "" {
		return term
	}
	return text(c)
}

// channelImage resolves a channel-level image field.
func channelImage(n xmltree.Node) string {
	switch n.Kind() {
	case xmltree.KindString:
		s, _ := n.Str()
		return s
	case xmltree.KindObject:
		if u := text(n.Get("url")); u != "" {
			return u
		}
		return n.Attr("href")
	}
	return ""
}

// itemImage tries the usual places an entry keeps a picture, in order of
// how deliberate they are. The last resort is an <img> in the raw body.
func itemImage(entry xmltree.Node, rawDesc string) string {
	media := entry.Get("media:content")
	if u := media.Attr("url"); u != "" {
		return u
	}
	if media.Kind() == xmltree.KindArray {
		for _, m := range media.Items() {
			if m.Attr("medium") == "image" && m.Attr("url") != "" {
				return m.Attr("url")
			}
		}
		for _, m := range media.Items() {
			if u := m.Attr("url"); u != "" {
				return u
			}
		}
	}

	for _, enc := range entry.Get("enclosure").Items() {
		if strings.HasPrefix(enc.Attr("type"), "image/") && enc.Attr("url") != "" {
			return enc.Attr("url")
		}
	}

	for _, thumb := range entry.Get("media:thumbnail").Items() {
		if u := thumb.Attr("url"); u != "" {
			return u
		}
	}

	if href := entry.Get("itunes:image").Attr("href"); href != "" {
		return href
	}

	if m := imgSrc.FindStringSubmatch(rawDesc); m != nil {
		return m[1]
	}

	return ""
}
