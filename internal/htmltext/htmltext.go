// Package htmltext flattens HTML fragments into plain text.
package htmltext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Converter turns HTML into text. Block elements become line breaks, and
// nothing is wrapped.
type Converter struct{}

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\f\v]+`)
	lineSpace  = regexp.MustCompile(` *\n *`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

var paragraphs = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "ul": true, "ol": true,
}

var blocks = map[string]bool{
	"div": true, "li": true, "tr": true, "section": true, "article": true,
	"header": true, "footer": true, "figure": true, "figcaption": true, "dt": true, "dd": true,
}

func (Converter) Convert(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("error parsing html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	w := &textWriter{}
	for _, n := range doc.Nodes {
		w.walk(n)
	}

	out := spaceRun.ReplaceAllString(w.String(), " ")
	out = lineSpace.ReplaceAllString(out, "\n")
	out = newlineRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

// textWriter holds back line breaks until there is text to separate, so
// nested and adjacent blocks do not stack up blank lines.
type textWriter struct {
	strings.Builder
	pending int
}

func (w *textWriter) lineBreak(n int) {
	w.pending = max(w.pending, n)
}

func (w *textWriter) text(s string) {
	s = strings.ReplaceAll(s, "\n", " ")
	if w.pending > 0 {
		if strings.TrimSpace(s) == "" {
			return
		}
		if w.Len() > 0 {
			w.WriteString(strings.Repeat("\n", w.pending))
		}
		w.pending = 0
	}
	w.WriteString(s)
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		switch {
		case n.Data == "br":
			w.pending++
			return
		case n.Data == "hr":
			w.lineBreak(2)
			return
		case paragraphs[n.Data]:
			w.lineBreak(2)
			defer w.lineBreak(2)
		case blocks[n.Data]:
			w.lineBreak(1)
			defer w.lineBreak(1)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}
