package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

type frame struct {
	name  string
	attrs []xml.Attr
	obj   *Object
	text  strings.Builder
}

// Parse reads a whole document into a tree. The returned node is an object
// whose members are the document's top-level elements.
//
// The decoder runs non-strict and knows the HTML entities, since feeds in the
// wild are rarely well-formed. A closing tag closes the nearest open element
// of the same name; elements left open inside it (a stray <br>) are dropped
// and their text kept in the parent. A closing tag with no open element of
// that name is ignored.
func Parse(r io.Reader) (Node, error) {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	root := &frame{obj: newObject()}
	stack := []*frame{root}
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Node{}, fmt.Errorf("error decoding xml: %w", err)
		}

		top := stack[len(stack)-1]
		switch tok := tok.(type) {
		case xml.StartElement:
			stack = append(stack, &frame{
				name:  qualified(tok.Name),
				attrs: tok.Copy().Attr,
				obj:   newObject(),
			})
		case xml.CharData:
			top.text.Write(tok)
		case xml.EndElement:
			open := openFrame(stack, qualified(tok.Name))
			if open < 0 {
				continue
			}
			for len(stack)-1 > open {
				unclosed := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				stack[len(stack)-1].text.WriteString(unclosed.text.String())
			}
			closed := stack[open]
			stack = stack[:open]
			stack[open-1].obj.add(closed.name, closed.node())
		}
	}

	if len(stack) != 1 {
		return Node{}, fmt.Errorf("unexpected end of document inside <%s>", stack[len(stack)-1].name)
	}
	if len(root.obj.keys) == 0 {
		return Node{}, errors.New("document has no elements")
	}

	return Node{kind: KindObject, obj: root.obj}, nil
}

// openFrame finds the innermost open element called name, or -1.
func openFrame(stack []*frame, name string) int {
	for i := len(stack) - 1; i > 0; i-- {
		if stack[i].name == name {
			return i
		}
	}
	return -1
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(byts []byte) (Node, error) {
	return Parse(bytes.NewReader(byts))
}

func (f *frame) node() Node {
	text := strings.TrimSpace(f.text.String())
	if len(f.attrs) == 0 && len(f.obj.keys) == 0 {
		return String(text)
	}

	o := newObject()
	for _, a := range f.attrs {
		o.add(AttrPrefix+qualified(a.Name), String(strings.TrimSpace(a.Value)))
	}
	for _, k := range f.obj.keys {
		o.add(k, f.obj.vals[k])
	}
	if text != "" {
		o.add(TextKey, String(text))
	}

	return Node{kind: KindObject, obj: o}
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
