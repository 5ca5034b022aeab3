// Package xmltree turns an XML document into a generic tree of strings,
// attribute-bearing objects and arrays, which is the shape the feed
// normalizer works on.
//
// Attributes are keyed "@_name" and an element's own text, when it also has
// attributes or children, is keyed "#text". Names keep the prefix the
// document used ("media:content", "rdf:RDF"). An element that repeats under
// the same parent becomes an array.
package xmltree

// Kind is the tag of a Node.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindObject
	KindArray
)

const (
	AttrPrefix = "@_"
	TextKey    = "#text"
)

// Node is one value in the tree. The zero Node is KindNone, which is what
// lookups of missing keys return, so chained lookups never need nil checks.
type Node struct {
	kind Kind
	str  string
	obj  *Object
	arr  []Node
}

// Object keeps members in document order.
type Object struct {
	keys []string
	vals map[string]Node
}

func String(s string) Node {
	return Node{kind: KindString, str: s}
}

func Array(nodes ...Node) Node {
	return Node{kind: KindArray, arr: nodes}
}

// ObjectOf builds an object node from alternating key, value pairs. It is
// mostly useful in tests.
func ObjectOf(pairs ...any) Node {
	o := newObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Node:
			o.add(key, v)
		case string:
			o.add(key, String(v))
		}
	}
	return Node{kind: KindObject, obj: o}
}

func newObject() *Object {
	return &Object{vals: map[string]Node{}}
}

// add appends a member, turning a repeated key into an array.
func (o *Object) add(key string, n Node) {
	existing, ok := o.vals[key]
	if !ok {
		o.keys = append(o.keys, key)
		o.vals[key] = n
		return
	}

	if existing.kind == KindArray {
		existing.arr = append(existing.arr, n)
		o.vals[key] = existing
		return
	}
	o.vals[key] = Node{kind: KindArray, arr: []Node{existing, n}}
}

func (n Node) Kind() Kind {
	return n.kind
}

func (n Node) IsZero() bool {
	return n.kind == KindNone
}

// Str returns the string a KindString node holds.
func (n Node) Str() (string, bool) {
	if n.kind != KindString {
		return "", false
	}
	return n.str, true
}

// Get looks up a member of an object. Anything else yields the zero Node.
func (n Node) Get(key string) Node {
	if n.kind != KindObject {
		return Node{}
	}
	return n.obj.vals[key]
}

// Path follows a chain of Get calls.
func (n Node) Path(keys ...string) Node {
	for _, k := range keys {
		n = n.Get(k)
	}
	return n
}

// Attr is Get for an attribute, returning its string value.
func (n Node) Attr(name string) string {
	s, _ := n.Get(AttrPrefix + name).Str()
	return s
}

// Has reports whether the object has the key.
func (n Node) Has(key string) bool {
	if n.kind != KindObject {
		return false
	}
	_, ok := n.obj.vals[key]
	return ok
}

// Items views n as a list: the elements of an array, a single-element list
// for any other present node, nil for the zero Node.
func (n Node) Items() []Node {
	switch n.kind {
	case KindArray:
		return n.arr
	case KindNone:
		return nil
	default:
		return []Node{n}
	}
}

// Members calls fn for each member of an object, in document order, until fn
// returns false.
func (n Node) Members(fn func(key string, val Node) bool) {
	if n.kind != KindObject {
		return
	}
	for _, k := range n.obj.keys {
		if !fn(k, n.obj.vals[k]) {
			return
		}
	}
}

// Len is the number of members of an object or elements of an array.
func (n Node) Len() int {
	switch n.kind {
	case KindObject:
		return len(n.obj.keys)
	case KindArray:
		return len(n.arr)
	default:
		return 0
	}
}
