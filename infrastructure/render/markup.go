// Package render adapts the external diagram layout engine and the SVG
// markup it returns.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pulse-backend/application/ports"
)

// ErrEmptyMarkup is returned when the engine answered without any element.
var ErrEmptyMarkup = errors.New("render: markup contains no elements")

// Document is a parsed SVG markup tree with an id index built in document order.
type Document struct {
	roots []*html.Node
	ids   []string
	byID  map[string]*html.Node
}

var _ ports.Markup = (*Document)(nil)

// ParseMarkup parses engine output. The markup is parsed as a body fragment
// so serializing it again yields the SVG without an html wrapper.
func ParseMarkup(markup string) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	roots, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	doc := &Document{roots: roots, byID: make(map[string]*html.Node)}
	elements := 0
	for _, root := range roots {
		elements += doc.index(root)
	}
	if elements == 0 {
		return nil, ErrEmptyMarkup
	}
	return doc, nil
}

func (d *Document) index(n *html.Node) int {
	count := 0
	if n.Type == html.ElementNode {
		count++
		if id := attr(n, "id"); id != "" {
			d.ids = append(d.ids, id)
			if _, seen := d.byID[id]; !seen {
				d.byID[id] = n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += d.index(c)
	}
	return count
}

// ElementByID returns the first element whose id is exactly id.
func (d *Document) ElementByID(id string) (ports.Element, bool) {
	n, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return &Element{node: n}, true
}

// IDs lists element ids in document order. Duplicates are kept.
func (d *Document) IDs() []string {
	return append([]string(nil), d.ids...)
}

// ElementsWithClass returns every element carrying class, in document order.
func (d *Document) ElementsWithClass(class string) []ports.Element {
	var out []ports.Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if el := (&Element{node: n}); el.HasClass(class) {
				out = append(out, el)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range d.roots {
		walk(root)
	}
	return out
}

func (d *Document) String() string {
	var buf bytes.Buffer
	for _, root := range d.roots {
		if err := html.Render(&buf, root); err != nil {
			break
		}
	}
	return buf.String()
}

// Element wraps one markup element.
type Element struct {
	node *html.Node
}

var _ ports.Element = (*Element)(nil)

func (e *Element) ID() string {
	return attr(e.node, "id")
}

func (e *Element) HasClass(class string) bool {
	for _, c := range strings.Fields(attr(e.node, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class unless it is already present.
func (e *Element) AddClass(class string) {
	if class == "" || e.HasClass(class) {
		return
	}
	classes := strings.Fields(attr(e.node, "class"))
	setAttr(e.node, "class", strings.Join(append(classes, class), " "))
}

// RemoveClass drops every occurrence of class.
func (e *Element) RemoveClass(class string) {
	fields := strings.Fields(attr(e.node, "class"))
	kept := fields[:0]
	for _, c := range fields {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(fields) {
		return
	}
	setAttr(e.node, "class", strings.Join(kept, " "))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
