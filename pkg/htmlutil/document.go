package htmlutil

import (
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is a single element of a parsed document.
type Element interface {
	Tag() string
	// Text is the concatenation of every text node under the element.
	Text() string
	Attr(name string) (string, bool)
}

// Document is a read-only view over parsed HTML that extraction code is
// written against, so it does not depend on a specific HTML library.
type Document interface {
	// FindText returns the first text node, in document order, that match accepts.
	FindText(match func(text string) bool) (string, bool)
	// FindElement returns the first element with the given tag name that match
	// accepts, a nil match accepts every element.
	FindElement(tag string, match func(el Element) bool) (Element, bool)
	// Scope returns a Document restricted to the first element matching the
	// CSS selector.
	Scope(selector string) (Document, bool)
}

// Parse parses an HTML document.
func Parse(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(doc), nil
}

// NewDocument creates a Document backed by a goquery document.
func NewDocument(doc *goquery.Document) Document {
	return selectionDocument{sel: doc.Selection}
}

type selectionDocument struct {
	sel *goquery.Selection
}

func (d selectionDocument) FindText(match func(text string) bool) (string, bool) {
	var found string
	var ok bool
	for _, node := range d.sel.Nodes {
		complete := walkText(node, func(text string) bool {
			if match(text) {
				found = text
				ok = true
				return false
			}
			return true
		})
		if !complete {
			break
		}
	}
	return found, ok
}

func (d selectionDocument) FindElement(tag string, match func(el Element) bool) (Element, bool) {
	var found Element
	d.sel.Find(tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		el := selectionElement{sel: s}
		if match == nil || match(el) {
			found = el
			return false
		}
		return true
	})
	return found, found != nil
}

func (d selectionDocument) Scope(selector string) (Document, bool) {
	scoped := d.sel.Find(selector).First()
	if scoped.Length() == 0 {
		return nil, false
	}
	return selectionDocument{sel: scoped}, true
}

type selectionElement struct {
	sel *goquery.Selection
}

func (e selectionElement) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e selectionElement) Text() string {
	var node *html.Node
	if len(e.sel.Nodes) > 0 {
		node = e.sel.Nodes[0]
	}
	return GetText(node)
}

func (e selectionElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}
