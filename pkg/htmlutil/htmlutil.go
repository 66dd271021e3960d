package htmlutil

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// GetText concatenates every text node under node in document order.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// walkText calls visit for every text node under node in document order until
// visit returns false, it returns false if the walk was stopped.
func walkText(node *html.Node, visit func(text string) bool) bool {
	if node == nil {
		return true
	}
	if node.Type == html.TextNode {
		return visit(node.Data)
	}
	// script and style contents are not page text
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return true
	}
	child := node.FirstChild
	for child != nil {
		if !walkText(child, visit) {
			return false
		}
		child = child.NextSibling
	}
	return true
}

// HasClass reports whether the element's class attribute contains class.
func HasClass(el Element, class string) bool {
	attr, ok := el.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}
