package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPage = `<html><head>
<title>Tank</title>
<script>var label = "240 gal.";</script>
</head><body>
<div class="header"><span>$9.99</span></div>
<div class="box-body">
	<span class="label">Size</span>
	<span>240 gal.</span>
	<div class="text-2 bold">Monitored</div>
</div>
</body></html>`

func parseTestPage(t *testing.T) Document {
	doc, err := Parse(strings.NewReader(testPage))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestFindText(t *testing.T) {
	doc := parseTestPage(t)

	text, ok := doc.FindText(func(text string) bool {
		return strings.Contains(text, "gal.")
	})
	require.True(t, ok)
	// the script contents are skipped
	require.Equal(t, "240 gal.", text)

	_, ok = doc.FindText(func(text string) bool {
		return strings.Contains(text, "gallons in tank")
	})
	require.False(t, ok)
}

func TestFindElement(t *testing.T) {
	doc := parseTestPage(t)

	el, ok := doc.FindElement("div", func(el Element) bool {
		return HasClass(el, "text-2")
	})
	require.True(t, ok)
	require.Equal(t, "div", el.Tag())
	require.Equal(t, "Monitored", el.Text())
	class, _ := el.Attr("class")
	require.Equal(t, "text-2 bold", class)

	el, ok = doc.FindElement("span", nil)
	require.True(t, ok)
	require.Equal(t, "$9.99", el.Text())

	_, ok = doc.FindElement("div", func(el Element) bool {
		return HasClass(el, "text")
	})
	require.False(t, ok)
}

func TestScope(t *testing.T) {
	doc := parseTestPage(t)

	box, ok := doc.Scope("div.box-body")
	require.True(t, ok)

	el, ok := box.FindElement("span", nil)
	require.True(t, ok)
	require.Equal(t, "Size", el.Text())

	_, ok = doc.Scope("div.missing")
	require.False(t, ok)
}
