package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFind_TagOnly verifies matching by tag name alone
func TestFind_TagOnly(t *testing.T) {
	doc := `<div>first</div><p>para</p><div>second</div>`

	elements := Find(doc, Selector{Tag: "div"})

	require.Len(t, elements, 2)
	assert.Equal(t, "div", elements[0].Tag)
	assert.Equal(t, "first", elements[0].Inner)
	assert.Equal(t, "second", elements[1].Inner)
}

// TestFind_TagAndAttrValue verifies matching by tag plus attribute value
func TestFind_TagAndAttrValue(t *testing.T) {
	doc := `<div class="a">no</div><div data-kind="talk">yes</div>`

	elements := Find(doc, Selector{Tag: "div", Attr: "data-kind", Value: "talk"})

	require.Len(t, elements, 1)
	assert.Equal(t, "yes", elements[0].Inner)
	assert.Equal(t, "talk", elements[0].Attrs["data-kind"])
}

// TestFind_AttrPresence verifies matching by attribute presence only
func TestFind_AttrPresence(t *testing.T) {
	doc := `<a href="/x">link</a><a>plain</a>`

	elements := Find(doc, Selector{Tag: "a", Attr: "href"})

	require.Len(t, elements, 1)
	assert.Equal(t, "link", elements[0].Inner)
}

// TestFind_WildcardTag verifies attribute matching across any tag name
func TestFind_WildcardTag(t *testing.T) {
	doc := `<span class="title">A</span><div class="title">B</div>`

	elements := Find(doc, Selector{Attr: "class", Value: "title"})

	require.Len(t, elements, 2)
	assert.Equal(t, "span", elements[0].Tag)
	assert.Equal(t, "div", elements[1].Tag)
}

// TestFind_Offsets verifies elements carry their document offsets in order
func TestFind_Offsets(t *testing.T) {
	doc := `..<div>a</div>....<div>b</div>`

	elements := Find(doc, Selector{Tag: "div"})

	require.Len(t, elements, 2)
	assert.Equal(t, 2, elements[0].Offset)
	assert.Greater(t, elements[1].Offset, elements[0].Offset)
}

// TestFind_DuplicateAttrLastWins verifies last-write-wins on duplicate keys
func TestFind_DuplicateAttrLastWins(t *testing.T) {
	doc := `<div class="first" class="second">x</div>`

	elements := Find(doc, Selector{Tag: "div"})

	require.Len(t, elements, 1)
	assert.Equal(t, "second", elements[0].Attrs["class"])
}

// TestFind_AttrQuotingVariants verifies single-quoted, unquoted, and bare
// attributes all parse
func TestFind_AttrQuotingVariants(t *testing.T) {
	doc := `<input type='text' name=q disabled>`

	elements := Find(doc, Selector{Tag: "input"})

	require.Len(t, elements, 1)
	attrs := elements[0].Attrs
	assert.Equal(t, "text", attrs["type"])
	assert.Equal(t, "q", attrs["name"])
	_, hasBare := attrs["disabled"]
	assert.True(t, hasBare, "bare attribute should be present")
}

// TestFind_SameTagNestingClosesEarly documents the accepted limitation: the
// close tag is the next literal occurrence of </tag>, so a nested element of
// the same tag name closes the outer match prematurely.
func TestFind_SameTagNestingClosesEarly(t *testing.T) {
	doc := `<div id="outer">before<div id="inner">x</div>after</div>`

	elements := Find(doc, Selector{Tag: "div", Attr: "id", Value: "outer"})

	require.Len(t, elements, 1)
	assert.Equal(t, `before<div id="inner">x`, elements[0].Inner,
		"outer element should be closed by the inner element's close tag")
}

// TestFind_MissingCloseTag verifies elements without a close tag are treated
// as void with empty inner content
func TestFind_MissingCloseTag(t *testing.T) {
	doc := `<img src="/a.png"><div>tail`

	images := Find(doc, Selector{Tag: "img"})
	divs := Find(doc, Selector{Tag: "div"})

	require.Len(t, images, 1)
	assert.Empty(t, images[0].Inner)
	require.Len(t, divs, 1)
	assert.Empty(t, divs[0].Inner, "unclosed element should have empty inner content")
}

// TestFind_SelfClosing verifies explicitly self-closed elements
func TestFind_SelfClosing(t *testing.T) {
	doc := `<source src="a.mp3" type="audio/mpeg"/>`

	elements := Find(doc, Selector{Tag: "source"})

	require.Len(t, elements, 1)
	assert.Empty(t, elements[0].Inner)
	assert.Equal(t, "a.mp3", elements[0].Attrs["src"])
}

// TestFind_MalformedInput verifies matching never panics or errors on junk
func TestFind_MalformedInput(t *testing.T) {
	for _, doc := range []string{"", "<", "<<>>", "<div", "</div>", "<div class=>x</div>"} {
		assert.NotPanics(t, func() { Find(doc, Selector{Tag: "div"}) })
	}
	assert.Empty(t, Find("", Selector{Tag: "div"}))
}
