// Package markup provides lightweight pattern-matching primitives for
// extracting structured data from loosely-structured HTML and JSON-like
// payloads. It is deliberately not a full HTML parser: element matching is
// regex-driven and closing tags are located by the next literal occurrence
// of </tag>, which means a nested element of the same tag name closes the
// match early. That trade-off keeps the matchers predictable across the
// wildly inconsistent markup the conference pages have shipped over the
// years. None of these functions ever return an error; absence of a match
// yields an empty result.
package markup

import (
	"regexp"
	"strings"
)

// Element is a single matched element. Offset is the byte offset of the
// opening tag within the source document, which callers use to recover
// document order across separate Find calls.
type Element struct {
	Tag    string
	Attrs  map[string]string
	Inner  string
	Raw    string
	Offset int
}

// Selector describes what to match. All fields are optional: an empty Tag
// matches any tag, an empty Attr matches any element of the tag, and an
// empty Value matches mere presence of the attribute.
type Selector struct {
	Tag   string
	Attr  string
	Value string
}

var (
	anyOpenTagRe = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9-]*)((?:\s[^<>]*)?)(/?)>`)

	// Attribute list parsing: key="v", key='v', key=v, or bare key.
	attrRe = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+)))?`)
)

// Find returns all elements matching the selector, in document order.
func Find(doc string, sel Selector) []Element {
	openRe := anyOpenTagRe
	if sel.Tag != "" {
		openRe = regexp.MustCompile(`<(` + regexp.QuoteMeta(sel.Tag) + `)((?:\s[^<>]*)?)(/?)>`)
	}

	var elements []Element
	for _, loc := range openRe.FindAllStringSubmatchIndex(doc, -1) {
		tag := doc[loc[2]:loc[3]]
		attrText := doc[loc[4]:loc[5]]
		selfClosing := loc[6] != loc[7]

		attrs := ParseAttrs(attrText)
		if !matchesAttr(attrs, sel) {
			continue
		}

		el := Element{
			Tag:    tag,
			Attrs:  attrs,
			Offset: loc[0],
		}

		if selfClosing {
			el.Raw = doc[loc[0]:loc[1]]
			elements = append(elements, el)
			continue
		}

		// Next literal close tag. Not nesting-aware: a nested element of
		// the same tag name closes the match early.
		closeTag := "</" + tag + ">"
		rest := doc[loc[1]:]
		end := strings.Index(rest, closeTag)
		if end < 0 {
			// No close tag at all; treat as void.
			el.Raw = doc[loc[0]:loc[1]]
			elements = append(elements, el)
			continue
		}

		el.Inner = rest[:end]
		el.Raw = doc[loc[0] : loc[1]+end+len(closeTag)]
		elements = append(elements, el)
	}

	return elements
}

// ParseAttrs parses a tag's attribute list into a map. Duplicate keys are
// last-write-wins. Bare attributes map to the empty string.
func ParseAttrs(attrText string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrRe.FindAllStringSubmatch(attrText, -1) {
		key := strings.ToLower(m[1])
		value := m[2]
		if value == "" {
			if m[3] != "" {
				value = m[3]
			} else if m[4] != "" {
				value = m[4]
			}
		}
		attrs[key] = value
	}
	return attrs
}

func matchesAttr(attrs map[string]string, sel Selector) bool {
	if sel.Attr == "" {
		return true
	}
	got, ok := attrs[strings.ToLower(sel.Attr)]
	if !ok {
		return false
	}
	if sel.Value == "" {
		return true
	}
	return got == sel.Value
}
