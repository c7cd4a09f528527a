package markup

import (
	"regexp"
	"strings"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	spaceRe       = regexp.MustCompile(`\s+`)

	hrefRe = regexp.MustCompile(`(?i)href\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// StripTags removes script and style blocks wholesale, strips all remaining
// tags, decodes common entities, and collapses whitespace to single spaces.
func StripTags(s string) string {
	s = scriptStyleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TextRuns returns the non-empty text chunks between tags, in order. Script
// and style bodies are discarded first. Positional extraction heuristics
// (talk titles, speaker names) index into these runs.
func TextRuns(s string) []string {
	s = scriptStyleRe.ReplaceAllString(s, " ")
	var runs []string
	for _, chunk := range tagRe.Split(s, -1) {
		chunk = strings.TrimSpace(spaceRe.ReplaceAllString(entityReplacer.Replace(chunk), " "))
		if chunk != "" {
			runs = append(runs, chunk)
		}
	}
	return runs
}

// Hrefs returns all href attribute values in document order. A non-empty
// contains argument filters to URLs containing that substring.
func Hrefs(doc, contains string) []string {
	var hrefs []string
	for _, m := range hrefRe.FindAllStringSubmatch(doc, -1) {
		href := m[1]
		if href == "" {
			href = m[2]
		}
		if href == "" {
			continue
		}
		if contains != "" && !strings.Contains(href, contains) {
			continue
		}
		hrefs = append(hrefs, href)
	}
	return hrefs
}

// TextByClass returns the first text run inside any element whose class
// attribute contains the given substring. Empty string when nothing matches.
func TextByClass(doc, classSubstr string) string {
	for _, el := range Find(doc, Selector{Attr: "class"}) {
		if !strings.Contains(el.Attrs["class"], classSubstr) {
			continue
		}
		if text := StripTags(el.Inner); text != "" {
			return text
		}
	}
	return ""
}

// ScalarValue extracts the first string or numeric value appearing as
// "key": "value" or "key": 123 anywhere in the payload. This is used for
// semi-structured JSON embedded inside markup, where a full JSON parse is
// not possible.
func ScalarValue(doc, key string) string {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*(?:"((?:[^"\\]|\\.)*)"|(-?[0-9]+(?:\.[0-9]+)?))`)
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
