package scrape

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/confcast/confcast/conference"
	"github.com/confcast/confcast/markup"
)

// Session and talk containers are tagged with a content-type marker
// attribute on the index page. The markers have survived several site
// redesigns even as the surrounding markup changed.
const (
	contentTypeAttr = "data-content-type"
	sessionMarker   = "general-conference-session"
	talkMarker      = "general-conference-talk"
)

// maxSpeakerLen rejects positional speaker candidates that are clearly prose
// rather than a name.
const maxSpeakerLen = 50

// discover runs Phase A: it locates all session and talk containers, merges
// them by document offset, and walks the merged list to rebuild the
// session/talk tree. The source nests talks under sessions, but matching
// treats them as flat lists; the character offset of each element is the
// only reliable signal for which talks belong to which session.
func (s *Scraper) discover(page string, base *url.URL) []conference.Session {
	sessionEls := markup.Find(page, markup.Selector{Attr: contentTypeAttr, Value: sessionMarker})
	talkEls := markup.Find(page, markup.Selector{Attr: contentTypeAttr, Value: talkMarker})

	type node struct {
		el      markup.Element
		session bool
	}
	nodes := make([]node, 0, len(sessionEls)+len(talkEls))
	for _, el := range sessionEls {
		nodes = append(nodes, node{el: el, session: true})
	}
	for _, el := range talkEls {
		nodes = append(nodes, node{el: el})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].el.Offset < nodes[j].el.Offset })

	var sessions []conference.Session
	var open *conference.Session
	talkOrder := 0

	for _, n := range nodes {
		if n.session {
			if open != nil {
				sessions = append(sessions, *open)
			}
			sess := s.buildSession(n.el, base, len(sessions)+1)
			open = &sess
			talkOrder = 0
			continue
		}

		if open == nil {
			// A talk before any session has nothing to attach to.
			s.log.Debug("dropping talk element before first session",
				zap.Int("offset", n.el.Offset))
			continue
		}
		talkOrder++
		open.Talks = append(open.Talks, s.buildTalk(n.el, base, talkOrder))
	}
	if open != nil {
		sessions = append(sessions, *open)
	}

	return sessions
}

func (s *Scraper) buildSession(el markup.Element, base *url.URL, order int) conference.Session {
	title := elementTitle(el)
	if title == "" {
		title = fmt.Sprintf("Session %d", order)
	}

	link := firstHref(el.Raw, base, func(href string) bool {
		return strings.Contains(href, "session")
	})

	slug := slugFromLink(link)
	if slug == "" {
		slug = fmt.Sprintf("session-%d", order)
	}

	return conference.Session{
		Name:  title,
		Slug:  slug,
		Order: order,
		URL:   link,
	}
}

func (s *Scraper) buildTalk(el markup.Element, base *url.URL, order int) conference.Talk {
	title := elementTitle(el)
	if title == "" {
		title = fmt.Sprintf("Talk %d", order)
	}

	// Talk links are the ones NOT pointing at a session page; fall back to
	// any link at all.
	link := firstHref(el.Raw, base, func(href string) bool {
		return !strings.Contains(href, "session")
	})
	if link == "" {
		link = firstHref(el.Raw, base, nil)
	}

	slug := slugFromLink(link)
	if slug == "" {
		slug = fmt.Sprintf("talk-%d", order)
	}

	return conference.Talk{
		Title:   title,
		Slug:    slug,
		Order:   order,
		URL:     link,
		Speaker: conference.Speaker{Name: speakerName(el)},
	}
}

// elementTitle extracts an element's display title: the first "title"-class
// text, else the first text run.
func elementTitle(el markup.Element) string {
	if title := markup.TextByClass(el.Inner, "title"); title != "" {
		return title
	}
	if runs := markup.TextRuns(el.Inner); len(runs) > 0 {
		return runs[0]
	}
	return ""
}

// speakerName is a best-effort extraction of the speaker from an index-page
// talk element. The role is not reliably available here; it is resolved
// during enrichment.
func speakerName(el markup.Element) string {
	if name := markup.TextByClass(el.Inner, "author"); name != "" {
		return name
	}
	if name := markup.TextByClass(el.Inner, "speaker"); name != "" {
		return name
	}

	// Positional heuristic: the second text run is usually the speaker
	// line. Reject anything that looks like a session label or prose.
	runs := markup.TextRuns(el.Inner)
	if len(runs) >= 2 {
		candidate := runs[1]
		if !strings.Contains(candidate, "Session") && len(candidate) <= maxSpeakerLen {
			return candidate
		}
	}
	return "Unknown Speaker"
}

// firstHref returns the first absolute link in the markup accepted by the
// filter. A nil filter accepts every link.
func firstHref(doc string, base *url.URL, accept func(string) bool) string {
	for _, href := range markup.Hrefs(doc, "") {
		if accept != nil && !accept(href) {
			continue
		}
		if resolved := resolveLink(base, href); resolved != "" {
			return resolved
		}
	}
	return ""
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// slugFromLink derives a slug from the last non-empty path segment of a
// link, query string stripped. Slugs are only ever taken from discovered
// links; they are never generated from titles or speaker names.
func slugFromLink(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
