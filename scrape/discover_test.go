package scrape

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse("https://example.org/study/general-conference/2023/10?lang=eng")
	require.NoError(t, err)
	return base
}

const orderedIndexPage = `
<html><body>
<div data-content-type="general-conference-session">
  <span class="item-title">Saturday Morning Session</span>
  <a href="/study/general-conference/2023/10/saturday-morning-session?lang=eng">listen</a>
</div>
<div data-content-type="general-conference-talk">
  <span class="item-title">First Talk</span>
  <span class="author">Jane Example</span>
  <a href="/study/general-conference/2023/10/first-talk?lang=eng">read</a>
</div>
<div data-content-type="general-conference-talk">
  <span class="item-title">Second Talk</span>
  <span class="author">John Sample</span>
  <a href="/study/general-conference/2023/10/second-talk?lang=eng">read</a>
</div>
<div data-content-type="general-conference-session">
  <span class="item-title">Saturday Afternoon Session</span>
  <a href="/study/general-conference/2023/10/saturday-afternoon-session?lang=eng">listen</a>
</div>
<div data-content-type="general-conference-talk">
  <span class="item-title">Third Talk</span>
  <span class="author">Ann Other</span>
  <a href="/study/general-conference/2023/10/third-talk?lang=eng">read</a>
</div>
</body></html>`

// TestDiscover_DocumentOrder verifies the interleaved session1, talk1,
// talk2, session2, talk3 layout yields two sessions with talks attached in
// document order
func TestDiscover_DocumentOrder(t *testing.T) {
	s := New(nil, Config{Language: "eng"}, nil)

	sessions := s.discover(orderedIndexPage, testBase(t))

	require.Len(t, sessions, 2)

	first := sessions[0]
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, "Saturday Morning Session", first.Name)
	assert.Equal(t, "saturday-morning-session", first.Slug)
	require.Len(t, first.Talks, 2)
	assert.Equal(t, 1, first.Talks[0].Order)
	assert.Equal(t, "First Talk", first.Talks[0].Title)
	assert.Equal(t, "first-talk", first.Talks[0].Slug)
	assert.Equal(t, 2, first.Talks[1].Order)
	assert.Equal(t, "second-talk", first.Talks[1].Slug)

	second := sessions[1]
	assert.Equal(t, 2, second.Order)
	require.Len(t, second.Talks, 1)
	assert.Equal(t, 1, second.Talks[0].Order, "talk order resets per session")
	assert.Equal(t, "third-talk", second.Talks[0].Slug)
}

// TestDiscover_TalkBeforeSessionDropped verifies a talk appearing before any
// session is excluded entirely
func TestDiscover_TalkBeforeSessionDropped(t *testing.T) {
	page := `
<div data-content-type="general-conference-talk"><span class="item-title">Orphan</span></div>
<div data-content-type="general-conference-session"><span class="item-title">Only Session</span></div>
<div data-content-type="general-conference-talk"><span class="item-title">Kept</span></div>`

	s := New(nil, Config{}, nil)
	sessions := s.discover(page, testBase(t))

	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Talks, 1)
	assert.Equal(t, "Kept", sessions[0].Talks[0].Title)
}

// TestDiscover_NoLinksSynthesizesSlugs verifies slug fallback when elements
// carry no links
func TestDiscover_NoLinksSynthesizesSlugs(t *testing.T) {
	page := `
<div data-content-type="general-conference-session"><span class="item-title">A Session</span></div>
<div data-content-type="general-conference-talk"><span class="item-title">A Talk</span></div>
<div data-content-type="general-conference-talk"><span class="item-title">B Talk</span></div>`

	s := New(nil, Config{}, nil)
	sessions := s.discover(page, testBase(t))

	require.Len(t, sessions, 1)
	assert.Equal(t, "session-1", sessions[0].Slug)
	assert.Empty(t, sessions[0].URL)
	require.Len(t, sessions[0].Talks, 2)
	assert.Equal(t, "talk-1", sessions[0].Talks[0].Slug)
	assert.Equal(t, "talk-2", sessions[0].Talks[1].Slug)
}

// TestDiscover_PositionalSpeaker verifies the second-text-run speaker
// heuristic and its rejection rules
func TestDiscover_PositionalSpeaker(t *testing.T) {
	s := New(nil, Config{}, nil)

	// Second run is a plausible name.
	page := `
<div data-content-type="general-conference-session"><span>S</span></div>
<div data-content-type="general-conference-talk"><span>The Talk</span><span>Jane Example</span></div>`
	sessions := s.discover(page, testBase(t))
	require.Len(t, sessions[0].Talks, 1)
	assert.Equal(t, "Jane Example", sessions[0].Talks[0].Speaker.Name)

	// Second run mentions "Session" -- rejected.
	page = `
<div data-content-type="general-conference-session"><span>S</span></div>
<div data-content-type="general-conference-talk"><span>The Talk</span><span>Saturday Morning Session</span></div>`
	sessions = s.discover(page, testBase(t))
	assert.Equal(t, "Unknown Speaker", sessions[0].Talks[0].Speaker.Name)

	// Second run too long -- rejected.
	page = `
<div data-content-type="general-conference-session"><span>S</span></div>
<div data-content-type="general-conference-talk"><span>The Talk</span><span>` +
		`an implausibly long run of text that cannot be a speaker name` + `</span></div>`
	sessions = s.discover(page, testBase(t))
	assert.Equal(t, "Unknown Speaker", sessions[0].Talks[0].Speaker.Name)
}

// TestDiscover_AuthorClassPreferred verifies class-marked speaker text wins
// over the positional heuristic
func TestDiscover_AuthorClassPreferred(t *testing.T) {
	page := `
<div data-content-type="general-conference-session"><span>S</span></div>
<div data-content-type="general-conference-talk">
  <span>The Talk</span>
  <span class="lumen-author">Jane Example</span>
</div>`

	s := New(nil, Config{}, nil)
	sessions := s.discover(page, testBase(t))

	assert.Equal(t, "Jane Example", sessions[0].Talks[0].Speaker.Name)
}

// TestDiscover_RelativeLinksResolved verifies links resolve against the
// index page URL
func TestDiscover_RelativeLinksResolved(t *testing.T) {
	page := `
<div data-content-type="general-conference-session">
  <a href="/study/general-conference/2023/10/the-session?lang=eng">x</a>
</div>`

	s := New(nil, Config{}, nil)
	sessions := s.discover(page, testBase(t))

	require.Len(t, sessions, 1)
	assert.Equal(t,
		"https://example.org/study/general-conference/2023/10/the-session?lang=eng",
		sessions[0].URL)
}

// TestSlugFromLink verifies slug derivation from the last non-empty path
// segment with the query string stripped
func TestSlugFromLink(t *testing.T) {
	assert.Equal(t, "the-talk", slugFromLink("https://example.org/study/gc/2023/10/the-talk?lang=eng"))
	assert.Equal(t, "the-talk", slugFromLink("https://example.org/study/gc/2023/10/the-talk/"))
	assert.Equal(t, "", slugFromLink(""))
	assert.Equal(t, "", slugFromLink("https://example.org/"))
}
