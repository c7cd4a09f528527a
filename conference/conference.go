// Package conference defines the data model for a scraped General
// Conference and its on-disk JSON archive format. A Conference is assembled
// once per scrape run and is immutable afterwards; its identity is the
// (year, month, language) triple.
package conference

import (
	"fmt"
)

// Conference is a single General Conference: an ordered sequence of sessions
// scraped for one (year, month, language).
type Conference struct {
	Year     int       `json:"year"`
	Month    int       `json:"month"` // 4 (April) or 10 (October)
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Language string    `json:"language"`
	Sessions []Session `json:"sessions"`
}

// Session is a contiguous block of the conference broadcast (e.g. "Saturday
// Morning Session"). Order is 1-based document order within the conference.
type Session struct {
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Order      int         `json:"order"`
	URL        string      `json:"url,omitempty"`
	Audio      *AudioAsset `json:"audio,omitempty"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	Talks      []Talk      `json:"talks"`
}

// Talk is a single speaker's address within a session. Order is 1-based and
// resets at the start of each session.
type Talk struct {
	Title      string      `json:"title"`
	Slug       string      `json:"slug"`
	Order      int         `json:"order"`
	URL        string      `json:"url,omitempty"`
	Speaker    Speaker     `json:"speaker"`
	Audio      *AudioAsset `json:"audio,omitempty"`
	DurationMs int64       `json:"duration_ms,omitempty"`
}

// Speaker is a value object attached to a talk. RoleTag reflects the
// speaker's calling at the time of that talk, never their current one; the
// same person may carry different role tags across talks.
type Speaker struct {
	Name    string `json:"name"`
	RoleTag Role   `json:"role_tag,omitempty"`
	Calling string `json:"calling,omitempty"`
	BioURL  string `json:"bio_url,omitempty"`
}

// AudioAsset is a discovered audio file. A talk or session with no
// discoverable audio carries a nil asset, not a zero-valued one: absence
// means "unavailable", not "zero duration".
type AudioAsset struct {
	URL        string `json:"url"`
	Quality    string `json:"quality,omitempty"`
	Language   string `json:"language,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Key returns the conference's identity string, e.g. "gc-2023-10-eng". It is
// also the basename of the archive file and the GUID prefix in rendered
// feeds.
func (c *Conference) Key() string {
	return fmt.Sprintf("gc-%d-%02d-%s", c.Year, c.Month, c.Language)
}

// ArchiveFilename returns the conventional archive file name for the
// conference, e.g. "gc-2023-10-eng.json".
func (c *Conference) ArchiveFilename() string {
	return c.Key() + ".json"
}

// MonthName returns the display name of a conference month. Conferences are
// only held in April and October.
func MonthName(month int) string {
	switch month {
	case 4:
		return "April"
	case 10:
		return "October"
	}
	return ""
}

// ValidMonth reports whether month is a conference month.
func ValidMonth(month int) bool {
	return month == 4 || month == 10
}
