// Package feed renders a scraped conference archive as an iTunes-compatible
// podcast RSS feed, and serves rendered feeds over HTTP. The feed contract
// is fixed: one episode per talk with audio, an optional full-session
// episode per session, stable GUIDs of the form
// gc-{year}-{MM}-{session-slug}[-{talk-slug}|-full], HH:MM:SS durations, and
// enclosure sizes estimated from duration.
package feed

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/confcast/confcast/conference"
)

// bytesPerSecond estimates enclosure sizes for 128kbps MP3 audio. Podcast
// clients only use the length for progress display, so an estimate is fine.
const bytesPerSecond = 16000

// Options controls feed rendering.
type Options struct {
	// SessionEpisodes adds a "-full" episode for each session that has
	// session-level audio.
	SessionEpisodes bool
	// Description overrides the default channel description.
	Description string
}

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	ITunes  string   `xml:"xmlns:itunes,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Language    string `xml:"language"`
	Description string `xml:"description"`
	Author      string `xml:"itunes:author,omitempty"`
	Items       []item `xml:"item"`
}

type item struct {
	Title     string     `xml:"title"`
	Link      string     `xml:"link,omitempty"`
	GUID      guid       `xml:"guid"`
	PubDate   string     `xml:"pubDate"`
	Author    string     `xml:"itunes:author,omitempty"`
	Subtitle  string     `xml:"itunes:subtitle,omitempty"`
	Duration  string     `xml:"itunes:duration,omitempty"`
	Enclosure *enclosure `xml:"enclosure,omitempty"`
}

type guid struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// Render produces the RSS XML for a conference. Sessions and talks without
// audio are skipped; they are expected in historical archives and produce no
// episode.
func Render(conf *conference.Conference, opts Options) ([]byte, error) {
	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Audio from the %s.", conf.Name)
	}

	ch := channel{
		Title:       conf.Name,
		Link:        conf.URL,
		Language:    conf.Language,
		Description: description,
	}

	base := confDate(conf.Year, conf.Month)
	episode := 0

	for _, sess := range conf.Sessions {
		if opts.SessionEpisodes && sess.Audio != nil {
			ch.Items = append(ch.Items, sessionItem(conf, sess, pubDate(base, episode)))
			episode++
		}
		for _, talk := range sess.Talks {
			if talk.Audio == nil {
				continue
			}
			ch.Items = append(ch.Items, talkItem(conf, sess, talk, pubDate(base, episode)))
			episode++
		}
	}

	doc := rssDoc{
		Version: "2.0",
		ITunes:  "http://www.itunes.com/dtds/podcast-1.0.dtd",
		Channel: ch,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// guidPrefix is the stable episode GUID prefix: gc-{year}-{MM}. Unlike the
// archive key it carries no language code; changing published GUIDs would
// re-download every episode in subscribed clients.
func guidPrefix(conf *conference.Conference) string {
	return fmt.Sprintf("gc-%d-%02d", conf.Year, conf.Month)
}

func sessionItem(conf *conference.Conference, sess conference.Session, pub string) item {
	duration := sess.DurationMs
	if duration == 0 {
		duration = sess.Audio.DurationMs
	}
	return item{
		Title:     sess.Name,
		Link:      sess.URL,
		GUID:      guid{Value: fmt.Sprintf("%s-%s-full", guidPrefix(conf), sess.Slug)},
		PubDate:   pub,
		Subtitle:  "Complete session audio",
		Duration:  FormatDuration(duration),
		Enclosure: enclosureFor(sess.Audio, duration),
	}
}

func talkItem(conf *conference.Conference, sess conference.Session, talk conference.Talk, pub string) item {
	duration := talk.DurationMs
	if duration == 0 {
		duration = talk.Audio.DurationMs
	}
	return item{
		Title:     talk.Title,
		Link:      talk.URL,
		GUID:      guid{Value: fmt.Sprintf("%s-%s-%s", guidPrefix(conf), sess.Slug, talk.Slug)},
		PubDate:   pub,
		Author:    talk.Speaker.Name,
		Subtitle:  talk.Speaker.Calling,
		Duration:  FormatDuration(duration),
		Enclosure: enclosureFor(talk.Audio, duration),
	}
}

func enclosureFor(audio *conference.AudioAsset, durationMs int64) *enclosure {
	return &enclosure{
		URL:    audio.URL,
		Length: durationMs / 1000 * bytesPerSecond,
		Type:   "audio/mpeg",
	}
}

// FormatDuration renders milliseconds as HH:MM:SS. Zero or negative
// durations render as empty (the itunes:duration element is omitted).
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return ""
	}
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// confDate returns the first Saturday of the conference month, the day the
// broadcast starts.
func confDate(year, month int) time.Time {
	d := time.Date(year, time.Month(month), 1, 10, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Saturday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// pubDate offsets each episode by a minute so clients preserve the
// conference's document order when sorting by date.
func pubDate(base time.Time, episode int) string {
	return base.Add(time.Duration(episode) * time.Minute).Format(time.RFC1123Z)
}
