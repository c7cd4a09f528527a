// Package scrape turns a conference index page into a fully assembled
// conference record. It runs in two phases: discovery recovers the
// session/talk structure from a single index page, then enrichment fetches
// each item's page (API first, plain HTML as fallback) to recover audio and
// speaker detail. Discovery failures abort the scrape; enrichment failures
// degrade per item, because historical pages frequently lack full metadata.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/confcast/confcast/conference"
	"github.com/confcast/confcast/fetch"
)

const (
	// DefaultBaseURL is the site hosting the conference pages.
	DefaultBaseURL = "https://www.churchofjesuschrist.org"

	// studyPrefix is the path prefix of human-facing content pages. The
	// structured-content API takes the remainder of the path as its uri
	// query parameter.
	studyPrefix = "/study"

	conferencePath = "/study/general-conference"
	apiPath        = "/study/api/v3/language-pages/type/content"
)

// Config controls what a Scraper fetches and from where.
type Config struct {
	// Language is the content language code, e.g. "eng".
	Language string
	// SessionAudio enables enrichment of session pages (full-session audio).
	SessionAudio bool
	// TalkAudio enables enrichment of talk pages (per-talk audio and
	// speaker detail).
	TalkAudio bool
	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string
}

// Scraper drives discovery and enrichment for conferences.
type Scraper struct {
	fetcher *fetch.Fetcher
	cfg     Config
	log     *zap.Logger

	enrichErrors int
}

// New creates a Scraper. A nil logger disables logging.
func New(fetcher *fetch.Fetcher, cfg Config, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &Scraper{fetcher: fetcher, cfg: cfg, log: log}
}

// Scrape assembles the conference for the given year and month. The index
// fetch is fatal; per-item enrichment failures are logged and leave the item
// partially populated.
func (s *Scraper) Scrape(ctx context.Context, year, month int) (*conference.Conference, error) {
	if !conference.ValidMonth(month) {
		return nil, fmt.Errorf("invalid conference month %d: must be 4 or 10", month)
	}

	s.enrichErrors = 0
	indexURL := s.indexURL(year, month)

	body, err := s.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conference index: %w", err)
	}
	page := string(body)

	conf := &conference.Conference{
		Year:     year,
		Month:    month,
		URL:      indexURL,
		Language: s.cfg.Language,
		Name:     s.conferenceName(page, year, month),
	}

	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index URL: %w", err)
	}
	conf.Sessions = s.discover(page, base)

	s.log.Info("discovered conference structure",
		zap.String("conference", conf.Key()),
		zap.Int("sessions", len(conf.Sessions)))

	for i := range conf.Sessions {
		sess := &conf.Sessions[i]

		if s.cfg.SessionAudio && sess.URL != "" {
			s.enrichSession(ctx, sess)
		}
		if s.cfg.TalkAudio {
			for j := range sess.Talks {
				if sess.Talks[j].URL != "" {
					s.enrichTalk(ctx, &sess.Talks[j])
				}
			}
		}
	}

	return conf, nil
}

// EnrichErrors returns the number of items that could not be enriched during
// the most recent Scrape. These items keep their unenriched state; the count
// exists for operator visibility only.
func (s *Scraper) EnrichErrors() int {
	return s.enrichErrors
}

func (s *Scraper) indexURL(year, month int) string {
	return fmt.Sprintf("%s%s/%d/%02d?lang=%s", s.cfg.BaseURL, conferencePath, year, month, s.cfg.Language)
}

// conferenceName reads the display name from the page's primary heading or
// title tag, falling back to a synthesized name.
func (s *Scraper) conferenceName(page string, year, month int) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		if name := cleanText(doc.Find("h1").First().Text()); name != "" {
			return name
		}
		title := cleanText(doc.Find("title").First().Text())
		// Site titles carry a " | site name" suffix.
		if i := strings.Index(title, " | "); i > 0 {
			title = title[:i]
		}
		if title != "" {
			return title
		}
	}
	return fmt.Sprintf("%s %d General Conference", conference.MonthName(month), year)
}

// cleanText collapses whitespace the same way the title extraction does.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
