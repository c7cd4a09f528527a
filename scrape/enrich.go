package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/confcast/confcast/conference"
	"github.com/confcast/confcast/markup"
)

// enrichSource tags where an item's enrichment data came from. Each item
// moves through a small state machine: not fetched, API attempted, then
// either success or an HTML fallback attempt.
type enrichSource int

const (
	sourceNone enrichSource = iota
	sourceAPI
	sourceHTML
)

func (s enrichSource) String() string {
	switch s {
	case sourceAPI:
		return "api"
	case sourceHTML:
		return "html"
	}
	return "none"
}

// enrichment is the tagged result of a Phase B fetch for one session or
// talk. Zero-valued fields mean the data was not discoverable; they never
// overwrite discovery-phase values.
type enrichment struct {
	Audio       *conference.AudioAsset
	DurationMs  int64
	SpeakerName string
	Calling     string
	Source      enrichSource
}

// primaryAudioVariant marks the full-quality audio entry in the API
// payload's audio list. Other variants (streams, downloads at other
// bitrates) are ignored.
const primaryAudioVariant = "full"

// apiPayload is the structured-content API response shape. The body is an
// HTML fragment; speaker and duration markers are extracted from it with the
// markup primitives rather than trusting the JSON structure, which has
// shifted across site versions.
type apiPayload struct {
	Meta struct {
		Title string `json:"title"`
		Audio []struct {
			MediaURL string `json:"mediaUrl"`
			Variant  string `json:"variant"`
			Duration int64  `json:"duration"`
		} `json:"audio"`
	} `json:"meta"`
	Content struct {
		Body string `json:"body"`
	} `json:"content"`
}

func (s *Scraper) enrichSession(ctx context.Context, sess *conference.Session) {
	e, err := s.enrich(ctx, sess.URL)
	if err != nil {
		s.enrichErrors++
		s.log.Warn("session enrichment failed",
			zap.String("session", sess.Slug), zap.Error(err))
		return
	}

	sess.Audio = e.Audio
	if e.DurationMs > 0 {
		sess.DurationMs = e.DurationMs
	}
	s.log.Debug("enriched session",
		zap.String("session", sess.Slug),
		zap.String("source", e.Source.String()),
		zap.Bool("audio", e.Audio != nil))
}

func (s *Scraper) enrichTalk(ctx context.Context, talk *conference.Talk) {
	e, err := s.enrich(ctx, talk.URL)
	if err != nil {
		s.enrichErrors++
		s.log.Warn("talk enrichment failed",
			zap.String("talk", talk.Slug), zap.Error(err))
		return
	}

	talk.Audio = e.Audio
	if e.DurationMs > 0 {
		talk.DurationMs = e.DurationMs
	}
	if e.SpeakerName != "" {
		talk.Speaker.Name = e.SpeakerName
	}
	if e.Calling != "" {
		talk.Speaker.Calling = e.Calling
		// The role reflects the calling shown with this talk, never a
		// later or current one.
		talk.Speaker.RoleTag = conference.ClassifyCalling(e.Calling)
	}
	s.log.Debug("enriched talk",
		zap.String("talk", talk.Slug),
		zap.String("source", e.Source.String()),
		zap.Bool("audio", e.Audio != nil))
}

// enrich fetches one item's detail, API first, plain HTML second. An error
// is returned only when both paths are exhausted.
func (s *Scraper) enrich(ctx context.Context, pageURL string) (*enrichment, error) {
	if apiURL, ok := s.apiURL(pageURL); ok {
		body, err := s.fetcher.Fetch(ctx, apiURL)
		if err == nil {
			e, perr := s.parseAPIPayload(body)
			if perr == nil {
				e.Source = sourceAPI
				return e, nil
			}
			err = perr
		}
		s.log.Debug("api enrichment failed, falling back to html",
			zap.String("url", pageURL), zap.Error(err))
	}

	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("html fallback failed: %w", err)
	}

	e := s.extractFromHTML(string(body))
	e.Source = sourceHTML
	return e, nil
}

// apiURL maps a human-facing page URL to its structured-content API URL.
// The page path's study prefix is stripped and the remainder re-attached as
// the uri query parameter, preserving the language. Returns false when the
// URL does not match the expected page-path pattern.
func (s *Scraper) apiURL(pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(u.Path, studyPrefix+"/") {
		return "", false
	}

	uri := strings.TrimPrefix(u.Path, studyPrefix)
	lang := u.Query().Get("lang")
	if lang == "" {
		lang = s.cfg.Language
	}

	api := fmt.Sprintf("%s://%s%s?lang=%s&uri=%s",
		u.Scheme, u.Host, apiPath, url.QueryEscape(lang), url.QueryEscape(uri))
	return api, true
}

func (s *Scraper) parseAPIPayload(body []byte) (*enrichment, error) {
	var payload apiPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid api payload: %w", err)
	}

	e := &enrichment{}

	for _, a := range payload.Meta.Audio {
		if a.Variant != primaryAudioVariant || a.MediaURL == "" {
			continue
		}
		e.Audio = audioAssetFromURL(a.MediaURL)
		if a.Duration > 0 {
			e.DurationMs = a.Duration
			e.Audio.DurationMs = a.Duration
		}
		break
	}

	fragment := payload.Content.Body

	if e.DurationMs == 0 {
		e.DurationMs = durationFrom(fragment)
		if e.Audio != nil && e.Audio.DurationMs == 0 {
			e.Audio.DurationMs = e.DurationMs
		}
	}

	e.SpeakerName = strings.TrimPrefix(markup.TextByClass(fragment, "author-name"), "By ")
	e.Calling = markup.TextByClass(fragment, "author-role")

	return e, nil
}

// extractFromHTML re-runs the audio/speaker extraction against a plain page
// with broader patterns than the API path uses.
func (s *Scraper) extractFromHTML(page string) *enrichment {
	e := &enrichment{
		DurationMs:  durationFrom(page),
		SpeakerName: strings.TrimPrefix(markup.TextByClass(page, "author-name"), "By "),
		Calling:     markup.TextByClass(page, "author-role"),
	}

	if audioURL := firstMP3(page, langTag(s.cfg.Language)); audioURL != "" {
		e.Audio = audioAssetFromURL(audioURL)
		if e.Audio.DurationMs == 0 {
			e.Audio.DurationMs = e.DurationMs
		}
	}

	return e
}

var (
	genericAssetsMP3Re = regexp.MustCompile(`https?://[^\s"'<>]*assets[^\s"'<>]*\.mp3`)
	anyMP3Re           = regexp.MustCompile(`https?://[^\s"'<>]+\.mp3`)

	// audioMetaRe pulls the quality and language tags out of an asset URL
	// of the form {hash}-128k-en.mp3.
	audioMetaRe = regexp.MustCompile(`-([0-9]+k)-([a-z]{2,3})\.mp3$`)
)

// firstMP3 tries the MP3 URL patterns in specificity order: the language and
// quality tagged assets-host pattern, the generic assets-host pattern, a
// <source> tag, then any URL ending in .mp3. First non-empty match wins.
func firstMP3(page, lang string) string {
	taggedRe := regexp.MustCompile(`https?://[^\s"'<>]*assets[^\s"'<>]*-[0-9]+k-` + regexp.QuoteMeta(lang) + `\.mp3`)
	if m := taggedRe.FindString(page); m != "" {
		return m
	}
	if m := genericAssetsMP3Re.FindString(page); m != "" {
		return m
	}
	for _, el := range markup.Find(page, markup.Selector{Tag: "source", Attr: "src"}) {
		if strings.HasSuffix(el.Attrs["src"], ".mp3") {
			return el.Attrs["src"]
		}
	}
	return anyMP3Re.FindString(page)
}

func audioAssetFromURL(audioURL string) *conference.AudioAsset {
	asset := &conference.AudioAsset{URL: audioURL}
	if m := audioMetaRe.FindStringSubmatch(audioURL); m != nil {
		asset.Quality = m[1]
		asset.Language = m[2]
	}
	return asset
}

// durationFrom is a best-effort extraction of a duration marker embedded in
// markup, in milliseconds.
func durationFrom(doc string) int64 {
	v := markup.ScalarValue(doc, "duration")
	if v == "" {
		return 0
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return 0
	}
	return ms
}

// langTag maps a content language code to the two-letter tag used in audio
// asset file names.
func langTag(language string) string {
	switch language {
	case "eng":
		return "en"
	case "spa":
		return "es"
	case "por":
		return "pt"
	case "fra":
		return "fr"
	case "deu":
		return "de"
	case "ita":
		return "it"
	}
	if len(language) >= 2 {
		return language[:2]
	}
	return language
}
