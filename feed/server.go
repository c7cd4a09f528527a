package feed

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/confcast/confcast/conference"
)

// Server serves podcast feeds rendered on demand from the JSON archives in
// a directory. Feeds are regenerated per request; archives are small and the
// renderer is cheap, so there is no caching layer.
type Server struct {
	archiveDir string
	opts       Options
	log        *zap.Logger
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer creates a feed server over the given archive directory.
func NewServer(archiveDir string, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{archiveDir: archiveDir, opts: opts, log: log}
}

// Handler returns the HTTP handler for the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feeds", s.HandleListFeeds)
	mux.HandleFunc("/feed", s.HandleFeed)
	return mux
}

// HandleListFeeds handles GET /feeds: the conference keys available for
// rendering.
func (s *Server) HandleListFeeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	entries, err := os.ReadDir(s.archiveDir)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read archive directory")
		return
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "gc-") || filepath.Ext(name) != ".json" {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"conferences": keys})
}

// HandleFeed handles GET /feed?conference=gc-YYYY-MM-lang: renders the RSS
// feed for one archived conference.
func (s *Server) HandleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	key := r.URL.Query().Get("conference")
	if key == "" {
		s.writeError(w, http.StatusBadRequest, "missing_parameter", "conference parameter is required")
		return
	}
	// Keys become file paths; refuse anything that could escape the
	// archive directory.
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		s.writeError(w, http.StatusBadRequest, "invalid_parameter", "invalid conference key")
		return
	}

	conf, err := conference.ReadArchive(filepath.Join(s.archiveDir, key+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "not_found", "No archive for "+key)
			return
		}
		s.log.Error("failed to read archive", zap.String("conference", key), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read archive")
		return
	}

	data, err := Render(conf, s.opts)
	if err != nil {
		s.log.Error("failed to render feed", zap.String("conference", key), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to render feed")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
