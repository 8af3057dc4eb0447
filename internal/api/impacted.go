package api

import (
	"fmt"
	"net/http"
	"time"

	"addonwatch/internal/feed"
	"addonwatch/internal/model"
)

// handleImpacted serves the public slug-keyed feed with conditional-GET
// semantics. The feed is rebuilt from a fresh observation snapshot on
// every request; the ETag is a SHA-256 of the canonical body, so a 304
// is possible whenever the underlying data has not changed. On any
// internal failure the endpoint still returns a well-formed empty feed
// with a short cache lifetime instead of breaking third-party clients.
func (s *Server) handleImpacted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fc := s.cfg.Get().Feed
	w.Header().Set("Access-Control-Allow-Origin", "*")

	observations, err := s.store.ListObservations(r.Context())
	if err != nil {
		s.serveFeedFailure(w, r, fc.ErrorMaxAge, err)
		return
	}
	body, err := feed.Encode(feed.Build(observations, time.Now()))
	if err != nil {
		s.serveFeedFailure(w, r, fc.ErrorMaxAge, err)
		return
	}
	etag := feed.ETag(body)

	cacheControl := fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", fc.MaxAge, fc.StaleWhileRevalidate)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("ETag", etag)

	if feed.MatchesIfNoneMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (s *Server) serveFeedFailure(w http.ResponseWriter, r *http.Request, errorMaxAge int, err error) {
	if s.logger != nil {
		s.logger.Error("impacted feed build failed", "err", err)
	}
	empty := model.ImpactedFeed{
		Version: time.Now().UTC().Format("2006-01-02"),
		Items:   []model.ImpactedItem{},
	}
	body, encodeErr := feed.Encode(empty)
	if encodeErr != nil {
		body = []byte(`{"version":"","items":[]}`)
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d", errorMaxAge))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}
