package api

import (
	"crypto/subtle"
	"net/http"

	"addonwatch/internal/cache"
	"addonwatch/internal/ingest"
)

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	cfg := s.cfg.Get().Admin
	if cfg.Password == "" || body.Password == "" ||
		subtle.ConstantTimeCompare([]byte(body.Password), []byte(cfg.Password)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    "1",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.SessionTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"admin": s.isAdmin(r)})
}

func (s *Server) handleIngestNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var opts ingest.Options
	// body is optional, defaults come from config
	_ = readJSON(w, r, &opts)
	report, err := s.pipeline.Run(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if opts.DryRun {
		writeJSON(w, http.StatusOK, map[string]any{
			"preview":  report.Preview,
			"rejected": report.Rejected,
			"count":    len(report.Preview),
			"errors":   report.Errors,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": report.Inserted,
		"rejected": report.Rejected,
		"count":    len(report.Inserted),
		"errors":   report.Errors,
	})
}

func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.tags.Invalidate(cache.TagOverallImpacts)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
