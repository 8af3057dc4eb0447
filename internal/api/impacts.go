package api

import (
	"net/http"

	"addonwatch/internal/cache"
	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
)

// handleOverallImpacts serves the averaged per-addon rollup behind the
// tag-invalidated cache. Storage failure degrades to an empty list;
// the UI always renders something.
func (s *Server) handleOverallImpacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rollups, err := s.rollups.Get(r.Context())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("rollup load failed", "err", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"impacts": []model.AddonRollup{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"impacts": rollups})
}

type impactBody struct {
	ArticleID string `json:"article_id"`
	AddonName string `json:"addon_name"`
	Severity  int    `json:"severity"`
}

func (s *Server) handleArticleImpacts(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	switch r.Method {
	case http.MethodPost:
		var body impactBody
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		name := normalize.AddonName(body.AddonName)
		if body.ArticleID == "" || name == "" || body.Severity < 0 || body.Severity > 5 {
			writeError(w, http.StatusBadRequest, "Invalid body")
			return
		}
		imp := model.ArticleImpact{AddonName: name, Severity: body.Severity}
		if err := s.store.UpsertArticleImpact(r.Context(), body.ArticleID, imp); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.tags.Invalidate(cache.TagOverallImpacts)
		s.respondArticleImpacts(w, r, body.ArticleID)
	case http.MethodDelete:
		articleID := r.URL.Query().Get("article_id")
		addonName := r.URL.Query().Get("addon_name")
		if articleID == "" || addonName == "" {
			writeError(w, http.StatusBadRequest, "Missing params")
			return
		}
		if err := s.store.DeleteArticleImpact(r.Context(), articleID, addonName); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.tags.Invalidate(cache.TagOverallImpacts)
		s.respondArticleImpacts(w, r, articleID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) respondArticleImpacts(w http.ResponseWriter, r *http.Request, articleID string) {
	impacts, err := s.store.ArticleImpacts(r.Context(), articleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"impacts": impacts})
}

func (s *Server) handleSuggestImpacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &body); err != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing text")
		return
	}
	suggestions, err := s.classifier.SuggestImpacts(r.Context(), body.Text)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
