package api

import (
	"net/http"

	"addonwatch/internal/cache"
	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
	"addonwatch/internal/scrape"
)

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		articles, err := s.store.ListArticles(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
	case http.MethodPost:
		s.handleAddArticle(w, r)
	case http.MethodDelete:
		s.handleDeleteArticle(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAddArticle scrapes page metadata, asks the classifier for an
// article-level severity guess and stores the row. Scrape and classify
// failures are tolerated; a bare URL is still a valid article.
func (s *Server) handleAddArticle(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	url, err := normalize.HTTPURL(body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	article := model.Article{URL: url, Favicon: scrape.FallbackFavicon(url)}
	meta, err := s.scraper.FetchPageMeta(r.Context(), url)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("page metadata scrape failed", "url", url, "err", err)
		}
		article.Title = url
	} else {
		article.Title = meta.Title
		article.Summary = meta.Description
		if meta.Favicon != "" {
			article.Favicon = meta.Favicon
		}
	}

	severity := 1
	if cls, err := s.classifier.Classify(r.Context(), article.Title+"\n\n"+article.Summary); err == nil && cls.Related {
		severity = cls.Severity
	}
	article.Severity = &severity

	stored, err := s.store.InsertArticle(r.Context(), article)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.tags.Invalidate(cache.TagOverallImpacts)
	writeJSON(w, http.StatusOK, map[string]any{"article": stored})
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id")
		return
	}
	if err := s.store.DeleteArticle(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.tags.Invalidate(cache.TagOverallImpacts)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
