package api

import (
	"errors"
	"net/http"
	"time"

	"addonwatch/internal/cache"
	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
	"addonwatch/internal/scrape"
	"addonwatch/internal/storage"
)

const (
	maxSubmissionAddons = 25
	// severity assigned to articles promoted from submissions; the
	// real per-addon severities live on the impact rows
	promotedArticleSeverity = 2
)

type submissionBody struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Notes  string `json:"notes"`
	Addons []struct {
		AddonName string `json:"addon_name"`
		Severity  int    `json:"severity"`
	} `json:"addons"`
	// honeypot field, bots tend to fill it
	Website string `json:"website"`
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleListSubmissions(w, r)
	case http.MethodPatch:
		s.handleReviewSubmission(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submissionBody
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.Website != "" {
		// pretend success so the bot moves on
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	url, err := normalize.HTTPURL(body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL")
		return
	}
	addons := make([]model.SubmissionImpact, 0, len(body.Addons))
	for _, a := range body.Addons {
		name := normalize.AddonName(a.AddonName)
		if name == "" {
			continue
		}
		addons = append(addons, model.SubmissionImpact{
			AddonName: name,
			Severity:  normalize.ClampScore(a.Severity),
		})
	}
	if len(addons) == 0 || len(addons) > maxSubmissionAddons {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	cfg := s.cfg.Get()
	isAdmin := s.isAdmin(r)
	ua := r.Header.Get("User-Agent")
	ipHash := hashClient(clientIP(r), ua, cfg.Submissions.IPPepper)

	if !isAdmin {
		now := time.Now()
		recent, err := s.store.CountSubmissionsSince(r.Context(), ipHash, now.Add(-15*time.Minute))
		if err == nil && recent >= cfg.Submissions.PerQuarterHour {
			writeError(w, http.StatusTooManyRequests, "Too many submissions. Try again later.")
			return
		}
		daily, err := s.store.CountSubmissionsSince(r.Context(), ipHash, now.Add(-24*time.Hour))
		if err == nil && daily >= cfg.Submissions.PerDay {
			writeError(w, http.StatusTooManyRequests, "Daily submission limit reached.")
			return
		}
	}

	sub := model.Submission{
		URL:       url,
		Title:     normalize.Text(body.Title, 200),
		Notes:     normalize.Text(body.Notes, 1000),
		Status:    model.SubmissionPending,
		IPHash:    ipHash,
		UserAgent: ua,
		Addons:    addons,
	}
	stored, err := s.store.InsertSubmission(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save")
		return
	}

	if isAdmin {
		articleID, err := s.promoteSubmission(r, stored)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "article_id": articleID, "autoApproved": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// promoteSubmission turns an approved submission into an article plus
// impact rows and marks it reviewed.
func (s *Server) promoteSubmission(r *http.Request, sub model.Submission) (string, error) {
	severity := promotedArticleSeverity
	article, err := s.store.InsertArticle(r.Context(), model.Article{
		URL:      sub.URL,
		Title:    sub.Title,
		Summary:  sub.Notes,
		Favicon:  scrape.FallbackFavicon(sub.URL),
		Severity: &severity,
	})
	if err != nil {
		return "", err
	}
	for _, imp := range sub.Addons {
		err := s.store.UpsertArticleImpact(r.Context(), article.ID, model.ArticleImpact{
			AddonName: imp.AddonName,
			Severity:  imp.Severity,
		})
		if err != nil {
			return "", err
		}
	}
	if err := s.store.SetSubmissionStatus(r.Context(), sub.ID, model.SubmissionReviewed); err != nil {
		return "", err
	}
	s.tags.Invalidate(cache.TagOverallImpacts)
	return article.ID, nil
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	subs, err := s.store.ListSubmissions(r.Context(), 200)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (s *Server) handleReviewSubmission(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var body struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}
	if err := readJSON(w, r, &body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	switch body.Action {
	case "discard":
		if err := s.store.SetSubmissionStatus(r.Context(), body.ID, model.SubmissionDiscarded); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "approve":
		sub, err := s.store.GetSubmission(r.Context(), body.ID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		articleID, err := s.promoteSubmission(r, sub)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "article_id": articleID})
	default:
		writeError(w, http.StatusBadRequest, "Invalid body")
	}
}
