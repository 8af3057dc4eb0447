package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reactions are keyed by a long-lived anonymous reactor cookie; counts
// are maintained in a cached row so list pages avoid counting raw
// reaction rows on every read.

func (s *Server) handleReactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetReactions(w, r)
	case http.MethodPost:
		s.handlePostReaction(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetReactions(w http.ResponseWriter, r *http.Request) {
	articleID := r.URL.Query().Get("articleId")
	if articleID == "" {
		writeError(w, http.StatusBadRequest, "Missing articleId")
		return
	}
	reactorID := ""
	if c, err := r.Cookie(reactorCookie); err == nil {
		reactorID = c.Value
	}

	if r.URL.Query().Get("mineOnly") == "1" && reactorID != "" {
		mine, err := s.store.GetReaction(r.Context(), articleID, reactorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"mine": nilIfEmpty(mine)})
		return
	}

	counts, ok, err := s.store.GetReactionCounts(r.Context(), articleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		// counts row missing; recount once from raw reactions
		counts, err = s.store.CountReactions(r.Context(), articleID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	var mine string
	if reactorID != "" {
		mine, _ = s.store.GetReaction(r.Context(), articleID, reactorID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"good": counts.Good,
		"bad":  counts.Bad,
		"mine": nilIfEmpty(mine),
	})
}

func (s *Server) handlePostReaction(w http.ResponseWriter, r *http.Request) {
	articleID, reaction := parseReactionRequest(w, r)
	reaction = strings.ToLower(reaction)
	if articleID == "" || (reaction != "good" && reaction != "bad" && reaction != "none") {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	reactorID := ""
	setCookie := false
	if c, err := r.Cookie(reactorCookie); err == nil && c.Value != "" {
		reactorID = c.Value
	} else {
		reactorID = uuid.NewString()
		setCookie = true
	}

	var err error
	if reaction == "none" {
		err = s.store.DeleteReaction(r.Context(), articleID, reactorID)
	} else {
		err = s.store.UpsertReaction(r.Context(), articleID, reactorID, reaction)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts, err := s.store.CountReactions(r.Context(), articleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.SaveReactionCounts(r.Context(), articleID, counts); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if setCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     reactorCookie,
			Value:    reactorID,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		})
	}
	mine := reaction
	if reaction == "none" {
		mine = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"good": counts.Good,
		"bad":  counts.Bad,
		"mine": nilIfEmpty(mine),
	})
}

// parseReactionRequest accepts JSON, form-encoded bodies or query
// parameters; in-game clients post whatever their HTTP library favors.
func parseReactionRequest(w http.ResponseWriter, r *http.Request) (articleID, reaction string) {
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		var body struct {
			ArticleID string `json:"articleId"`
			Reaction  string `json:"reaction"`
		}
		if err := readJSON(w, r, &body); err == nil {
			articleID, reaction = body.ArticleID, body.Reaction
		}
	} else if err := r.ParseForm(); err == nil {
		articleID = r.PostForm.Get("articleId")
		reaction = r.PostForm.Get("reaction")
	}
	if articleID == "" || reaction == "" {
		query := r.URL.Query()
		if articleID == "" {
			articleID = query.Get("articleId")
		}
		if reaction == "" {
			reaction = query.Get("reaction")
		}
	}
	return articleID, reaction
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
