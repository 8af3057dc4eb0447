package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"addonwatch/internal/cache"
	"addonwatch/internal/classify"
	"addonwatch/internal/config"
	"addonwatch/internal/ingest"
	"addonwatch/internal/scrape"
	"addonwatch/internal/storage"
)

const (
	adminCookie   = "aw_admin"
	reactorCookie = "aw_reactor_id"
)

type Server struct {
	cfg        *config.Manager
	store      storage.Store
	rollups    *cache.Rollups
	tags       *cache.Tags
	classifier *classify.Classifier
	pipeline   *ingest.Pipeline
	scraper    *scrape.Client
	logger     *slog.Logger
	version    string
}

func NewServer(cfg *config.Manager, store storage.Store, rollups *cache.Rollups, tags *cache.Tags, classifier *classify.Classifier, pipeline *ingest.Pipeline, scraper *scrape.Client, logger *slog.Logger, version string) *Server {
	return &Server{
		cfg:        cfg,
		store:      store,
		rollups:    rollups,
		tags:       tags,
		classifier: classifier,
		pipeline:   pipeline,
		scraper:    scraper,
		logger:     logger,
		version:    version,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/impacted", s.handleImpacted)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/overall-impacts", s.handleOverallImpacts)
	mux.HandleFunc("/api/articles", s.handleArticles)
	mux.HandleFunc("/api/article-impacts", s.handleArticleImpacts)
	mux.HandleFunc("/api/article-impacts/suggest", s.handleSuggestImpacts)
	mux.HandleFunc("/api/submissions", s.handleSubmissions)
	mux.HandleFunc("/api/reactions", s.handleReactions)
	mux.HandleFunc("/api/admin/login", s.handleAdminLogin)
	mux.HandleFunc("/api/admin/me", s.handleAdminMe)
	mux.HandleFunc("/api/admin/ingest-news", s.handleIngestNews)
	mux.HandleFunc("/api/admin/revalidate-impacts", s.handleRevalidate)
	return mux
}

func Start(ctx context.Context, s *Server) *http.Server {
	addr := s.cfg.Get().Server.Addr
	if s.logger != nil {
		s.logger.Info("api listening", "addr", addr)
	}
	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

type statusResponse struct {
	Status     string `json:"status"`
	Time       string `json:"time"`
	Version    string `json:"version"`
	ConfigPath string `json:"config_path"`
	Storage    string `json:"storage_driver"`
	Classifier bool   `json:"classifier_enabled"`
	Kafka      bool   `json:"kafka_ingest"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Storage:    cfg.Storage.Driver,
		Classifier: s.classifier != nil && s.classifier.Enabled(),
		Kafka:      cfg.Ingest.Kafka.Enabled,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func (s *Server) isAdmin(r *http.Request) bool {
	if s.cfg.Get().Admin.Password == "" {
		return false
	}
	c, err := r.Cookie(adminCookie)
	return err == nil && c.Value == "1"
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// hashClient anchors submission rate limits without storing raw IPs.
func hashClient(ip, userAgent, pepper string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent + "|" + pepper))
	return hex.EncodeToString(sum[:])
}
