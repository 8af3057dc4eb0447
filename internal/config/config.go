package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	Server      ServerConfig      `json:"server" yaml:"server"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Classifier  ClassifierConfig  `json:"classifier" yaml:"classifier"`
	Ingest      IngestConfig      `json:"ingest" yaml:"ingest"`
	Admin       AdminConfig       `json:"admin" yaml:"admin"`
	Feed        FeedConfig        `json:"feed" yaml:"feed"`
	Submissions SubmissionsConfig `json:"submissions" yaml:"submissions"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type ClassifierConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Model     string `json:"model" yaml:"model"`
	TimeoutMS int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type IngestConfig struct {
	Kafka KafkaConfig `json:"kafka" yaml:"kafka"`
	News  NewsConfig  `json:"news" yaml:"news"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type NewsConfig struct {
	FeedURL     string `json:"feed_url" yaml:"feed_url"`
	IndexURL    string `json:"index_url" yaml:"index_url"`
	LinkPrefix  string `json:"link_prefix" yaml:"link_prefix"`
	Limit       int    `json:"limit" yaml:"limit"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
	Strictness  string `json:"strictness" yaml:"strictness"`
}

type AdminConfig struct {
	Password   string        `json:"password" yaml:"password"`
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl"`
}

type FeedConfig struct {
	MaxAge               int `json:"max_age_sec" yaml:"max_age_sec"`
	StaleWhileRevalidate int `json:"stale_while_revalidate_sec" yaml:"stale_while_revalidate_sec"`
	ErrorMaxAge          int `json:"error_max_age_sec" yaml:"error_max_age_sec"`
}

type SubmissionsConfig struct {
	PerQuarterHour int    `json:"per_quarter_hour" yaml:"per_quarter_hour"`
	PerDay         int    `json:"per_day" yaml:"per_day"`
	IPPepper       string `json:"ip_pepper" yaml:"ip_pepper"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{Addr: ":8080"},
		Storage:  StorageConfig{Driver: "sqlite", DSN: "file:addonwatch.db?_pragma=busy_timeout(5000)"},
		Classifier: ClassifierConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "openrouter/auto",
			TimeoutMS: 12000,
		},
		Ingest: IngestConfig{
			Kafka: KafkaConfig{Enabled: false},
			News: NewsConfig{
				Limit:       20,
				Concurrency: 5,
				Strictness:  "medium",
			},
		},
		Admin: AdminConfig{SessionTTL: 8 * time.Hour},
		Feed: FeedConfig{
			MaxAge:               3600,
			StaleWhileRevalidate: 86400,
			ErrorMaxAge:          300,
		},
		Submissions: SubmissionsConfig{
			PerQuarterHour: 3,
			PerDay:         20,
			IPPepper:       "aw_pepper",
		},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = def.Storage.Driver
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = def.Storage.DSN
	}
	if cfg.Classifier.BaseURL == "" {
		cfg.Classifier.BaseURL = def.Classifier.BaseURL
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = def.Classifier.Model
	}
	if cfg.Classifier.TimeoutMS <= 0 {
		cfg.Classifier.TimeoutMS = def.Classifier.TimeoutMS
	}
	if cfg.Ingest.News.Limit <= 0 {
		cfg.Ingest.News.Limit = def.Ingest.News.Limit
	}
	if cfg.Ingest.News.Concurrency <= 0 {
		cfg.Ingest.News.Concurrency = def.Ingest.News.Concurrency
	}
	if cfg.Ingest.News.Strictness == "" {
		cfg.Ingest.News.Strictness = def.Ingest.News.Strictness
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = def.Admin.SessionTTL
	}
	if cfg.Feed.MaxAge <= 0 {
		cfg.Feed.MaxAge = def.Feed.MaxAge
	}
	if cfg.Feed.StaleWhileRevalidate <= 0 {
		cfg.Feed.StaleWhileRevalidate = def.Feed.StaleWhileRevalidate
	}
	if cfg.Feed.ErrorMaxAge <= 0 {
		cfg.Feed.ErrorMaxAge = def.Feed.ErrorMaxAge
	}
	if cfg.Submissions.PerQuarterHour <= 0 {
		cfg.Submissions.PerQuarterHour = def.Submissions.PerQuarterHour
	}
	if cfg.Submissions.PerDay <= 0 {
		cfg.Submissions.PerDay = def.Submissions.PerDay
	}
	if cfg.Submissions.IPPepper == "" {
		cfg.Submissions.IPPepper = def.Submissions.IPPepper
	}
}

func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch strings.ToLower(cfg.Storage.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported storage.driver: %q", cfg.Storage.Driver)
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	switch cfg.Ingest.News.Strictness {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("ingest.news.strictness must be low, medium or high, got %q", cfg.Ingest.News.Strictness)
	}
	if cfg.Submissions.PerQuarterHour > cfg.Submissions.PerDay {
		return errors.New("submissions.per_quarter_hour cannot exceed per_day")
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	if info, err := os.Stat(path); err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an in-memory config, for running without a
// config file and for tests.
func NewStaticManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
