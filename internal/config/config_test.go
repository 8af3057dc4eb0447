package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"server": {"addr": ":9090"},
		"storage": {"driver": "postgres", "dsn": "postgres://localhost/addonwatch"}
	}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Feed.MaxAge != 3600 {
		t.Fatalf("feed defaults not applied: %+v", cfg.Feed)
	}
	if cfg.Ingest.News.Strictness != "medium" {
		t.Fatalf("strictness default not applied: %q", cfg.Ingest.News.Strictness)
	}
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log_level: debug
server:
  addr: ":7070"
ingest:
  news:
    feed_url: https://news.example.com/rss
    strictness: high
submissions:
  per_quarter_hour: 5
  per_day: 50
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Server.Addr != ":7070" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Ingest.News.FeedURL != "https://news.example.com/rss" {
		t.Fatalf("feed_url = %q", cfg.Ingest.News.FeedURL)
	}
	if cfg.Ingest.News.Strictness != "high" {
		t.Fatalf("strictness = %q", cfg.Ingest.News.Strictness)
	}
	if cfg.Submissions.PerQuarterHour != 5 || cfg.Submissions.PerDay != 50 {
		t.Fatalf("submissions = %+v", cfg.Submissions)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage default not applied: %q", cfg.Storage.Driver)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"empty":          "   ",
		"bad driver":     `{"storage": {"driver": "oracle"}}`,
		"bad strictness": "ingest:\n  news:\n    strictness: extreme\n",
		"kafka missing":  "ingest:\n  kafka:\n    enabled: true\n",
		"rate limits":    `{"submissions": {"per_quarter_hour": 100, "per_day": 20}}`,
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestManagerReload(t *testing.T) {
	path := writeConfig(t, `{"server": {"addr": ":7171"}}`)
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.Get().Server.Addr != ":7171" {
		t.Fatalf("addr = %q", m.Get().Server.Addr)
	}

	if err := os.WriteFile(path, []byte(`{"server": {"addr": ":7272"}}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	cfg, err := m.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Addr != ":7272" {
		t.Fatalf("addr after reload = %q", cfg.Server.Addr)
	}
	if m.Get().Server.Addr != ":7272" {
		t.Fatal("Get did not observe the reloaded config")
	}
}

func TestStaticManager(t *testing.T) {
	m := NewStaticManager(nil)
	if m.Get().Server.Addr != ":8080" {
		t.Fatalf("addr = %q", m.Get().Server.Addr)
	}
	if m.Path() != "" {
		t.Fatalf("path = %q", m.Path())
	}
	needs, err := m.NeedsReload()
	if err != nil || needs {
		t.Fatalf("file-less manager must never need a reload: %v %v", needs, err)
	}
}
