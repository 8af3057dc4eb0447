package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"addonwatch/internal/cache"
	"addonwatch/internal/config"
)

func newAdminServer(password string) *Server {
	cfg := config.DefaultConfig()
	cfg.Admin.Password = password
	return NewServer(config.NewStaticManager(cfg), nil, nil, cache.NewTags(), nil, nil, nil, nil, "test")
}

func TestAdminLogin(t *testing.T) {
	srv := newAdminServer("hunter2")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password": "hunter2"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %+v", cookies)
	}
	c := cookies[0]
	if c.Name != adminCookie || c.Value != "1" {
		t.Fatalf("cookie = %+v", c)
	}
	if !c.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if c.MaxAge != 8*3600 {
		t.Fatalf("cookie max-age = %d", c.MaxAge)
	}
}

func TestAdminLoginWrongPassword(t *testing.T) {
	srv := newAdminServer("hunter2")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password": "guess"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookie expected on failed login")
	}
}

func TestAdminLoginDisabledWithoutPassword(t *testing.T) {
	srv := newAdminServer("")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password": ""}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAdminMe(t *testing.T) {
	srv := newAdminServer("hunter2")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil))
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["admin"] {
		t.Fatal("expected admin=false without cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "1"})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["admin"] {
		t.Fatal("expected admin=true with cookie")
	}
}

func TestRevalidateRequiresAdmin(t *testing.T) {
	srv := newAdminServer("hunter2")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/revalidate-impacts", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/revalidate-impacts", nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "1"})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
