package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz(t *testing.T) {
	e := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	cfg := testConfig(t)
	e := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want %q", body["version"], "test")
	}
	if body["storage_dir"] != cfg.Storage.Dir {
		t.Errorf("storage_dir = %v, want %q", body["storage_dir"], cfg.Storage.Dir)
	}
	if _, ok := body["text_limit_bytes"]; !ok {
		t.Error("response missing text_limit_bytes")
	}
	if _, ok := body["file_limit_bytes"]; !ok {
		t.Error("response missing file_limit_bytes")
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	e := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/upload", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /upload status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
