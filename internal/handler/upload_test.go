package handler

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"formgate-go/internal/config"
	"formgate-go/internal/form"
	"formgate-go/internal/model"
	"formgate-go/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Parts: config.PartsConfig{
			TextLimitBytes: form.DefaultTextLimit,
			FileLimitBytes: form.DefaultFileLimit,
			TempDir:        t.TempDir(),
		},
		Storage: config.StorageConfig{Dir: t.TempDir()},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	svc, err := service.NewUploadService(cfg, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	e := echo.New()
	RegisterRoutes(e, NewUploadHandler(svc, testLogger()), NewHealthHandler(cfg, "test"))
	return e
}

func TestUpload_OK(t *testing.T) {
	cfg := testConfig(t)
	e := newTestServer(t, cfg)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", "Hello"); err != nil {
		t.Fatal(err)
	}
	fw, err := w.CreateFormFile("upload", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("file payload")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var res model.UploadResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := res.Fields["title"]; len(got) != 1 || got[0] != "Hello" {
		t.Errorf("fields[title] = %v, want [Hello]", got)
	}
	if res.Query != "title=Hello" {
		t.Errorf("query = %q, want %q", res.Query, "title=Hello")
	}
	if len(res.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(res.Files))
	}
	if res.Files[0].FileName != "a.png" || res.Files[0].Size != int64(len("file payload")) {
		t.Errorf("file = %+v, want name=a.png size=%d", res.Files[0], len("file payload"))
	}
	if _, err := os.Stat(res.Files[0].Path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestUpload_NonMultipartBody(t *testing.T) {
	e := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"not": "multipart"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpload_MalformedForm(t *testing.T) {
	cfg := testConfig(t)
	e := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/upload",
		strings.NewReader("--BOUNDARY\r\ngarbage without headers"))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=BOUNDARY")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	entries, err := os.ReadDir(cfg.Parts.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir has %d entries after malformed request, want 0", len(entries))
	}
}

func TestUpload_OversizedGzip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DecompressGzip = true
	cfg.Parts.FileLimitBytes = 64 << 10
	e := newTestServer(t, cfg)

	// Small on the wire, far past the file limit when inflated.
	var zbuf bytes.Buffer
	zw := gzip.NewWriter(&zbuf)
	if _, err := zw.Write(make([]byte, 10<<20)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("upload", "bomb.gz")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(zbuf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body.String())
	}
}

func TestUpload_BadGzip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DecompressGzip = true
	e := newTestServer(t, cfg)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("upload", "fake.gz")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("definitely not gzip")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
}
