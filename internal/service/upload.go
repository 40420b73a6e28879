// Package service implements the core upload processing logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"formgate-go/internal/config"
	"formgate-go/internal/form"
	"formgate-go/internal/metrics"
	"formgate-go/internal/model"
)

// UploadService drives the form collector over a request body and persists
// the collected files into the storage directory.
type UploadService struct {
	collector *form.Collector
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewUploadService creates an UploadService. The storage directory is
// created if it does not exist yet. The metrics parameter is optional;
// pass nil to disable recording.
func NewUploadService(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*UploadService, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", cfg.Storage.Dir, err)
	}
	if cfg.Parts.TempDir != "" {
		if err := os.MkdirAll(cfg.Parts.TempDir, 0o700); err != nil {
			return nil, fmt.Errorf("create temp dir %s: %w", cfg.Parts.TempDir, err)
		}
	}

	return &UploadService{
		collector: form.NewCollector(cfg.FormConfig(), logger, m),
		cfg:       cfg,
		logger:    logger.With("component", "upload_service"),
		metrics:   m,
	}, nil
}

// Process consumes the whole multipart body and returns the upload result.
// Text fields are returned inline; every file part is persisted into a
// fresh per-request subdirectory of the storage dir, optionally expanding
// gzip uploads first. Temp files are cleaned up on every path, success or
// failure.
func (s *UploadService) Process(ctx context.Context, mr *multipart.Reader) (*model.UploadResult, error) {
	parts, err := s.collector.Collect(ctx, mr)
	if err != nil {
		return nil, err
	}
	defer parts.RemoveAll()

	query, err := parts.Texts.ToQueryString()
	if err != nil {
		return nil, err
	}

	fields := make(map[string][]string, parts.Texts.Len())
	for _, p := range parts.Texts.Pairs() {
		v, err := p.Value.Text()
		if err != nil {
			return nil, err
		}
		fields[p.Name] = append(fields[p.Name], v)
	}

	result := &model.UploadResult{
		Fields: fields,
		Query:  query,
		Files:  []model.StoredFile{},
	}

	if parts.Files.Len() == 0 {
		return result, nil
	}

	// One subdirectory per request so sanitized names from independent
	// uploads cannot collide.
	destDir := filepath.Join(s.cfg.Storage.Dir, uuid.NewString())
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination dir: %w", err)
	}

	for _, p := range parts.Files.Pairs() {
		f := p.File
		if s.cfg.Storage.DecompressGzip {
			df, err := f.Decompress()
			if err != nil {
				os.RemoveAll(destDir)
				return nil, err
			}
			// The decompressed copy is not tracked by the collection;
			// make sure a later failure still removes it.
			if df != f {
				defer df.Remove()
				f = df
			}
		}

		path, err := f.Persist(destDir)
		if err != nil {
			// A failed request must not leave files it already persisted.
			os.RemoveAll(destDir)
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.FilesPersistedTotal.Inc()
		}

		result.Files = append(result.Files, model.StoredFile{
			Field:       p.Name,
			FileName:    f.SanitizedFileName(),
			ContentType: f.ContentType(),
			Size:        f.Size(),
			Path:        path,
		})
	}

	s.logger.Info("upload processed",
		"text_fields", parts.Texts.Len(),
		"files", len(result.Files),
		"dest_dir", destDir,
	)

	return result, nil
}
