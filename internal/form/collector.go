package form

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"formgate-go/internal/metrics"
)

// chunkSize is the read buffer size used to drain each part.
const chunkSize = 32 << 10

// Parts is the final aggregate of a fully consumed request body: the text
// and file collections, queryable by field name. No partial view is ever
// produced; a request either yields a complete Parts or an error.
type Parts struct {
	Texts TextParts
	Files FileParts
}

// RemoveAll deletes every temp file still owned by the collections: spilled
// text values and files that were neither persisted nor taken. Callers
// should defer it as soon as they hold a Parts so no code path can leak
// temp files.
func (p *Parts) RemoveAll() {
	p.Texts.removeAll()
	p.Files.removeAll()
}

// Collector consumes multipart part sequences into Parts aggregates. It is
// long-lived and safe for concurrent use: the configuration is read-only
// and all per-request state lives in the Collect call.
type Collector struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *metrics.Metrics // optional; nil disables recording
}

// NewCollector creates a Collector. The metrics parameter is optional;
// pass nil to disable engine metrics.
func NewCollector(cfg *Config, logger *slog.Logger, m *metrics.Metrics) *Collector {
	return &Collector{
		cfg:     cfg,
		logger:  logger.With("component", "form_collector"),
		metrics: m,
	}
}

// Config returns the read-only configuration the collector applies.
func (c *Collector) Config() *Config { return c.cfg }

// Collect drains the full part sequence and returns the aggregate
// collections. Parts are processed strictly sequentially, since ordering
// and size accounting depend on it; independent requests run their own
// Collect calls in parallel. On a decode or I/O failure, and on context
// cancellation, every temp file created for this request is removed and no
// partial result is returned.
func (c *Collector) Collect(ctx context.Context, mr *multipart.Reader) (*Parts, error) {
	parts := &Parts{}
	buf := make([]byte, chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			parts.RemoveAll()
			return nil, err
		}

		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			parts.RemoveAll()
			c.countForm("decode_error")
			return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
		}

		if err := c.collectPart(ctx, parts, part, buf); err != nil {
			part.Close()
			parts.RemoveAll()
			c.countForm("error")
			return nil, err
		}
		part.Close()
	}

	c.countForm("ok")
	return parts, nil
}

// collectPart classifies one part, drains its chunks through a fresh sink
// and appends the materialized value to the matching collection.
func (c *Collector) collectPart(ctx context.Context, parts *Parts, part *multipart.Part, buf []byte) error {
	name := part.FormName()
	if name == "" {
		return fmt.Errorf("%w: part missing field name", ErrMalformedForm)
	}
	fileName := part.FileName()
	kind := c.cfg.classify(name, fileName)

	s, err := newSink(c.cfg, kind)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			s.discard()
			return err
		}
		n, err := part.Read(buf)
		if n > 0 {
			if werr := s.write(buf[:n]); werr != nil {
				s.discard()
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			s.discard()
			return fmt.Errorf("%w: read part %q: %v", ErrMalformedForm, name, err)
		}
	}

	switch kind {
	case KindFile:
		f, err := s.finishFile(fileName, part.Header.Get("Content-Type"))
		if err != nil {
			return err
		}
		parts.Files.append(name, f)
	default:
		v, err := s.finishText()
		if err != nil {
			return err
		}
		parts.Texts.append(name, v)
	}

	if c.metrics != nil {
		c.metrics.PartsTotal.WithLabelValues(kind.String()).Inc()
		c.metrics.PartSizeBytes.WithLabelValues(kind.String()).Observe(float64(s.size()))
		if kind == KindText && s.spilled() {
			c.metrics.TextSpillsTotal.Inc()
		}
		if s.truncated() {
			c.metrics.FileTruncationsTotal.Inc()
		}
	}

	c.logger.Debug("part collected",
		"field", name,
		"kind", kind.String(),
		"bytes", s.size(),
		"spilled", s.spilled(),
		"truncated", s.truncated(),
	)

	return nil
}

func (c *Collector) countForm(outcome string) {
	if c.metrics != nil {
		c.metrics.FormsTotal.WithLabelValues(outcome).Inc()
	}
}
