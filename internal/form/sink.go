package form

import (
	"bytes"
	"fmt"
	"os"
)

// tempFilePattern names temp files so stray ones are attributable.
const tempFilePattern = "formgate-part-*"

// sinkState tags the accumulation state of one part. Transitions are
// one-directional: memory → spilled → discarding.
type sinkState int

const (
	// stateMemory buffers bytes in memory (text parts under the limit).
	stateMemory sinkState = iota
	// stateSpilled writes bytes to a temp file.
	stateSpilled
	// stateDiscarding drains bytes without writing (file cap reached).
	stateDiscarding
)

// sink accumulates the bytes of exactly one part, enforcing the limit for
// its routing kind. Text parts start in memory and spill to a temp file
// when they cross the text limit; file parts spill from the first byte and
// stop writing at the file cap while the remaining chunks are drained so
// the multipart stream stays in sync.
type sink struct {
	cfg     *Config
	kind    Kind
	state   sinkState
	buf     bytes.Buffer
	file    *os.File
	written int64 // bytes written to the temp file
}

// newSink prepares a sink for one part. File-routed parts open their temp
// file immediately; a creation failure is fatal for the whole collection.
func newSink(cfg *Config, kind Kind) (*sink, error) {
	s := &sink{cfg: cfg, kind: kind}
	if kind == KindFile {
		if err := s.spill(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *sink) spill() error {
	f, err := os.CreateTemp(s.cfg.tempDir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	s.file = f
	s.state = stateSpilled
	return nil
}

// write consumes one chunk of arbitrary size. A write failure aborts the
// whole collection: a partially consumed multipart stream cannot be
// resumed mid-boundary.
func (s *sink) write(p []byte) error {
	switch s.state {
	case stateMemory:
		if int64(s.buf.Len()+len(p)) <= s.cfg.textLimit {
			s.buf.Write(p)
			return nil
		}
		if err := s.spill(); err != nil {
			return err
		}
		if s.buf.Len() > 0 {
			if _, err := s.file.Write(s.buf.Bytes()); err != nil {
				return fmt.Errorf("write temp file: %w", err)
			}
			s.written = int64(s.buf.Len())
			s.buf.Reset()
		}
		return s.write(p)

	case stateSpilled:
		n := int64(len(p))
		if s.kind == KindFile && s.written+n > s.cfg.fileLimit {
			n = s.cfg.fileLimit - s.written
		}
		if n > 0 {
			if _, err := s.file.Write(p[:n]); err != nil {
				return fmt.Errorf("write temp file: %w", err)
			}
			s.written += n
		}
		if n < int64(len(p)) {
			s.state = stateDiscarding
		}
		return nil

	default: // stateDiscarding
		return nil
	}
}

// spilled reports whether the part's bytes ended up in a temp file.
func (s *sink) spilled() bool { return s.state != stateMemory }

// truncated reports whether a file part hit the cap and had bytes
// discarded.
func (s *sink) truncated() bool { return s.state == stateDiscarding }

// size returns the number of bytes actually retained.
func (s *sink) size() int64 {
	if s.spilled() {
		return s.written
	}
	return int64(s.buf.Len())
}

// finishText materializes the accumulated bytes as a text value, closing
// the temp file when the part spilled.
func (s *sink) finishText() (TextValue, error) {
	if !s.spilled() {
		return TextValue{inline: s.buf.String()}, nil
	}
	path := s.file.Name()
	if err := s.file.Close(); err != nil {
		os.Remove(path)
		return TextValue{}, fmt.Errorf("close temp file: %w", err)
	}
	return TextValue{path: path}, nil
}

// finishFile materializes the temp file as a File owning it. The recorded
// size reflects only bytes actually written, which is less than the part's
// true size when the cap was hit.
func (s *sink) finishFile(originalName, contentType string) (*File, error) {
	path := s.file.Name()
	if err := s.file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return &File{
		tempPath:      path,
		tempDir:       s.cfg.tempDir,
		originalName:  originalName,
		sanitizedName: sanitizeFileName(originalName),
		contentType:   contentType,
		size:          s.written,
		limit:         s.cfg.fileLimit,
	}, nil
}

// discard releases the sink's resources after a failure.
func (s *sink) discard() {
	if s.file != nil {
		name := s.file.Name()
		s.file.Close()
		os.Remove(name)
		s.file = nil
	}
}
