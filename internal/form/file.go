package form

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// gzipContentTypes are declared content types treated as gzip by
// Decompress.
var gzipContentTypes = map[string]bool{
	"application/gzip":   true,
	"application/x-gzip": true,
}

// File is one collected file part. It exclusively owns its backing temp
// file: Persist consumes the value by moving the file to its destination,
// and Remove deletes it. Exactly one of the two ever touches the backing
// file.
type File struct {
	tempPath      string
	tempDir       string
	originalName  string
	sanitizedName string
	contentType   string
	size          int64
	limit         int64 // file limit the part was collected under
}

// OriginalFileName returns the untrusted client-supplied filename; it may
// be empty.
func (f *File) OriginalFileName() string { return f.originalName }

// SanitizedFileName returns the sanitized filename, or a generated name
// when the client supplied none.
func (f *File) SanitizedFileName() string { return f.sanitizedName }

// ContentType returns the declared content type of the part.
func (f *File) ContentType() string { return f.contentType }

// Size returns the number of bytes written, which is less than the part's
// true size when the file limit truncated it.
func (f *File) Size() int64 { return f.size }

// Open opens the backing temp file for reading.
func (f *File) Open() (*os.File, error) {
	if f.tempPath == "" {
		return nil, errors.New("file has been persisted or removed")
	}
	return os.Open(f.tempPath)
}

// Persist moves the backing file into dir under the sanitized filename and
// returns the destination path, consuming the value. A same-filesystem
// rename is attempted first; when the destination is on a different
// filesystem the file is copied and the original deleted. On failure the
// temp file is left untouched and still owned by the value.
func (f *File) Persist(dir string) (string, error) {
	if f.tempPath == "" {
		return "", errors.New("file has been persisted or removed")
	}
	dst := filepath.Join(dir, f.sanitizedName)
	if err := os.Rename(f.tempPath, dst); err != nil {
		var linkErr *os.LinkError
		if !errors.As(err, &linkErr) {
			return "", fmt.Errorf("persist %s: %w", f.sanitizedName, err)
		}
		if err := copyFile(f.tempPath, dst); err != nil {
			return "", fmt.Errorf("persist %s: %w", f.sanitizedName, err)
		}
		os.Remove(f.tempPath)
	}
	f.tempPath = ""
	return dst, nil
}

// Decompress transparently expands gzip content into a fresh temp file and
// returns a File owning it, consuming the original. The new value carries
// the filename without its .gz suffix and a content type re-detected from
// the decompressed bytes. Files whose declared content type and filename
// do not indicate gzip are returned unchanged. ErrBadEncoding is returned
// when the content is not actually gzip; ErrContentTooLarge when the
// output would exceed the file limit. On either error the original temp
// file stays owned by the value.
func (f *File) Decompress() (*File, error) {
	if f.tempPath == "" {
		return nil, errors.New("file has been persisted or removed")
	}
	if !f.isGzip() {
		return f, nil
	}

	src, err := os.Open(f.tempPath)
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}

	out, err := os.CreateTemp(f.tempDir, tempFilePattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	// The file limit applies to the decompressed output as well: a tiny
	// compressed part must not be able to inflate without bound.
	limit := f.limit
	if limit <= 0 {
		limit = DefaultFileLimit
	}
	n, err := io.Copy(out, io.LimitReader(zr, limit+1))
	if err == nil && n > limit {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("%w: %s inflates past %d bytes", ErrContentTooLarge, f.sanitizedName, limit)
	}
	if err == nil {
		err = zr.Close()
	}
	if err == nil {
		err = out.Close()
	}
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		if errors.Is(err, gzip.ErrHeader) || errors.Is(err, gzip.ErrChecksum) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
		return nil, fmt.Errorf("decompress %s: %w", f.sanitizedName, err)
	}

	name := strings.TrimSuffix(f.sanitizedName, ".gz")
	if name == "" {
		name = f.sanitizedName
	}
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(out.Name()); err == nil {
		contentType = mt.String()
	}

	nf := &File{
		tempPath:      out.Name(),
		tempDir:       f.tempDir,
		originalName:  f.originalName,
		sanitizedName: name,
		contentType:   contentType,
		size:          n,
		limit:         limit,
	}
	f.Remove()
	return nf, nil
}

// isGzip reports whether the declared content type or the filename suffix
// marks the file as gzip.
func (f *File) isGzip() bool {
	return gzipContentTypes[f.contentType] || strings.HasSuffix(f.sanitizedName, ".gz")
}

// Remove deletes the backing temp file if the value still owns one.
func (f *File) Remove() {
	if f.tempPath != "" {
		os.Remove(f.tempPath)
		f.tempPath = ""
	}
}

// copyFile copies src to dst and syncs it, removing the partial
// destination on failure. The source is left untouched.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// FilePair is one (field name, file) entry of a file collection.
type FilePair struct {
	Name string
	File *File
}

// FileParts is an ordered multimap of field name to collected file,
// preserving the arrival order of parts.
type FileParts struct {
	pairs []FilePair
}

func (t *FileParts) append(name string, f *File) {
	t.pairs = append(t.pairs, FilePair{Name: name, File: f})
}

// Len returns the number of collected files.
func (t *FileParts) Len() int { return len(t.pairs) }

// Pairs returns every (name, file) pair in arrival order. The returned
// slice is shared; callers must not mutate it.
func (t *FileParts) Pairs() []FilePair { return t.pairs }

// Get returns all files for name in arrival order without transferring
// ownership.
func (t *FileParts) Get(name string) []*File {
	var out []*File
	for _, p := range t.pairs {
		if p.Name == name {
			out = append(out, p.File)
		}
	}
	return out
}

// First returns the first file for name, or nil.
func (t *FileParts) First(name string) *File {
	for _, p := range t.pairs {
		if p.Name == name {
			return p.File
		}
	}
	return nil
}

// Take removes and returns all files for name; ownership of the backing
// temp files transfers to the caller. Taking an absent name returns an
// empty result.
func (t *FileParts) Take(name string) []*File {
	var taken []*File
	kept := t.pairs[:0]
	for _, p := range t.pairs {
		if p.Name == name {
			taken = append(taken, p.File)
		} else {
			kept = append(kept, p)
		}
	}
	t.pairs = kept
	return taken
}

// removeAll deletes the backing temp files of all files still in the
// collection and empties it.
func (t *FileParts) removeAll() {
	for _, p := range t.pairs {
		p.File.Remove()
	}
	t.pairs = nil
}
