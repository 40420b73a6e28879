// Package form collects a streamed multipart/form-data body into two
// queryable collections: text fields and file fields. Text values stay in
// memory until they cross a spill threshold; file values are written to temp
// files from the first byte and truncated at a hard cap. The multipart
// boundary decoding itself is delegated to mime/multipart.
package form

// Default limits applied when a Config option is left unset.
const (
	// DefaultTextLimit is the in-memory threshold for text parts; larger
	// values are spilled to a temp file. Sized so typical form fields
	// never touch disk.
	DefaultTextLimit int64 = 32 << 10 // 32 KiB

	// DefaultFileLimit is the hard cap on bytes written per file part.
	// Content beyond the cap is drained and discarded.
	DefaultFileLimit int64 = 256 << 20 // 256 MiB
)

// Config holds the routing and limit rules consulted for every part.
// Build it once with NewConfig and the With* setters, then share it
// read-only across concurrent requests; it must not be mutated after
// construction.
type Config struct {
	textLimit  int64
	fileLimit  int64
	fileFields map[string]bool
	textFields map[string]bool
	tempDir    string // empty means the system temp directory
}

// NewConfig returns a Config with default limits, empty field sets and the
// system temp directory.
func NewConfig() *Config {
	return &Config{
		textLimit:  DefaultTextLimit,
		fileLimit:  DefaultFileLimit,
		fileFields: map[string]bool{},
		textFields: map[string]bool{},
	}
}

// WithTextLimit sets the in-memory threshold for text parts in bytes.
// Non-positive values restore the default.
func (c *Config) WithTextLimit(n int64) *Config {
	if n <= 0 {
		n = DefaultTextLimit
	}
	c.textLimit = n
	return c
}

// WithFileLimit sets the hard cap for file parts in bytes. Non-positive
// values restore the default.
func (c *Config) WithFileLimit(n int64) *Config {
	if n <= 0 {
		n = DefaultFileLimit
	}
	c.fileLimit = n
	return c
}

// WithFileFields marks field names that are always routed as files,
// regardless of whether the part declares a filename.
func (c *Config) WithFileFields(names ...string) *Config {
	for _, n := range names {
		c.fileFields[n] = true
	}
	return c
}

// WithTextFields marks field names that are always routed as text, even
// when the part declares a filename.
func (c *Config) WithTextFields(names ...string) *Config {
	for _, n := range names {
		c.textFields[n] = true
	}
	return c
}

// WithTempDir sets the directory used for spilled content and file parts.
// An empty path means the system temp directory.
func (c *Config) WithTempDir(dir string) *Config {
	c.tempDir = dir
	return c
}

// TextLimit returns the in-memory threshold for text parts in bytes.
func (c *Config) TextLimit() int64 { return c.textLimit }

// FileLimit returns the hard cap for file parts in bytes.
func (c *Config) FileLimit() int64 { return c.fileLimit }

// TempDir returns the configured temp directory; empty means the system
// default.
func (c *Config) TempDir() string { return c.tempDir }
