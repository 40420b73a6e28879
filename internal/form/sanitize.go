package form

import (
	"strings"

	"github.com/google/uuid"
)

// sanitizeFileName rewrites a client-supplied filename into a safe flat
// name usable as a destination filename. Path components are stripped for
// both separator styles, control characters are dropped, and leading or
// trailing dots and spaces are trimmed so the result can never traverse out
// of its destination directory. An empty result is replaced with a
// generated name.
func sanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "upload-" + uuid.NewString()
	}
	return name
}
