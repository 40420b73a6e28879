package form

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// TextValue is one text field value. Small values are held inline; values
// that crossed the text limit live in a temp file and are read back on
// demand.
type TextValue struct {
	inline string
	path   string // non-empty when spilled
}

// Spilled reports whether the value is backed by a temp file.
func (v TextValue) Spilled() bool { return v.path != "" }

// Text returns the value as a string, reading it back from disk when
// spilled.
func (v TextValue) Text() (string, error) {
	if v.path == "" {
		return v.inline, nil
	}
	b, err := os.ReadFile(v.path)
	if err != nil {
		return "", fmt.Errorf("read spilled text: %w", err)
	}
	return string(b), nil
}

// remove deletes the backing temp file, if any.
func (v *TextValue) remove() {
	if v.path != "" {
		os.Remove(v.path)
		v.path = ""
	}
}

// TextPair is one (field name, value) entry of a text collection.
type TextPair struct {
	Name  string
	Value TextValue
}

// TextParts is an ordered multimap of field name to text value. Values for
// the same name, and pairs across names, keep the order in which their
// parts arrived in the body.
type TextParts struct {
	pairs []TextPair
}

func (t *TextParts) append(name string, v TextValue) {
	t.pairs = append(t.pairs, TextPair{Name: name, Value: v})
}

// Len returns the number of collected text values.
func (t *TextParts) Len() int { return len(t.pairs) }

// Pairs returns every (name, value) pair in arrival order. The returned
// slice is shared; callers must not mutate it.
func (t *TextParts) Pairs() []TextPair { return t.pairs }

// Get returns all values for name in arrival order. Spilled values are
// read back from disk; an absent name yields an empty result and no error.
func (t *TextParts) Get(name string) ([]string, error) {
	var out []string
	for _, p := range t.pairs {
		if p.Name != name {
			continue
		}
		s, err := p.Value.Text()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Take returns all values for name and removes them from the collection;
// a subsequent Get for the same name yields an empty result. Temp files of
// spilled values are deleted once their content has been read. On a read
// error the collection is left unchanged and no temp file is removed.
func (t *TextParts) Take(name string) ([]string, error) {
	var taken []string
	for _, p := range t.pairs {
		if p.Name != name {
			continue
		}
		s, err := p.Value.Text()
		if err != nil {
			return nil, err
		}
		taken = append(taken, s)
	}
	if taken == nil {
		return nil, nil
	}

	kept := t.pairs[:0]
	for i := range t.pairs {
		if t.pairs[i].Name == name {
			t.pairs[i].Value.remove()
			continue
		}
		kept = append(kept, t.pairs[i])
	}
	t.pairs = kept
	return taken, nil
}

// ToQueryString re-encodes the collection as an application/x-www-form-
// urlencoded query string in arrival order, one key=value pair per value.
// The encoding is assembled by hand because url.Values.Encode sorts keys,
// which would break the ordering guarantee.
func (t *TextParts) ToQueryString() (string, error) {
	var b strings.Builder
	for i, p := range t.pairs {
		s, err := p.Value.Text()
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return b.String(), nil
}

// removeAll deletes the temp files of all remaining spilled values and
// empties the collection.
func (t *TextParts) removeAll() {
	for i := range t.pairs {
		t.pairs[i].Value.remove()
	}
	t.pairs = nil
}
