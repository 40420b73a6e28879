package form

// Kind is the routing decision for a single part.
type Kind int

// Part kinds.
const (
	KindText Kind = iota
	KindFile
)

// String returns the kind as a metrics-friendly label.
func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "text"
}

// classify routes a part by field name and declared filename. The
// precedence is fixed: explicit file_fields membership, then explicit
// text_fields membership, then the filename heuristic.
func (c *Config) classify(name, fileName string) Kind {
	switch {
	case c.fileFields[name]:
		return KindFile
	case c.textFields[name]:
		return KindText
	case fileName != "":
		return KindFile
	default:
		return KindText
	}
}
