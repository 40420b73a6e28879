package form

import "errors"

// ErrMalformedForm wraps multipart framing and decode failures from the
// upstream part stream. Collection aborts and no partial aggregate is
// returned.
var ErrMalformedForm = errors.New("malformed multipart form")

// ErrBadEncoding is returned by File.Decompress when the declared encoding
// does not match the actual file content. It is scoped to the single
// Decompress call.
var ErrBadEncoding = errors.New("content does not match declared encoding")

// ErrContentTooLarge is returned by File.Decompress when the decompressed
// output would exceed the file limit the part was collected under. It is
// scoped to the single Decompress call.
var ErrContentTooLarge = errors.New("decompressed content exceeds file limit")
