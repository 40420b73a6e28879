// Package model defines shared types for the upload gateway.
package model

// StoredFile describes one uploaded file after it has been persisted to
// the storage directory.
type StoredFile struct {
	Field       string `json:"field"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
}

// UploadResult is the outcome of one fully processed multipart request.
type UploadResult struct {
	Fields map[string][]string `json:"fields"`
	Query  string              `json:"query"`
	Files  []StoredFile        `json:"files"`
}
