package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores public assets, currently team logos. Keys are
// caller-chosen and stable, so re-uploading a team's logo overwrites the
// previous one.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL maps a stored key onto its public serving URL.
	GetPublicURL(key string) string
}
