package domain

import (
	"context"
	"io"
)

// ObjectStorage is a single public bucket.
type ObjectStorage interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) error
	// Remove deletes the given objects; missing objects are not an error.
	Remove(ctx context.Context, paths ...string) error
	PublicURL(path string) string
}
