package staging

import (
	"context"
	"io"
)

// ObjectStorage is the object-store boundary used for staged datasets.
type ObjectStorage interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// URL returns the durable location identifier for a key.
	URL(key string) string
}
