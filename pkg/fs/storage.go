package fs

import (
	"context"
	"io"
)

// Storage is the destination for archived media files.
type Storage interface {
	// Create streams reader contents into a new object and returns its
	// publicly resolvable location along with the number of bytes written.
	Create(ctx context.Context, name string, contentType string, reader io.Reader) (string, int64, error)

	// Delete removes the object.
	Delete(ctx context.Context, name string) error
}
