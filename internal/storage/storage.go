// Package storage defines where catalog images live.
// Swap implementations by changing the concrete type injected at startup:
// DiskStorage keeps files in a local directory, MinioStorage talks to any
// S3-compatible provider (MinIO, AWS S3, Supabase storage S3 endpoint).
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrInvalidKey is returned for keys that are empty or escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored image.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage is the interface for persisting catalog images.
type Storage interface {
	// Upload streams data to the store under the given key, replacing any existing object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Reference is the value recorded on the catalog row for key.
	Reference(key string) string
	// KeyOf maps a recorded reference back to its key. ok is false for
	// references this store did not produce.
	KeyOf(ref string) (key string, ok bool)
}
