// Package blob stores uploaded file contents in an object store.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("blob: object not found")

// Object describes content about to be stored.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Descriptor locates a stored object.
type Descriptor struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

type Storage interface {
	Upload(ctx context.Context, obj Object, r io.Reader) (Descriptor, error)
	SignedURL(ctx context.Context, d Descriptor, ttl time.Duration) (string, error)
	Delete(ctx context.Context, d Descriptor) error
}
