// Package storage abstracts the object store uploaded files land in. The
// real store (S3/MinIO) lives behind another service; this contract is the
// only part the pipeline needs.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound means no object exists under the given key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore downloads uploaded documents by storage key.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}
