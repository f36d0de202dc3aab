// Package storage holds image binaries addressed by relative path such as
// "IMG/img_1700000000_ab12.png". Backends: local filesystem and S3.
package storage

import (
	"context"
	"errors"
)

var (
	ErrExists      = errors.New("blob already exists")
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidPath = errors.New("invalid blob path")
)

type Blobs interface {
	// Put stores data under path. It fails with ErrExists if path is taken.
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete removes path; a missing blob is not an error.
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	Move(ctx context.Context, from, to string) error
	// List returns the paths under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
