package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by Put when key is already taken
var ErrObjectExists = errors.New("object already exists")

// ObjectStore holds uploaded check-in photos and hands out public URLs
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}
