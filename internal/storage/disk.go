package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes photos under <dir>/<bucket>, served by the HTTP app at
// /uploads. Used when no object storage endpoint is configured.
type DiskStore struct {
	root    string
	prefix  string
	baseURL string
}

func NewDiskStore(dir, bucket, baseURL string) (*DiskStore, error) {
	root := filepath.Join(dir, bucket)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{
		root:    root,
		prefix:  "/uploads/" + bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if key != filepath.Base(key) {
		return fmt.Errorf("invalid object key %q", key)
	}
	destPath := filepath.Join(s.root, key)

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrObjectExists, key)
	}
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, r); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *DiskStore) PublicURL(key string) string {
	if s.baseURL == "" {
		return s.prefix + "/" + key
	}
	return fmt.Sprintf("%s%s/%s", s.baseURL, s.prefix, key)
}

func (s *DiskStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
