package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskURLPrefix is the route the server mounts DiskStore contents under.
const DiskURLPrefix = "/blobs/"

// DiskStore keeps blobs under a local directory. Used in development when no
// S3 endpoint is configured.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

// Root is the directory blobs are written under.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Upload(_ context.Context, content []byte, path, _ string) (string, error) {
	path, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, content, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return DiskURLPrefix + path, nil
}

func (s *DiskStore) Download(_ context.Context, path string) ([]byte, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

func (s *DiskStore) Delete(_ context.Context, path string) (bool, error) {
	path, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DiskStore) PathFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, DiskURLPrefix) || len(url) == len(DiskURLPrefix) {
		return "", false
	}
	return strings.TrimPrefix(url, DiskURLPrefix), true
}
