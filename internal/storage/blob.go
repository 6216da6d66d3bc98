// Package storage holds the blob stores debate pictures are written to.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Download when no object exists at the path.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the narrow contract the picture flow depends on.
type BlobStore interface {
	// Upload stores content at path and returns the public URL.
	Upload(ctx context.Context, content []byte, path, contentType string) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
	// Delete reports whether an object was removed.
	Delete(ctx context.Context, path string) (bool, error)
	// PathFromURL maps a URL produced by Upload back to its object path.
	PathFromURL(url string) (string, bool)
}

func cleanPath(path string) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", errors.New("blob path is required")
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return "", errors.New("blob path must not traverse upwards")
		}
	}
	return path, nil
}
