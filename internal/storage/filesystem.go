// Package storage holds generated preview images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"promptvault/internal/domain"
)

// BlobStore uploads binary objects and returns a public reference to them.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

// FileStore persists blobs onto the local filesystem and serves them from
// baseURL. It is intended for development and single-node deployments.
type FileStore struct {
	basePath string
	baseURL  string
	prefix   string
}

// NewFileStore initializes a FileStore rooted at basePath. Objects live under
// prefix inside the root and resolve to baseURL/prefix/name.
func NewFileStore(basePath, baseURL, prefix string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		prefix:   strings.Trim(strings.TrimSpace(prefix), "/"),
	}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Upload writes data under name and returns its public URL. Errors wrap
// domain.ErrUpload.
func (s *FileStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%w: no store configured", domain.ErrUpload)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := s.key(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: ensure directory: %v", domain.ErrUpload, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write file: %v", domain.ErrUpload, err)
	}
	return s.PublicURL(key), nil
}

// Delete removes the object stored under name. Missing objects are not an
// error.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.key(name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// PublicURL resolves a storage key to the URL it is served from.
func (s *FileStore) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")
	if s.baseURL == "" {
		return "/" + escaped
	}
	return s.baseURL + "/" + escaped
}

func (s *FileStore) key(name string) (string, error) {
	clean, err := sanitizeKey(name)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return clean, nil
	}
	return path.Join(s.prefix, clean), nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ BlobStore = (*FileStore)(nil)
