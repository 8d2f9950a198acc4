package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps images in a directory on disk
type LocalStore struct {
	dir    string
	prefix string
}

// NewLocalStore creates the upload directory if needed. URLs are publicPrefix + file name.
func NewLocalStore(dir, publicPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if !strings.HasSuffix(publicPrefix, "/") {
		publicPrefix += "/"
	}
	return &LocalStore{dir: dir, prefix: publicPrefix}, nil
}

// Dir returns the directory files are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Prefix returns the URL path files are served under
func (s *LocalStore) Prefix() string {
	return s.prefix
}

// Save implements ImageStore
func (s *LocalStore) Save(_ context.Context, name string, body io.Reader, _ int64, _ string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return s.prefix + name, nil
}

// Delete implements ImageStore
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.prefix)
	if !ok || name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%q: %w", url, ErrForeignURL)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
