package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStorage stores each key in its own file under a directory.
type FileStorage struct {
	fs  afero.Fs
	dir string
}

// NewFileStorage creates a FileStorage rooted at dir on the OS filesystem.
func NewFileStorage(dir string) *FileStorage {
	return NewFileStorageFs(afero.NewOsFs(), dir)
}

// NewFileStorageFs creates a FileStorage on the given filesystem.
func NewFileStorageFs(fs afero.Fs, dir string) *FileStorage {
	return &FileStorage{fs: fs, dir: dir}
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Get implements Storage. A missing file is reported as absent.
func (s *FileStorage) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", s.path(key), err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

// Set implements Storage.
func (s *FileStorage) Set(ctx context.Context, key, value string) error {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	if err := afero.WriteFile(s.fs, s.path(key), []byte(value), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path(key), err)
	}
	return nil
}

// Close implements Storage.
func (s *FileStorage) Close() error {
	return nil
}

var _ Storage = (*FileStorage)(nil)
