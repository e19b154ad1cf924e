package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// LocalStorage persists files on disk under a base directory. Every write
// goes through an AtomicWriter so readers never observe a partial file.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save atomically writes data to the relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

// SaveStream atomically copies r into the target file path.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (string, error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	w, err := NewAtomicWriter(path, 0o644)
	if err != nil {
		return "", err
	}
	defer w.Abort() //nolint:errcheck
	if _, err := io.Copy(w, r); err != nil {
		return "", fmt.Errorf("write stream: %w", err)
	}
	if err := w.Commit(); err != nil {
		return "", err
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return file, nil
}

// Exists reports whether the stored file is present.
func (s *LocalStorage) Exists(filename string) bool {
	_, err := os.Stat(s.resolve(filename))
	return err == nil
}

// Delete removes a stored file or directory tree if present.
func (s *LocalStorage) Delete(filename string) error {
	if err := os.RemoveAll(s.resolve(filename)); err != nil {
		return fmt.Errorf("delete stored file: %w", err)
	}
	return nil
}

// List returns the relative names of regular files below dir, sorted.
func (s *LocalStorage) List(dir string) ([]string, error) {
	root := s.resolve(dir)
	var names []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list stored files: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Path exposes the underlying path.
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(filename))
}
