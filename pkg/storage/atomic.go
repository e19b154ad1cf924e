package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriter writes into a temporary file next to the target and renames
// it into place on Commit. The temp file is fsynced before the rename and the
// parent directory after it, so a crash leaves either the old or the new file.
type AtomicWriter struct {
	path string
	perm os.FileMode
	tmp  *os.File
	done bool
}

// NewAtomicWriter opens a temporary file for path.
func NewAtomicWriter(path string, perm os.FileMode) (*AtomicWriter, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &AtomicWriter{path: path, perm: perm, tmp: tmp}, nil
}

// Write implements io.Writer.
func (w *AtomicWriter) Write(p []byte) (int, error) {
	return w.tmp.Write(p)
}

// Commit flushes the temp file and renames it over the target.
func (w *AtomicWriter) Commit() error {
	if w.done {
		return fmt.Errorf("atomic writer for %s already finished", w.path)
	}
	w.done = true
	name := w.tmp.Name()
	if err := w.tmp.Chmod(w.perm); err != nil {
		_ = w.tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		_ = w.tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(name, w.path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename %s: %w", filepath.Base(w.path), err)
	}
	return SyncDir(filepath.Dir(w.path))
}

// Abort discards the temp file. It is a no-op after Commit.
func (w *AtomicWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.tmp.Close()
	return os.Remove(w.tmp.Name())
}

// WriteFileAtomic is os.WriteFile with AtomicWriter semantics.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	w, err := NewAtomicWriter(path, perm)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return fmt.Errorf("write temp file: %w", err)
	}
	return w.Commit()
}

// SyncDir fsyncs a directory so renames inside it are durable.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer d.Close() //nolint:errcheck
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
