// Package replica copies exported ledger tables to a secondary location.
package replica

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noah-isme/roster-ledger-api/pkg/storage"
)

// Object is one file pushed to a replica.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Replica receives committed ledger files.
type Replica interface {
	Put(ctx context.Context, objects ...Object) error
	Target() string
}

// Directory mirrors objects into a local directory, typically a mounted
// network share or a checked out repository.
type Directory struct {
	store *storage.LocalStorage
	dir   string
}

// NewDirectory creates the mirror directory if needed.
func NewDirectory(dir string) (*Directory, error) {
	if dir == "" {
		return nil, fmt.Errorf("replica directory required")
	}
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return &Directory{store: store, dir: dir}, nil
}

// Put writes every object atomically.
func (d *Directory) Put(ctx context.Context, objects ...Object) error {
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.store.Save(obj.Name, obj.Data); err != nil {
			return fmt.Errorf("mirror %s: %w", obj.Name, err)
		}
	}
	return nil
}

// Target describes the replica for logs.
func (d *Directory) Target() string {
	abs, err := filepath.Abs(d.dir)
	if err != nil {
		return d.dir
	}
	return "dir://" + abs
}

// Read returns a mirrored object, mainly for tests and restores.
func (d *Directory) Read(name string) ([]byte, error) {
	return os.ReadFile(d.store.Path(name))
}
