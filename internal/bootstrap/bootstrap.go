// Package bootstrap opens the ledger backends and replicas named by config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/repository"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	"github.com/noah-isme/roster-ledger-api/pkg/config"
	"github.com/noah-isme/roster-ledger-api/pkg/database"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/replica"
	"github.com/noah-isme/roster-ledger-api/pkg/storage"
)

// OpenPersistence returns the durable backend selected by LEDGER_BACKEND.
// SQL backends are migrated before they are returned.
func OpenPersistence(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ledger.Persistence, error) {
	switch cfg.Ledger.Backend {
	case config.BackendCSV:
		return repository.NewCSVLedger(cfg.Ledger.DataDir, logger)
	case config.BackendSQLite:
		lock, err := lockDir(filepath.Dir(cfg.Ledger.SQLitePath))
		if err != nil {
			return nil, err
		}
		db, err := database.NewSQLite(cfg.Ledger.SQLitePath)
		if err != nil {
			_ = lock.Unlock()
			return nil, err
		}
		persist, err := migrated(ctx, repository.NewSQLLedger(db))
		if err != nil {
			_ = lock.Unlock()
			return nil, err
		}
		return lockedPersistence{Persistence: persist, lock: lock}, nil
	case config.BackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return migrated(ctx, repository.NewSQLLedger(db))
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func migrated(ctx context.Context, l *repository.SQLLedger) (ledger.Persistence, error) {
	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// lockedPersistence holds a directory lock until Close.
type lockedPersistence struct {
	ledger.Persistence
	lock *storage.DirLock
}

func (p lockedPersistence) Close() error {
	err := p.Persistence.Close()
	if uerr := p.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func lockDir(dir string) (*storage.DirLock, error) {
	fs, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	lock, err := fs.LockDir()
	if errors.Is(err, storage.ErrLocked) {
		return nil, appErrors.WrapAs(appErrors.ErrConcurrency, err, "ledger database is in use by another process")
	}
	return lock, err
}

// OpenStore opens the persistence and loads the ledger into a Store.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...ledger.Option) (*ledger.Store, error) {
	persist, err := OpenPersistence(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	base := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithLockTimeout(cfg.Ledger.LockTimeout),
	}
	store, err := ledger.Open(ctx, persist, append(base, opts...)...)
	if err != nil {
		_ = persist.Close()
		return nil, err
	}
	return store, nil
}

// SyncReplica returns the replication target, or nil when sync is disabled.
func SyncReplica(ctx context.Context, cfg config.SyncConfig) (replica.Replica, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Driver {
	case config.SyncDriverS3:
		return replica.NewS3(ctx, replica.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return replica.NewDirectory(cfg.Dir)
	}
}

// Archiver keeps purge archives under the data directory and, when sync is
// on, copies them to the replica as well.
func Archiver(cfg *config.Config, remote replica.Replica, logger *zap.Logger) (*service.LedgerArchiver, error) {
	local, err := replica.NewDirectory(cfg.Ledger.DataDir)
	if err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	return service.NewLedgerArchiver(local, remote, logger), nil
}
