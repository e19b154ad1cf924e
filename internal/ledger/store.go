package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

const defaultLockTimeout = 5 * time.Second

// Batch is the unit of durable commit: the versions of one operation and the
// audit entries describing them.
type Batch struct {
	Versions []models.RecordVersion
	Audit    []models.AuditEntry
}

// Empty reports whether the batch carries nothing to persist.
func (b Batch) Empty() bool {
	return len(b.Versions) == 0 && len(b.Audit) == 0
}

// Persistence is the durable side of the store. Append must make both tables
// of a batch visible together or not at all.
type Persistence interface {
	Load(ctx context.Context) (Batch, error)
	Append(ctx context.Context, batch Batch) error
	Purge(ctx context.Context, seed models.AuditEntry) error
	Close() error
}

// Observer receives store timings.
type Observer interface {
	ObserveLockWait(d time.Duration)
	ObserveCommit(d time.Duration)
	SetCurrentPersons(n int)
}

// CommitHook runs after every successful commit, purge or rebuild. It must
// not block.
type CommitHook func(revision uint64)

// ArchiveFunc receives the full ledger before a purge destroys it.
type ArchiveFunc func(ctx context.Context, snapshot Batch) error

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a writer waits for the write section.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithCommitHook registers a hook called after each commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// Store owns the append-only ledger, its materialized projection and the
// id sequences. Writers are serialized through a weighted semaphore; readers
// share an RWMutex and always receive copies.
type Store struct {
	persist     Persistence
	sem         *semaphore.Weighted
	lockTimeout time.Duration
	logger      *zap.Logger
	clock       func() time.Time
	observer    Observer
	hooks       []CommitHook

	mu         sync.RWMutex
	versions   []models.RecordVersion
	audit      []models.AuditEntry
	projection *Projection
	records    Sequence
	logs       Sequence
	revision   uint64
}

// Open loads the ledger through persist and builds the projection.
func Open(ctx context.Context, persist Persistence, opts ...Option) (*Store, error) {
	s := &Store{
		persist:     persist,
		sem:         semaphore.NewWeighted(1),
		lockTimeout: defaultLockTimeout,
		logger:      zap.NewNop(),
		clock:       time.Now,
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}

	batch, err := persist.Load(ctx)
	if err != nil {
		return nil, storageError(err, "failed to load ledger")
	}
	s.install(batch)
	s.logger.Info("ledger loaded",
		zap.Int("versions", len(s.versions)),
		zap.Int("audit_entries", len(s.audit)),
		zap.Int("persons", s.projection.Len()),
		zap.String("next_record_id", s.records.Peek()),
	)
	return s, nil
}

// Close releases the persistence handle.
func (s *Store) Close() error {
	return s.persist.Close()
}

// install replaces the in-memory state. Callers hold the write section or
// own the store exclusively.
func (s *Store) install(batch Batch) {
	records := NewSequence(RecordPrefix)
	for _, v := range batch.Versions {
		records.Observe(v.RecordID)
	}
	logs := NewSequence(LogPrefix)
	for _, a := range batch.Audit {
		logs.Observe(a.LogID)
	}
	projection := ProjectCurrent(batch.Versions)

	s.mu.Lock()
	s.versions = batch.Versions
	s.audit = batch.Audit
	s.projection = projection
	s.records = records
	s.logs = logs
	s.revision++
	s.mu.Unlock()

	s.observer.SetCurrentPersons(projection.Len())
}

// Update runs fn inside the write section. Everything fn stages on the
// transaction is committed as one batch when fn returns nil; nothing is
// written when it returns an error.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx := s.begin()
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("ledger write section busy", zap.Duration("timeout", s.lockTimeout))
		return nil, appErrors.Clonef(appErrors.ErrConcurrency, "ledger is busy, no write slot within %s", s.lockTimeout)
	}
	s.observer.ObserveLockWait(time.Since(start))
	return func() { s.sem.Release(1) }, nil
}

func (s *Store) begin() *Tx {
	return &Tx{
		base:    s.projection,
		basePos: len(s.versions),
		now:     s.clock(),
		records: s.records,
		logs:    s.logs,
		staged:  make(map[string]struct{}),
	}
}

func (s *Store) commit(ctx context.Context, tx *Tx) error {
	if tx.batch.Empty() {
		return nil
	}

	start := time.Now()
	if err := s.persist.Append(ctx, tx.batch); err != nil {
		s.logger.Error("ledger commit failed",
			zap.Int("versions", len(tx.batch.Versions)),
			zap.Int("audit_entries", len(tx.batch.Audit)),
			zap.Error(err),
		)
		return storageError(err, "failed to persist ledger batch")
	}
	s.observer.ObserveCommit(time.Since(start))

	s.mu.Lock()
	pos := len(s.versions)
	s.versions = append(s.versions, tx.batch.Versions...)
	s.audit = append(s.audit, tx.batch.Audit...)
	for i, v := range tx.batch.Versions {
		s.projection.Apply(v, pos+i)
	}
	s.records = tx.records
	s.logs = tx.logs
	s.revision++
	revision := s.revision
	persons := s.projection.Len()
	s.mu.Unlock()

	s.observer.SetCurrentPersons(persons)
	s.notify(revision)
	return nil
}

func (s *Store) notify(revision uint64) {
	for _, hook := range s.hooks {
		hook(revision)
	}
}

// RebuildReport summarises a Rebuild.
type RebuildReport struct {
	Versions     int  `json:"versions"`
	AuditEntries int  `json:"audit_entries"`
	Persons      int  `json:"persons"`
	Drift        bool `json:"drift"`
}

// Rebuild reloads the ledger from persistence and recomputes the projection,
// indexes and sequences. Drift reports whether the previous in-memory
// projection disagreed with the reloaded one.
func (s *Store) Rebuild(ctx context.Context) (RebuildReport, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return RebuildReport{}, err
	}
	defer release()

	batch, err := s.persist.Load(ctx)
	if err != nil {
		return RebuildReport{}, storageError(err, "failed to reload ledger")
	}

	s.mu.RLock()
	previous := s.projection
	s.mu.RUnlock()

	s.install(batch)

	s.mu.RLock()
	report := RebuildReport{
		Versions:     len(s.versions),
		AuditEntries: len(s.audit),
		Persons:      s.projection.Len(),
		Drift:        !previous.Equal(s.projection),
	}
	revision := s.revision
	s.mu.RUnlock()

	if report.Drift {
		s.logger.Warn("ledger projection drift repaired", zap.Int("persons", report.Persons))
	}
	s.notify(revision)
	return report, nil
}

// Verify recomputes the projection from the in-memory log and compares it
// with the materialized one.
func (s *Store) Verify() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ProjectCurrent(s.versions).Equal(s.projection)
}

// PurgeReport describes a completed purge.
type PurgeReport struct {
	RemovedVersions     int               `json:"removed_versions"`
	RemovedAuditEntries int               `json:"removed_audit_entries"`
	Entry               models.AuditEntry `json:"entry"`
}

// Purge destroys both tables. The request is logged and archive, when set,
// receives the full ledger before anything is removed; an archive failure
// aborts the purge. The fresh audit table starts with a purge entry naming
// who wiped the ledger.
func (s *Store) Purge(ctx context.Context, byUser, notes string, archive ArchiveFunc) (PurgeReport, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return PurgeReport{}, err
	}
	defer release()

	snapshot, _ := s.Snapshot()
	s.logger.Warn("ledger purge requested",
		zap.String("by_user", byUser),
		zap.Int("versions", len(snapshot.Versions)),
		zap.Int("audit_entries", len(snapshot.Audit)),
	)

	if archive != nil {
		if err := archive(ctx, snapshot); err != nil {
			return PurgeReport{}, appErrors.WrapAs(appErrors.ErrStorage, err, "failed to archive ledger before purge")
		}
	}

	logs := s.logs
	seed := models.AuditEntry{
		LogID:     logs.Next(),
		Action:    models.AuditActionPurge,
		Field:     "ledger",
		OldValue:  fmt.Sprintf("%d versions, %d audit entries", len(snapshot.Versions), len(snapshot.Audit)),
		NewValue:  "0 versions",
		ByUser:    byUser,
		Timestamp: s.clock().UTC().Format(models.AuditTimeLayout),
		Notes:     notes,
	}
	if err := s.persist.Purge(ctx, seed); err != nil {
		s.logger.Error("ledger purge failed", zap.String("by_user", byUser), zap.Error(err))
		return PurgeReport{}, storageError(err, "failed to purge ledger")
	}

	s.install(Batch{Audit: []models.AuditEntry{seed}})
	s.logger.Warn("ledger purged", zap.String("by_user", byUser), zap.String("log_id", seed.LogID))
	s.notify(s.Revision())

	return PurgeReport{
		RemovedVersions:     len(snapshot.Versions),
		RemovedAuditEntries: len(snapshot.Audit),
		Entry:               seed,
	}, nil
}

type nopObserver struct{}

func (nopObserver) ObserveLockWait(time.Duration) {}
func (nopObserver) ObserveCommit(time.Duration)   {}
func (nopObserver) SetCurrentPersons(int)         {}

// storageError keeps typed persistence errors such as a lock or conflict and
// wraps everything else as a storage failure.
func storageError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.WrapAs(appErrors.ErrStorage, err, message)
}
