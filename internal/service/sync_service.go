package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/pkg/export"
	"github.com/noah-isme/roster-ledger-api/pkg/jobs"
	"github.com/noah-isme/roster-ledger-api/pkg/replica"
)

const replicateJob = "replicate"

type syncRecorder interface {
	RecordSync(outcome string)
}

// SyncConfig tunes the replication queue.
type SyncConfig struct {
	Workers    int
	BufferSize int
	Retries    int
	RetryDelay time.Duration
}

// SyncService pushes both ledger tables to a replica after commits. It runs
// off the commit path: the hook only enqueues, and a full queue drops the
// job because a later commit pushes a newer snapshot anyway.
type SyncService struct {
	store   snapshotReader
	target  replica.Replica
	queue   *jobs.Queue
	csv     *export.CSVExporter
	metrics syncRecorder
	logger  *zap.Logger

	mu     sync.Mutex
	pushed uint64
}

// NewSyncService constructs the service. metrics may be nil.
func NewSyncService(store snapshotReader, target replica.Replica, cfg SyncConfig, metrics syncRecorder, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncService{store: store, target: target, csv: export.NewCSVExporter(), metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("ledger-sync", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnGiveUp: func(job jobs.Job, err error) {
			s.record("gave_up")
		},
	})
	return s
}

// Start runs the workers until ctx ends or Stop is called.
func (s *SyncService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the workers.
func (s *SyncService) Stop() {
	s.queue.Stop()
}

// Hook is a ledger.CommitHook.
func (s *SyncService) Hook(revision uint64) {
	err := s.queue.TryEnqueue(jobs.Job{ID: strconv.FormatUint(revision, 10), Type: replicateJob, Payload: revision})
	if err == nil {
		return
	}
	s.record("dropped")
	if errors.Is(err, jobs.ErrQueueFull) {
		s.logger.Warn("sync queue full, replication deferred to a later commit", zap.Uint64("revision", revision))
		return
	}
	s.logger.Warn("sync job not queued", zap.Uint64("revision", revision), zap.Error(err))
}

// Pushed returns the last revision written to the replica.
func (s *SyncService) Pushed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed
}

// Push writes the current snapshot unless a newer one is already there.
func (s *SyncService) Push(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, revision := s.store.Snapshot()
	if revision <= s.pushed {
		s.record("superseded")
		return nil
	}
	objects, err := tableObjects(s.csv, snapshot, "")
	if err != nil {
		return err
	}
	start := time.Now()
	if err := s.target.Put(ctx, objects...); err != nil {
		s.record("error")
		return err
	}
	s.pushed = revision
	s.record("ok")
	s.logger.Info("ledger replicated",
		zap.String("target", s.target.Target()),
		zap.Uint64("revision", revision),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *SyncService) handle(ctx context.Context, job jobs.Job) error {
	return s.Push(ctx)
}

func (s *SyncService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSync(outcome)
	}
}
