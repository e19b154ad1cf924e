package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/pkg/replica"
)

type recordingReplica struct {
	mu    sync.Mutex
	puts  [][]replica.Object
	fails int
}

func (r *recordingReplica) Put(_ context.Context, objects ...replica.Object) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("replica unavailable")
	}
	r.puts = append(r.puts, objects)
	return nil
}

func (r *recordingReplica) Target() string { return "memory://" }

func (r *recordingReplica) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.puts)
}

type syncLog struct {
	mu       sync.Mutex
	outcomes []string
}

func (s *syncLog) RecordSync(outcome string) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcome)
	s.mu.Unlock()
}

func (s *syncLog) has(outcome string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.outcomes {
		if o == outcome {
			return true
		}
	}
	return false
}

func TestPushWritesBothTablesOncePerRevision(t *testing.T) {
	store, _ := openTestLedger(t, seededLedger())
	target := &recordingReplica{}
	log := &syncLog{}
	svc := NewSyncService(store, target, SyncConfig{}, log, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Push(ctx))
	require.Equal(t, 1, target.count())
	objects := target.puts[0]
	require.Len(t, objects, 2)
	assert.Equal(t, "master.csv", objects[0].Name)
	assert.Equal(t, "history.csv", objects[1].Name)
	assert.Contains(t, string(objects[0].Data), supervisorRecord)
	assert.Equal(t, store.Revision(), svc.Pushed())

	require.NoError(t, svc.Push(ctx))
	assert.Equal(t, 1, target.count())
	assert.True(t, log.has("superseded"))
}

func TestPushFailureKeepsRevisionPending(t *testing.T) {
	store, _ := openTestLedger(t, seededLedger())
	target := &recordingReplica{fails: 1}
	log := &syncLog{}
	svc := NewSyncService(store, target, SyncConfig{}, log, zap.NewNop())

	require.Error(t, svc.Push(context.Background()))
	assert.Zero(t, svc.Pushed())
	assert.True(t, log.has("error"))

	require.NoError(t, svc.Push(context.Background()))
	assert.Equal(t, store.Revision(), svc.Pushed())
}

func TestCommitHookReplicatesAfterCommit(t *testing.T) {
	target := &recordingReplica{}
	var svc *SyncService
	store, _ := openTestLedger(t, seededLedger(), ledger.WithCommitHook(func(revision uint64) {
		svc.Hook(revision)
	}))
	svc = NewSyncService(store, target, SyncConfig{Workers: 1, BufferSize: 4, Retries: 2, RetryDelay: time.Millisecond}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	_, err := newRosterService(store).Add(ctx, driverRequest(), "admin")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return svc.Pushed() == store.Revision()
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, target.count(), 1)
}

func TestHookDropsWhenQueueNotRunning(t *testing.T) {
	store, _ := openTestLedger(t, seededLedger())
	log := &syncLog{}
	svc := NewSyncService(store, &recordingReplica{}, SyncConfig{BufferSize: 1}, log, zap.NewNop())

	svc.Hook(store.Revision())
	assert.True(t, log.has("dropped"))
}
