package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/ledger/ledgertest"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func openStore(t *testing.T, seed ledger.Batch, opts ...ledger.Option) (*ledger.Store, *ledgertest.Memory) {
	t.Helper()
	mem := ledgertest.NewMemory(seed)
	opts = append([]ledger.Option{ledger.WithClock(func() time.Time { return fixedNow })}, opts...)
	store, err := ledger.Open(context.Background(), mem, opts...)
	require.NoError(t, err)
	return store, mem
}

func appendWorker(tx *ledger.Tx, person string) error {
	v := models.RecordVersion{
		PersonID:  person,
		RecordID:  tx.NextRecordID(),
		Role:      models.RoleDriver,
		Status:    models.StatusActive,
		UpdatedOn: tx.Now().Format(models.VersionTimeLayout),
	}
	if err := tx.Append(v); err != nil {
		return err
	}
	tx.Audit(models.AuditEntry{PersonID: person, RecordID: v.RecordID, Action: models.AuditActionAdd})
	return nil
}

func TestOpenSeedsSequencesFromLedger(t *testing.T) {
	store, _ := openStore(t, ledger.Batch{
		Versions: []models.RecordVersion{{PersonID: "P1", RecordID: "W0041", UpdatedOn: "2024-01-01 00:00:00"}},
		Audit:    []models.AuditEntry{{LogID: "H0007"}},
	})

	var got models.AuditEntry
	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error {
		require.Equal(t, "W0042", tx.NextRecordID())
		got = tx.Audit(models.AuditEntry{Action: models.AuditActionAdd})
		return nil
	}))
	require.Equal(t, "H0008", got.LogID)
	require.Equal(t, "2024-05-01T09:30:00.000000Z", got.Timestamp)
}

func TestUpdateCommitsVersionsAndAuditTogether(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{})
	before := store.Revision()

	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error {
		return appendWorker(tx, "P1")
	}))

	tables := mem.Tables()
	require.Len(t, tables.Versions, 1)
	require.Len(t, tables.Audit, 1)
	require.Equal(t, tables.Versions[0].RecordID, tables.Audit[0].RecordID)
	require.Greater(t, store.Revision(), before)

	cur, ok := store.FindByPersonID("P1")
	require.True(t, ok)
	require.Equal(t, "W0001", cur.RecordID)
}

func TestUpdateCallbackErrorWritesNothing(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{})
	boom := errors.New("rule violated")

	err := store.Update(context.Background(), func(tx *ledger.Tx) error {
		require.NoError(t, appendWorker(tx, "P1"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, mem.Appends())
	require.Empty(t, store.Versions())

	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error {
		require.Equal(t, "W0001", tx.NextRecordID(), "aborted transactions do not consume ids")
		return nil
	}))
}

func TestUpdateStorageFailureLeavesStateIntact(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{})
	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, "P1") }))
	rev := store.Revision()

	mem.FailNext()
	err := store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, "P2") })
	require.ErrorIs(t, err, appErrors.ErrStorage)
	require.True(t, appErrors.IsRetryable(err))
	require.ErrorIs(t, err, ledgertest.ErrInjected)

	require.Len(t, store.Versions(), 1)
	require.Equal(t, rev, store.Revision())
	_, ok := store.FindByPersonID("P2")
	require.False(t, ok)

	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, "P2") }))
	cur, _ := store.FindByPersonID("P2")
	require.Equal(t, "W0002", cur.RecordID)
}

func TestUpdateTimesOutWithConcurrencyError(t *testing.T) {
	store, _ := openStore(t, ledger.Batch{}, ledger.WithLockTimeout(50*time.Millisecond))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.Update(context.Background(), func(tx *ledger.Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := store.Update(context.Background(), func(tx *ledger.Tx) error { return nil })
	require.ErrorIs(t, err, appErrors.ErrConcurrency)
	require.True(t, appErrors.IsRetryable(err))

	close(release)
	require.NoError(t, <-done)
}

func TestUpdateHonoursCallerCancellation(t *testing.T) {
	store, _ := openStore(t, ledger.Batch{}, ledger.WithLockTimeout(time.Second))

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.Update(context.Background(), func(tx *ledger.Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Update(ctx, func(tx *ledger.Tx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentWritersNeverDuplicateIDs(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{}, ledger.WithLockTimeout(10*time.Second))

	const writers = 64
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Update(context.Background(), func(tx *ledger.Tx) error {
				return appendWorker(tx, ledger.NewPersonID())
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tables := mem.Tables()
	require.Len(t, tables.Versions, writers)
	require.Len(t, tables.Audit, writers)

	records := map[string]struct{}{}
	for _, v := range tables.Versions {
		records[v.RecordID] = struct{}{}
	}
	logs := map[string]struct{}{}
	for _, a := range tables.Audit {
		logs[a.LogID] = struct{}{}
	}
	require.Len(t, records, writers)
	require.Len(t, logs, writers)
	ids := make([]string, 0, writers)
	for _, v := range store.Versions() {
		ids = append(ids, v.RecordID)
	}
	require.Equal(t, "W0065", ledger.NextRecordID(ids))
	require.True(t, store.Verify())
}

func TestReadsSeeConsistentSnapshotsDuringWrites(t *testing.T) {
	store, _ := openStore(t, ledger.Batch{}, ledger.WithLockTimeout(10*time.Second))

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, _ := store.Snapshot()
				assert.Equal(t, len(snap.Versions), len(snap.Audit), "versions and audit are visible as a pair")
			}
		}()
	}

	for i := 0; i < 100; i++ {
		require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error {
			return appendWorker(tx, ledger.NewPersonID())
		}))
	}
	close(stop)
	readers.Wait()
}

func TestTxReadsSeeStagedVersions(t *testing.T) {
	store, _ := openStore(t, ledger.Batch{})

	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error {
		_, ok := tx.Current("P1")
		require.False(t, ok)

		require.NoError(t, tx.Append(models.RecordVersion{
			PersonID: "P1", RecordID: tx.NextRecordID(), CNIC: "3520212345671",
			Role: models.RoleSupervisor, Status: models.StatusActive, CCUC: "CC-001",
			UpdatedOn: tx.Now().Format(models.VersionTimeLayout),
		}))
		require.Equal(t, "W0001", ledger.ResolveSupervisor("CC-001", tx))

		id, ok := tx.PersonByNationalID("3520212345671")
		require.True(t, ok)
		require.Equal(t, "P1", id)

		err := tx.Append(models.RecordVersion{PersonID: "P2", RecordID: "W0001"})
		require.Error(t, err, "duplicate staged record id")
		return nil
	}))
}

func TestRebuildDetectsDrift(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{})
	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, "P1") }))

	report, err := store.Rebuild(context.Background())
	require.NoError(t, err)
	require.False(t, report.Drift)
	require.Equal(t, 1, report.Persons)

	tables := mem.Tables()
	tables.Versions = append(tables.Versions, models.RecordVersion{PersonID: "P2", RecordID: "W0002", UpdatedOn: "2024-01-01 00:00:00"})
	mem.Replace(tables)

	report, err = store.Rebuild(context.Background())
	require.NoError(t, err)
	require.True(t, report.Drift)
	require.Equal(t, 2, report.Persons)

	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error {
		require.Equal(t, "W0003", tx.NextRecordID())
		return nil
	}))
}

func TestPurgeArchivesThenResets(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{})
	for _, p := range []string{"P1", "P2"} {
		p := p
		require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, p) }))
	}

	var archived ledger.Batch
	report, err := store.Purge(context.Background(), "root", "season reset", func(_ context.Context, snap ledger.Batch) error {
		archived = snap
		return nil
	})
	require.NoError(t, err)
	require.Len(t, archived.Versions, 2)
	require.Equal(t, 2, report.RemovedVersions)
	require.Equal(t, 2, report.RemovedAuditEntries)
	require.Equal(t, "H0003", report.Entry.LogID)
	require.Equal(t, models.AuditActionPurge, report.Entry.Action)
	require.Equal(t, "root", report.Entry.ByUser)

	tables := mem.Tables()
	require.Empty(t, tables.Versions)
	require.Equal(t, []models.AuditEntry{report.Entry}, tables.Audit)
	require.Empty(t, store.Current())

	entries, total := store.AuditLog(models.AuditFilter{})
	require.Equal(t, 1, total)
	require.Equal(t, models.AuditActionPurge, entries[0].Action)
}

func TestPurgeAbortsWhenArchiveFails(t *testing.T) {
	store, mem := openStore(t, ledger.Batch{})
	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, "P1") }))

	_, err := store.Purge(context.Background(), "root", "", func(context.Context, ledger.Batch) error {
		return errors.New("disk full")
	})
	require.ErrorIs(t, err, appErrors.ErrStorage)
	require.Len(t, mem.Tables().Versions, 1)
	require.Len(t, store.Current(), 1)
}

func TestAuditLogFiltersAndPages(t *testing.T) {
	store, _ := openStore(t, ledger.Batch{})
	for _, p := range []string{"P1", "P2", "P1"} {
		p := p
		require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, p) }))
	}

	entries, total := store.AuditLog(models.AuditFilter{PersonID: "P1"})
	require.Equal(t, 2, total)
	require.Len(t, entries, 2)

	entries, total = store.AuditLog(models.AuditFilter{Page: 2, PageSize: 2})
	require.Equal(t, 3, total)
	require.Len(t, entries, 1)
	require.Equal(t, "H0003", entries[0].LogID)
}

func TestCommitHookReceivesRevision(t *testing.T) {
	var got []uint64
	store, _ := openStore(t, ledger.Batch{}, ledger.WithCommitHook(func(rev uint64) { got = append(got, rev) }))

	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return appendWorker(tx, "P1") }))
	require.NoError(t, store.Update(context.Background(), func(tx *ledger.Tx) error { return nil }))

	require.Equal(t, []uint64{store.Revision()}, got, "empty transactions do not notify")
}
