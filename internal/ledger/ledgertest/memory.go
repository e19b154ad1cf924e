// Package ledgertest provides an in-memory ledger persistence for tests.
package ledgertest

import (
	"context"
	"errors"
	"sync"

	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
)

// ErrInjected is returned by a Memory whose FailNext was set.
var ErrInjected = errors.New("injected storage failure")

// Memory keeps the ledger in slices. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	versions []models.RecordVersion
	audit    []models.AuditEntry
	failNext bool
	appends  int
}

// NewMemory returns a Memory pre-populated with seed.
func NewMemory(seed ledger.Batch) *Memory {
	m := &Memory{}
	m.versions = append(m.versions, seed.Versions...)
	m.audit = append(m.audit, seed.Audit...)
	return m
}

// FailNext makes the next Append or Purge fail without writing.
func (m *Memory) FailNext() {
	m.mu.Lock()
	m.failNext = true
	m.mu.Unlock()
}

// Appends counts successful Append calls.
func (m *Memory) Appends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends
}

// Tables returns copies of the persisted tables.
func (m *Memory) Tables() ledger.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ledger.Batch{
		Versions: append([]models.RecordVersion(nil), m.versions...),
		Audit:    append([]models.AuditEntry(nil), m.audit...),
	}
}

// Load implements ledger.Persistence.
func (m *Memory) Load(context.Context) (ledger.Batch, error) {
	return m.Tables(), nil
}

// Append implements ledger.Persistence.
func (m *Memory) Append(_ context.Context, batch ledger.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return ErrInjected
	}
	m.versions = append(m.versions, batch.Versions...)
	m.audit = append(m.audit, batch.Audit...)
	m.appends++
	return nil
}

// Purge implements ledger.Persistence.
func (m *Memory) Purge(_ context.Context, seed models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return ErrInjected
	}
	m.versions = nil
	m.audit = []models.AuditEntry{seed}
	return nil
}

// Close implements ledger.Persistence.
func (m *Memory) Close() error { return nil }

// Replace swaps the persisted tables behind the store's back, for drift tests.
func (m *Memory) Replace(batch ledger.Batch) {
	m.mu.Lock()
	m.versions = append([]models.RecordVersion(nil), batch.Versions...)
	m.audit = append([]models.AuditEntry(nil), batch.Audit...)
	m.mu.Unlock()
}
