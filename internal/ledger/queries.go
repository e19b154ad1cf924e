package ledger

import (
	"github.com/noah-isme/roster-ledger-api/internal/models"
)

// Current returns every person's current version in ledger order.
func (s *Store) Current() []models.RecordVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RecordVersion, 0, s.projection.Len())
	for i, v := range s.versions {
		if s.projection.IsCurrentAt(v.PersonID, i) {
			out = append(out, v)
		}
	}
	return out
}

// Versions returns a copy of the full ledger.
func (s *Store) Versions() []models.RecordVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RecordVersion, len(s.versions))
	copy(out, s.versions)
	return out
}

// FindByPersonID returns the person's current version.
func (s *Store) FindByPersonID(personID string) (models.RecordVersion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projection.Current(personID)
}

// FindByNationalID returns the current version of the person holding cnic.
func (s *Store) FindByNationalID(cnic string) (models.RecordVersion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	personID, ok := s.projection.PersonByNationalID(cnic)
	if !ok {
		return models.RecordVersion{}, false
	}
	return s.projection.Current(personID)
}

// FindByRecordID returns the current version of the person owning recordID,
// which may be a newer version than the one recordID names.
func (s *Store) FindByRecordID(recordID string) (models.RecordVersion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	personID, ok := s.projection.PersonOfRecord(recordID)
	if !ok {
		return models.RecordVersion{}, false
	}
	return s.projection.Current(personID)
}

// History returns all versions of a person in ledger order.
func (s *Store) History(personID string) []models.RecordVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RecordVersion
	for _, v := range s.versions {
		if v.PersonID == personID {
			out = append(out, v)
		}
	}
	return out
}

// AuditLog returns matching audit entries in ledger order with the total
// count before paging. A zero PageSize returns everything.
func (s *Store) AuditLog(filter models.AuditFilter) ([]models.AuditEntry, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.AuditEntry
	for _, a := range s.audit {
		if filter.PersonID != "" && a.PersonID != filter.PersonID {
			continue
		}
		if filter.RecordID != "" && a.RecordID != filter.RecordID {
			continue
		}
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if filter.ByUser != "" && a.ByUser != filter.ByUser {
			continue
		}
		matched = append(matched, a)
	}
	total := len(matched)
	return Page(matched, filter.Page, filter.PageSize), total
}

// Snapshot returns a consistent copy of both tables and the revision it
// was taken at.
func (s *Store) Snapshot() (Batch, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := Batch{
		Versions: make([]models.RecordVersion, len(s.versions)),
		Audit:    make([]models.AuditEntry, len(s.audit)),
	}
	copy(b.Versions, s.versions)
	copy(b.Audit, s.audit)
	return b, s.revision
}

// Revision increases with every change to the in-memory ledger.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Stats describes the ledger size.
type Stats struct {
	Versions     int    `json:"versions"`
	AuditEntries int    `json:"audit_entries"`
	Persons      int    `json:"persons"`
	Revision     uint64 `json:"revision"`
}

// Stats returns the ledger size.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Versions:     len(s.versions),
		AuditEntries: len(s.audit),
		Persons:      s.projection.Len(),
		Revision:     s.revision,
	}
}

// Page slices items for a 1-based page. A non-positive size disables paging.
func Page[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
