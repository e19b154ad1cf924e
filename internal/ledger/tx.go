package ledger

import (
	"fmt"
	"time"

	"github.com/noah-isme/roster-ledger-api/internal/models"
)

// Tx is the staging area of one write section. Reads see the committed
// projection plus everything staged so far, so later rows of a bulk import
// observe earlier ones. A Tx is only valid inside the Update callback.
type Tx struct {
	base    *Projection
	work    *Projection
	basePos int
	now     time.Time
	records Sequence
	logs    Sequence
	batch   Batch
	staged  map[string]struct{}
}

// Now is the transaction timestamp shared by every version and entry it stages.
func (tx *Tx) Now() time.Time {
	return tx.now
}

func (tx *Tx) view() *Projection {
	if len(tx.batch.Versions) == 0 {
		return tx.base
	}
	if tx.work == nil {
		tx.work = tx.base.Clone()
		for i, v := range tx.batch.Versions {
			tx.work.Apply(v, tx.basePos+i)
		}
	}
	return tx.work
}

// Current returns the person's current version including staged changes.
func (tx *Tx) Current(personID string) (models.RecordVersion, bool) {
	return tx.view().Current(personID)
}

// PersonOfRecord returns the owner of a committed or staged record id.
func (tx *Tx) PersonOfRecord(recordID string) (string, bool) {
	return tx.view().PersonOfRecord(recordID)
}

// PersonByNationalID returns the person currently holding cnic.
func (tx *Tx) PersonByNationalID(cnic string) (string, bool) {
	return tx.view().PersonByNationalID(cnic)
}

// Each visits every current version including staged changes.
func (tx *Tx) Each(fn func(models.RecordVersion) bool) {
	tx.view().Each(fn)
}

// HasRecord reports whether recordID is already committed or staged.
func (tx *Tx) HasRecord(recordID string) bool {
	if _, ok := tx.staged[recordID]; ok {
		return true
	}
	_, ok := tx.base.PersonOfRecord(recordID)
	return ok
}

// ObserveRecordID reserves an explicit record id so generated ids stay above it.
func (tx *Tx) ObserveRecordID(recordID string) {
	tx.records.Observe(recordID)
}

// NextRecordID issues the next W id.
func (tx *Tx) NextRecordID() string {
	return tx.records.Next()
}

// Append stages a version. The record id must be set and unused.
func (tx *Tx) Append(v models.RecordVersion) error {
	if v.PersonID == "" || v.RecordID == "" {
		return fmt.Errorf("version requires person_id and record_id")
	}
	if tx.HasRecord(v.RecordID) {
		return fmt.Errorf("record_id %s already exists", v.RecordID)
	}
	tx.records.Observe(v.RecordID)
	tx.staged[v.RecordID] = struct{}{}
	tx.batch.Versions = append(tx.batch.Versions, v)
	if tx.work != nil {
		tx.work.Apply(v, tx.basePos+len(tx.batch.Versions)-1)
	}
	return nil
}

// Audit stages an entry, assigning its log id and, when empty, its timestamp.
func (tx *Tx) Audit(e models.AuditEntry) models.AuditEntry {
	e.LogID = tx.logs.Next()
	if e.Timestamp == "" {
		e.Timestamp = tx.now.UTC().Format(models.AuditTimeLayout)
	}
	tx.batch.Audit = append(tx.batch.Audit, e)
	return e
}

// Staged returns what the transaction will commit.
func (tx *Tx) Staged() Batch {
	return tx.batch
}
