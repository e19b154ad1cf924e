package ledger

import (
	"time"

	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
)

// View is the read surface the resolver needs from a projection.
type View interface {
	Current(personID string) (models.RecordVersion, bool)
	PersonOfRecord(recordID string) (string, bool)
	Each(fn func(models.RecordVersion) bool)
}

// ActiveSupervisors returns the current active supervisors of cell.
func ActiveSupervisors(cell string, v View) []models.RecordVersion {
	var out []models.RecordVersion
	v.Each(func(r models.RecordVersion) bool {
		if r.CCUC == cell && r.IsActiveSupervisor() {
			out = append(out, r)
		}
		return true
	})
	return out
}

// ResolveSupervisor returns the record id of the active supervisor of cell,
// or "" when there is none. With several candidates the latest updated_on
// wins, then the higher record id.
func ResolveSupervisor(cell string, v View) string {
	var (
		best   models.RecordVersion
		bestAt time.Time
		found  bool
	)
	for _, r := range ActiveSupervisors(cell, v) {
		at, _ := validation.ParseDate(r.UpdatedOn)
		if !found || at.After(bestAt) || (at.Equal(bestAt) && laterID(r.RecordID, best.RecordID)) {
			best, bestAt, found = r, at, true
		}
	}
	return best.RecordID
}

// IsSupervisorActive reports whether recordID still names an active
// supervisor. The empty reference is vacuously valid; an unknown record id
// is not. The owning person's current version decides, not the referenced one.
func IsSupervisorActive(recordID string, v View) bool {
	if recordID == "" {
		return true
	}
	personID, ok := v.PersonOfRecord(recordID)
	if !ok {
		return false
	}
	current, ok := v.Current(personID)
	return ok && current.IsActiveSupervisor()
}

func laterID(a, b string) bool {
	na, okA := parseSuffix(RecordPrefix, a)
	nb, okB := parseSuffix(RecordPrefix, b)
	if okA && okB {
		return na > nb
	}
	return a > b
}
