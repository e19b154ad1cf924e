package ledger

import (
	"time"

	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
)

type entry struct {
	version models.RecordVersion
	at      time.Time
	pos     int
}

// Projection is the materialized current state: one version per person, the
// one with the latest updated_on. Ties go to the later ledger position.
// Unparseable timestamps sort before every parseable one.
type Projection struct {
	current     map[string]entry
	records     map[string]string
	nationalIDs map[string]string
}

// NewProjection returns an empty projection.
func NewProjection() *Projection {
	return &Projection{
		current:     make(map[string]entry),
		records:     make(map[string]string),
		nationalIDs: make(map[string]string),
	}
}

// ProjectCurrent recomputes the projection from the full ledger.
func ProjectCurrent(versions []models.RecordVersion) *Projection {
	p := NewProjection()
	for i, v := range versions {
		p.Apply(v, i)
	}
	return p
}

// Apply folds the version found at ledger position pos into the projection.
// Versions must be applied in ledger order.
func (p *Projection) Apply(v models.RecordVersion, pos int) {
	if v.RecordID != "" {
		p.records[v.RecordID] = v.PersonID
	}

	at, _ := validation.ParseDate(v.UpdatedOn)
	prev, ok := p.current[v.PersonID]
	if ok && at.Before(prev.at) {
		return
	}
	if ok && prev.version.CNIC != v.CNIC && p.nationalIDs[prev.version.CNIC] == v.PersonID {
		delete(p.nationalIDs, prev.version.CNIC)
	}
	p.current[v.PersonID] = entry{version: v, at: at, pos: pos}
	if v.CNIC != "" {
		p.nationalIDs[v.CNIC] = v.PersonID
	}
}

// Current returns the person's current version.
func (p *Projection) Current(personID string) (models.RecordVersion, bool) {
	e, ok := p.current[personID]
	return e.version, ok
}

// PersonOfRecord returns the person a record id belongs to.
func (p *Projection) PersonOfRecord(recordID string) (string, bool) {
	id, ok := p.records[recordID]
	return id, ok
}

// PersonByNationalID returns the person whose current version carries cnic.
func (p *Projection) PersonByNationalID(cnic string) (string, bool) {
	id, ok := p.nationalIDs[cnic]
	return id, ok
}

// Each visits every current version until fn returns false. Order is unspecified.
func (p *Projection) Each(fn func(models.RecordVersion) bool) {
	for _, e := range p.current {
		if !fn(e.version) {
			return
		}
	}
}

// IsCurrentAt reports whether the version at ledger position pos is the
// current one for personID.
func (p *Projection) IsCurrentAt(personID string, pos int) bool {
	e, ok := p.current[personID]
	return ok && e.pos == pos
}

// Len returns the number of persons.
func (p *Projection) Len() int {
	return len(p.current)
}

// Clone returns an independent copy.
func (p *Projection) Clone() *Projection {
	c := &Projection{
		current:     make(map[string]entry, len(p.current)),
		records:     make(map[string]string, len(p.records)),
		nationalIDs: make(map[string]string, len(p.nationalIDs)),
	}
	for k, v := range p.current {
		c.current[k] = v
	}
	for k, v := range p.records {
		c.records[k] = v
	}
	for k, v := range p.nationalIDs {
		c.nationalIDs[k] = v
	}
	return c
}

// Equal reports whether both projections select the same current versions.
func (p *Projection) Equal(other *Projection) bool {
	if p.Len() != other.Len() {
		return false
	}
	for id, e := range p.current {
		o, ok := other.current[id]
		if !ok || o.version != e.version {
			return false
		}
	}
	return true
}
