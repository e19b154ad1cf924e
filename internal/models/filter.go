package models

// RecordFilter narrows roster listings. Area matches exactly; unit, zone and
// cell match as case-insensitive substrings. Search looks at name, record id,
// national id and vehicle registration.
type RecordFilter struct {
	Area        string
	PPSZ        string
	Zone        string
	CCUC        string
	Search      string
	Status      string
	AllVersions bool
	Page        int
	PageSize    int
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	PersonID string
	RecordID string
	Action   string
	ByUser   string
	Page     int
	PageSize int
}
