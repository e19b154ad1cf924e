package ledger

import (
	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/pkg/export"
)

// RecordsTable renders the versions in records column order.
func (b Batch) RecordsTable() export.Dataset {
	rows := make([]map[string]string, len(b.Versions))
	for i, v := range b.Versions {
		rows[i] = v.Row()
	}
	return export.Dataset{Headers: models.RecordHeaders, Rows: rows}
}

// AuditTable renders the audit entries in audit column order.
func (b Batch) AuditTable() export.Dataset {
	rows := make([]map[string]string, len(b.Audit))
	for i, a := range b.Audit {
		rows[i] = a.Row()
	}
	return export.Dataset{Headers: models.AuditHeaders, Rows: rows}
}
