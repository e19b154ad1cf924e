package models

// Audit actions recorded by the ledger.
const (
	AuditActionAdd      = "add"
	AuditActionTransfer = "transfer"
	AuditActionEdit     = "edit"
	AuditActionRemove   = "remove"
	AuditActionPurge    = "purge"
)

// AuditHeaders is the column order of the audit table.
var AuditHeaders = []string{
	"log_id", "person_id", "record_id", "action", "field",
	"old_value", "new_value", "by_user", "timestamp", "notes",
}

// AuditEntry records one logical field change caused by a mutation.
type AuditEntry struct {
	LogID     string `db:"log_id" json:"log_id"`
	PersonID  string `db:"person_id" json:"person_id"`
	RecordID  string `db:"record_id" json:"record_id"`
	Action    string `db:"action" json:"action"`
	Field     string `db:"field" json:"field"`
	OldValue  string `db:"old_value" json:"old_value"`
	NewValue  string `db:"new_value" json:"new_value"`
	ByUser    string `db:"by_user" json:"by_user"`
	Timestamp string `db:"timestamp" json:"timestamp"`
	Notes     string `db:"notes" json:"notes"`
}

// Row renders the entry keyed by column name.
func (a AuditEntry) Row() map[string]string {
	return map[string]string{
		"log_id":    a.LogID,
		"person_id": a.PersonID,
		"record_id": a.RecordID,
		"action":    a.Action,
		"field":     a.Field,
		"old_value": a.OldValue,
		"new_value": a.NewValue,
		"by_user":   a.ByUser,
		"timestamp": a.Timestamp,
		"notes":     a.Notes,
	}
}

// AuditFromRow builds an entry from a column keyed row.
func AuditFromRow(row map[string]string) AuditEntry {
	return AuditEntry{
		LogID:     row["log_id"],
		PersonID:  row["person_id"],
		RecordID:  row["record_id"],
		Action:    row["action"],
		Field:     row["field"],
		OldValue:  row["old_value"],
		NewValue:  row["new_value"],
		ByUser:    row["by_user"],
		Timestamp: row["timestamp"],
		Notes:     row["notes"],
	}
}
