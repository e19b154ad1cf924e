package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
)

const recordColumns = `person_id, record_id, area, pp_sz, zone, cc_uc, role, name, cnic, phone,
	vehicle_id, vehicle_reg_no, supervisor_id, status, updated_on, status_changed_on, last_transfer_on, remarks`

const auditColumns = `log_id, person_id, record_id, action, field, old_value, new_value, by_user, "timestamp", notes`

const (
	insertRecordQuery = `INSERT INTO records (` + recordColumns + `) VALUES (:person_id, :record_id, :area, :pp_sz, :zone, :cc_uc, :role, :name, :cnic, :phone,
	:vehicle_id, :vehicle_reg_no, :supervisor_id, :status, :updated_on, :status_changed_on, :last_transfer_on, :remarks)`
	insertAuditQuery = `INSERT INTO audit_log (` + auditColumns + `) VALUES (:log_id, :person_id, :record_id, :action, :field, :old_value, :new_value, :by_user, :timestamp, :notes)`
)

// SQLLedger stores the ledger in two append-only tables. Ledger order is the
// insertion order kept by the seq column; each batch is one SQL transaction.
type SQLLedger struct {
	db *sqlx.DB
}

// NewSQLLedger wraps an open sqlite3 or postgres handle.
func NewSQLLedger(db *sqlx.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

// Migrate creates the tables when they do not exist yet.
func (r *SQLLedger) Migrate(ctx context.Context) error {
	seq := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.db.DriverName() == "postgres" {
		seq = "BIGSERIAL PRIMARY KEY"
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			seq ` + seq + `,
			person_id TEXT NOT NULL,
			record_id TEXT NOT NULL UNIQUE,
			area TEXT NOT NULL DEFAULT '',
			pp_sz TEXT NOT NULL DEFAULT '',
			zone TEXT NOT NULL DEFAULT '',
			cc_uc TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			cnic TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			vehicle_id TEXT NOT NULL DEFAULT '',
			vehicle_reg_no TEXT NOT NULL DEFAULT '',
			supervisor_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			updated_on TEXT NOT NULL DEFAULT '',
			status_changed_on TEXT NOT NULL DEFAULT '',
			last_transfer_on TEXT NOT NULL DEFAULT '',
			remarks TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_person ON records (person_id)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			seq ` + seq + `,
			log_id TEXT NOT NULL UNIQUE,
			person_id TEXT NOT NULL DEFAULT '',
			record_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			field TEXT NOT NULL DEFAULT '',
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			by_user TEXT NOT NULL DEFAULT '',
			"timestamp" TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
	}
	return nil
}

// Load implements ledger.Persistence.
func (r *SQLLedger) Load(ctx context.Context) (ledger.Batch, error) {
	var batch ledger.Batch
	if err := r.db.SelectContext(ctx, &batch.Versions, `SELECT `+recordColumns+` FROM records ORDER BY seq`); err != nil {
		return ledger.Batch{}, fmt.Errorf("load records: %w", err)
	}
	if err := r.db.SelectContext(ctx, &batch.Audit, `SELECT `+auditColumns+` FROM audit_log ORDER BY seq`); err != nil {
		return ledger.Batch{}, fmt.Errorf("load audit log: %w", err)
	}
	return batch, nil
}

// Append implements ledger.Persistence.
func (r *SQLLedger) Append(ctx context.Context, batch ledger.Batch) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return insertBatch(ctx, tx, batch)
	})
}

// Purge implements ledger.Persistence.
func (r *SQLLedger) Purge(ctx context.Context, seed models.AuditEntry) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
			return fmt.Errorf("purge records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM audit_log`); err != nil {
			return fmt.Errorf("purge audit log: %w", err)
		}
		return insertBatch(ctx, tx, ledger.Batch{Audit: []models.AuditEntry{seed}})
	})
}

// Close implements ledger.Persistence.
func (r *SQLLedger) Close() error {
	return r.db.Close()
}

func (r *SQLLedger) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sqlx.Tx, batch ledger.Batch) error {
	for _, v := range batch.Versions {
		if _, err := tx.NamedExecContext(ctx, insertRecordQuery, v); err != nil {
			return fmt.Errorf("insert record %s: %w", v.RecordID, err)
		}
	}
	for _, a := range batch.Audit {
		if _, err := tx.NamedExecContext(ctx, insertAuditQuery, a); err != nil {
			return fmt.Errorf("insert audit entry %s: %w", a.LogID, err)
		}
	}
	return nil
}
