package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/tabular"
)

const bulkUploadNote = "Bulk upload"

type tableReader interface {
	Read(name string, src io.Reader) (*tabular.Table, error)
}

// ImportService applies bulk uploads. The whole upload is one transaction;
// rows are applied in order so each row sees the ones before it. Malformed
// identity fields only produce warnings, rows that would break a ledger
// invariant are skipped.
type ImportService struct {
	store   ledgerWriter
	reader  tableReader
	logger  *zap.Logger
	metrics mutationRecorder
}

// NewImportService constructs the service.
func NewImportService(store ledgerWriter, reader tableReader, logger *zap.Logger, metrics mutationRecorder) *ImportService {
	if reader == nil {
		reader = tabular.Reader{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &ImportService{store: store, reader: reader, logger: logger, metrics: metrics}
}

// Import parses a CSV or XLSX upload and applies it.
func (s *ImportService) Import(ctx context.Context, filename string, src io.Reader, actor string) (*dto.ImportResult, error) {
	table, err := s.reader.Read(filename, src)
	if err != nil {
		s.metrics.RecordMutation("import", "validation_error")
		switch {
		case errors.Is(err, tabular.ErrUnsupportedType):
			return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "Unsupported file type. Only CSV and XLSX allowed.")
		case errors.Is(err, tabular.ErrTooLarge):
			return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "File exceeds the upload size limit.")
		default:
			return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "Unable to parse the uploaded file.")
		}
	}
	table.Ensure(models.RecordHeaders)
	return s.ImportRows(ctx, table.Rows, actor)
}

// ImportRows applies already parsed rows keyed by records column name.
func (s *ImportService) ImportRows(ctx context.Context, rows []map[string]string, actor string) (*dto.ImportResult, error) {
	result := &dto.ImportResult{RecordIDs: []string{}, Warnings: []string{}}

	err := s.store.Update(ctx, func(tx *ledger.Tx) error {
		for _, row := range rows {
			tx.ObserveRecordID(strings.TrimSpace(row["record_id"]))
		}
		for i, row := range rows {
			n := i + 1
			v, warnings, skip := prepareRow(tx, n, row)
			result.Warnings = append(result.Warnings, warnings...)
			if skip {
				result.Skipped++
				continue
			}
			if err := tx.Append(v); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s, skipped.", n, err))
				result.Skipped++
				continue
			}
			tx.Audit(models.AuditEntry{
				PersonID: v.PersonID,
				RecordID: v.RecordID,
				Action:   models.AuditActionAdd,
				ByUser:   actor,
				Notes:    bulkUploadNote,
			})
			result.Imported++
			result.RecordIDs = append(result.RecordIDs, v.RecordID)
		}
		return nil
	})
	s.metrics.RecordMutation("import", outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk upload applied",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("warnings", len(result.Warnings)),
		zap.String("by_user", actor),
	)
	return result, nil
}

// prepareRow fills defaults and checks one row against the transaction view.
func prepareRow(tx *ledger.Tx, n int, row map[string]string) (models.RecordVersion, []string, bool) {
	clean := make(map[string]string, len(row))
	for k, val := range row {
		clean[k] = strings.TrimSpace(val)
	}
	v := models.RecordFromRow(clean)

	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf("Row %d: ", n)+fmt.Sprintf(format, args...))
	}

	if v.RecordID != "" && tx.HasRecord(v.RecordID) {
		warn("Duplicate record_id %s, skipped.", v.RecordID)
		return v, warnings, true
	}

	v.Status = strings.ToLower(v.Status)
	switch v.Status {
	case "":
		v.Status = models.StatusActive
	case models.StatusActive, models.StatusRemoved:
	default:
		warn("Invalid status %q, skipped.", v.Status)
		return v, warnings, true
	}

	if v.Role != models.RoleDriver && v.HasVehicle() {
		warn("Only Drivers can have vehicles, skipped.")
		return v, warnings, true
	}

	if v.CNIC != "" && !validation.ValidNationalID(v.CNIC) {
		warn("Invalid CNIC.")
	}
	if v.Phone != "" && !validation.ValidPhone(v.Phone) {
		warn("Invalid Phone.")
	}

	if v.PersonID == "" {
		if owner, ok := tx.PersonByNationalID(v.CNIC); ok && v.CNIC != "" {
			v.PersonID = owner
		} else {
			v.PersonID = ledger.NewPersonID()
		}
	}

	if v.IsActiveSupervisor() {
		for _, sup := range ledger.ActiveSupervisors(v.CCUC, tx) {
			if sup.PersonID != v.PersonID {
				warn("Already a supervisor for %s (%s), skipped.", v.CCUC, sup.RecordID)
				return v, warnings, true
			}
		}
	}

	if v.UpdatedOn == "" {
		v.UpdatedOn = tx.Now().Format(models.VersionTimeLayout)
	} else if validation.ValidateDate(v.UpdatedOn) != nil {
		warn("Invalid updated_on %q, using upload time.", v.UpdatedOn)
		v.UpdatedOn = tx.Now().Format(models.VersionTimeLayout)
	}
	if validation.ValidateDate(v.StatusChangedOn) != nil {
		warn("Invalid status_changed_on.")
	}
	if validation.ValidateDate(v.LastTransferOn) != nil {
		warn("Invalid last_transfer_on.")
	}

	if v.Remarks == "" {
		v.Remarks = bulkUploadNote
	}
	if v.SupervisorID == "" && v.IsActive() && v.Role != models.RoleSupervisor && v.CCUC != "" {
		v.SupervisorID = ledger.ResolveSupervisor(v.CCUC, tx)
	}
	if v.RecordID == "" {
		v.RecordID = tx.NextRecordID()
	}
	return v, warnings, false
}
