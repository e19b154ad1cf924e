package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/export"
)

// Export selectors.
const (
	ExportTableRecords = "records"
	ExportTableAudit   = "audit"

	ExportScopeCurrent = "current"
	ExportScopeLedger  = "ledger"

	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

var exportContentTypes = map[string]string{
	ExportFormatCSV:  "text/csv; charset=utf-8",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type snapshotReader interface {
	Snapshot() (ledger.Batch, uint64)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
	Revision    uint64
}

// ExportService renders the ledger tables for download.
type ExportService struct {
	store  snapshotReader
	csv    csvRenderer
	pdf    pdfRenderer
	xlsx   csvRenderer
	logger *zap.Logger
	clock  func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the pkg/export defaults.
func NewExportService(store snapshotReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx csvRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter("Roster")
	}
	return &ExportService{store: store, csv: csv, pdf: pdf, xlsx: xlsx, logger: logger, clock: time.Now}
}

// Export renders the requested table. Records may be the current roster or
// the full ledger and accept the dashboard filters; the audit table is
// always exported whole.
func (s *ExportService) Export(ctx context.Context, q dto.ExportQuery) (*ExportFile, error) {
	table := strings.ToLower(defaultString(q.Table, ExportTableRecords))
	format := strings.ToLower(defaultString(q.Format, ExportFormatCSV))
	scope := strings.ToLower(defaultString(q.Scope, ExportScopeCurrent))
	if _, ok := exportContentTypes[format]; !ok {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unsupported export format %q", q.Format)
	}

	snapshot, revision := s.store.Snapshot()
	var (
		data  export.Dataset
		title string
		stem  string
	)
	switch table {
	case ExportTableRecords:
		filter := toRecordFilter(q.RosterQuery, models.RoleAdmin)
		var source []models.RecordVersion
		switch scope {
		case ExportScopeCurrent:
			source = currentOf(snapshot.Versions)
			title = "Current roster"
		case ExportScopeLedger:
			source = snapshot.Versions
			title = "Roster ledger"
		default:
			return nil, appErrors.Clonef(appErrors.ErrValidation, "unsupported export scope %q", q.Scope)
		}
		data = ledger.Batch{Versions: FilterRecords(source, filter)}.RecordsTable()
		stem = "roster_" + scope
	case ExportTableAudit:
		data = snapshot.AuditTable()
		title = "Audit log"
		stem = "history"
	default:
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unsupported export table %q", q.Table)
	}

	var (
		out []byte
		err error
	)
	switch format {
	case ExportFormatCSV:
		out, err = s.csv.Render(data)
	case ExportFormatPDF:
		out, err = s.pdf.Render(data, title)
	case ExportFormatXLSX:
		out, err = s.xlsx.Render(data)
	}
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}

	file := &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", stem, s.clock().UTC().Format("20060102T150405Z"), format),
		ContentType: exportContentTypes[format],
		Data:        out,
		Rows:        len(data.Rows),
		Revision:    revision,
	}
	s.logger.Info("ledger export rendered",
		zap.String("table", table),
		zap.String("scope", scope),
		zap.String("format", format),
		zap.Int("rows", file.Rows),
		zap.Uint64("revision", revision),
	)
	return file, nil
}

// currentOf returns the current versions of a ledger slice in ledger order.
func currentOf(versions []models.RecordVersion) []models.RecordVersion {
	projection := ledger.ProjectCurrent(versions)
	out := make([]models.RecordVersion, 0, projection.Len())
	for i, v := range versions {
		if projection.IsCurrentAt(v.PersonID, i) {
			out = append(out, v)
		}
	}
	return out
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}
