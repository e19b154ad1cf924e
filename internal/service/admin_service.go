package service

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/export"
	"github.com/noah-isme/roster-ledger-api/pkg/replica"
)

type ledgerAdmin interface {
	Rebuild(ctx context.Context) (ledger.RebuildReport, error)
	Purge(ctx context.Context, byUser, notes string, archive ledger.ArchiveFunc) (ledger.PurgeReport, error)
	Verify() bool
	Stats() ledger.Stats
}

// Archiver keeps a copy of the ledger before it is destroyed.
type Archiver interface {
	Archive(ctx context.Context, snapshot ledger.Batch) error
}

// LedgerArchiver writes both tables as CSV under archive/<timestamp>/ on the
// local replica and, when configured, on the remote one.
type LedgerArchiver struct {
	local  replica.Replica
	remote replica.Replica
	csv    *export.CSVExporter
	logger *zap.Logger
	clock  func() time.Time
}

// NewLedgerArchiver constructs an archiver. remote may be nil.
func NewLedgerArchiver(local, remote replica.Replica, logger *zap.Logger) *LedgerArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerArchiver{local: local, remote: remote, csv: export.NewCSVExporter(), logger: logger, clock: time.Now}
}

// Archive implements Archiver. Only the local copy is required to succeed.
func (a *LedgerArchiver) Archive(ctx context.Context, snapshot ledger.Batch) error {
	prefix := "archive/" + a.clock().UTC().Format("20060102T150405Z") + "/"
	objects, err := tableObjects(a.csv, snapshot, prefix)
	if err != nil {
		return err
	}
	if err := a.local.Put(ctx, objects...); err != nil {
		return err
	}
	a.logger.Info("ledger archived", zap.String("target", a.local.Target()), zap.String("prefix", prefix))
	if a.remote != nil {
		if err := a.remote.Put(ctx, objects...); err != nil {
			a.logger.Warn("remote ledger archive failed", zap.String("target", a.remote.Target()), zap.Error(err))
		}
	}
	return nil
}

// AdminService runs the destructive and maintenance operations.
type AdminService struct {
	store         ledgerAdmin
	archiver      Archiver
	wipeCode      string
	archiveOnWipe bool
	logger        *zap.Logger
}

// NewAdminService constructs the service. An empty wipeCode disables wipes.
func NewAdminService(store ledgerAdmin, archiver Archiver, wipeCode string, archiveOnWipe bool, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{store: store, archiver: archiver, wipeCode: wipeCode, archiveOnWipe: archiveOnWipe, logger: logger}
}

// Wipe removes all data after checking the confirmation code.
func (s *AdminService) Wipe(ctx context.Context, req dto.WipeRequest, actor string) (*ledger.PurgeReport, error) {
	if s.wipeCode == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Wipe is disabled: no confirmation code configured.")
	}
	if subtle.ConstantTimeCompare([]byte(req.Code), []byte(s.wipeCode)) != 1 {
		s.logger.Warn("wipe rejected", zap.String("by_user", actor))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Invalid confirmation code.")
	}

	var archive ledger.ArchiveFunc
	if s.archiveOnWipe && s.archiver != nil {
		archive = s.archiver.Archive
	}
	report, err := s.store.Purge(ctx, actor, req.Notes, archive)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Rebuild reloads the ledger and recomputes the projection.
func (s *AdminService) Rebuild(ctx context.Context) (*ledger.RebuildReport, error) {
	report, err := s.store.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ledger rebuilt",
		zap.Int("versions", report.Versions),
		zap.Int("persons", report.Persons),
		zap.Bool("drift", report.Drift),
	)
	return &report, nil
}

// LedgerStatus summarises ledger health.
type LedgerStatus struct {
	ledger.Stats
	Consistent bool            `json:"consistent"`
	Metrics    MetricsSnapshot `json:"metrics"`
}

// Status reports ledger size and whether the projection matches a recompute.
func (s *AdminService) Status(metrics *MetricsService) LedgerStatus {
	return LedgerStatus{Stats: s.store.Stats(), Consistent: s.store.Verify(), Metrics: metrics.Snapshot()}
}

func tableObjects(csv *export.CSVExporter, snapshot ledger.Batch, prefix string) ([]replica.Object, error) {
	records, err := csv.Render(snapshot.RecordsTable())
	if err != nil {
		return nil, err
	}
	history, err := csv.Render(snapshot.AuditTable())
	if err != nil {
		return nil, err
	}
	return []replica.Object{
		{Name: prefix + "master.csv", ContentType: "text/csv", Data: records},
		{Name: prefix + "history.csv", ContentType: "text/csv", Data: history},
	}, nil
}
