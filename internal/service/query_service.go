package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type ledgerReader interface {
	Current() []models.RecordVersion
	Versions() []models.RecordVersion
	FindByPersonID(personID string) (models.RecordVersion, bool)
	FindByNationalID(cnic string) (models.RecordVersion, bool)
	FindByRecordID(recordID string) (models.RecordVersion, bool)
	History(personID string) []models.RecordVersion
	AuditLog(filter models.AuditFilter) ([]models.AuditEntry, int)
	Revision() uint64
	Stats() ledger.Stats
}

type rosterPage struct {
	Items []models.RecordVersion `json:"items"`
	Total int                    `json:"total"`
}

// QueryService serves roster and audit listings from the projection.
type QueryService struct {
	store  ledgerReader
	cache  *CacheService
	logger *zap.Logger
}

// NewQueryService constructs the service. cache may be nil.
func NewQueryService(store ledgerReader, cache *CacheService, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{store: store, cache: cache, logger: logger}
}

// List returns the filtered roster. Users only ever see active current
// versions; admins may filter by status and list the whole ledger.
func (s *QueryService) List(ctx context.Context, q dto.RosterQuery, role models.UserRole) ([]models.RecordVersion, *models.Pagination, error) {
	filter := toRecordFilter(q, role)
	revision := s.store.Revision()
	key := s.cache.RosterKey(revision, string(role), filter)

	var page rosterPage
	if !s.cache.Get(ctx, key, &page) {
		source := s.store.Current()
		if filter.AllVersions {
			source = s.store.Versions()
		}
		matched := FilterRecords(source, filter)
		page = rosterPage{Items: ledger.Page(matched, filter.Page, filter.PageSize), Total: len(matched)}
		s.cache.Set(ctx, key, page, 0)
	}

	return page.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}, nil
}

// Person resolves a person id, record id or national ID to the current
// version and its history.
func (s *QueryService) Person(ctx context.Context, ref string, role models.UserRole) (*models.PersonView, error) {
	ref = strings.TrimSpace(ref)
	current, ok := s.store.FindByPersonID(ref)
	if !ok && validation.ValidNationalID(ref) {
		current, ok = s.store.FindByNationalID(ref)
	}
	if !ok {
		current, ok = s.store.FindByRecordID(ref)
	}
	if !ok || (role != models.RoleAdmin && !current.IsActive()) {
		return nil, appErrors.Clonef(appErrors.ErrNotFound, "worker %s not found", ref)
	}
	return &models.PersonView{Current: current, History: s.store.History(current.PersonID)}, nil
}

// Audit returns a page of the audit log.
func (s *QueryService) Audit(ctx context.Context, q dto.AuditQuery) ([]models.AuditEntry, *models.Pagination, error) {
	filter := models.AuditFilter{
		PersonID: strings.TrimSpace(q.PersonID),
		RecordID: strings.TrimSpace(q.RecordID),
		Action:   strings.ToLower(strings.TrimSpace(q.Action)),
		ByUser:   strings.TrimSpace(q.ByUser),
	}
	filter.Page, filter.PageSize = normalizePage(q.Page, q.PageSize)
	if filter.Action != "" && !validAuditAction(filter.Action) {
		return nil, nil, appErrors.Clonef(appErrors.ErrValidation, "unknown audit action %q", q.Action)
	}
	entries, total := s.store.AuditLog(filter)
	return entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Stats reports the ledger size.
func (s *QueryService) Stats() ledger.Stats {
	return s.store.Stats()
}

// FilterRecords applies the dashboard filters. Area and status match
// exactly; unit, zone and cell match as case-insensitive substrings; search
// looks at name, record id, national ID and vehicle registration.
func FilterRecords(versions []models.RecordVersion, f models.RecordFilter) []models.RecordVersion {
	search := strings.ToLower(f.Search)
	out := make([]models.RecordVersion, 0, len(versions))
	for _, v := range versions {
		if f.Area != "" && v.Area != f.Area {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if !containsFold(v.PPSZ, f.PPSZ) || !containsFold(v.Zone, f.Zone) || !containsFold(v.CCUC, f.CCUC) {
			continue
		}
		if search != "" &&
			!containsFold(v.Name, search) &&
			!containsFold(v.RecordID, search) &&
			!containsFold(v.CNIC, search) &&
			!containsFold(v.VehicleRegNo, search) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func toRecordFilter(q dto.RosterQuery, role models.UserRole) models.RecordFilter {
	f := models.RecordFilter{
		Area:        strings.TrimSpace(q.Area),
		PPSZ:        strings.TrimSpace(q.PPSZ),
		Zone:        strings.TrimSpace(q.Zone),
		CCUC:        strings.TrimSpace(q.CCUC),
		Search:      strings.TrimSpace(q.Search),
		Status:      strings.ToLower(strings.TrimSpace(q.Status)),
		AllVersions: q.AllVersions,
	}
	f.Page, f.PageSize = normalizePage(q.Page, q.PageSize)
	if role != models.RoleAdmin {
		f.Status = models.StatusActive
		f.AllVersions = false
	}
	return f
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func containsFold(value, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(sub))
}

func validAuditAction(action string) bool {
	switch action {
	case models.AuditActionAdd, models.AuditActionTransfer, models.AuditActionEdit, models.AuditActionRemove, models.AuditActionPurge:
		return true
	}
	return false
}
