package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
)

type ledgerWriter interface {
	Update(ctx context.Context, fn func(tx *ledger.Tx) error) error
}

type mutationRecorder interface {
	RecordMutation(action, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string, string) {}

var addMessages = map[string]string{
	"CNIC":  "Invalid CNIC: Must be 13 digits.",
	"Phone": "Invalid Phone: Must be 11 digits.",
	"Area":  "Invalid Area: Must be City or Sadar.",
	"Role":  "Invalid Role.",
}

// RosterService runs the single-record mutations against the ledger.
type RosterService struct {
	store         ledgerWriter
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       mutationRecorder
	strictCatalog bool
}

// RosterServiceOption configures the service.
type RosterServiceOption func(*RosterService)

// WithStrictCatalog checks placements against the City/Sadar catalog.
func WithStrictCatalog(enabled bool) RosterServiceOption {
	return func(s *RosterService) {
		s.strictCatalog = enabled
	}
}

// WithMutationRecorder reports mutation outcomes.
func WithMutationRecorder(r mutationRecorder) RosterServiceOption {
	return func(s *RosterService) {
		if r != nil {
			s.metrics = r
		}
	}
}

// NewRosterService constructs the service.
func NewRosterService(store ledgerWriter, validate *validator.Validate, logger *zap.Logger, opts ...RosterServiceOption) *RosterService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RosterService{store: store, validator: validate, logger: logger, metrics: nopRecorder{}}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Add registers a worker as a new version. A known national ID reuses the
// existing person_id.
func (s *RosterService) Add(ctx context.Context, req dto.AddWorkerRequest, actor string) (*models.RecordVersion, error) {
	req = trimAdd(req)
	if err := s.validateAdd(req); err != nil {
		s.metrics.RecordMutation(models.AuditActionAdd, outcome(err))
		return nil, err
	}

	var created models.RecordVersion
	err := s.store.Update(ctx, func(tx *ledger.Tx) error {
		supervisorID := ""
		if req.Role == models.RoleSupervisor {
			if len(ledger.ActiveSupervisors(req.CCUC, tx)) > 0 {
				return appErrors.Clone(appErrors.ErrConflict, "Already a supervisor for this CC/UC.")
			}
		} else {
			supervisorID = ledger.ResolveSupervisor(req.CCUC, tx)
			if supervisorID == "" {
				return appErrors.Clone(appErrors.ErrNotFound, "No supervisor found for this CC/UC.")
			}
			if !ledger.IsSupervisorActive(supervisorID, tx) {
				return appErrors.Clone(appErrors.ErrConflict, "Supervisor not active.")
			}
		}

		personID, reused := tx.PersonByNationalID(req.CNIC)
		if !reused {
			personID = ledger.NewPersonID()
		}

		created = models.RecordVersion{
			PersonID:     personID,
			RecordID:     tx.NextRecordID(),
			Area:         req.Area,
			PPSZ:         req.PPSZ,
			Zone:         req.Zone,
			CCUC:         req.CCUC,
			Role:         req.Role,
			Name:         req.Name,
			CNIC:         req.CNIC,
			Phone:        req.Phone,
			VehicleID:    req.VehicleID,
			VehicleRegNo: req.VehicleRegNo,
			SupervisorID: supervisorID,
			Status:       models.StatusActive,
			UpdatedOn:    tx.Now().Format(models.VersionTimeLayout),
			Remarks:      req.Remarks,
		}
		if err := tx.Append(created); err != nil {
			return err
		}
		tx.Audit(models.AuditEntry{
			PersonID: personID,
			RecordID: created.RecordID,
			Action:   models.AuditActionAdd,
			ByUser:   actor,
			Notes:    req.Remarks,
		})
		return nil
	})
	s.metrics.RecordMutation(models.AuditActionAdd, outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("worker added",
		zap.String("person_id", created.PersonID),
		zap.String("record_id", created.RecordID),
		zap.String("cc_uc", created.CCUC),
		zap.String("by_user", actor),
	)
	return &created, nil
}

func (s *RosterService) validateAdd(req dto.AddWorkerRequest) error {
	if err := s.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if msg, ok := addMessages[verrs[0].Field()]; ok {
				return appErrors.WrapAs(appErrors.ErrValidation, err, msg)
			}
		}
		return appErrors.WrapAs(appErrors.ErrValidation, err, "invalid payload")
	}
	if err := s.validatePlacement(req.Area, req.PPSZ, req.Zone, req.CCUC); err != nil {
		return err
	}
	if req.Role != models.RoleDriver && (req.VehicleID != "" || req.VehicleRegNo != "") {
		return appErrors.Clone(appErrors.ErrValidation, "Only Drivers can have vehicles.")
	}
	return nil
}

func (s *RosterService) validatePlacement(area, unit, zone, cell string) error {
	if !validation.ValidArea(area) {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid Area: Must be City or Sadar.")
	}
	if !validation.ValidUnitCode(unit, area) {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid PP/SZ format.")
	}
	if !validation.ValidCellCode(cell, area) {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid CC/UC format.")
	}
	if s.strictCatalog {
		if err := models.CheckPlacement(area, unit, zone, cell); err != nil {
			return appErrors.WrapAs(appErrors.ErrValidation, err, err.Error())
		}
	}
	return nil
}

// Transfer moves an active worker to a new placement and re-resolves the
// supervisor for the destination cell.
func (s *RosterService) Transfer(ctx context.Context, ref string, req dto.TransferRequest, actor string) (*models.RecordVersion, error) {
	req.Area = strings.TrimSpace(req.Area)
	req.PPSZ = strings.TrimSpace(req.PPSZ)
	req.Zone = strings.TrimSpace(req.Zone)
	req.CCUC = strings.TrimSpace(req.CCUC)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordMutation(models.AuditActionTransfer, outcome(err))
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "pp_sz and cc_uc are required")
	}

	var moved models.RecordVersion
	err := s.store.Update(ctx, func(tx *ledger.Tx) error {
		old, err := mutable(tx, ref, req.ExpectedRecordID)
		if err != nil {
			return err
		}
		area := req.Area
		if area == "" {
			area = old.Area
		}
		if err := s.validatePlacement(area, req.PPSZ, req.Zone, req.CCUC); err != nil {
			return err
		}

		supervisorID := ""
		if old.Role == models.RoleSupervisor {
			for _, sup := range ledger.ActiveSupervisors(req.CCUC, tx) {
				if sup.PersonID != old.PersonID {
					return appErrors.Clonef(appErrors.ErrConflict, "Already a supervisor for the new CC/UC (%s).", sup.RecordID)
				}
			}
		} else {
			supervisorID = ledger.ResolveSupervisor(req.CCUC, tx)
			if supervisorID == "" {
				return appErrors.Clone(appErrors.ErrNotFound, "No supervisor found for the new CC/UC.")
			}
		}

		moved = old
		moved.RecordID = tx.NextRecordID()
		moved.Area = area
		moved.PPSZ = req.PPSZ
		moved.Zone = req.Zone
		moved.CCUC = req.CCUC
		moved.SupervisorID = supervisorID
		moved.UpdatedOn = tx.Now().Format(models.VersionTimeLayout)
		moved.LastTransferOn = tx.Now().Format(models.DateLayout)
		moved.Remarks = strings.TrimSpace(fmt.Sprintf("Transferred from %s. %s", old.CCUC, req.Notes))
		if err := tx.Append(moved); err != nil {
			return err
		}

		tx.Audit(models.AuditEntry{
			PersonID: moved.PersonID,
			RecordID: moved.RecordID,
			Action:   models.AuditActionTransfer,
			Field:    "cc_uc",
			OldValue: old.CCUC,
			NewValue: moved.CCUC,
			ByUser:   actor,
			Notes:    req.Notes,
		})
		if old.PPSZ != moved.PPSZ {
			tx.Audit(models.AuditEntry{
				PersonID: moved.PersonID,
				RecordID: moved.RecordID,
				Action:   models.AuditActionTransfer,
				Field:    "pp_sz",
				OldValue: old.PPSZ,
				NewValue: moved.PPSZ,
				ByUser:   actor,
				Notes:    req.Notes,
			})
		}
		return nil
	})
	s.metrics.RecordMutation(models.AuditActionTransfer, outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("worker transferred",
		zap.String("person_id", moved.PersonID),
		zap.String("record_id", moved.RecordID),
		zap.String("cc_uc", moved.CCUC),
		zap.String("by_user", actor),
	)
	return &moved, nil
}

// Remove retires an active worker. Removal is terminal.
func (s *RosterService) Remove(ctx context.Context, ref string, req dto.RemoveRequest, actor string) (*models.RecordVersion, error) {
	var removed models.RecordVersion
	err := s.store.Update(ctx, func(tx *ledger.Tx) error {
		old, err := mutable(tx, ref, req.ExpectedRecordID)
		if err != nil {
			return err
		}

		removed = old
		removed.RecordID = tx.NextRecordID()
		removed.Status = models.StatusRemoved
		removed.StatusChangedOn = tx.Now().Format(models.DateLayout)
		removed.UpdatedOn = tx.Now().Format(models.VersionTimeLayout)
		removed.Remarks = req.Notes
		if err := tx.Append(removed); err != nil {
			return err
		}
		tx.Audit(models.AuditEntry{
			PersonID: removed.PersonID,
			RecordID: removed.RecordID,
			Action:   models.AuditActionRemove,
			Field:    "status",
			OldValue: models.StatusActive,
			NewValue: models.StatusRemoved,
			ByUser:   actor,
			Notes:    req.Notes,
		})
		return nil
	})
	s.metrics.RecordMutation(models.AuditActionRemove, outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("worker removed",
		zap.String("person_id", removed.PersonID),
		zap.String("record_id", removed.RecordID),
		zap.String("by_user", actor),
	)
	return &removed, nil
}

// Edit changes one of phone, cnic, vehicle_id or vehicle_reg_no.
func (s *RosterService) Edit(ctx context.Context, ref string, req dto.EditRequest, actor string) (*models.RecordVersion, error) {
	req.Value = strings.TrimSpace(req.Value)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordMutation(models.AuditActionEdit, outcome(err))
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "field must be one of phone, cnic, vehicle_id, vehicle_reg_no")
	}

	var edited models.RecordVersion
	err := s.store.Update(ctx, func(tx *ledger.Tx) error {
		old, err := mutable(tx, ref, req.ExpectedRecordID)
		if err != nil {
			return err
		}

		oldValue := fieldValue(old, req.Field)
		if oldValue == req.Value {
			return appErrors.ErrNoChange
		}
		switch req.Field {
		case "cnic":
			if !validation.ValidNationalID(req.Value) {
				return appErrors.Clone(appErrors.ErrValidation, "Invalid CNIC: Must be 13 digits.")
			}
			if owner, ok := tx.PersonByNationalID(req.Value); ok && owner != old.PersonID {
				return appErrors.Clonef(appErrors.ErrConflict, "CNIC already belongs to %s.", owner)
			}
		case "phone":
			if !validation.ValidPhone(req.Value) {
				return appErrors.Clone(appErrors.ErrValidation, "Invalid Phone: Must be 11 digits.")
			}
		case "vehicle_id", "vehicle_reg_no":
			if req.Value != "" && old.Role != models.RoleDriver {
				return appErrors.Clone(appErrors.ErrValidation, "Only Drivers can have vehicles.")
			}
		}

		edited = withField(old, req.Field, req.Value)
		edited.RecordID = tx.NextRecordID()
		edited.UpdatedOn = tx.Now().Format(models.VersionTimeLayout)
		edited.Remarks = strings.TrimSpace(fmt.Sprintf("Edited %s from %s to %s. %s", req.Field, oldValue, req.Value, req.Notes))
		if err := tx.Append(edited); err != nil {
			return err
		}
		tx.Audit(models.AuditEntry{
			PersonID: edited.PersonID,
			RecordID: edited.RecordID,
			Action:   models.AuditActionEdit,
			Field:    req.Field,
			OldValue: oldValue,
			NewValue: req.Value,
			ByUser:   actor,
			Notes:    req.Notes,
		})
		return nil
	})
	s.metrics.RecordMutation(models.AuditActionEdit, outcome(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("worker edited",
		zap.String("person_id", edited.PersonID),
		zap.String("record_id", edited.RecordID),
		zap.String("field", req.Field),
		zap.String("by_user", actor),
	)
	return &edited, nil
}

// lookup resolves a person reference: national ID, record id or person id.
func lookup(tx *ledger.Tx, ref string) (models.RecordVersion, error) {
	ref = strings.TrimSpace(ref)
	if validation.ValidNationalID(ref) {
		if personID, ok := tx.PersonByNationalID(ref); ok {
			ref = personID
		}
	} else if personID, ok := tx.PersonOfRecord(ref); ok {
		ref = personID
	}
	current, ok := tx.Current(ref)
	if !ok {
		return models.RecordVersion{}, appErrors.Clonef(appErrors.ErrNotFound, "worker %s not found", ref)
	}
	return current, nil
}

// mutable returns the current version when it may still change.
func mutable(tx *ledger.Tx, ref, expectedRecordID string) (models.RecordVersion, error) {
	current, err := lookup(tx, ref)
	if err != nil {
		return current, err
	}
	if !current.IsActive() {
		return current, appErrors.Clonef(appErrors.ErrConflict, "worker %s is %s", current.PersonID, current.Status)
	}
	if expectedRecordID != "" && expectedRecordID != current.RecordID {
		return current, appErrors.Clonef(appErrors.ErrConflict, "record %s is stale, current version is %s", expectedRecordID, current.RecordID)
	}
	return current, nil
}

func fieldValue(v models.RecordVersion, field string) string {
	switch field {
	case "phone":
		return v.Phone
	case "cnic":
		return v.CNIC
	case "vehicle_id":
		return v.VehicleID
	case "vehicle_reg_no":
		return v.VehicleRegNo
	}
	return ""
}

func withField(v models.RecordVersion, field, value string) models.RecordVersion {
	switch field {
	case "phone":
		v.Phone = value
	case "cnic":
		v.CNIC = value
	case "vehicle_id":
		v.VehicleID = value
	case "vehicle_reg_no":
		v.VehicleRegNo = value
	}
	return v
}

func trimAdd(req dto.AddWorkerRequest) dto.AddWorkerRequest {
	req.CNIC = strings.TrimSpace(req.CNIC)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Area = strings.TrimSpace(req.Area)
	req.PPSZ = strings.TrimSpace(req.PPSZ)
	req.Zone = strings.TrimSpace(req.Zone)
	req.CCUC = strings.TrimSpace(req.CCUC)
	req.Role = strings.TrimSpace(req.Role)
	req.Name = strings.TrimSpace(req.Name)
	req.VehicleID = strings.TrimSpace(req.VehicleID)
	req.VehicleRegNo = strings.TrimSpace(req.VehicleRegNo)
	return req
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(appErrors.FromError(err).Code)
}
