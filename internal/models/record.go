package models

// Record status values.
const (
	StatusActive  = "active"
	StatusRemoved = "removed"
)

// Areas.
const (
	AreaCity  = "City"
	AreaSadar = "Sadar"
)

// Roles a worker may hold.
const (
	RoleSanitaryWorker   = "Sanitary Worker"
	RoleHelper           = "Helper"
	RoleZonalOfficer     = "Zonal Officer"
	RoleSupervisor       = "Supervisor"
	RoleDriver           = "Driver"
	RoleCleaner          = "Cleaner"
	RoleDataEntry        = "Data Entry Operator"
	RoleAssistantManager = "Assistant Manager"
)

// Roles lists every worker role in display order.
var Roles = []string{
	RoleSanitaryWorker,
	RoleHelper,
	RoleZonalOfficer,
	RoleSupervisor,
	RoleDriver,
	RoleCleaner,
	RoleDataEntry,
	RoleAssistantManager,
}

// Timestamp layouts used by the ledger tables.
const (
	VersionTimeLayout = "2006-01-02 15:04:05"
	DateLayout        = "2006-01-02"
	AuditTimeLayout   = "2006-01-02T15:04:05.000000Z"
)

// RecordHeaders is the column order of the records table.
var RecordHeaders = []string{
	"person_id", "record_id", "area", "pp_sz", "zone", "cc_uc", "role", "name",
	"cnic", "phone", "vehicle_id", "vehicle_reg_no", "supervisor_id", "status",
	"updated_on", "status_changed_on", "last_transfer_on", "remarks",
}

// RecordVersion is one immutable snapshot of a worker.
type RecordVersion struct {
	PersonID        string `db:"person_id" json:"person_id"`
	RecordID        string `db:"record_id" json:"record_id"`
	Area            string `db:"area" json:"area"`
	PPSZ            string `db:"pp_sz" json:"pp_sz"`
	Zone            string `db:"zone" json:"zone"`
	CCUC            string `db:"cc_uc" json:"cc_uc"`
	Role            string `db:"role" json:"role"`
	Name            string `db:"name" json:"name"`
	CNIC            string `db:"cnic" json:"cnic"`
	Phone           string `db:"phone" json:"phone"`
	VehicleID       string `db:"vehicle_id" json:"vehicle_id"`
	VehicleRegNo    string `db:"vehicle_reg_no" json:"vehicle_reg_no"`
	SupervisorID    string `db:"supervisor_id" json:"supervisor_id"`
	Status          string `db:"status" json:"status"`
	UpdatedOn       string `db:"updated_on" json:"updated_on"`
	StatusChangedOn string `db:"status_changed_on" json:"status_changed_on"`
	LastTransferOn  string `db:"last_transfer_on" json:"last_transfer_on"`
	Remarks         string `db:"remarks" json:"remarks"`
}

// IsActive reports whether the version carries the active status.
func (r RecordVersion) IsActive() bool {
	return r.Status == StatusActive
}

// IsActiveSupervisor reports whether the version is an active supervisor.
func (r RecordVersion) IsActiveSupervisor() bool {
	return r.Role == RoleSupervisor && r.Status == StatusActive
}

// HasVehicle reports whether any vehicle field is populated.
func (r RecordVersion) HasVehicle() bool {
	return r.VehicleID != "" || r.VehicleRegNo != ""
}

// Row renders the version keyed by column name.
func (r RecordVersion) Row() map[string]string {
	return map[string]string{
		"person_id":         r.PersonID,
		"record_id":         r.RecordID,
		"area":              r.Area,
		"pp_sz":             r.PPSZ,
		"zone":              r.Zone,
		"cc_uc":             r.CCUC,
		"role":              r.Role,
		"name":              r.Name,
		"cnic":              r.CNIC,
		"phone":             r.Phone,
		"vehicle_id":        r.VehicleID,
		"vehicle_reg_no":    r.VehicleRegNo,
		"supervisor_id":     r.SupervisorID,
		"status":            r.Status,
		"updated_on":        r.UpdatedOn,
		"status_changed_on": r.StatusChangedOn,
		"last_transfer_on":  r.LastTransferOn,
		"remarks":           r.Remarks,
	}
}

// RecordFromRow builds a version from a column keyed row. Missing columns
// are left empty.
func RecordFromRow(row map[string]string) RecordVersion {
	return RecordVersion{
		PersonID:        row["person_id"],
		RecordID:        row["record_id"],
		Area:            row["area"],
		PPSZ:            row["pp_sz"],
		Zone:            row["zone"],
		CCUC:            row["cc_uc"],
		Role:            row["role"],
		Name:            row["name"],
		CNIC:            row["cnic"],
		Phone:           row["phone"],
		VehicleID:       row["vehicle_id"],
		VehicleRegNo:    row["vehicle_reg_no"],
		SupervisorID:    row["supervisor_id"],
		Status:          row["status"],
		UpdatedOn:       row["updated_on"],
		StatusChangedOn: row["status_changed_on"],
		LastTransferOn:  row["last_transfer_on"],
		Remarks:         row["remarks"],
	}
}

// PersonView is a person's current version alongside its full history.
type PersonView struct {
	Current RecordVersion   `json:"current"`
	History []RecordVersion `json:"history"`
}
