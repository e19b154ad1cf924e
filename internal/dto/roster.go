package dto

// AddWorkerRequest registers a worker. Field order matters: the first failing
// field decides the reported message.
type AddWorkerRequest struct {
	CNIC         string `json:"cnic" validate:"cnic"`
	Phone        string `json:"phone" validate:"phone"`
	Area         string `json:"area" validate:"area"`
	PPSZ         string `json:"pp_sz"`
	Zone         string `json:"zone"`
	CCUC         string `json:"cc_uc"`
	Role         string `json:"role" validate:"role"`
	Name         string `json:"name"`
	VehicleID    string `json:"vehicle_id"`
	VehicleRegNo string `json:"vehicle_reg_no"`
	Remarks      string `json:"remarks"`
}

// TransferRequest moves a worker to a new placement. An empty Area keeps the
// current one.
type TransferRequest struct {
	ExpectedRecordID string `json:"expected_record_id"`
	Area             string `json:"area"`
	PPSZ             string `json:"pp_sz" validate:"required"`
	Zone             string `json:"zone"`
	CCUC             string `json:"cc_uc" validate:"required"`
	Notes            string `json:"notes"`
}

// RemoveRequest retires a worker.
type RemoveRequest struct {
	ExpectedRecordID string `json:"expected_record_id"`
	Notes            string `json:"notes"`
}

// EditRequest changes one identifying field.
type EditRequest struct {
	ExpectedRecordID string `json:"expected_record_id"`
	Field            string `json:"field" validate:"required,oneof=phone cnic vehicle_id vehicle_reg_no"`
	Value            string `json:"value"`
	Notes            string `json:"notes"`
}

// ImportResult reports a bulk upload.
type ImportResult struct {
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	RecordIDs []string `json:"record_ids"`
	Warnings  []string `json:"warnings"`
}

// WipeRequest confirms a full purge.
type WipeRequest struct {
	Code  string `json:"code" validate:"required"`
	Notes string `json:"notes"`
}

// RosterQuery mirrors the dashboard filters.
type RosterQuery struct {
	Area        string `form:"area"`
	PPSZ        string `form:"pp_sz"`
	Zone        string `form:"zone"`
	CCUC        string `form:"cc_uc"`
	Search      string `form:"search"`
	Status      string `form:"status"`
	AllVersions bool   `form:"all_versions"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// AuditQuery mirrors the audit listing filters.
type AuditQuery struct {
	PersonID string `form:"person_id"`
	RecordID string `form:"record_id"`
	Action   string `form:"action"`
	ByUser   string `form:"by_user"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ExportQuery selects what to download.
type ExportQuery struct {
	Table  string `form:"table"`
	Format string `form:"format"`
	Scope  string `form:"scope"`
	RosterQuery
}
