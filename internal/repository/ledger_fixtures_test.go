package repository

import (
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/models"
)

func fixtureBatch() ledger.Batch {
	return ledger.Batch{
		Versions: []models.RecordVersion{
			{
				PersonID: "P0A1B2C3D", RecordID: "W0001", Area: models.AreaCity, PPSZ: "PP-110", Zone: "Zone-1",
				CCUC: "CC-01", Role: models.RoleSupervisor, Name: "Ali Raza", CNIC: "3520212345671",
				Phone: "03001234567", Status: models.StatusActive, UpdatedOn: "2026-01-02 09:00:00",
				Remarks: "Transferred from CC-02, on request",
			},
			{
				PersonID: "P11112222", RecordID: "W0002", Area: models.AreaCity, PPSZ: "PP-110", Zone: "Zone-1",
				CCUC: "CC-01", Role: models.RoleDriver, Name: "Sana", CNIC: "3520212345672", Phone: "03001234568",
				VehicleID: "V-9", VehicleRegNo: "LEB-1234", SupervisorID: "W0001", Status: models.StatusActive,
				UpdatedOn: "2026-01-02 09:05:00",
			},
		},
		Audit: []models.AuditEntry{
			{LogID: "H0001", PersonID: "P0A1B2C3D", RecordID: "W0001", Action: models.AuditActionAdd, ByUser: "admin", Timestamp: "2026-01-02T09:00:00.000000Z"},
			{LogID: "H0002", PersonID: "P11112222", RecordID: "W0002", Action: models.AuditActionAdd, ByUser: "admin", Timestamp: "2026-01-02T09:05:00.000000Z"},
		},
	}
}
