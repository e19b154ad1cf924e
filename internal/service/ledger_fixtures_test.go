package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-ledger-api/internal/dto"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/ledger/ledgertest"
	"github.com/noah-isme/roster-ledger-api/internal/models"
)

var testNow = time.Date(2024, 6, 3, 10, 15, 0, 0, time.UTC)

const (
	supervisorPerson = "P0000000A"
	supervisorRecord = "W0001"
)

// seededLedger holds one active supervisor of City / PP-110 / CC-001.
func seededLedger() ledger.Batch {
	return ledger.Batch{
		Versions: []models.RecordVersion{{
			PersonID:  supervisorPerson,
			RecordID:  supervisorRecord,
			Area:      models.AreaCity,
			PPSZ:      "PP-110",
			Zone:      "Zone-07",
			CCUC:      "CC-001",
			Role:      models.RoleSupervisor,
			Name:      "Imran Ali",
			CNIC:      "3520211111111",
			Phone:     "03000000001",
			Status:    models.StatusActive,
			UpdatedOn: "2024-01-01 08:00:00",
		}},
		Audit: []models.AuditEntry{{
			LogID:    "H0001",
			PersonID: supervisorPerson,
			RecordID: supervisorRecord,
			Action:   models.AuditActionAdd,
			ByUser:   "admin",
		}},
	}
}

func openTestLedger(t *testing.T, seed ledger.Batch, opts ...ledger.Option) (*ledger.Store, *ledgertest.Memory) {
	t.Helper()
	mem := ledgertest.NewMemory(seed)
	opts = append([]ledger.Option{ledger.WithClock(func() time.Time { return testNow })}, opts...)
	store, err := ledger.Open(context.Background(), mem, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mem
}

func driverRequest() dto.AddWorkerRequest {
	return dto.AddWorkerRequest{
		CNIC:  "3520212345671",
		Phone: "03001234567",
		Area:  models.AreaCity,
		PPSZ:  "PP-110",
		Zone:  "Zone-07",
		CCUC:  "CC-001",
		Role:  models.RoleDriver,
	}
}

type mutationLog struct {
	calls []string
}

func (m *mutationLog) RecordMutation(action, outcome string) {
	m.calls = append(m.calls, action+":"+outcome)
}
