package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-ledger-api/internal/models"
)

func TestResolveSupervisor(t *testing.T) {
	p := ProjectCurrent([]models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleSupervisor, models.StatusActive, "2024-01-01 10:00:00"),
		version("P00000002", "W0002", "CC-002", models.RoleSupervisor, models.StatusActive, "2024-01-01 10:00:00"),
		version("P00000003", "W0003", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-01 10:00:00"),
		version("P00000004", "W0004", "CC-003", models.RoleSupervisor, models.StatusRemoved, "2024-01-01 10:00:00"),
	})

	require.Equal(t, "W0001", ResolveSupervisor("CC-001", p))
	require.Equal(t, "W0002", ResolveSupervisor("CC-002", p))
	require.Equal(t, "", ResolveSupervisor("CC-003", p))
	require.Equal(t, "", ResolveSupervisor("CC-404", p))
}

func TestResolveSupervisorPrefersLatest(t *testing.T) {
	p := ProjectCurrent([]models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleSupervisor, models.StatusActive, "2024-01-01 10:00:00"),
		version("P00000002", "W0002", "CC-001", models.RoleSupervisor, models.StatusActive, "2024-02-01 10:00:00"),
		version("P00000003", "W0003", "CC-001", models.RoleSupervisor, models.StatusActive, "2024-01-15 10:00:00"),
	})
	require.Equal(t, "W0002", ResolveSupervisor("CC-001", p))
	require.Len(t, ActiveSupervisors("CC-001", p), 3)
}

func TestIsSupervisorActive(t *testing.T) {
	moved := version("P00000001", "W0005", "CC-009", models.RoleSupervisor, models.StatusActive, "2024-03-01 10:00:00")
	p := ProjectCurrent([]models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleSupervisor, models.StatusActive, "2024-01-01 10:00:00"),
		version("P00000002", "W0002", "CC-002", models.RoleSupervisor, models.StatusActive, "2024-01-01 10:00:00"),
		version("P00000002", "W0003", "CC-002", models.RoleSupervisor, models.StatusRemoved, "2024-02-01 10:00:00"),
		version("P00000004", "W0004", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-01 10:00:00"),
		moved,
	})

	require.True(t, IsSupervisorActive("", p), "empty reference is vacuously valid")
	require.True(t, IsSupervisorActive("W0001", p), "stale reference to a still active supervisor")
	require.False(t, IsSupervisorActive("W0002", p), "supervisor has since been removed")
	require.False(t, IsSupervisorActive("W0004", p), "not a supervisor")
	require.False(t, IsSupervisorActive("W9999", p), "unknown record id")
}
