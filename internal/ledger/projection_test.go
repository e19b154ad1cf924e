package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-ledger-api/internal/models"
)

func version(person, record, cell, role, status, updated string) models.RecordVersion {
	return models.RecordVersion{
		PersonID:  person,
		RecordID:  record,
		Area:      models.AreaCity,
		PPSZ:      "PP-110",
		CCUC:      cell,
		Role:      role,
		CNIC:      "35202" + person[1:],
		Status:    status,
		UpdatedOn: updated,
	}
}

func TestProjectCurrentPicksLatestUpdatedOn(t *testing.T) {
	versions := []models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00"),
		version("P00000002", "W0002", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00"),
		version("P00000001", "W0003", "CC-002", models.RoleDriver, models.StatusActive, "2024-01-01 09:00:00"),
		version("P00000002", "W0004", "CC-003", models.RoleDriver, models.StatusActive, "2024-01-03 08:00:00"),
	}

	p := ProjectCurrent(versions)
	require.Equal(t, 2, p.Len())

	one, ok := p.Current("P00000001")
	require.True(t, ok)
	require.Equal(t, "W0001", one.RecordID, "older timestamp appended later must not win")

	two, _ := p.Current("P00000002")
	require.Equal(t, "W0004", two.RecordID)

	for i, v := range versions {
		want := v.RecordID == "W0001" || v.RecordID == "W0004"
		require.Equal(t, want, p.IsCurrentAt(v.PersonID, i), v.RecordID)
	}
}

func TestProjectCurrentTieGoesToLaterPosition(t *testing.T) {
	versions := []models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00"),
		version("P00000001", "W0002", "CC-001", models.RoleDriver, models.StatusRemoved, "2024-01-02 10:00:00"),
	}
	cur, _ := ProjectCurrent(versions).Current("P00000001")
	require.Equal(t, "W0002", cur.RecordID)
}

func TestProjectCurrentUnparseableTimestampLoses(t *testing.T) {
	versions := []models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00"),
		version("P00000001", "W0002", "CC-001", models.RoleDriver, models.StatusActive, "not a date"),
	}
	cur, _ := ProjectCurrent(versions).Current("P00000001")
	require.Equal(t, "W0001", cur.RecordID)
}

func TestProjectionNationalIDIndexFollowsCurrent(t *testing.T) {
	first := version("P00000001", "W0001", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00")
	edited := first
	edited.RecordID = "W0002"
	edited.CNIC = "9999999999999"
	edited.UpdatedOn = "2024-01-03 10:00:00"

	p := ProjectCurrent([]models.RecordVersion{first, edited})

	_, ok := p.PersonByNationalID(first.CNIC)
	require.False(t, ok)
	id, ok := p.PersonByNationalID("9999999999999")
	require.True(t, ok)
	require.Equal(t, "P00000001", id)

	owner, ok := p.PersonOfRecord("W0001")
	require.True(t, ok)
	require.Equal(t, "P00000001", owner)
}

func TestProjectionCloneIsIndependent(t *testing.T) {
	p := ProjectCurrent([]models.RecordVersion{
		version("P00000001", "W0001", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00"),
	})
	c := p.Clone()
	c.Apply(version("P00000002", "W0002", "CC-001", models.RoleDriver, models.StatusActive, "2024-01-02 10:00:00"), 1)

	require.Equal(t, 1, p.Len())
	require.Equal(t, 2, c.Len())
	require.False(t, p.Equal(c))
}
