package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPlacement(t *testing.T) {
	require.NoError(t, CheckPlacement(AreaCity, "PP-110", "Zone-01", "CC-136"))
	require.NoError(t, CheckPlacement(AreaCity, "PP-111", "", "cc-003"))
	require.NoError(t, CheckPlacement(AreaSadar, "SZ-04", "anything", "UC-150"))

	require.Error(t, CheckPlacement(AreaCity, "PP-999", "", "CC-136"))
	require.Error(t, CheckPlacement(AreaCity, "PP-110", "Zone-02", "CC-136"))
	require.Error(t, CheckPlacement(AreaSadar, "SZ-12", "", "UC-150"))
	require.Error(t, CheckPlacement(AreaSadar, "SZ-01", "", "UC-190"))
	require.Error(t, CheckPlacement("Lahore", "PP-110", "", "CC-136"))
}

func TestRecordRowRoundTripKeepsEveryColumn(t *testing.T) {
	rec := RecordVersion{PersonID: "PABCDEF12", RecordID: "W0001", Role: RoleDriver, VehicleID: "V1"}
	row := rec.Row()
	require.Len(t, row, len(RecordHeaders))
	for _, h := range RecordHeaders {
		_, ok := row[h]
		require.True(t, ok, h)
	}
	require.Equal(t, rec, RecordFromRow(row))
	require.True(t, rec.HasVehicle())
}
