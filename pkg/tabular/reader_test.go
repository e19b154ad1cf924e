package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVFillsShortRowsAndSkipsRepeatedHeaders(t *testing.T) {
	src := "person_id,name,cnic\nP1,Ali,3520212345671\nperson_id,name,cnic\nP2,Bilal\n\n"
	table, err := Reader{}.Read("roster.csv", strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []string{"person_id", "name", "cnic"}, table.Headers)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "", table.Rows[1]["cnic"])

	table.Ensure([]string{"person_id", "phone"})
	require.Equal(t, []string{"person_id", "name", "cnic", "phone"}, table.Headers)
	require.Contains(t, table.Rows[0], "phone")
}

func TestReadCSVVerbatimKeepsPadding(t *testing.T) {
	src := "name,notes\n Ali ,  left job  \n"

	trimmed, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "left job", trimmed.Rows[0]["notes"])

	verbatim, err := ReadCSVVerbatim(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, " Ali ", verbatim.Rows[0]["name"])
	require.Equal(t, "  left job  ", verbatim.Rows[0]["notes"])
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "cnic"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Ali", "3520212345671"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := Reader{}.Read("upload.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	require.Equal(t, "3520212345671", table.Rows[0]["cnic"])
}

func TestReadRejectsUnsupportedTypes(t *testing.T) {
	_, err := Reader{}.Read("roster.json", strings.NewReader(`{"a":1}`))
	require.ErrorIs(t, err, ErrUnsupportedType)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err = Reader{}.Read("roster.csv", bytes.NewReader(png))
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Reader{}.Read("roster.xlsx", strings.NewReader("name,cnic\n"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestReadEnforcesLimit(t *testing.T) {
	_, err := Reader{MaxBytes: 8}.Read("roster.csv", strings.NewReader("name,cnic\nAli,1\n"))
	require.ErrorIs(t, err, ErrTooLarge)
}
