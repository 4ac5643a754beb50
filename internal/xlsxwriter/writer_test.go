package xlsxwriter

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/pedidosmanager/pedidos/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTables() []projection.Table {
	return []projection.Table{
		{
			Name:    projection.GenericSheet,
			Headers: []string{"Name", "Shipping Zip", "Shipping Phone"},
			Rows: [][]string{
				{"#1001", "'1425", "01155554444"},
				{"#1002", "C1405", ""},
			},
		},
		{
			Name:    projection.CarrierSheet,
			Headers: []string{"Name", "Peso"},
			Rows:    [][]string{{"#1001", "100"}},
		},
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Archivo_Completo_05-03-2024.xlsx")

	require.NoError(t, NewWriter(DefaultOptions()).WriteFile(path, sampleTables()...))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Argentina", "Andreani"}, f.GetSheetList())

	rows, err := f.GetRows("Argentina")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Shipping Zip", "Shipping Phone"},
		{"#1001", "'1425", "01155554444"},
		{"#1002", "C1405"},
	}, rows)

	// Numeric-looking text stays text.
	cellType, err := f.GetCellType("Argentina", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, cellType)

	rows, err = f.GetRows("Andreani")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Peso"}, {"#1001", "100"}}, rows)
}

func TestWriteFileStyles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styled.xlsx")
	require.NoError(t, NewWriter(DefaultOptions()).WriteFile(path, sampleTables()...))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, cell := range []string{"A1", "C1", "B3"} {
		id, err := f.GetCellStyle("Argentina", cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)

		require.NotNil(t, style.Font, cell)
		assert.True(t, style.Font.Bold, cell)
		assert.Len(t, style.Border, 4, cell)
	}

	panes, err := f.GetPanes("Argentina")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestWriteFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.xlsx")
	require.NoError(t, NewWriter(Options{}).WriteFile(path, sampleTables()...))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	id, err := f.GetCellStyle("Argentina", "A1")
	require.NoError(t, err)
	assert.Equal(t, 0, id)
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(DefaultOptions()).WriteTo(&buf, sampleTables()...))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Argentina", "Andreani"}, f.GetSheetList())
}

func TestWriteEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	table := projection.Generic(nil)

	require.NoError(t, NewWriter(DefaultOptions()).WriteFile(path, table))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(projection.GenericSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, projection.GenericHeaders, rows[0])
}

func TestWriteErrors(t *testing.T) {
	w := NewWriter(DefaultOptions())

	assert.Error(t, w.WriteFile(filepath.Join(t.TempDir(), "none.xlsx")))
	assert.Error(t, w.WriteFile(filepath.Join(t.TempDir(), "unnamed.xlsx"), projection.Table{}))
}
