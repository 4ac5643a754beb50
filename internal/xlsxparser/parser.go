// =============================================================================
// Pedidos Manager - XLSX Export Parser
// =============================================================================
//
// This module reads order exports that were saved as an Excel workbook
// instead of CSV. The sheet is expected to look like the CSV export:
//
//   | Name  | Created at                | Shipping Name | ... | Notes |
//   |-------|---------------------------|---------------|-----|-------|
//   | #1001 | 2024-03-05 14:22:10 -0300 | Ana Pérez     | ... |       |
//
// Cell values are read as displayed text. Empty rows are skipped.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/pedidosmanager/pedidos/internal/types"
	"github.com/xuri/excelize/v2"
)

// Options selects where the export lives inside the workbook.
type Options struct {
	// Sheet is the sheet to read. Empty means the first sheet.
	Sheet string

	// HeaderRow is the 1-based row holding the headers.
	// Default: 1
	HeaderRow int
}

// Parse reads the first sheet of an XLSX export.
func Parse(path string) (*types.SourceTable, error) {
	return ParseWithOptions(path, Options{})
}

// ParseWithOptions reads an XLSX export using the given options.
//
// PARAMETERS:
//   - path: The path to the workbook.
//   - opts: Sheet and header row selection.
//
// RETURNS:
//   - The parsed table, tagged with path as its source.
//   - An error if the file cannot be opened or the sheet is missing.
func ParseWithOptions(path string, opts Options) (*types.SourceTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	table, err := parseFile(f, opts)
	if err != nil {
		return nil, err
	}
	table.SourceFile = path
	return table, nil
}

func parseFile(f *excelize.File, opts Options) (*types.SourceTable, error) {
	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	headerRow := opts.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}

	headers := cleanHeaders(rows[headerRow-1])
	table := &types.SourceTable{Headers: headers}

	for i := headerRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				fields[header] = row[col]
			} else {
				fields[header] = ""
			}
		}

		table.Records = append(table.Records, types.SourceRecord{
			Fields:    fields,
			RowNumber: i + 1,
		})
	}

	return table, nil
}

// cleanHeaders trims headers and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
