// =============================================================================
// Pedidos Manager - Workbook Writer
// =============================================================================
//
// This module writes the projections into a single multi-sheet workbook,
// one sheet per table, in the order given:
//
//   Archivo_Completo_05-03-2024.xlsx
//     ├── Argentina   (generic projection)
//     └── Andreani    (carrier projection)
//
// FORMATTING:
//   - Every populated cell (headers and data) gets a thin solid border
//   - Header and data text is bold, as the shipping team expects
//   - The header row is frozen
//   - Column widths follow the longest value, within limits
//
// Every cell is written as text so ids, zip codes and phone numbers keep
// their leading characters.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pedidosmanager/pedidos/internal/projection"
	"github.com/xuri/excelize/v2"
)

const (
	minColumnWidth = 8
	maxColumnWidth = 60
)

// Options controls the workbook formatting.
type Options struct {
	// Bold applies bold text to the populated range.
	// Default: true
	Bold bool

	// Borders draws thin borders around every populated cell.
	// Default: true
	Borders bool

	// FreezeHeader keeps the header row visible while scrolling.
	// Default: true
	FreezeHeader bool
}

// DefaultOptions returns the formatting used for the daily workbook.
func DefaultOptions() Options {
	return Options{
		Bold:         true,
		Borders:      true,
		FreezeHeader: true,
	}
}

// Writer builds workbooks from projection tables.
type Writer struct {
	options Options
}

// NewWriter creates a Writer with the given options.
func NewWriter(options Options) *Writer {
	return &Writer{options: options}
}

// WriteFile writes the tables to a workbook at path.
func (w *Writer) WriteFile(path string, tables ...projection.Table) error {
	f, err := w.build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// WriteTo writes the workbook to out.
func (w *Writer) WriteTo(out io.Writer, tables ...projection.Table) error {
	f, err := w.build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *Writer) build(tables []projection.Table) (*excelize.File, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to write")
	}

	f := excelize.NewFile()

	styleID, err := w.rangeStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, table := range tables {
		if err := w.addSheet(f, i, table, styleID); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", table.Name, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// addSheet writes one table. The first table reuses the default sheet.
func (w *Writer) addSheet(f *excelize.File, index int, table projection.Table, styleID int) error {
	if table.Name == "" {
		return fmt.Errorf("table has no name")
	}

	if index == 0 {
		if err := f.SetSheetName(f.GetSheetName(0), table.Name); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(table.Name); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(table.Name)
	if err != nil {
		return err
	}

	widths := make([]int, len(table.Headers))
	for col, h := range table.Headers {
		widths[col] = utf8.RuneCountInString(h)
	}
	for _, row := range table.Rows {
		for col, v := range row {
			if col < len(widths) {
				widths[col] = max(widths[col], utf8.RuneCountInString(v))
			}
		}
	}
	for col, width := range widths {
		width = min(max(width+2, minColumnWidth), maxColumnWidth)
		if err := sw.SetColWidth(col+1, col+1, float64(width)); err != nil {
			return err
		}
	}

	if w.options.FreezeHeader {
		if err := sw.SetPanes(&excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	if err := sw.SetRow("A1", cells(table.Headers, styleID)); err != nil {
		return err
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(row, styleID)); err != nil {
			return err
		}
	}

	return sw.Flush()
}

// rangeStyle registers the style applied to the populated range.
// It returns 0 (the default style) when no formatting is enabled.
func (w *Writer) rangeStyle(f *excelize.File) (int, error) {
	if !w.options.Bold && !w.options.Borders {
		return 0, nil
	}

	style := &excelize.Style{}
	if w.options.Bold {
		style.Font = &excelize.Font{Bold: true}
	}
	if w.options.Borders {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	id, err := f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}
	return id, nil
}

func cells(values []string, styleID int) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = excelize.Cell{StyleID: styleID, Value: v}
	}
	return row
}
