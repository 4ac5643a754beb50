// =============================================================================
// Pedidos Manager - CSV Parser Module
// =============================================================================
//
// This module parses the order export CSV downloaded from the shop admin.
// It handles:
//   - Different delimiters (comma, semicolon, tab, pipe)
//   - Multi-line headers
//   - Custom data start rows
//   - UTF-8 (with or without BOM), ISO-8859-1 and Windows-1252 input
//   - Quoted fields spanning several lines (order notes often do)
//
// Cell values are kept exactly as exported. Classification depends on exact
// text comparisons, so any clean-up belongs to the normalization rules.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pedidosmanager/pedidos/internal/config"
	"github.com/pedidosmanager/pedidos/internal/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned for a file without a single row.
var ErrEmptyFile = errors.New("CSV file is empty")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV export and returns its records.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The parsed table, tagged with filePath as its source.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.SourceTable, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader parses CSV content from r.
//
// PARSING PROCESS:
//   1. Decode the input with the configured encoding
//   2. Configure the CSV reader with the configured delimiter
//   3. Read and merge header rows (for multi-line headers)
//   4. Read data rows starting from the configured data start row
//   5. Convert each row to a map of header -> value
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.SourceTable, error) {
	decoder, err := Decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(r), decoder))
	configureReader(csvReader, settings)

	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	// Read header rows.
	headerRows := make([][]string, 0, settings.HeaderRows)
	for len(headerRows) < settings.HeaderRows {
		row, err := csvReader.Read()
		if err == io.EOF {
			if len(headerRows) == 0 {
				return nil, ErrEmptyFile
			}
			return nil, fmt.Errorf("unexpected end of file while reading headers")
		}
		if err != nil {
			return nil, fmt.Errorf("error reading header row %d: %w", len(headerRows)+1, err)
		}
		headerRows = append(headerRows, row)
	}

	headers := mergeHeaders(headerRows)
	table := &types.SourceTable{Headers: headers}

	// Read data rows.
	dataStart := settings.DataStartRow
	if dataStart <= settings.HeaderRows {
		dataStart = settings.HeaderRows + 1
	}

	for record := settings.HeaderRows + 1; ; record++ {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := csvReader.FieldPos(0)
		if record < dataStart || isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				fields[header] = row[i]
			} else {
				fields[header] = ""
			}
		}

		table.Records = append(table.Records, types.SourceRecord{
			Fields:    fields,
			RowNumber: line,
		})
	}

	return table, nil
}

// Decoder returns the decoder for a configured encoding name.
// UTF-8 input may start with a byte order mark, which is dropped.
func Decoder(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		enc = unicode.UTF8BOM
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "ISO-8859-15", "LATIN9":
		enc = charmap.ISO8859_15
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
	return enc.NewDecoder(), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Rows may be ragged; missing trailing cells read as empty.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// mergeHeaders merges multi-line headers into one header per column.
//
// Example:
//   Row 1: "Shipping", "", "Lineitem"
//   Row 2: "Name", "Total", "sku"
//   Result: "Shipping Name", "Total", "Lineitem sku"
func mergeHeaders(rows [][]string) []string {
	if len(rows) == 1 {
		return cleanHeaders(rows[0])
	}

	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range rows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers)
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
