// =============================================================================
// Pedidos Manager - Projection Builder
// =============================================================================
//
// This module turns the classified, consolidated order table into the two
// output layouts handed to the workbook writer:
//
//   Generic ("Argentina"): domestic shipping view, 16 columns
//     Created at | Name | Shipping Name | Lineitem quantity | Lineitem name |
//     Total | Shipping Province Name | Shipping Street | Shipping Zip |
//     Status | NC2 | NC3 | NC4 | Shipping Phone | Email | Lineitem sku
//
//   Carrier ("Andreani"): logistics provider view, 19 columns
//     Name | Peso | Alto | Ancho | Profun | Val decl | Status | Shipping Name |
//     NC | Shipping Company | Email | CodNum | Shipping Phone | Shipping Street |
//     Shipping Address2 | Shipping City | Shipping Zip | Shipping Province Name |
//     Notes
//
// Both layouts are null-normalized: literal "nan" cells become empty, and
// the carrier layout also clears stray "n" cells.
//
// =============================================================================

package projection

import (
	"strings"
	"time"

	"github.com/pedidosmanager/pedidos/internal/types"
)

// =============================================================================
// TABLE
// =============================================================================

// Table is one output sheet: a header row plus data rows of equal width.
type Table struct {
	// Name is the sheet name.
	Name string

	// Headers contains the column headers in output order.
	Headers []string

	// Rows contains the data rows; each row has len(Headers) cells.
	Rows [][]string
}

// Column returns the values of a column by header, or nil if the header is
// not part of the table.
func (t *Table) Column(header string) []string {
	idx := -1
	for i, h := range t.Headers {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// =============================================================================
// COLUMN LAYOUTS
// =============================================================================

// Sheet names.
const (
	GenericSheet = "Argentina"
	CarrierSheet = "Andreani"
)

// Synthesized column headers.
const (
	ColStatus        = "Status"
	ColReserved2     = "NC2"
	ColReserved3     = "NC3"
	ColReserved4     = "NC4"
	ColWeight        = "Peso"
	ColHeight        = "Alto"
	ColWidth         = "Ancho"
	ColDepth         = "Profun"
	ColDeclaredValue = "Val decl"
	ColMarker        = "NC"
	ColCountryCode   = "CodNum"
)

// GenericHeaders is the column layout of the generic projection.
var GenericHeaders = []string{
	types.ColCreatedAt,
	types.ColName,
	types.ColShippingName,
	types.ColItemQuantity,
	types.ColItemName,
	types.ColTotal,
	types.ColProvince,
	types.ColStreet,
	types.ColZip,
	ColStatus,
	ColReserved2,
	ColReserved3,
	ColReserved4,
	types.ColPhone,
	types.ColEmail,
	types.ColSKU,
}

// CarrierHeaders is the column layout of the carrier projection.
var CarrierHeaders = []string{
	types.ColName,
	ColWeight,
	ColHeight,
	ColWidth,
	ColDepth,
	ColDeclaredValue,
	ColStatus,
	types.ColShippingName,
	ColMarker,
	types.ColShippingCompany,
	types.ColEmail,
	ColCountryCode,
	types.ColPhone,
	types.ColStreet,
	types.ColAddress2,
	types.ColCity,
	types.ColZip,
	types.ColProvince,
	types.ColNotes,
}

// =============================================================================
// CARRIER CONSTANTS
// =============================================================================

// CarrierConstants are the fixed package and shipping values written on
// every carrier row.
type CarrierConstants struct {
	Weight        string `yaml:"weight"`
	Height        string `yaml:"height"`
	Width         string `yaml:"width"`
	Depth         string `yaml:"depth"`
	DeclaredValue string `yaml:"declared_value"`
	Marker        string `yaml:"marker"`
	CountryCode   string `yaml:"country_code"`
}

// DefaultCarrierConstants returns the values the carrier expects.
func DefaultCarrierConstants() CarrierConstants {
	return CarrierConstants{
		Weight:        "100",
		Height:        "10",
		Width:         "15",
		Depth:         "10",
		DeclaredValue: "4500",
		Marker:        ".",
		CountryCode:   "54",
	}
}

// =============================================================================
// BUILDERS
// =============================================================================

// Generic builds the generic projection. The reserved columns are left
// empty and Created at is shown as DD/MM/YYYY (empty when unparsable).
func Generic(lines []types.OrderLine) Table {
	table := Table{
		Name:    GenericSheet,
		Headers: GenericHeaders,
		Rows:    make([][]string, 0, len(lines)),
	}

	for i := range lines {
		l := &lines[i]
		row := []string{
			FormatDisplayDate(l.CreatedAt),
			l.OrderID,
			l.ShippingName,
			l.ItemQuantity,
			l.ItemName,
			l.Total,
			l.Province,
			l.Street,
			l.PostalCode,
			l.Status.String(),
			"",
			"",
			"",
			CleanPhone(l.Phone),
			l.Email,
			l.SKU,
		}
		table.Rows = append(table.Rows, clearCells(row, "nan"))
	}

	return table
}

// Carrier builds the carrier projection using the given constants.
// Shipping Company carries the id exactly as exported.
func Carrier(lines []types.OrderLine, constants CarrierConstants) Table {
	table := Table{
		Name:    CarrierSheet,
		Headers: CarrierHeaders,
		Rows:    make([][]string, 0, len(lines)),
	}

	for i := range lines {
		l := &lines[i]
		row := []string{
			l.OrderID,
			constants.Weight,
			constants.Height,
			constants.Width,
			constants.Depth,
			constants.DeclaredValue,
			l.Status.String(),
			l.ShippingName,
			constants.Marker,
			l.NationalID,
			l.Email,
			constants.CountryCode,
			CleanPhone(l.Phone),
			l.Street,
			l.Address2,
			l.City,
			l.PostalCode,
			l.Province,
			l.Notes,
		}
		table.Rows = append(table.Rows, clearCells(row, "nan", "n"))
	}

	return table
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// CleanPhone strips the trailing ".0" left on phone numbers that were
// stored as floating point values.
func CleanPhone(phone string) string {
	return strings.TrimSuffix(phone, ".0")
}

// clearCells replaces cells equal to any of the artifacts with "".
func clearCells(row []string, artifacts ...string) []string {
	for i, cell := range row {
		for _, artifact := range artifacts {
			if cell == artifact {
				row[i] = ""
				break
			}
		}
	}
	return row
}

// =============================================================================
// DATES
// =============================================================================

// dateLayouts are tried in order when parsing Created at values.
var dateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
}

// ParseDate parses a Created at value. The second result is false when no
// layout matches.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "nan" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDisplayDate renders a Created at value as DD/MM/YYYY, or "" when it
// cannot be parsed. The date is taken as written, without zone conversion.
func FormatDisplayDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return ""
	}
	return t.Format("02/01/2006")
}

// RepresentativeDate returns the DD-MM-YYYY date used to name the outputs:
// the first parsable Created at in the batch, or now() when none parses.
func RepresentativeDate(lines []types.OrderLine, now func() time.Time) string {
	for i := range lines {
		if t, ok := ParseDate(lines[i].CreatedAt); ok {
			return t.Format("02-01-2006")
		}
	}
	if now == nil {
		now = time.Now
	}
	return now().Format("02-01-2006")
}
