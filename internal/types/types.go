// =============================================================================
// Pedidos Manager - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (ingestion)
//   - classifier
//   - consolidator
//   - projection
//
// =============================================================================

package types

import "strings"

// =============================================================================
// SOURCE COLUMNS
// =============================================================================
// Column headers of the Shopify order export. These names are also used as
// the output headers of both projections.

const (
	ColCreatedAt       = "Created at"
	ColName            = "Name"
	ColShippingName    = "Shipping Name"
	ColItemQuantity    = "Lineitem quantity"
	ColItemName        = "Lineitem name"
	ColTotal           = "Total"
	ColProvince        = "Shipping Province Name"
	ColStreet          = "Shipping Street"
	ColAddress2        = "Shipping Address2"
	ColCity            = "Shipping City"
	ColZip             = "Shipping Zip"
	ColPhone           = "Shipping Phone"
	ColEmail           = "Email"
	ColSKU             = "Lineitem sku"
	ColFinancialStatus = "Financial Status"
	ColShippingMethod  = "Shipping Method"
	ColShippingCompany = "Shipping Company"
	ColNotes           = "Notes"
)

// RequiredColumns lists every column the engine reads. A batch missing any
// of them cannot be classified.
var RequiredColumns = []string{
	ColCreatedAt,
	ColName,
	ColShippingName,
	ColItemQuantity,
	ColItemName,
	ColTotal,
	ColProvince,
	ColStreet,
	ColAddress2,
	ColCity,
	ColZip,
	ColPhone,
	ColEmail,
	ColSKU,
	ColFinancialStatus,
	ColShippingMethod,
	ColShippingCompany,
	ColNotes,
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the triage category assigned to an order.
type Status string

const (
	StatusUnclassified   Status = ""
	StatusCABA           Status = "CABA"
	StatusPriority       Status = "PRIORITARIO"
	StatusCABAPriority   Status = "CABA PRIORITARIO"
	StatusExpired        Status = "VENCIDO"
	StatusRefunded       Status = "REEMBOLSADO"
	StatusPendingPayment Status = "FALTA PAGAR"
	StatusReviewID       Status = "REVISAR DNI"
	StatusReviewNotes    Status = "REVISAR NOTAS EN SHOPIFY"
	StatusTierraDelFuego Status = "TIERRA DEL FUEGO"
)

// AllStatuses is the closed set of statuses, in rule order.
var AllStatuses = []Status{
	StatusUnclassified,
	StatusReviewID,
	StatusExpired,
	StatusRefunded,
	StatusPendingPayment,
	StatusCABA,
	StatusPriority,
	StatusCABAPriority,
	StatusReviewNotes,
	StatusTierraDelFuego,
}

// String returns the status text as written to the output sheets.
func (s Status) String() string {
	return string(s)
}

// =============================================================================
// FINANCIAL STATUS
// =============================================================================

// FinancialStatus is the payment state exported by the shop.
type FinancialStatus string

const (
	FinancialPaid     FinancialStatus = "paid"
	FinancialExpired  FinancialStatus = "expired"
	FinancialRefunded FinancialStatus = "refunded"
	FinancialPending  FinancialStatus = "pending"
)

// Known reports whether the value is one of the four states the classifier
// acts on.
func (f FinancialStatus) Known() bool {
	switch f {
	case FinancialPaid, FinancialExpired, FinancialRefunded, FinancialPending:
		return true
	}
	return false
}

// =============================================================================
// ORDER LINE
// =============================================================================

// OrderLine represents one row of the ingested table: one item within an
// order. Lines sharing OrderID form an Order.
type OrderLine struct {
	// OrderID groups lines into an order (export column "Name").
	OrderID string

	// CreatedAt is kept as raw text; it may be malformed or missing.
	CreatedAt string

	ShippingName string
	ItemQuantity string
	ItemName     string
	Total        string
	Province     string
	Street       string
	Address2     string
	City         string

	// PostalCode may carry a leading letter ("C1425") or quote ("'1425").
	PostalCode string

	Phone string
	Email string
	SKU   string

	FinancialStatus FinancialStatus

	// ShippingMethod is free text; only exact matches are significant.
	ShippingMethod string

	// NationalID is the raw "Shipping Company" value, used as a DNI field.
	NationalID string

	// NormalizedID is NationalID with dots and spaces removed.
	NormalizedID string

	// Notes is free text. Blank notes are treated as absent.
	Notes string

	// Status is the mutable triage category.
	Status Status

	// Index is the position of the line in the ingested batch (0-based).
	Index int

	// SourceFile and RowNumber locate the line for error reporting.
	SourceFile string
	RowNumber  int
}

// HasNotes reports whether the line carries non-blank notes.
func (l *OrderLine) HasNotes() bool {
	return strings.TrimSpace(l.Notes) != ""
}

// FromRecord builds an OrderLine from a header -> value map. Columns that
// are absent from the record are left empty; schema checks happen before.
func FromRecord(record map[string]string) OrderLine {
	return OrderLine{
		CreatedAt:       record[ColCreatedAt],
		OrderID:         record[ColName],
		ShippingName:    record[ColShippingName],
		ItemQuantity:    record[ColItemQuantity],
		ItemName:        record[ColItemName],
		Total:           record[ColTotal],
		Province:        record[ColProvince],
		Street:          record[ColStreet],
		Address2:        record[ColAddress2],
		City:            record[ColCity],
		PostalCode:      record[ColZip],
		Phone:           record[ColPhone],
		Email:           record[ColEmail],
		SKU:             record[ColSKU],
		FinancialStatus: FinancialStatus(record[ColFinancialStatus]),
		ShippingMethod:  record[ColShippingMethod],
		NationalID:      record[ColShippingCompany],
		Notes:           record[ColNotes],
	}
}

// =============================================================================
// SOURCE TABLE
// =============================================================================

// SourceRecord is one data row of an export, keyed by header.
type SourceRecord struct {
	Fields map[string]string

	// RowNumber is the 1-based row of the record in its file.
	RowNumber int
}

// SourceTable is one parsed export file before it becomes order lines.
type SourceTable struct {
	SourceFile string
	Headers    []string
	Records    []SourceRecord
}

// Lines converts every record into an OrderLine tagged with its source.
func (t *SourceTable) Lines() []OrderLine {
	lines := make([]OrderLine, len(t.Records))
	for i, rec := range t.Records {
		lines[i] = FromRecord(rec.Fields)
		lines[i].SourceFile = t.SourceFile
		lines[i].RowNumber = rec.RowNumber
	}
	return lines
}

// UniqueValues returns the distinct values of a column in first-seen order.
func (t *SourceTable) UniqueValues(header string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, rec := range t.Records {
		value := rec.Fields[header]
		if !seen[value] {
			seen[value] = true
			unique = append(unique, value)
		}
	}

	return unique
}
