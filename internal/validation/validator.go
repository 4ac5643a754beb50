// =============================================================================
// Pedidos Manager - Validation Engine
// =============================================================================
//
// This module checks ingested exports before and after they become order
// lines.
//
// VALIDATION STRATEGY:
//   1. Schema-level: every column the engine reads must be present in each
//      export. A missing column is fatal for the whole batch.
//   2. Value-level: anomalies that do not stop classification (unparsable
//      dates, malformed order ids, unknown financial statuses, blank ids)
//      are collected as warnings.
//
// ERROR HANDLING:
//   - Errors are collected, not thrown immediately
//   - Each error includes context (file, row, order, field, value)
//   - Warnings never abort the batch unless TreatWarningsAsErrors is set
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/pedidosmanager/pedidos/internal/projection"
	"github.com/pedidosmanager/pedidos/internal/types"
)

// =============================================================================
// SCHEMA ERRORS
// =============================================================================

// ErrMissingColumns is the sentinel wrapped by SchemaError.
var ErrMissingColumns = errors.New("missing required columns")

// SchemaError reports the required columns absent from an export.
type SchemaError struct {
	// File is the export that failed the check.
	File string

	// Missing lists the absent columns in required order.
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, ErrMissingColumns, strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrMissingColumns.
func (e *SchemaError) Unwrap() error {
	return ErrMissingColumns
}

// CheckColumns verifies that headers contain every required column.
// It returns a *SchemaError when any is missing.
func CheckColumns(file string, headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, col := range types.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{File: file, Missing: missing}
	}
	return nil
}

// CheckTables runs CheckColumns on every table and joins the failures.
func CheckTables(tables []*types.SourceTable) error {
	var errs []error
	for _, t := range tables {
		if err := CheckColumns(t.SourceFile, t.Headers); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleMissingOrderID    = "missing_order_id"
	RuleOrderIDFormat     = "order_id_format"
	RuleCreatedAt         = "created_at_unparsable"
	RuleFinancialStatus   = "unknown_financial_status"
	RuleMissingNationalID = "missing_national_id"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is "error" or "warning".
	Severity string

	// Field is the export column the finding is about.
	Field string

	// Value is the offending value.
	Value string

	// Rule is the name of the check that produced the finding.
	Rule string

	// Message is a human-readable description.
	Message string

	// OrderID is the order the line belongs to.
	OrderID string

	// SourceFile and RowNumber locate the line.
	SourceFile string
	RowNumber  int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s:%d, Order '%s', Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.SourceFile,
		e.RowNumber,
		e.OrderID,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings (including warnings).
	Errors []*ValidationError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// LinesValidated is the number of lines checked.
	LinesValidated int

	// ByRule counts findings per rule name.
	ByRule map[string]int
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	r.ByRule[e.Rule]++
	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors turns every warning into a fatal error.
	// Default: false
	TreatWarningsAsErrors bool

	// MaxFindings stops collecting after this many findings. Zero means
	// no limit.
	MaxFindings int
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// Validator checks order lines for value anomalies.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a validator with default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(DefaultValidationOptions())
}

// NewValidatorWithOptions creates a validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// ValidateLines checks every line and returns the collected findings.
func (v *Validator) ValidateLines(lines []types.OrderLine) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		ByRule:  make(map[string]int),
	}

	for i := range lines {
		for _, finding := range v.ValidateLine(&lines[i]) {
			if v.options.MaxFindings > 0 && len(result.Errors) >= v.options.MaxFindings {
				result.LinesValidated = i
				return result
			}
			result.add(finding)
		}
	}

	result.LinesValidated = len(lines)
	return result
}

// ValidateLine checks a single line.
func (v *Validator) ValidateLine(line *types.OrderLine) []*ValidationError {
	var findings []*ValidationError

	report := func(field, value, rule, message string) {
		severity := SeverityWarning
		if v.options.TreatWarningsAsErrors {
			severity = SeverityError
		}
		findings = append(findings, &ValidationError{
			Severity:   severity,
			Field:      field,
			Value:      value,
			Rule:       rule,
			Message:    message,
			OrderID:    line.OrderID,
			SourceFile: line.SourceFile,
			RowNumber:  line.RowNumber,
		})
	}

	switch {
	case isBlank(line.OrderID):
		report(types.ColName, line.OrderID, RuleMissingOrderID, "line has no order id")
	case !isOrderID(line.OrderID):
		report(types.ColName, line.OrderID, RuleOrderIDFormat, "order id is not '#' followed by digits")
	}

	// Secondary lines of an order may leave order-level columns blank.
	if _, ok := projection.ParseDate(line.CreatedAt); !ok && !isBlank(line.CreatedAt) {
		report(types.ColCreatedAt, line.CreatedAt, RuleCreatedAt, "creation date cannot be parsed")
	}

	if !line.FinancialStatus.Known() && !isBlank(string(line.FinancialStatus)) {
		report(types.ColFinancialStatus, string(line.FinancialStatus), RuleFinancialStatus,
			"financial status is not paid, pending, expired or refunded")
	}

	if line.FinancialStatus == types.FinancialPaid && strings.TrimSpace(line.NationalID) == "" {
		report(types.ColShippingCompany, line.NationalID, RuleMissingNationalID, "paid order without national id")
	}

	return findings
}

func isBlank(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || value == "nan"
}

// isOrderID reports whether id looks like "#1001".
func isOrderID(id string) bool {
	digits, ok := strings.CutPrefix(id, "#")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation findings for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
