// =============================================================================
// Pedidos Manager - Normalization Engine
// =============================================================================
//
// This module applies the configured clean-up rules to raw export records
// before they become order lines. Rules are keyed by export column header
// and their actions run in order.
//
// TRANSFORMATION TYPES:
//   - String manipulations (trim, case conversion, replacements)
//   - Character removal (remove_chars, extract_digits)
//   - Lookup table replacements
//   - Empty-value fallbacks
//
// Normalization never touches the values the classifier relies on being
// exact unless a rule names them explicitly.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pedidosmanager/pedidos/internal/config"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonDigit      = regexp.MustCompile(`\D+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer handles field value transformations.
type Transformer struct {
	rules []config.TransformationRule
}

// NewTransformer creates a new Transformer with the given rules.
func NewTransformer(rules []config.TransformationRule) *Transformer {
	return &Transformer{
		rules: rules,
	}
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// Transform applies every rule registered for fieldName to value.
//
// PARAMETERS:
//   - fieldName: The export column being transformed.
//   - value: The current value of the field.
//   - allFields: All fields in the current record (for if_empty_use_field).
//
// RETURNS:
//   - The transformed value.
//   - An error if any transformation fails.
func (t *Transformer) Transform(fieldName, value string, allFields map[string]string) (string, error) {
	result := value
	for i := range t.rules {
		rule := &t.rules[i]
		if rule.Field != fieldName {
			continue
		}

		for _, action := range rule.Actions {
			var err error
			result, err = ApplyTransformation(result, action, allFields)
			if err != nil {
				return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
			}
		}
	}

	return result, nil
}

// TransformRecord applies the rules to a record in place. Fields named by a
// rule but absent from the record are skipped.
func (t *Transformer) TransformRecord(record map[string]string) error {
	for i := range t.rules {
		field := t.rules[i].Field
		value, ok := record[field]
		if !ok {
			continue
		}

		result := value
		for _, action := range t.rules[i].Actions {
			var err error
			result, err = ApplyTransformation(result, action, record)
			if err != nil {
				return fmt.Errorf("error transforming field '%s': transformation '%s' failed: %w",
					field, action.Type, err)
			}
		}
		record[field] = result
	}
	return nil
}

// Validate checks that every configured action is known, so a bad
// configuration fails before any file is read.
func (t *Transformer) Validate() error {
	for _, rule := range t.rules {
		if rule.Field == "" {
			return fmt.Errorf("normalization rule without field")
		}
		for _, action := range rule.Actions {
			if _, err := ApplyTransformation("", action, nil); err != nil {
				return fmt.Errorf("field '%s': %w", rule.Field, err)
			}
		}
	}
	return nil
}

// ApplyTransformation applies a single transformation action.
//
// SUPPORTED TRANSFORMATIONS:
//   See the switch statement below for all supported transformation types.
func ApplyTransformation(value string, action config.TransformationAction, allFields map[string]string) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "trim_left":
		if action.Value != "" {
			return strings.TrimLeft(value, action.Value), nil
		}
		return strings.TrimLeft(value, " \t\n\r"), nil

	case "trim_right":
		if action.Value != "" {
			return strings.TrimRight(value, action.Value), nil
		}
		return strings.TrimRight(value, " \t\n\r"), nil

	case "trim_suffix":
		// EXAMPLE:
		//   Input: "1155554444.0"
		//   Action: trim_suffix with value ".0"
		//   Output: "1155554444"
		return strings.TrimSuffix(value, action.Value), nil

	case "trim_prefix":
		return strings.TrimPrefix(value, action.Value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "replace":
		// EXAMPLE:
		//   Input: "Envio  Prioritario"
		//   Action: replace with find "  " and value " "
		//   Output: "Envio Prioritario"
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "remove_chars":
		// Removes every character contained in Value.
		//
		// EXAMPLE:
		//   Input: "30.123 456"
		//   Action: remove_chars with value ". "
		//   Output: "30123456"
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune(action.Value, r) {
				return -1
			}
			return r
		}, value), nil

	case "extract_digits":
		return nonDigit.ReplaceAllString(value, ""), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " ")), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		// EXAMPLE:
		//   Input: "Pagado"
		//   Action: lookup with lookup_table {"Pagado": "paid"}
		//   Output: "paid"
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	// =========================================================================
	// EMPTY-VALUE FALLBACKS
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			if otherValue, exists := allFields[action.Value]; exists {
				return otherValue, nil
			}
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}
