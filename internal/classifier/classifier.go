// =============================================================================
// Pedidos Manager - Row Classifier
// =============================================================================
//
// This module assigns a triage Status to every order line. The rules form a
// small ordered list of predicate -> status pairs. Every rule is evaluated
// once per line, in order, and the LAST matching rule wins. A line that no
// rule matches keeps whatever status it already carried.
//
// RULE ORDER:
//   1. invalid-national-id     paid, id not "DNI ..." and not numeric -> REVISAR DNI
//   2. expired                 expired                                -> VENCIDO
//   3. refunded                refunded                               -> REEMBOLSADO
//   4. pending                 pending                                -> FALTA PAGAR
//   5. caba-zip                paid, CABA postal code                 -> CABA
//   6. priority-outside-caba   paid, priority method, not CABA        -> PRIORITARIO
//   7. caba-priority           paid, priority method, CABA            -> CABA PRIORITARIO
//   8. order-notes             paid, non-blank notes                  -> REVISAR NOTAS EN SHOPIFY
//   9. tierra-del-fuego        paid, blank notes, Tierra del Fuego    -> TIERRA DEL FUEGO
//
// Malformed values never produce errors: they simply do not match.
//
// =============================================================================

package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/pedidosmanager/pedidos/internal/types"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// PriorityShippingMethod is the exact shipping method text that marks a
// priority shipment.
const PriorityShippingMethod = "Envío Prioritario + Garantía extendida"

// TierraDelFuego is the province name that needs special handling.
const TierraDelFuego = "Tierra del Fuego"

// nationalIDPrefix marks an id that was already typed as "DNI <number>".
const nationalIDPrefix = "DNI "

// cabaZipPrefixes are the postal code prefixes of the Autonomous City of
// Buenos Aires, in their lettered, quoted and bare forms.
//
// The bare two-digit forms also match unrelated codes with the same
// leading digits. That is the observed behavior and is kept.
var cabaZipPrefixes = []string{
	"C10", "C11", "C12", "C13", "C14", "C15",
	"'10", "'11", "'12", "'13", "'14", "'15",
	"10", "11", "12", "13", "14", "15",
}

// =============================================================================
// RULES
// =============================================================================

// Rule maps a predicate over an order line to a status.
type Rule struct {
	// Name identifies the rule in logs and classification results.
	Name string

	// Status is assigned when Match returns true.
	Status types.Status

	// Match reports whether the rule applies to the line.
	Match func(line *types.OrderLine) bool
}

// Classification is the tagged result of classifying one line.
type Classification struct {
	// Status is the effective status of the line.
	Status types.Status

	// Rule is the name of the winning rule, empty when nothing matched.
	Rule string

	// Matched is false when no rule applied and the previous status was kept.
	Matched bool
}

// DefaultRules returns the rule list in priority order (last match wins).
func DefaultRules() []Rule {
	return []Rule{
		{Name: "invalid-national-id", Status: types.StatusReviewID, Match: func(l *types.OrderLine) bool {
			return isPaid(l) && !HasValidNationalID(l)
		}},
		{Name: "expired", Status: types.StatusExpired, Match: financial(types.FinancialExpired)},
		{Name: "refunded", Status: types.StatusRefunded, Match: financial(types.FinancialRefunded)},
		{Name: "pending", Status: types.StatusPendingPayment, Match: financial(types.FinancialPending)},
		{Name: "caba-zip", Status: types.StatusCABA, Match: func(l *types.OrderLine) bool {
			return isPaid(l) && IsCABAZip(l.PostalCode)
		}},
		{Name: "priority-outside-caba", Status: types.StatusPriority, Match: func(l *types.OrderLine) bool {
			return isPaid(l) && !IsCABAZip(l.PostalCode) && isPriority(l)
		}},
		{Name: "caba-priority", Status: types.StatusCABAPriority, Match: func(l *types.OrderLine) bool {
			return isPaid(l) && isPriority(l) && IsCABAZip(l.PostalCode)
		}},
		{Name: "order-notes", Status: types.StatusReviewNotes, Match: func(l *types.OrderLine) bool {
			return isPaid(l) && l.HasNotes()
		}},
		{Name: "tierra-del-fuego", Status: types.StatusTierraDelFuego, Match: func(l *types.OrderLine) bool {
			return isPaid(l) && !l.HasNotes() && l.Province == TierraDelFuego
		}},
	}
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier evaluates an ordered rule list against order lines.
type Classifier struct {
	rules       []Rule
	concurrency int
}

// New creates a Classifier with the default rules.
// concurrency bounds the number of goroutines used by ClassifyAll; values
// below 1 mean sequential.
func New(concurrency int) *Classifier {
	return NewWithRules(DefaultRules(), concurrency)
}

// NewWithRules creates a Classifier with a custom rule list.
func NewWithRules(rules []Rule, concurrency int) *Classifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Classifier{
		rules:       rules,
		concurrency: concurrency,
	}
}

// Rules returns the rule list in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify evaluates every rule against the line and returns the status of
// the last rule that matched. When no rule matches, previous is returned.
func (c *Classifier) Classify(line *types.OrderLine, previous types.Status) Classification {
	result := Classification{Status: previous}

	for _, rule := range c.rules {
		if rule.Match(line) {
			result = Classification{
				Status:  rule.Status,
				Rule:    rule.Name,
				Matched: true,
			}
		}
	}

	return result
}

// ClassifyAll classifies every line in place, using each line's current
// status as the previous status. Rows are independent, so they are split
// into chunks and classified concurrently.
func (c *Classifier) ClassifyAll(ctx context.Context, lines []types.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	chunk := (len(lines) + c.concurrency - 1) / c.concurrency

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(lines); start += chunk {
		end := min(start+chunk, len(lines))
		part := lines[start:end]

		g.Go(func() error {
			for i := range part {
				if err := ctx.Err(); err != nil {
					return err
				}
				part[i].Status = c.Classify(&part[i], part[i].Status).Status
			}
			return nil
		})
	}

	return g.Wait()
}

// =============================================================================
// PREDICATES
// =============================================================================

// IsCABAZip reports whether a postal code starts with one of the CABA
// prefixes.
func IsCABAZip(zip string) bool {
	for _, prefix := range cabaZipPrefixes {
		if strings.HasPrefix(zip, prefix) {
			return true
		}
	}
	return false
}

// HasValidNationalID reports whether the id field is acceptable: either it
// is written as "DNI <number>", or it is all digits once dots and spaces are
// removed.
func HasValidNationalID(line *types.OrderLine) bool {
	if strings.HasPrefix(line.NationalID, nationalIDPrefix) {
		return true
	}

	normalized := line.NormalizedID
	if normalized == "" {
		normalized = NormalizeNationalID(line.NationalID)
	}
	return isAllDigits(normalized)
}

// NormalizeNationalID removes every dot and space from an id value.
func NormalizeNationalID(id string) string {
	return strings.NewReplacer(".", "", " ", "").Replace(id)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isPaid(l *types.OrderLine) bool {
	return l.FinancialStatus == types.FinancialPaid
}

func isPriority(l *types.OrderLine) bool {
	return l.ShippingMethod == PriorityShippingMethod
}

func financial(status types.FinancialStatus) func(*types.OrderLine) bool {
	return func(l *types.OrderLine) bool {
		return l.FinancialStatus == status
	}
}
