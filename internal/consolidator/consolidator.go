// =============================================================================
// Pedidos Manager - Order Consolidator
// =============================================================================
//
// This module forces a single Status per order. Lines are grouped by order
// id and every line of a group receives the status of the group's first
// line. Which line is "first" is decided by an explicit, named tie-break
// rule instead of relying on whatever order the table happened to have.
//
// TIE-BREAK RULES:
//   line-order          : the line that appears first in the input sequence
//   shipping-name-desc  : the line with the greatest shipping name; equal
//                         names fall back to input order. This reproduces
//                         the ingestion sort (order id asc, shipping name desc).
//
// The consolidator also derives CategoryCounts: distinct orders per status.
//
// =============================================================================

package consolidator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/pedidosmanager/pedidos/internal/types"
)

// =============================================================================
// TIE-BREAK
// =============================================================================

// TieBreak names the rule that selects the authoritative line of an order.
type TieBreak string

const (
	// TieBreakLineOrder keeps the lines in input sequence order.
	TieBreakLineOrder TieBreak = "line-order"

	// TieBreakShippingNameDesc orders lines by shipping name descending,
	// then by input position.
	TieBreakShippingNameDesc TieBreak = "shipping-name-desc"
)

// DefaultTieBreak is the rule matching the ingestion sort.
const DefaultTieBreak = TieBreakShippingNameDesc

// ParseTieBreak resolves a configured tie-break name.
// An empty name yields DefaultTieBreak.
func ParseTieBreak(name string) (TieBreak, error) {
	switch TieBreak(name) {
	case "":
		return DefaultTieBreak, nil
	case TieBreakLineOrder, TieBreakShippingNameDesc:
		return TieBreak(name), nil
	default:
		return "", fmt.Errorf("unknown tie-break rule %q (valid: %s, %s)",
			name, TieBreakLineOrder, TieBreakShippingNameDesc)
	}
}

// compare orders two members of the same order according to the rule.
// Ties are always resolved by input position so the result is deterministic.
func (tb TieBreak) compare(a, b *types.OrderLine) int {
	if tb == TieBreakShippingNameDesc {
		if c := cmp.Compare(b.ShippingName, a.ShippingName); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Index, b.Index)
}

// =============================================================================
// CONSOLIDATION
// =============================================================================

// Consolidate groups lines by order id and forces every line of an order to
// carry the status of the order's first line under the tie-break rule.
//
// The result is ordered by order id ascending, and within an order by the
// tie-break rule. The input slice is not modified; only Status differs
// between an input line and its output copy.
//
// Index is used as the input position. Callers that build lines by hand
// should number them; lines with equal Index keep their relative order.
func Consolidate(lines []types.OrderLine, tb TieBreak) []types.OrderLine {
	out := slices.Clone(lines)

	// Stable: equal keys keep their relative input order.
	slices.SortStableFunc(out, func(a, b types.OrderLine) int {
		if c := cmp.Compare(a.OrderID, b.OrderID); c != 0 {
			return c
		}
		return tb.compare(&a, &b)
	})

	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && out[end].OrderID == out[start].OrderID {
			end++
		}

		status := out[start].Status
		for i := start + 1; i < end; i++ {
			out[i].Status = status
		}

		start = end
	}

	return out
}

// SortForIngestion sorts lines in place by order id ascending and shipping
// name descending, keeping the input order of equal keys. Index is
// renumbered to the new positions.
func SortForIngestion(lines []types.OrderLine) {
	slices.SortStableFunc(lines, func(a, b types.OrderLine) int {
		if c := cmp.Compare(a.OrderID, b.OrderID); c != 0 {
			return c
		}
		return cmp.Compare(b.ShippingName, a.ShippingName)
	})

	for i := range lines {
		lines[i].Index = i
	}
}

// =============================================================================
// CATEGORY COUNTS
// =============================================================================

// CategoryCounts holds the number of distinct orders per status.
type CategoryCounts struct {
	// ByStatus maps each status to its number of distinct orders.
	// Statuses with no orders are absent.
	ByStatus map[types.Status]int

	// Total is the number of distinct orders in the batch.
	Total int
}

// Get returns the number of distinct orders with the given status.
func (c CategoryCounts) Get(status types.Status) int {
	return c.ByStatus[status]
}

// Count derives CategoryCounts from a consolidated table.
// An order whose lines disagree (an unconsolidated table) is counted once
// under every status it carries.
func Count(lines []types.OrderLine) CategoryCounts {
	seen := make(map[types.Status]map[string]struct{})
	orders := make(map[string]struct{})

	for i := range lines {
		line := &lines[i]
		orders[line.OrderID] = struct{}{}

		ids, ok := seen[line.Status]
		if !ok {
			ids = make(map[string]struct{})
			seen[line.Status] = ids
		}
		ids[line.OrderID] = struct{}{}
	}

	counts := CategoryCounts{
		ByStatus: make(map[types.Status]int, len(seen)),
		Total:    len(orders),
	}
	for status, ids := range seen {
		counts.ByStatus[status] = len(ids)
	}

	return counts
}
