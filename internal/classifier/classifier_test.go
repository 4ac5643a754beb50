package classifier

import (
	"context"
	"fmt"
	"testing"

	"github.com/pedidosmanager/pedidos/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paidLine returns a paid line with a valid id and no special attributes.
func paidLine() types.OrderLine {
	return types.OrderLine{
		OrderID:         "#1001",
		FinancialStatus: types.FinancialPaid,
		NationalID:      "30.123.456",
		PostalCode:      "X5000",
		Province:        "Córdoba",
		ShippingMethod:  "Envío estándar",
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(l *types.OrderLine)
		expected types.Status
		rule     string
	}{
		{
			name:     "paid with valid id and nothing special stays unclassified",
			mutate:   func(l *types.OrderLine) {},
			expected: types.StatusUnclassified,
		},
		{
			name:     "paid with non numeric id needs review",
			mutate:   func(l *types.OrderLine) { l.NationalID = "12A34" },
			expected: types.StatusReviewID,
			rule:     "invalid-national-id",
		},
		{
			name:     "paid with empty id needs review",
			mutate:   func(l *types.OrderLine) { l.NationalID = "" },
			expected: types.StatusReviewID,
			rule:     "invalid-national-id",
		},
		{
			name:     "DNI prefixed id is accepted",
			mutate:   func(l *types.OrderLine) { l.NationalID = "DNI 12345678" },
			expected: types.StatusUnclassified,
		},
		{
			name:     "expired",
			mutate:   func(l *types.OrderLine) { l.FinancialStatus = types.FinancialExpired },
			expected: types.StatusExpired,
			rule:     "expired",
		},
		{
			name:     "refunded",
			mutate:   func(l *types.OrderLine) { l.FinancialStatus = types.FinancialRefunded },
			expected: types.StatusRefunded,
			rule:     "refunded",
		},
		{
			name:     "pending",
			mutate:   func(l *types.OrderLine) { l.FinancialStatus = types.FinancialPending },
			expected: types.StatusPendingPayment,
			rule:     "pending",
		},
		{
			name:     "unknown financial status is never classified",
			mutate:   func(l *types.OrderLine) { l.FinancialStatus = "partially_refunded"; l.Notes = "call first" },
			expected: types.StatusUnclassified,
		},
		{
			name:     "CABA lettered zip",
			mutate:   func(l *types.OrderLine) { l.PostalCode = "C1425" },
			expected: types.StatusCABA,
			rule:     "caba-zip",
		},
		{
			name:     "CABA quoted zip",
			mutate:   func(l *types.OrderLine) { l.PostalCode = "'1123" },
			expected: types.StatusCABA,
			rule:     "caba-zip",
		},
		{
			name:     "CABA bare zip",
			mutate:   func(l *types.OrderLine) { l.PostalCode = "1500" },
			expected: types.StatusCABA,
			rule:     "caba-zip",
		},
		{
			name:     "CABA overrides id review",
			mutate:   func(l *types.OrderLine) { l.PostalCode = "C1001"; l.NationalID = "abc" },
			expected: types.StatusCABA,
			rule:     "caba-zip",
		},
		{
			name:     "priority outside CABA",
			mutate:   func(l *types.OrderLine) { l.ShippingMethod = PriorityShippingMethod },
			expected: types.StatusPriority,
			rule:     "priority-outside-caba",
		},
		{
			name: "priority inside CABA",
			mutate: func(l *types.OrderLine) {
				l.ShippingMethod = PriorityShippingMethod
				l.PostalCode = "C1425"
			},
			expected: types.StatusCABAPriority,
			rule:     "caba-priority",
		},
		{
			name: "notes override everything else",
			mutate: func(l *types.OrderLine) {
				l.ShippingMethod = PriorityShippingMethod
				l.PostalCode = "C1425"
				l.Notes = "dejar en portería"
			},
			expected: types.StatusReviewNotes,
			rule:     "order-notes",
		},
		{
			name:     "blank notes are absent",
			mutate:   func(l *types.OrderLine) { l.Notes = "   "; l.PostalCode = "C1425" },
			expected: types.StatusCABA,
			rule:     "caba-zip",
		},
		{
			name:     "Tierra del Fuego without notes",
			mutate:   func(l *types.OrderLine) { l.Province = TierraDelFuego },
			expected: types.StatusTierraDelFuego,
			rule:     "tierra-del-fuego",
		},
		{
			name:     "Tierra del Fuego with notes goes to notes review",
			mutate:   func(l *types.OrderLine) { l.Province = TierraDelFuego; l.Notes = "x" },
			expected: types.StatusReviewNotes,
			rule:     "order-notes",
		},
		{
			name:     "priority method must match exactly",
			mutate:   func(l *types.OrderLine) { l.ShippingMethod = "envío prioritario + garantía extendida" },
			expected: types.StatusUnclassified,
		},
	}

	c := New(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := paidLine()
			tt.mutate(&line)

			got := c.Classify(&line, types.StatusUnclassified)

			assert.Equal(t, tt.expected, got.Status)
			assert.Equal(t, tt.rule, got.Rule)
			assert.Equal(t, tt.rule != "", got.Matched)
		})
	}
}

func TestClassifyNonPaidIgnoresOtherFields(t *testing.T) {
	expected := map[types.FinancialStatus]types.Status{
		types.FinancialExpired:  types.StatusExpired,
		types.FinancialRefunded: types.StatusRefunded,
		types.FinancialPending:  types.StatusPendingPayment,
	}

	c := New(1)
	for fs, status := range expected {
		for _, zip := range []string{"C1425", "5000", ""} {
			for _, notes := range []string{"", "urgent"} {
				line := types.OrderLine{
					FinancialStatus: fs,
					PostalCode:      zip,
					Notes:           notes,
					ShippingMethod:  PriorityShippingMethod,
					Province:        TierraDelFuego,
					NationalID:      "abc",
				}
				got := c.Classify(&line, types.StatusUnclassified)
				assert.Equal(t, status, got.Status, "financial=%s zip=%q notes=%q", fs, zip, notes)
			}
		}
	}
}

func TestClassifyKeepsPreviousWhenNothingMatches(t *testing.T) {
	c := New(1)
	line := paidLine()

	got := c.Classify(&line, types.StatusCABA)

	assert.Equal(t, types.StatusCABA, got.Status)
	assert.False(t, got.Matched)
	assert.Empty(t, got.Rule)
}

func TestClassifyAll(t *testing.T) {
	lines := make([]types.OrderLine, 0, 50)
	for i := 0; i < 50; i++ {
		line := paidLine()
		line.OrderID = fmt.Sprintf("#%d", 1000+i)
		if i%2 == 0 {
			line.PostalCode = "C1425"
		}
		lines = append(lines, line)
	}

	c := New(4)
	require.NoError(t, c.ClassifyAll(context.Background(), lines))

	for i, line := range lines {
		if i%2 == 0 {
			assert.Equal(t, types.StatusCABA, line.Status, "line %d", i)
		} else {
			assert.Equal(t, types.StatusUnclassified, line.Status, "line %d", i)
		}
	}

	t.Run("rerun is idempotent", func(t *testing.T) {
		before := make([]types.Status, len(lines))
		for i := range lines {
			before[i] = lines[i].Status
		}

		require.NoError(t, c.ClassifyAll(context.Background(), lines))

		for i := range lines {
			assert.Equal(t, before[i], lines[i].Status)
		}
	})
}

func TestClassifyAllEmpty(t *testing.T) {
	assert.NoError(t, New(8).ClassifyAll(context.Background(), nil))
}

func TestIsCABAZip(t *testing.T) {
	tests := []struct {
		zip      string
		expected bool
	}{
		{"C1425", true},
		{"C1599", true},
		{"C1600", false},
		{"'1000", true},
		{"1425", true},
		{"105000", true},
		{"1600", false},
		{"B1638", false},
		{"", false},
		{"0C1425", false},
	}

	for _, tt := range tests {
		t.Run(tt.zip, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCABAZip(tt.zip))
		})
	}
}

func TestNormalizeNationalID(t *testing.T) {
	assert.Equal(t, "30123456", NormalizeNationalID("30.123.456"))
	assert.Equal(t, "30123456", NormalizeNationalID(" 30 123 456 "))
	assert.Equal(t, "DNI12345678", NormalizeNationalID("DNI 12.345.678"))
	assert.Equal(t, "", NormalizeNationalID(" . "))
}

func TestHasValidNationalIDUsesNormalizedValue(t *testing.T) {
	line := types.OrderLine{NationalID: "30.123.456", NormalizedID: "30123456"}
	assert.True(t, HasValidNationalID(&line))

	line = types.OrderLine{NationalID: "12A34", NormalizedID: "12A34"}
	assert.False(t, HasValidNationalID(&line))
}
