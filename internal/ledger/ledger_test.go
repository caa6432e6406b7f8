package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestLineTotal(t *testing.T) {
	total, err := LineTotal(2, 100, 0)
	require.NoError(t, err)
	assert.InDelta(t, 200.00, total, AmountTolerance)

	total, err = LineTotal(3, 19.99, 5)
	require.NoError(t, err)
	assert.InDelta(t, 54.97, total, AmountTolerance)
}

func TestLineTotalRejectsInvalidInputs(t *testing.T) {
	cases := []struct {
		name      string
		quantity  int
		unitPrice float64
		discount  float64
	}{
		{"zero quantity", 0, 10, 0},
		{"negative quantity", -1, 10, 0},
		{"negative price", 1, -0.01, 0},
		{"negative discount", 1, 10, -1},
		{"discount exceeds amount", 1, 10, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LineTotal(tc.quantity, tc.unitPrice, tc.discount)
			require.ErrorIs(t, err, shared.ErrInvalidAmount)
		})
	}
}

func TestSubtotal(t *testing.T) {
	items := []LineInput{
		{Quantity: 2, UnitPrice: 100},
		{Quantity: 1, UnitPrice: 250},
	}
	subtotal, err := Subtotal(items)
	require.NoError(t, err)
	assert.InDelta(t, 450.00, subtotal, AmountTolerance)
}

func TestSubtotalPropagatesLineFailure(t *testing.T) {
	items := []LineInput{
		{Quantity: 1, UnitPrice: 100},
		{Quantity: 0, UnitPrice: 10},
	}
	_, err := Subtotal(items)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestTaxAmount(t *testing.T) {
	assert.InDelta(t, 45.00, TaxAmount(450, 0.10), AmountTolerance)
	assert.Zero(t, TaxAmount(450, 0))
}

func TestAmountsEqual(t *testing.T) {
	assert.True(t, AmountsEqual(100.005, 100.0))
	assert.False(t, AmountsEqual(100.02, 100.0))
}
