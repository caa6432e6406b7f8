package invoices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxRateFor(t *testing.T) {
	tests := []struct {
		name    string
		country string
		state   string
		want    float64
	}{
		{"california", "US", "CA", 0.0725},
		{"texas lowercase", "us", "tx", 0.0625},
		{"oregon no sales tax", "US", "OR", 0},
		{"unknown us state", "US", "XX", 0},
		{"united kingdom", "GB", "", 0.20},
		{"canada", "CA", "", 0.13},
		{"germany", "DE", "", 0.19},
		{"hungary highest vat", "HU", "", 0.27},
		{"unknown jurisdiction", "JP", "", 0},
		{"blank", "", "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, TaxRateFor(tc.country, tc.state), 1e-9)
		})
	}
}

func TestTaxForRoundsToCents(t *testing.T) {
	// 450.00 * 0.0725 = 32.625, rounds to 32.63.
	assert.InDelta(t, 32.63, TaxFor("US", "CA", 450.00), 1e-9)
	assert.InDelta(t, 0, TaxFor("JP", "", 1000.00), 1e-9)
}
