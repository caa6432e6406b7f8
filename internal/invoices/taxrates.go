package invoices

import (
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// usStateRates are combined state-level sales tax rates. Local
// surcharges are out of scope; this is a best-effort approximation,
// not a certified tax engine.
var usStateRates = map[string]float64{
	"AL": 0.04, "AK": 0.00, "AZ": 0.056, "AR": 0.065, "CA": 0.0725,
	"CO": 0.029, "CT": 0.0635, "DE": 0.00, "FL": 0.06, "GA": 0.04,
	"HI": 0.04, "ID": 0.06, "IL": 0.0625, "IN": 0.07, "IA": 0.06,
	"KS": 0.065, "KY": 0.06, "LA": 0.0445, "ME": 0.055, "MD": 0.06,
	"MA": 0.0625, "MI": 0.06, "MN": 0.06875, "MS": 0.07, "MO": 0.04225,
	"MT": 0.00, "NE": 0.055, "NV": 0.0685, "NH": 0.00, "NJ": 0.06625,
	"NM": 0.05125, "NY": 0.04, "NC": 0.0475, "ND": 0.05, "OH": 0.0575,
	"OK": 0.045, "OR": 0.00, "PA": 0.06, "RI": 0.07, "SC": 0.06,
	"SD": 0.045, "TN": 0.07, "TX": 0.0625, "UT": 0.0485, "VT": 0.06,
	"VA": 0.043, "WA": 0.065, "WV": 0.06, "WI": 0.05, "WY": 0.04,
	"DC": 0.06,
}

// vatRates are standard VAT/GST rates by country.
var vatRates = map[string]float64{
	"GB": 0.20, "UK": 0.20,
	"CA": 0.13,
	"AT": 0.20, "BE": 0.21, "BG": 0.20, "HR": 0.25, "CY": 0.19,
	"CZ": 0.21, "DK": 0.25, "EE": 0.22, "FI": 0.24, "FR": 0.20,
	"DE": 0.19, "GR": 0.24, "HU": 0.27, "IE": 0.23, "IT": 0.22,
	"LV": 0.21, "LT": 0.21, "LU": 0.17, "MT": 0.18, "NL": 0.21,
	"PL": 0.23, "PT": 0.23, "RO": 0.19, "SK": 0.20, "SI": 0.22,
	"ES": 0.21, "SE": 0.25,
}

// TaxRateFor resolves the jurisdiction tax rate for a customer
// location. Unknown jurisdictions fall back to zero.
func TaxRateFor(country, state string) float64 {
	country = strings.ToUpper(strings.TrimSpace(country))
	switch country {
	case "US", "USA":
		return usStateRates[strings.ToUpper(strings.TrimSpace(state))]
	default:
		return vatRates[country]
	}
}

// TaxFor multiplies the jurisdiction rate by the subtotal, rounded to
// cents.
func TaxFor(country, state string, subtotal float64) float64 {
	return ledger.Round2(subtotal * TaxRateFor(country, state))
}
