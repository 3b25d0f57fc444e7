package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// stateRates holds the flat sales-tax rate per US state. States without a
// statewide sales tax are listed at zero so lookups distinguish "tax free"
// from "unknown code".
var stateRates = map[string]decimal.Decimal{
	"AL": decimal.NewFromFloat(0.0400),
	"AK": decimal.Zero,
	"AZ": decimal.NewFromFloat(0.0560),
	"AR": decimal.NewFromFloat(0.0650),
	"CA": decimal.NewFromFloat(0.0725),
	"CO": decimal.NewFromFloat(0.0290),
	"CT": decimal.NewFromFloat(0.0635),
	"DE": decimal.Zero,
	"FL": decimal.NewFromFloat(0.0600),
	"GA": decimal.NewFromFloat(0.0400),
	"HI": decimal.NewFromFloat(0.0400),
	"ID": decimal.NewFromFloat(0.0600),
	"IL": decimal.NewFromFloat(0.0625),
	"IN": decimal.NewFromFloat(0.0700),
	"IA": decimal.NewFromFloat(0.0600),
	"KS": decimal.NewFromFloat(0.0650),
	"KY": decimal.NewFromFloat(0.0600),
	"LA": decimal.NewFromFloat(0.0445),
	"ME": decimal.NewFromFloat(0.0550),
	"MD": decimal.NewFromFloat(0.0600),
	"MA": decimal.NewFromFloat(0.0625),
	"MI": decimal.NewFromFloat(0.0600),
	"MN": decimal.NewFromFloat(0.0688),
	"MS": decimal.NewFromFloat(0.0700),
	"MO": decimal.NewFromFloat(0.0423),
	"MT": decimal.Zero,
	"NE": decimal.NewFromFloat(0.0550),
	"NV": decimal.NewFromFloat(0.0685),
	"NH": decimal.Zero,
	"NJ": decimal.NewFromFloat(0.0663),
	"NM": decimal.NewFromFloat(0.0513),
	"NY": decimal.NewFromFloat(0.0400),
	"NC": decimal.NewFromFloat(0.0475),
	"ND": decimal.NewFromFloat(0.0500),
	"OH": decimal.NewFromFloat(0.0575),
	"OK": decimal.NewFromFloat(0.0450),
	"OR": decimal.Zero,
	"PA": decimal.NewFromFloat(0.0600),
	"RI": decimal.NewFromFloat(0.0700),
	"SC": decimal.NewFromFloat(0.0600),
	"SD": decimal.NewFromFloat(0.0450),
	"TN": decimal.NewFromFloat(0.0700),
	"TX": decimal.NewFromFloat(0.0625),
	"UT": decimal.NewFromFloat(0.0610),
	"VT": decimal.NewFromFloat(0.0600),
	"VA": decimal.NewFromFloat(0.0530),
	"WA": decimal.NewFromFloat(0.0650),
	"WV": decimal.NewFromFloat(0.0600),
	"WI": decimal.NewFromFloat(0.0500),
	"WY": decimal.NewFromFloat(0.0400),
	"DC": decimal.NewFromFloat(0.0600),
}

// GetTaxRate returns the flat rate for the given state code. Unknown or
// blank codes map to zero rather than an error so checkout never fails on
// an address the table has no entry for.
func GetTaxRate(stateCode string) decimal.Decimal {
	rate, ok := stateRates[normalize(stateCode)]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// CalculateTax computes sales tax on a subtotal in integer cents. Any
// fractional cent rounds up so the platform never undercollects
// (2500 at 6.25% is 156.25, charged as 157).
func CalculateTax(subtotalCents int64, stateCode string) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	rate := GetTaxRate(stateCode)
	if rate.IsZero() {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).Mul(rate).Ceil().IntPart()
}

func normalize(stateCode string) string {
	return strings.ToUpper(strings.TrimSpace(stateCode))
}
