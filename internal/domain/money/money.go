// Package money holds the fixed-precision amount rules and the currency set
// shared by every ledger component.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every stored amount carries.
const Scale int32 = 2

// Epsilon is the smallest representable unit at Scale.
var Epsilon = decimal.New(1, -Scale)

// Round applies banker's rounding at Scale. Every arithmetic result passes
// through here before it is persisted or compared.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// IsPositive reports whether d is still > 0 after rounding.
func IsPositive(d decimal.Decimal) bool {
	return Round(d).IsPositive()
}

// Add returns the rounded sum.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Add(b))
}

// Sub returns the rounded difference.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Sub(b))
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(Scale)
}

// Currency is one of the supported ISO-like codes, plus PTS for reward points.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	NGN Currency = "NGN"
	KES Currency = "KES"
	GHS Currency = "GHS"
	ZAR Currency = "ZAR"
	INR Currency = "INR"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	PTS Currency = "PTS"
)

var supportedCurrencies = map[Currency]struct{}{
	USD: {}, EUR: {}, GBP: {}, NGN: {}, KES: {}, GHS: {}, ZAR: {}, INR: {}, CAD: {}, AUD: {}, PTS: {},
}

// ParseCurrency normalizes raw and reports whether it is supported.
func ParseCurrency(raw string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := supportedCurrencies[c]
	return c, ok
}

// Valid reports whether c belongs to the supported set.
func (c Currency) Valid() bool {
	_, ok := supportedCurrencies[c]
	return ok
}
