// Package roundpkg computes round-up savings.
//
// Every caller that needs the savings delta of an expense, whether it is
// recording a submission or only rendering a listing, goes through
// SavingsDelta so that both paths agree on every input.
package roundpkg

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept on a savings delta.
const Places = 2

// Step is the multiple expenses are rounded up to.
const Step = 10

// Bounds on accepted amounts. Rounding rescales to the exponent, so an
// unbounded exponent costs time and memory proportional to its size.
const (
	MaxScale    = 18
	MaxExponent = 18
	MaxDigits   = 30

	maxInputLen = 64
)

// Parse converts an untrusted amount into a decimal.
//
// It accepts strings, json.Number, integers, floats and decimals. The second
// return value is false when the input is not a finite number or lies
// outside MaxScale, MaxExponent or MaxDigits.
func Parse(amount any) (decimal.Decimal, bool) {
	d, ok := parse(amount)
	if !ok || !bounded(d) {
		return decimal.Zero, false
	}

	return d, true
}

func parse(amount any) (decimal.Decimal, bool) {
	switch v := amount.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case string:
		return parseString(v)
	case json.Number:
		return parseString(v.String())
	case float64:
		return parseFloat(v)
	case float32:
		return parseFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	}

	return decimal.Zero, false
}

func bounded(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > MaxExponent || exp < -MaxScale {
		return false
	}

	return d.NumDigits() <= MaxDigits
}

func parseString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxInputLen {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

func parseFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}

	return decimal.NewFromFloat(f), true
}

// SavingsDelta returns the difference between amount and the next multiple of ten.
//
// Input that does not parse to a finite number, or parses to a value <= 0,
// yields zero. The result lies in [0, 10) and is rounded to Places.
func SavingsDelta(amount any) decimal.Decimal {
	x, ok := Parse(amount)
	if !ok || !x.IsPositive() {
		return decimal.Zero
	}

	// Shift is exact, unlike Div which is bounded by DivisionPrecision.
	next := x.Shift(-1).Ceil().Shift(1)

	return next.Sub(x).Round(Places)
}

// Display formats an amount with two fractional digits.
func Display(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
