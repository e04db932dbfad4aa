// Package currency converts between wishlist prices and integer points.
//
// Points are canonical. Prices derived from points are for display and must
// never be fed back into a ledger computation.
package currency

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/dukerupert/marinda/internal/apperr"
)

// DefaultCode is used when a family has not configured a currency.
const DefaultCode = "USD"

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// ToPoints returns round(price × rate), rounding half away from zero.
func ToPoints(price, rate decimal.Decimal) (int64, error) {
	if !rate.IsPositive() {
		return 0, apperr.New(apperr.KindInvalidRate, "rate must be greater than zero, got %s", rate)
	}
	if price.IsNegative() {
		return 0, apperr.New(apperr.KindInvalidInput, "price must not be negative")
	}
	pts := price.Mul(rate).Round(0)
	if pts.GreaterThan(maxPoints) {
		return 0, apperr.New(apperr.KindInvalidInput, "price %s is too large", price)
	}
	return pts.IntPart(), nil
}

// ToPrice returns points / rate rounded to the minor unit of code.
func ToPrice(points int64, rate decimal.Decimal, code string) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, apperr.New(apperr.KindInvalidRate, "rate must be greater than zero, got %s", rate)
	}
	scale, increment, err := MinorUnit(code)
	if err != nil {
		return decimal.Zero, err
	}
	return roundTo(decimal.NewFromInt(points).Div(rate), scale, increment), nil
}

// MinorUnit reports the number of decimal places and the rounding increment
// of an ISO 4217 currency.
func MinorUnit(code string) (scale int32, increment int64, err error) {
	unit, err := parse(code)
	if err != nil {
		return 0, 0, err
	}
	s, inc := currency.Standard.Rounding(unit)
	if inc < 1 {
		inc = 1
	}
	return int32(s), int64(inc), nil
}

// Normalize validates code and returns its canonical form.
func Normalize(code string) (string, error) {
	unit, err := parse(code)
	if err != nil {
		return "", err
	}
	return unit.String(), nil
}

// Format renders amount at the currency's minor unit, e.g. "12.50 USD".
func Format(amount decimal.Decimal, code string) (string, error) {
	scale, increment, err := MinorUnit(code)
	if err != nil {
		return "", err
	}
	unit, _ := parse(code)
	return roundTo(amount, scale, increment).StringFixed(scale) + " " + unit.String(), nil
}

func parse(code string) (currency.Unit, error) {
	if strings.TrimSpace(code) == "" {
		code = DefaultCode
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, apperr.Wrap(err, apperr.KindInvalidInput, "unknown currency "+code)
	}
	return unit, nil
}

func roundTo(d decimal.Decimal, scale int32, increment int64) decimal.Decimal {
	if increment <= 1 {
		return d.Round(scale)
	}
	step := decimal.New(increment, -scale)
	return d.Div(step).Round(0).Mul(step)
}
