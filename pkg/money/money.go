// Package money holds the currency table, conversion and display helpers.
//
// Rates are units of local currency per one unit of the reference currency,
// so the reference itself has rate 1 and conversion always pivots through it.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Table maps an upper-case ISO code to its rate against the reference currency.
type Table map[string]decimal.Decimal

// NewTable copies rates, normalizing codes. Non-positive rates are skipped.
func NewTable(rates map[string]decimal.Decimal) Table {
	t := make(Table, len(rates))
	for code, rate := range rates {
		if !rate.IsPositive() {
			continue
		}
		t[NormalizeCode(code)] = rate
	}
	return t
}

func (t Table) Rate(code string) (decimal.Decimal, bool) {
	r, ok := t[NormalizeCode(code)]
	return r, ok
}

func (t Table) Has(code string) bool {
	_, ok := t.Rate(code)
	return ok
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Convert moves amount from one currency to another at full precision.
// Identical codes return the amount untouched, even when absent from the table.
func Convert(amount decimal.Decimal, from, to string, t Table) (decimal.Decimal, error) {
	from, to = NormalizeCode(from), NormalizeCode(to)
	if from == to {
		return amount, nil
	}
	rf, ok := t[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	rt, ok := t[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return amount.Mul(rt).Div(rf), nil
}

// CrossRate is the number of units of to bought by one unit of from.
func CrossRate(from, to string, t Table) (decimal.Decimal, error) {
	return Convert(decimal.NewFromInt(1), from, to, t)
}

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a user supplied number, rejecting anything non-numeric.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}
