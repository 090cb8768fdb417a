package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary amounts are NUMERIC(15,2) in the database and decimal.Decimal in
// memory. Arithmetic never goes through binary floating point: the HTTP
// boundary decodes amounts as json.Number and hands the literal text here.

var ErrBadAmount = errors.New("invalid monetary amount")

// ParseAmount converts the literal text of a client-supplied amount into a
// scale-2 decimal. Amounts with more than two fractional digits, or that do
// not round-trip exactly, are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("%w: %q has more than 2 decimal places", ErrBadAmount, s)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("%w: %q does not round-trip at scale 2", ErrBadAmount, s)
	}
	return d.Round(2), nil
}

// MinorUnits returns the amount in the currency's smallest unit (kobo for
// NGN). Exact by construction since ParseAmount enforces scale 2.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// FromMinorUnits converts a provider-reported minor-unit amount back to a
// scale-2 decimal.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Shift(-2)
}

// Positive reports whether d is strictly greater than zero.
func Positive(d decimal.Decimal) bool {
	return d.IsPositive()
}
