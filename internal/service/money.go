package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseDollars converts a dollar string like "12.50" into whole cents.
// Sub-cent precision is rejected rather than silently rounded.
func ParseDollars(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", ErrValidation, s, err)
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: amount %q has sub-cent precision", ErrValidation, s)
	}
	return cents.IntPart(), nil
}

// FormatDollars renders cents as a plain dollar string, e.g. 1234 -> "12.34".
func FormatDollars(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
