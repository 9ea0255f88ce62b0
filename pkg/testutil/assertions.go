package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// AssertDecimal compares money values by numeric value, ignoring exponent.
func AssertDecimal(t *testing.T, want string, got decimal.Decimal) bool {
	t.Helper()
	w := decimal.RequireFromString(want)
	return assert.Truef(t, w.Equal(got), "want %s, got %s", w.String(), got.String())
}

// AssertErrorAs checks that err wraps a value of type *T.
func AssertErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		assert.Fail(t, "error type mismatch", "expected %T in chain, got %v", target, err)
	}
	return target
}

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), expected)
	}
}
