// Package money holds the minor-unit arithmetic shared by every monetary
// computation in the leasing engine. All amounts are single-currency
// decimals kept at two fractional digits.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits (minor units) an amount carries.
const Scale = 2

// Epsilon is half a minor unit. Two amounts closer than Epsilon are equal.
var Epsilon = decimal.New(5, -(Scale + 1))

// Round rounds d to minor-unit precision using round-half-up. Amounts in the
// engine are never negative, so half-away-from-zero and half-up coincide.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Equal reports whether a and b are equal within Epsilon.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// IsZero reports whether d rounds to zero minor units.
func IsZero(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// Positive reports whether d is at least one minor unit above zero.
func Positive(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Epsilon)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Sum adds the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Split divides total into parts equal shares truncated to minor units. The
// last share absorbs the remainder so the shares always sum to total.
func Split(total decimal.Decimal, parts int) ([]decimal.Decimal, error) {
	if parts < 1 {
		return nil, fmt.Errorf("money: split into %d parts", parts)
	}
	base := total.Div(decimal.NewFromInt(int64(parts))).RoundDown(Scale)
	shares := make([]decimal.Decimal, parts)
	for i := 0; i < parts-1; i++ {
		shares[i] = base
	}
	shares[parts-1] = total.Sub(base.Mul(decimal.NewFromInt(int64(parts - 1))))
	return shares, nil
}

// Parse reads an amount from free-form input such as "1 250.00" or
// "1,250.5" and rounds it to minor units. A comma is only accepted as a
// thousands separator between three-digit groups; "12,50" is rejected rather
// than read as 1250.
func Parse(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("money: empty amount")
	}
	cleaned, err := stripThousands(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: invalid amount %q: %w", raw, err)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: invalid amount %q: %w", raw, err)
	}
	return Round(d), nil
}

func stripThousands(s string) (string, error) {
	if !strings.Contains(s, ",") {
		return s, nil
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if strings.Contains(frac, ",") {
		return "", fmt.Errorf("comma in fractional part")
	}
	sign := ""
	if strings.HasPrefix(whole, "-") || strings.HasPrefix(whole, "+") {
		sign, whole = whole[:1], whole[1:]
	}
	groups := strings.Split(whole, ",")
	for i, g := range groups {
		if !allDigits(g) || len(g) > 3 || (i > 0 && len(g) != 3) || len(g) == 0 {
			return "", fmt.Errorf("misplaced thousands separator")
		}
	}
	out := sign + strings.Join(groups, "")
	if hasFrac {
		out += "." + frac
	}
	return out, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
