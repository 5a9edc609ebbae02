package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents). Monetary values are
// never stored or compared as floating point.
type Money int64

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// String renders the amount as a plain decimal, e.g. 450 -> "4.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MulQuantity multiplies a line total by a possibly fractional quantity and
// rounds half away from zero to the nearest cent.
func (m Money) MulQuantity(quantity float64) Money {
	product := decimal.NewFromInt(int64(m)).Mul(decimal.NewFromFloat(quantity))
	return Money(product.Round(0).IntPart())
}

// ParseCurrency converts free-text currency strings ("$4.50", "USD 4.50") to
// cents. Every character except digits and '.' is stripped before parsing.
// Malformed input is reported via ok=false, never as an error.
func ParseCurrency(text string) (Money, bool) {
	cleaned := stripToNumeric(text)
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	// Round half away from zero on the cents value.
	return Money(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()), true
}

// ParseQuantity parses a quantity field as a plain number. Quantities may be
// fractional for weighed goods.
func ParseQuantity(text string) (float64, bool) {
	cleaned := stripToNumeric(text)
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

func stripToNumeric(text string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, text)
}
