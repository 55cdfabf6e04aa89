// Package types provides the numeric value types used by the ledgers.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. Ledgers never round stored amounts;
// rounding happens only when rendering (StringFixed(2)).
type Money = decimal.Decimal

// NewMoney creates Money from an integer amount of major units.
func NewMoney(v int64) Money {
	return decimal.NewFromInt(v)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// SumMoney adds all values.
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Quantity is a stock amount with exactly four fractional digits, held as
// the number of ten-thousandths. Columns store the scaled BIGINT so that the
// conditional decrement (quantity >= n) is exact.
type Quantity int64

const quantityPlaces = 4

// NewQuantity creates a whole-unit quantity.
func NewQuantity(units int64) Quantity {
	return Quantity(decimal.NewFromInt(units).Shift(quantityPlaces).IntPart())
}

// ErrQuantityOverflow is returned when a sum leaves the storable range.
var ErrQuantityOverflow = errors.New("quantity out of range")

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

// Add returns q+n, or ErrQuantityOverflow when the sum does not fit.
func (q Quantity) Add(n Quantity) (Quantity, error) {
	if (n > 0 && q > math.MaxInt64-n) || (n < 0 && q < math.MinInt64-n) {
		return 0, ErrQuantityOverflow
	}
	return q + n, nil
}

// Float64 is for rule evaluation and display only.
func (q Quantity) Float64() float64 {
	f, _ := q.Decimal().Float64()
	return f
}

// Decimal converts q to an exact decimal.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -quantityPlaces)
}

// Cost is the money value of q at unitPrice.
func (q Quantity) Cost(unitPrice Money) Money {
	return q.Decimal().Mul(unitPrice)
}

func (q Quantity) String() string {
	return q.Decimal().StringFixed(quantityPlaces)
}

// MarshalJSON writes a bare JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string or null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*q = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		raw = s
	}
	parsed, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a decimal string. Digits past the fourth fractional
// place are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	scaled := d.Truncate(quantityPlaces).Shift(quantityPlaces)
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("quantity %q out of range", s)
	}
	return Quantity(scaled.IntPart()), nil
}
