package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a stock quantity held at QuantityScale
type Quantity struct {
	value decimal.Decimal
}

// NewQuantity rounds value to QuantityScale
func NewQuantity(value decimal.Decimal) Quantity {
	return Quantity{value: Round(value, QuantityScale)}
}

// NewQuantityFromString parses a decimal string
func NewQuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity: %w", err)
	}
	return NewQuantity(d), nil
}

// MustQuantity is NewQuantityFromString for literals
func MustQuantity(s string) Quantity {
	q, err := NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}

// Decimal returns the underlying value
func (q Quantity) Decimal() decimal.Decimal {
	return q.value
}

// Equal compares at QuantityScale
func (q Quantity) Equal(other Quantity) bool {
	return q.value.Equal(other.value)
}

// IsNegative reports whether q < 0
func (q Quantity) IsNegative() bool {
	return q.value.IsNegative()
}

// IsZero reports whether q == 0
func (q Quantity) IsZero() bool {
	return q.value.IsZero()
}

// Sub returns q - other
func (q Quantity) Sub(other Quantity) Quantity {
	return Quantity{value: q.value.Sub(other.value)}
}

// Abs returns |q|
func (q Quantity) Abs() Quantity {
	return Quantity{value: q.value.Abs()}
}

// String formats with four decimals
func (q Quantity) String() string {
	return q.value.StringFixed(QuantityScale)
}
