package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Fixed scales for stored amounts. Document totals carry 2 decimals,
// treasury amounts and inventory quantities carry 4.
const (
	DocumentScale int32 = 2
	TreasuryScale int32 = 4
	QuantityScale int32 = 4
)

// Currency is an ISO 4217 code
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// DefaultCurrency is used when a company has no currency configured
const DefaultCurrency = EUR

// ParseCurrency validates an ISO 4217 code and returns its canonical form
func ParseCurrency(code string) (Currency, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errors.New("currency cannot be empty")
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return Currency(unit.String()), nil
}

// Round rounds d half away from zero at places. Every scale transition in
// the system goes through it.
func Round(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Money is an immutable amount in one currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney validates the currency and keeps the amount as given
func NewMoney(amount decimal.Decimal, cur Currency) (Money, error) {
	c, err := ParseCurrency(string(cur))
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: c}, nil
}

// NewMoneyFromString parses a decimal amount such as "120.50"
func NewMoneyFromString(amount string, cur Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, cur)
}

// MustMoney is NewMoneyFromString for literals known to be valid
func MustMoney(amount string, cur Currency) Money {
	m, err := NewMoneyFromString(amount, cur)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// Add sums two amounts of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub subtracts an amount of the same currency
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Mul scales the amount by factor and rounds the product to places
func (m Money) Mul(factor decimal.Decimal, places int32) Money {
	return Money{amount: Round(m.amount.Mul(factor), places), currency: m.currency}
}

// Div divides the amount by divisor, rounding half away from zero at places
func (m Money) Div(divisor decimal.Decimal, places int32) (Money, error) {
	if divisor.IsZero() {
		return Money{}, errors.New("cannot divide money by zero")
	}
	return Money{amount: m.amount.DivRound(divisor, places), currency: m.currency}, nil
}

// Normalize rounds the amount to places. Amounts are normalized to their
// declared scale before they are compared or stored.
func (m Money) Normalize(places int32) Money {
	return Money{amount: Round(m.amount, places), currency: m.currency}
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders the amount at document scale followed by the currency
func (m Money) String() string {
	return m.amount.StringFixed(DocumentScale) + " " + string(m.currency)
}

// StringFixed renders the amount with exactly places decimals
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
