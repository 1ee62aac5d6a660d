package handler

import (
	"strings"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// parseAmount parses a validated decimal string field
func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, shared.NewValidationError("INVALID_AMOUNT", field+" must be a decimal number")
	}
	return d, nil
}

// parseQuantity parses a validated decimal string field at quantity scale
func parseQuantity(field, s string) (valueobject.Quantity, error) {
	q, err := valueobject.NewQuantityFromString(strings.TrimSpace(s))
	if err != nil {
		return valueobject.Quantity{}, shared.NewValidationError("INVALID_QUANTITY", field+" must be a decimal number")
	}
	return q, nil
}

// parseCurrency accepts an empty code, leaving the choice to the service
func parseCurrency(code string) (valueobject.Currency, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}
	cur, err := valueobject.ParseCurrency(code)
	if err != nil {
		return "", shared.NewValidationError("INVALID_CURRENCY", err.Error())
	}
	return cur, nil
}
