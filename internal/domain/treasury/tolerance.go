package treasury

import (
	"fmt"

	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ToleranceSource names the configuration level that produced the settings
type ToleranceSource string

const (
	ToleranceSourceCompany ToleranceSource = "company"
	ToleranceSourceCountry ToleranceSource = "country"
	ToleranceSourceSystem  ToleranceSource = "system"
)

// ToleranceType tells whether the payer paid too little or too much
type ToleranceType string

const (
	ToleranceTypeNone         ToleranceType = ""
	ToleranceTypeUnderpayment ToleranceType = "underpayment"
	ToleranceTypeOverpayment  ToleranceType = "overpayment"
)

// Reasons returned by CheckTolerance
const (
	ReasonToleranceDisabled  = "Tolerance disabled"
	ReasonWithinTolerance    = "Within tolerance"
	ReasonPercentageExceeded = "percentage threshold"
	ReasonMaxAmountExceeded  = "max amount threshold"
)

// ToleranceSettings is the single effective tolerance configuration for a company
type ToleranceSettings struct {
	Enabled    bool
	Percentage decimal.Decimal
	MaxAmount  decimal.Decimal
	Source     ToleranceSource
}

// SystemDefaultTolerance is used when neither company nor country say otherwise:
// enabled, 0.5% and at most 0.50.
func SystemDefaultTolerance() ToleranceSettings {
	return ToleranceSettings{
		Enabled:    true,
		Percentage: decimal.RequireFromString("0.0050"),
		MaxAmount:  decimal.RequireFromString("0.50"),
		Source:     ToleranceSourceSystem,
	}
}

// ToleranceOverride holds the nullable company-level tolerance columns
type ToleranceOverride struct {
	Enabled    *bool
	Percentage *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// active reports whether the company override is the effective source.
// An explicit disable always wins; otherwise both thresholds must be set.
func (o *ToleranceOverride) active() bool {
	if o == nil {
		return false
	}
	if o.Enabled != nil && !*o.Enabled {
		return true
	}
	return o.Percentage != nil && o.MaxAmount != nil
}

// CountryPaymentSettings is the per-country tolerance default
type CountryPaymentSettings struct {
	CountryCode         string
	ToleranceEnabled    bool
	TolerancePercentage decimal.Decimal
	ToleranceMaxAmount  decimal.Decimal
}

// ResolveToleranceSettings applies precedence company > country > system.
// Exactly one level is used; values are never mixed across levels.
func ResolveToleranceSettings(company *ToleranceOverride, country *CountryPaymentSettings, system ToleranceSettings) ToleranceSettings {
	if company.active() {
		s := ToleranceSettings{Enabled: true, Source: ToleranceSourceCompany}
		if company.Enabled != nil {
			s.Enabled = *company.Enabled
		}
		if company.Percentage != nil {
			s.Percentage = *company.Percentage
		}
		if company.MaxAmount != nil {
			s.MaxAmount = *company.MaxAmount
		}
		return s
	}
	if country != nil {
		return ToleranceSettings{
			Enabled:    country.ToleranceEnabled,
			Percentage: country.TolerancePercentage,
			MaxAmount:  country.ToleranceMaxAmount,
			Source:     ToleranceSourceCountry,
		}
	}
	system.Source = ToleranceSourceSystem
	return system
}

// ToleranceResult classifies a payment/invoice difference
type ToleranceResult struct {
	Qualifies  bool
	Difference decimal.Decimal
	Type       ToleranceType
	Reason     string
}

// CheckTolerance decides whether the difference between invoiceAmount and
// paymentAmount may be written off. Both thresholds are inclusive and both
// must hold. An exact payment never qualifies.
func CheckTolerance(invoiceAmount, paymentAmount decimal.Decimal, settings ToleranceSettings) ToleranceResult {
	invoice := valueobject.Round(invoiceAmount, valueobject.TreasuryScale)
	payment := valueobject.Round(paymentAmount, valueobject.TreasuryScale)
	diff := invoice.Sub(payment).Abs()

	if diff.IsZero() {
		return ToleranceResult{Qualifies: false, Difference: decimal.Zero}
	}

	res := ToleranceResult{Difference: diff, Type: ToleranceTypeOverpayment}
	if payment.LessThan(invoice) {
		res.Type = ToleranceTypeUnderpayment
	}

	if !settings.Enabled {
		res.Reason = ReasonToleranceDisabled
		return res
	}

	percentageLimit := valueobject.Round(invoice.Mul(settings.Percentage), valueobject.TreasuryScale)
	switch {
	case diff.GreaterThan(percentageLimit):
		res.Reason = fmt.Sprintf("Difference %s exceeds %s (%s)",
			diff.StringFixed(valueobject.TreasuryScale), ReasonPercentageExceeded, percentageLimit.StringFixed(valueobject.TreasuryScale))
	case diff.GreaterThan(settings.MaxAmount):
		res.Reason = fmt.Sprintf("Difference %s exceeds %s (%s)",
			diff.StringFixed(valueobject.TreasuryScale), ReasonMaxAmountExceeded, settings.MaxAmount.StringFixed(valueobject.TreasuryScale))
	default:
		res.Qualifies = true
		res.Reason = ReasonWithinTolerance
	}
	return res
}
