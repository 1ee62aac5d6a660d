// Package treasury hosts the payment tolerance and allocation services.
package treasury

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
)

// ToleranceService resolves and applies payment tolerance for a company
type ToleranceService struct {
	settings treasury.SettingsReader
	system   treasury.ToleranceSettings
	logger   *zap.Logger
}

// NewToleranceService creates a ToleranceService. system is the last-resort
// default used when neither the company nor its country configure tolerance.
func NewToleranceService(settings treasury.SettingsReader, system treasury.ToleranceSettings, logger *zap.Logger) *ToleranceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToleranceService{settings: settings, system: system, logger: logger}
}

// CheckToleranceRequest is the input of CheckTolerance
type CheckToleranceRequest struct {
	CompanyID     uuid.UUID
	InvoiceAmount decimal.Decimal
	PaymentAmount decimal.Decimal
}

// GetToleranceSettings returns the effective settings and where they came from
func (s *ToleranceService) GetToleranceSettings(ctx context.Context, companyID uuid.UUID) (treasury.ToleranceSettings, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tolerance", "get_settings")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCompanyID, companyID.String())

	settings, err := s.resolve(ctx, companyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return treasury.ToleranceSettings{}, err
	}
	telemetry.SetAttributes(span, "tolerance_source", string(settings.Source))
	return settings, nil
}

// CheckTolerance classifies the difference between an invoice and a payment
// using the company's effective settings
func (s *ToleranceService) CheckTolerance(ctx context.Context, req CheckToleranceRequest) (treasury.ToleranceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tolerance", "check")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		"invoice_amount", req.InvoiceAmount.String(),
		"payment_amount", req.PaymentAmount.String(),
	)

	if req.InvoiceAmount.IsNegative() || req.PaymentAmount.IsNegative() {
		err := shared.NewValidationError("INVALID_AMOUNT", "Amounts cannot be negative")
		telemetry.RecordError(span, err)
		return treasury.ToleranceResult{}, err
	}

	settings, err := s.resolve(ctx, req.CompanyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return treasury.ToleranceResult{}, err
	}

	result := treasury.CheckTolerance(req.InvoiceAmount, req.PaymentAmount, settings)
	telemetry.SetAttributes(span, "qualifies", result.Qualifies, "difference", result.Difference.String())
	return result, nil
}

func (s *ToleranceService) resolve(ctx context.Context, companyID uuid.UUID) (treasury.ToleranceSettings, error) {
	if companyID == uuid.Nil {
		return treasury.ToleranceSettings{}, shared.NewValidationError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	company, err := s.settings.GetCompanyProfile(ctx, companyID)
	if err != nil {
		return treasury.ToleranceSettings{}, err
	}
	if company == nil {
		return treasury.ToleranceSettings{}, shared.NewNotFoundError("COMPANY_NOT_FOUND", "Company not found")
	}

	var country *treasury.CountryPaymentSettings
	if company.CountryCode != "" {
		country, err = s.settings.GetCountrySettings(ctx, company.CountryCode)
		if err != nil {
			return treasury.ToleranceSettings{}, err
		}
	}

	settings := treasury.ResolveToleranceSettings(&company.Tolerance, country, s.system)
	s.logger.Debug("Resolved tolerance settings",
		zap.String("company_id", companyID.String()),
		zap.String("source", string(settings.Source)),
		zap.Bool("enabled", settings.Enabled),
	)
	return settings, nil
}
