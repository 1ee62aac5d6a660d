package treasury

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)
	// FindByIDForUpdate row-locks the payment until the transaction ends
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)
	// Save inserts or updates with an optimistic version check
	Save(ctx context.Context, payment *Payment) error
}

// AllocationRepository persists allocation rows
type AllocationRepository interface {
	CreateBatch(ctx context.Context, allocations []PaymentAllocation) error
	ListByPayment(ctx context.Context, companyID, paymentID uuid.UUID) ([]PaymentAllocation, error)
}

// CompanyProfile is the slice of company data the treasury needs
type CompanyProfile struct {
	ID          uuid.UUID
	CountryCode string
	Tolerance   ToleranceOverride
}

// SettingsReader reads company and country configuration
type SettingsReader interface {
	GetCompanyProfile(ctx context.Context, companyID uuid.UUID) (*CompanyProfile, error)
	// GetCountrySettings returns nil, nil when the country has no settings
	GetCountrySettings(ctx context.Context, countryCode string) (*CountryPaymentSettings, error)
}

// PartnerReader checks partner existence within a company
type PartnerReader interface {
	PartnerExists(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error)
}
