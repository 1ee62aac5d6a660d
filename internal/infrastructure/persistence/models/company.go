package models

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyModel holds the company columns the core reads. The tolerance
// columns are nullable; NULL means "inherit from the country".
type CompanyModel struct {
	BaseModel
	Name                string           `gorm:"type:varchar(200);not null"`
	CountryCode         string           `gorm:"type:char(2);not null"`
	ToleranceEnabled    *bool            `gorm:"column:payment_tolerance_enabled"`
	TolerancePercentage *decimal.Decimal `gorm:"column:payment_tolerance_percentage;type:decimal(7,4)"`
	ToleranceMaxAmount  *decimal.Decimal `gorm:"column:payment_tolerance_max_amount;type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToProfile converts the model to the treasury view of a company
func (m *CompanyModel) ToProfile() *treasury.CompanyProfile {
	return &treasury.CompanyProfile{
		ID:          m.ID,
		CountryCode: m.CountryCode,
		Tolerance: treasury.ToleranceOverride{
			Enabled:    m.ToleranceEnabled,
			Percentage: m.TolerancePercentage,
			MaxAmount:  m.ToleranceMaxAmount,
		},
	}
}

// CountryPaymentSettingsModel is the per-country tolerance default
type CountryPaymentSettingsModel struct {
	CountryCode         string          `gorm:"type:char(2);primary_key"`
	ToleranceEnabled    bool            `gorm:"column:payment_tolerance_enabled;not null;default:true"`
	TolerancePercentage decimal.Decimal `gorm:"column:payment_tolerance_percentage;type:decimal(7,4);not null"`
	ToleranceMaxAmount  decimal.Decimal `gorm:"column:payment_tolerance_max_amount;type:decimal(18,4);not null"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CountryPaymentSettingsModel) TableName() string {
	return "country_payment_settings"
}

// ToDomain converts the persistence model to domain settings
func (m *CountryPaymentSettingsModel) ToDomain() *treasury.CountryPaymentSettings {
	return &treasury.CountryPaymentSettings{
		CountryCode:         m.CountryCode,
		ToleranceEnabled:    m.ToleranceEnabled,
		TolerancePercentage: m.TolerancePercentage,
		ToleranceMaxAmount:  m.ToleranceMaxAmount,
	}
}

// PartnerModel is a customer or supplier of a company
type PartnerModel struct {
	BaseModel
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}
