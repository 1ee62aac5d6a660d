package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrCompanyNotFound is returned for an unknown company id
var ErrCompanyNotFound = shared.NewNotFoundError("COMPANY_NOT_FOUND", "Company not found")

// GormSettingsRepository reads company and country configuration and
// partner existence for the treasury services
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// GetCompanyProfile returns the company's country and tolerance override
func (r *GormSettingsRepository) GetCompanyProfile(ctx context.Context, companyID uuid.UUID) (*treasury.CompanyProfile, error) {
	var m models.CompanyModel
	err := r.db.WithContext(ctx).Where("id = ?", companyID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, translateError("find company", err)
	}
	return m.ToProfile(), nil
}

// GetCountrySettings returns nil, nil when the country has no settings row
func (r *GormSettingsRepository) GetCountrySettings(ctx context.Context, countryCode string) (*treasury.CountryPaymentSettings, error) {
	var rows []models.CountryPaymentSettingsModel
	err := r.db.WithContext(ctx).
		Where("country_code = ?", strings.ToUpper(strings.TrimSpace(countryCode))).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, translateError("find country settings", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// PartnerExists reports whether the partner belongs to the company
func (r *GormSettingsRepository) PartnerExists(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.PartnerModel{}).
		Where("company_id = ? AND id = ?", companyID, partnerID).
		Count(&n).Error
	if err != nil {
		return false, translateError("find partner", err)
	}
	return n > 0, nil
}

var (
	_ treasury.SettingsReader = (*GormSettingsRepository)(nil)
	_ treasury.PartnerReader  = (*GormSettingsRepository)(nil)
)
