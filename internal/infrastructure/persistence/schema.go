package persistence

import (
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Models lists every table the service owns. Production schemas come from
// the SQL migrations; AutoMigrate over Models is used by tests.
func Models() []any {
	return []any{
		&models.CompanyModel{},
		&models.CountryPaymentSettingsModel{},
		&models.PartnerModel{},
		&models.DocumentModel{},
		&models.PaymentModel{},
		&models.PaymentAllocationModel{},
		&models.FiscalChainEntryModel{},
		&models.InventoryCountingModel{},
		&models.CountingItemModel{},
		&models.DomainEventModel{},
	}
}

// AutoMigrate creates or updates the tables in Models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
