package persistence

import (
	"context"
	"time"

	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// countingItemBatchSize bounds the rows per INSERT when a counting is created
const countingItemBatchSize = 200

// GormCountingRepository implements inventory.CountingRepository using GORM
type GormCountingRepository struct {
	db *gorm.DB
}

// NewGormCountingRepository creates a new GormCountingRepository
func NewGormCountingRepository(db *gorm.DB) *GormCountingRepository {
	return &GormCountingRepository{db: db}
}

// FindByID finds a counting of the company
func (r *GormCountingRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*inventory.InventoryCounting, error) {
	var m models.InventoryCountingModel
	if err := r.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&m).Error; err != nil {
		return nil, translateError("find counting", err)
	}
	return m.ToDomain(), nil
}

// Save inserts or updates the counting with an optimistic version check
func (r *GormCountingRepository) Save(ctx context.Context, counting *inventory.InventoryCounting) error {
	m := models.InventoryCountingModelFromDomain(counting)
	version, err := saveVersioned(r.db.WithContext(ctx), m, counting.CompanyID, counting.ID, counting.Version, func(v int) { m.Version = v })
	if err != nil {
		return err
	}
	counting.Version = version
	return nil
}

// FindItems returns the items of a counting in creation order
func (r *GormCountingRepository) FindItems(ctx context.Context, companyID, countingID uuid.UUID) ([]*inventory.CountingItem, error) {
	var rows []models.CountingItemModel
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND counting_id = ?", companyID, countingID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, translateError("find counting items", err)
	}
	items := make([]*inventory.CountingItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}
	return items, nil
}

// FindItem finds one item of a counting
func (r *GormCountingRepository) FindItem(ctx context.Context, companyID, countingID, itemID uuid.UUID) (*inventory.CountingItem, error) {
	var m models.CountingItemModel
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND counting_id = ? AND id = ?", companyID, countingID, itemID).
		First(&m).Error
	if err != nil {
		return nil, translateError("find counting item", err)
	}
	return m.ToDomain(), nil
}

// CreateItems inserts new items in batches
func (r *GormCountingRepository) CreateItems(ctx context.Context, items []*inventory.CountingItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*models.CountingItemModel, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.CountingItemModelFromDomain(item))
	}
	return translateError("create counting items", r.db.WithContext(ctx).CreateInBatches(rows, countingItemBatchSize).Error)
}

// SaveItem writes the item only if its version is unchanged since it was read,
// then bumps the version on both the row and item
func (r *GormCountingRepository) SaveItem(ctx context.Context, item *inventory.CountingItem) error {
	m := models.CountingItemModelFromDomain(item)
	m.Version = item.Version + 1
	m.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(m).
		Where("company_id = ? AND counting_id = ? AND version = ?", item.CompanyID, item.CountingID, item.Version).
		Select("*").
		Omit("id", "counting_id", "company_id", "product_id", "location_id", "created_at").
		Updates(m)
	if result.Error != nil {
		return translateError("save counting item", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	item.Version = m.Version
	item.UpdatedAt = m.UpdatedAt
	return nil
}

var _ inventory.CountingRepository = (*GormCountingRepository)(nil)
