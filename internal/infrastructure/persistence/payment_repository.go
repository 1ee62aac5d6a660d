package persistence

import (
	"context"

	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements treasury.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment of the company
func (r *GormPaymentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*treasury.Payment, error) {
	return r.find(r.db.WithContext(ctx), companyID, id)
}

// FindByIDForUpdate finds a payment and row-locks it until the transaction ends
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*treasury.Payment, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), companyID, id)
}

func (r *GormPaymentRepository) find(db *gorm.DB, companyID, id uuid.UUID) (*treasury.Payment, error) {
	var m models.PaymentModel
	if err := db.Where("company_id = ? AND id = ?", companyID, id).First(&m).Error; err != nil {
		return nil, translateError("find payment", err)
	}
	return m.ToDomain()
}

// Save inserts or updates the payment with an optimistic version check
func (r *GormPaymentRepository) Save(ctx context.Context, payment *treasury.Payment) error {
	m := models.PaymentModelFromDomain(payment)
	version, err := saveVersioned(r.db.WithContext(ctx), m, payment.CompanyID, payment.ID, payment.Version, func(v int) { m.Version = v })
	if err != nil {
		return err
	}
	payment.Version = version
	return nil
}

// GormAllocationRepository implements treasury.AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// CreateBatch inserts allocation rows in one statement
func (r *GormAllocationRepository) CreateBatch(ctx context.Context, allocations []treasury.PaymentAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]models.PaymentAllocationModel, 0, len(allocations))
	for _, a := range allocations {
		rows = append(rows, models.PaymentAllocationModelFromDomain(a))
	}
	return translateError("create allocations", r.db.WithContext(ctx).Create(&rows).Error)
}

// ListByPayment returns the allocations of a payment in creation order
func (r *GormAllocationRepository) ListByPayment(ctx context.Context, companyID, paymentID uuid.UUID) ([]treasury.PaymentAllocation, error) {
	var rows []models.PaymentAllocationModel
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND payment_id = ?", companyID, paymentID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, translateError("list allocations", err)
	}
	out := make([]treasury.PaymentAllocation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

var (
	_ treasury.PaymentRepository    = (*GormPaymentRepository)(nil)
	_ treasury.AllocationRepository = (*GormAllocationRepository)(nil)
)
