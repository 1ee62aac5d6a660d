package models

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryCountingModel is the persistence model for the InventoryCounting aggregate root.
type InventoryCountingModel struct {
	CompanyAggregateModel
	Number         string `gorm:"type:varchar(50);not null"`
	Scope          string `gorm:"type:text"`
	ExecutionMode  string `gorm:"type:varchar(20);not null"`
	Status         string `gorm:"type:varchar(30);not null;index"`
	RequiresCount2 bool   `gorm:"column:requires_count_2;not null;default:false"`
	RequiresCount3 bool   `gorm:"column:requires_count_3;not null;default:false"`
	StartedAt      *time.Time
	FinalizedAt    *time.Time
	CancelledAt    *time.Time
}

// TableName returns the table name for GORM
func (InventoryCountingModel) TableName() string {
	return "inventory_countings"
}

// ToDomain converts the persistence model to a domain InventoryCounting
func (m *InventoryCountingModel) ToDomain() *inventory.InventoryCounting {
	return &inventory.InventoryCounting{
		CompanyAggregateRoot: m.root(),
		Number:               m.Number,
		Scope:                m.Scope,
		ExecutionMode:        inventory.ExecutionMode(m.ExecutionMode),
		Status:               inventory.CountingStatus(m.Status),
		RequiresCount2:       m.RequiresCount2,
		RequiresCount3:       m.RequiresCount3,
		StartedAt:            m.StartedAt,
		FinalizedAt:          m.FinalizedAt,
		CancelledAt:          m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain InventoryCounting
func (m *InventoryCountingModel) FromDomain(c *inventory.InventoryCounting) {
	m.setRoot(c.CompanyAggregateRoot)
	m.Number = c.Number
	m.Scope = c.Scope
	m.ExecutionMode = string(c.ExecutionMode)
	m.Status = string(c.Status)
	m.RequiresCount2 = c.RequiresCount2
	m.RequiresCount3 = c.RequiresCount3
	m.StartedAt = c.StartedAt
	m.FinalizedAt = c.FinalizedAt
	m.CancelledAt = c.CancelledAt
}

// InventoryCountingModelFromDomain creates a new persistence model from a domain InventoryCounting
func InventoryCountingModelFromDomain(c *inventory.InventoryCounting) *InventoryCountingModel {
	m := &InventoryCountingModel{}
	m.FromDomain(c)
	return m
}

// CountingItemModel is one product/location line of a counting
type CountingItemModel struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	CountingID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_counting_items_counting,priority:2"`
	CompanyID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_counting_items_counting,priority:1"`
	ProductID        uuid.UUID        `gorm:"type:uuid;not null"`
	LocationID       uuid.UUID        `gorm:"type:uuid"`
	TheoreticalQty   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Count1Qty        *decimal.Decimal `gorm:"column:count_1_qty;type:decimal(18,4)"`
	Count2Qty        *decimal.Decimal `gorm:"column:count_2_qty;type:decimal(18,4)"`
	Count3Qty        *decimal.Decimal `gorm:"column:count_3_qty;type:decimal(18,4)"`
	FinalQty         *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ResolutionMethod string           `gorm:"type:varchar(30);not null;default:'pending'"`
	IsFlagged        bool             `gorm:"not null;default:false"`
	FlagReason       string           `gorm:"type:varchar(40)"`
	OverrideNote     string           `gorm:"type:text"`
	OverriddenBy     *uuid.UUID       `gorm:"type:uuid"`
	ResolvedAt       *time.Time
	Version          int       `gorm:"not null;default:1"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CountingItemModel) TableName() string {
	return "inventory_counting_items"
}

// ToDomain converts the persistence model to a domain CountingItem
func (m *CountingItemModel) ToDomain() *inventory.CountingItem {
	return &inventory.CountingItem{
		ID:               m.ID,
		CountingID:       m.CountingID,
		CompanyID:        m.CompanyID,
		ProductID:        m.ProductID,
		LocationID:       m.LocationID,
		TheoreticalQty:   valueobject.NewQuantity(m.TheoreticalQty),
		Count1:           quantityPtr(m.Count1Qty),
		Count2:           quantityPtr(m.Count2Qty),
		Count3:           quantityPtr(m.Count3Qty),
		FinalQty:         quantityPtr(m.FinalQty),
		ResolutionMethod: inventory.ResolutionMethod(m.ResolutionMethod),
		IsFlagged:        m.IsFlagged,
		FlagReason:       inventory.FlagReason(m.FlagReason),
		OverrideNote:     m.OverrideNote,
		OverriddenBy:     m.OverriddenBy,
		ResolvedAt:       m.ResolvedAt,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// CountingItemModelFromDomain creates a new persistence model from a domain CountingItem
func CountingItemModelFromDomain(i *inventory.CountingItem) *CountingItemModel {
	return &CountingItemModel{
		ID:               i.ID,
		CountingID:       i.CountingID,
		CompanyID:        i.CompanyID,
		ProductID:        i.ProductID,
		LocationID:       i.LocationID,
		TheoreticalQty:   i.TheoreticalQty.Decimal(),
		Count1Qty:        decimalPtr(i.Count1),
		Count2Qty:        decimalPtr(i.Count2),
		Count3Qty:        decimalPtr(i.Count3),
		FinalQty:         decimalPtr(i.FinalQty),
		ResolutionMethod: string(i.ResolutionMethod),
		IsFlagged:        i.IsFlagged,
		FlagReason:       string(i.FlagReason),
		OverrideNote:     i.OverrideNote,
		OverriddenBy:     i.OverriddenBy,
		ResolvedAt:       i.ResolvedAt,
		Version:          i.Version,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

func quantityPtr(d *decimal.Decimal) *valueobject.Quantity {
	if d == nil {
		return nil
	}
	q := valueobject.NewQuantity(*d)
	return &q
}

func decimalPtr(q *valueobject.Quantity) *decimal.Decimal {
	if q == nil {
		return nil
	}
	d := q.Decimal()
	return &d
}
