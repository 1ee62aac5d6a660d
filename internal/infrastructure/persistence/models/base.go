package models

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the id and audit timestamps every table carries.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// CompanyAggregateModel carries the columns shared by company-owned aggregates.
// Version backs the optimistic check on every update.
type CompanyAggregateModel struct {
	BaseModel
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
}

func (m *CompanyAggregateModel) root() shared.CompanyAggregateRoot {
	return companyRoot(m.BaseModel, m.CompanyID, m.Version)
}

func (m *CompanyAggregateModel) setRoot(a shared.CompanyAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.CompanyID = a.CompanyID
	m.Version = a.Version
}

// companyRoot rebuilds aggregate root fields for models that declare their
// own company and version columns to carry composite index tags.
func companyRoot(b BaseModel, companyID uuid.UUID, version int) shared.CompanyAggregateRoot {
	return shared.CompanyAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: b.ID, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt},
			Version:    version,
		},
		CompanyID: companyID,
	}
}
