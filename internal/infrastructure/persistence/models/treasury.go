package models

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	CompanyAggregateModel
	PartnerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentMethodID  uuid.UUID       `gorm:"type:uuid"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:char(3);not null"`
	PaymentDate      time.Time       `gorm:"type:date;not null"`
	Status           string          `gorm:"type:varchar(30);not null"`
	AllocatedAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WrittenOffAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() (*treasury.Payment, error) {
	amount, err := valueobject.NewMoney(m.Amount, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, err
	}
	return &treasury.Payment{
		CompanyAggregateRoot: m.root(),
		PartnerID:            m.PartnerID,
		PaymentMethodID:      m.PaymentMethodID,
		Amount:               amount.Normalize(valueobject.TreasuryScale),
		PaymentDate:          m.PaymentDate,
		Status:               treasury.PaymentStatus(m.Status),
		AllocatedAmount:      m.AllocatedAmount,
		WrittenOffAmount:     m.WrittenOffAmount,
	}, nil
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *treasury.Payment) {
	m.setRoot(p.CompanyAggregateRoot)
	m.PartnerID = p.PartnerID
	m.PaymentMethodID = p.PaymentMethodID
	m.Amount = p.Amount.Amount()
	m.Currency = string(p.Amount.Currency())
	m.PaymentDate = p.PaymentDate
	m.Status = string(p.Status)
	m.AllocatedAmount = p.AllocatedAmount
	m.WrittenOffAmount = p.WrittenOffAmount
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *treasury.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PaymentAllocationModel is one allocation row. Rows are insert-only.
type PaymentAllocationModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	CompanyID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_allocations_company_payment,priority:1"`
	PaymentID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_allocations_company_payment,priority:2"`
	DocumentID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ToleranceWriteoff decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WriteoffType      string          `gorm:"type:varchar(20)"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain PaymentAllocation
func (m *PaymentAllocationModel) ToDomain() treasury.PaymentAllocation {
	return treasury.PaymentAllocation{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		PaymentID:         m.PaymentID,
		DocumentID:        m.DocumentID,
		Amount:            m.Amount,
		ToleranceWriteoff: m.ToleranceWriteoff,
		WriteoffType:      treasury.ToleranceType(m.WriteoffType),
		CreatedAt:         m.CreatedAt,
	}
}

// PaymentAllocationModelFromDomain creates a new persistence model from a domain PaymentAllocation
func PaymentAllocationModelFromDomain(a treasury.PaymentAllocation) PaymentAllocationModel {
	id := a.ID
	if id == uuid.Nil {
		id = shared.NewID()
	}
	return PaymentAllocationModel{
		ID:                id,
		CompanyID:         a.CompanyID,
		PaymentID:         a.PaymentID,
		DocumentID:        a.DocumentID,
		Amount:            a.Amount,
		ToleranceWriteoff: a.ToleranceWriteoff,
		WriteoffType:      string(a.WriteoffType),
		CreatedAt:         a.CreatedAt,
	}
}
