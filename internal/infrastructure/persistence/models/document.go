package models

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate root.
// (company_id, type, number) is unique so a retried posting cannot duplicate a document.
type DocumentModel struct {
	BaseModel
	CompanyID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_documents_company_type_number,priority:1;index:idx_documents_open,priority:1"`
	Version            int             `gorm:"not null;default:1"`
	PartnerID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_documents_open,priority:2"`
	Type               string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_documents_company_type_number,priority:2"`
	Number             string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_documents_company_type_number,priority:3"`
	DocumentDate       time.Time       `gorm:"type:date;not null"`
	DueDate            *time.Time      `gorm:"type:date"`
	Total              decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency           string          `gorm:"type:char(3);not null"`
	Status             string          `gorm:"type:varchar(20);not null;index:idx_documents_open,priority:3"`
	BalanceDue         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SourceDocumentID   *uuid.UUID      `gorm:"type:uuid;index"`
	CreditedAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	FiscalHash         string          `gorm:"type:char(64)"`
	PreviousHash       string          `gorm:"type:char(64)"`
	ChainSequence      *int64
	ConfirmedAt        *time.Time
	PostedAt           *time.Time
	PaidAt             *time.Time
	CancelledAt        *time.Time
	CancellationReason string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() (*document.Document, error) {
	total, err := valueobject.NewMoney(m.Total, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, err
	}
	return &document.Document{
		CompanyAggregateRoot: companyRoot(m.BaseModel, m.CompanyID, m.Version),
		PartnerID:            m.PartnerID,
		Type:                 document.Type(m.Type),
		Number:               m.Number,
		DocumentDate:         m.DocumentDate,
		DueDate:              m.DueDate,
		Total:                total.Normalize(valueobject.DocumentScale),
		Status:               document.Status(m.Status),
		BalanceDue:           m.BalanceDue,
		SourceDocumentID:     m.SourceDocumentID,
		CreditedAmount:       m.CreditedAmount,
		FiscalHash:           m.FiscalHash,
		PreviousHash:         m.PreviousHash,
		ChainSequence:        m.ChainSequence,
		ConfirmedAt:          m.ConfirmedAt,
		PostedAt:             m.PostedAt,
		PaidAt:               m.PaidAt,
		CancelledAt:          m.CancelledAt,
		CancellationReason:   m.CancellationReason,
	}, nil
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *document.Document) {
	m.setEntity(d.BaseEntity)
	m.CompanyID = d.CompanyID
	m.Version = d.Version
	m.PartnerID = d.PartnerID
	m.Type = string(d.Type)
	m.Number = d.Number
	m.DocumentDate = d.DocumentDate
	m.DueDate = d.DueDate
	m.Total = d.Total.Amount()
	m.Currency = string(d.Total.Currency())
	m.Status = string(d.Status)
	m.BalanceDue = d.BalanceDue
	m.SourceDocumentID = d.SourceDocumentID
	m.CreditedAmount = d.CreditedAmount
	m.FiscalHash = d.FiscalHash
	m.PreviousHash = d.PreviousHash
	m.ChainSequence = d.ChainSequence
	m.ConfirmedAt = d.ConfirmedAt
	m.PostedAt = d.PostedAt
	m.PaidAt = d.PaidAt
	m.CancelledAt = d.CancelledAt
	m.CancellationReason = d.CancellationReason
}

// DocumentModelFromDomain creates a new persistence model from a domain Document
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}
