package models

import (
	"time"

	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FiscalChainEntryModel is one append-only link of a fiscal hash chain.
// The unique sequence index is the last line of defence against a forked chain.
type FiscalChainEntryModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	CompanyID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_fiscal_chain_sequence,priority:1"`
	ChainType      string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_fiscal_chain_sequence,priority:2"`
	SequenceNumber int64           `gorm:"not null;uniqueIndex:idx_fiscal_chain_sequence,priority:3"`
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	PreviousHash   string          `gorm:"type:varchar(64);not null;default:''"`
	Hash           string          `gorm:"type:char(64);not null"`
	DocumentNumber string          `gorm:"type:varchar(50);not null"`
	DocumentDate   time.Time       `gorm:"type:date;not null"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency       string          `gorm:"type:char(3);not null"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FiscalChainEntryModel) TableName() string {
	return "fiscal_chain_entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *FiscalChainEntryModel) ToDomain() fiscal.Entry {
	return fiscal.Entry{
		ID:             m.ID,
		CompanyID:      m.CompanyID,
		ChainType:      fiscal.ChainType(m.ChainType),
		DocumentID:     m.DocumentID,
		SequenceNumber: m.SequenceNumber,
		PreviousHash:   m.PreviousHash,
		Hash:           m.Hash,
		Payload: fiscal.Payload{
			DocumentNumber: m.DocumentNumber,
			Date:           m.DocumentDate,
			Total:          m.Total,
			Currency:       m.Currency,
		},
		CreatedAt: m.CreatedAt,
	}
}

// FiscalChainEntryModelFromDomain creates a new persistence model from a domain Entry
func FiscalChainEntryModelFromDomain(e *fiscal.Entry) *FiscalChainEntryModel {
	return &FiscalChainEntryModel{
		ID:             e.ID,
		CompanyID:      e.CompanyID,
		ChainType:      string(e.ChainType),
		SequenceNumber: e.SequenceNumber,
		DocumentID:     e.DocumentID,
		PreviousHash:   e.PreviousHash,
		Hash:           e.Hash,
		DocumentNumber: e.Payload.DocumentNumber,
		DocumentDate:   e.Payload.Date,
		Total:          e.Payload.Total,
		Currency:       e.Payload.Currency,
		CreatedAt:      e.CreatedAt,
	}
}
