package document

import (
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeDocumentPosted    = "DocumentPosted"
	EventTypeDocumentPaid      = "DocumentPaid"
	EventTypeDocumentCancelled = "DocumentCancelled"
)

const aggregateType = "Document"

// DocumentPostedEvent is emitted when a document is posted
type DocumentPostedEvent struct {
	shared.EventHeader
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentType   Type            `json:"document_type"`
	DocumentNumber string          `json:"document_number"`
	Total          decimal.Decimal `json:"total"`
	FiscalHash     string          `json:"fiscal_hash,omitempty"`
	ChainSequence  *int64          `json:"chain_sequence,omitempty"`
}

// NewDocumentPostedEvent creates the event
func NewDocumentPostedEvent(d *Document) *DocumentPostedEvent {
	return &DocumentPostedEvent{
		EventHeader:    shared.NewEventHeader(EventTypeDocumentPosted, aggregateType, d.ID, d.CompanyID),
		DocumentID:     d.ID,
		DocumentType:   d.Type,
		DocumentNumber: d.Number,
		Total:          d.Total.Amount(),
		FiscalHash:     d.FiscalHash,
		ChainSequence:  d.ChainSequence,
	}
}

// DocumentPaidEvent is emitted when the balance of a posted invoice reaches zero
type DocumentPaidEvent struct {
	shared.EventHeader
	DocumentID     uuid.UUID `json:"document_id"`
	DocumentNumber string    `json:"document_number"`
}

// NewDocumentPaidEvent creates the event
func NewDocumentPaidEvent(d *Document) *DocumentPaidEvent {
	return &DocumentPaidEvent{
		EventHeader:    shared.NewEventHeader(EventTypeDocumentPaid, aggregateType, d.ID, d.CompanyID),
		DocumentID:     d.ID,
		DocumentNumber: d.Number,
	}
}

// DocumentCancelledEvent is emitted when a posted document is cancelled.
// The chain entry stays; OriginalFiscalHash points at it.
type DocumentCancelledEvent struct {
	shared.EventHeader
	DocumentID         uuid.UUID `json:"document_id"`
	DocumentNumber     string    `json:"document_number"`
	OriginalFiscalHash string    `json:"original_fiscal_hash,omitempty"`
	ChainSequence      *int64    `json:"chain_sequence,omitempty"`
	Reason             string    `json:"reason"`
}

// NewDocumentCancelledEvent creates the event
func NewDocumentCancelledEvent(d *Document) *DocumentCancelledEvent {
	return &DocumentCancelledEvent{
		EventHeader:        shared.NewEventHeader(EventTypeDocumentCancelled, aggregateType, d.ID, d.CompanyID),
		DocumentID:         d.ID,
		DocumentNumber:     d.Number,
		OriginalFiscalHash: d.FiscalHash,
		ChainSequence:      d.ChainSequence,
		Reason:             d.CancellationReason,
	}
}
