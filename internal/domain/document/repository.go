package document

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists documents
type Repository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Document, error)
	// FindByIDForUpdate row-locks the document until the transaction ends
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Document, error)
	// FindOpenInvoices returns posted/paid invoices with a positive balance
	FindOpenInvoices(ctx context.Context, companyID, partnerID uuid.UUID) ([]*Document, error)
	// FindOpenInvoicesForUpdate is FindOpenInvoices with row locks taken in id order
	FindOpenInvoicesForUpdate(ctx context.Context, companyID, partnerID uuid.UUID) ([]*Document, error)
	// Save inserts or updates with an optimistic version check
	Save(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}
