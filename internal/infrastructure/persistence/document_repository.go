package persistence

import (
	"context"

	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document of the company
func (r *GormDocumentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*document.Document, error) {
	return r.find(r.db.WithContext(ctx), companyID, id)
}

// FindByIDForUpdate finds a document and holds a row lock on it until the transaction ends
func (r *GormDocumentRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*document.Document, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), companyID, id)
}

func (r *GormDocumentRepository) find(db *gorm.DB, companyID, id uuid.UUID) (*document.Document, error) {
	var m models.DocumentModel
	if err := db.Where("company_id = ? AND id = ?", companyID, id).First(&m).Error; err != nil {
		return nil, translateError("find document", err)
	}
	return m.ToDomain()
}

// FindOpenInvoices returns posted or paid invoices with a positive balance
func (r *GormDocumentRepository) FindOpenInvoices(ctx context.Context, companyID, partnerID uuid.UUID) ([]*document.Document, error) {
	return r.findOpen(r.db.WithContext(ctx), companyID, partnerID)
}

// FindOpenInvoicesForUpdate is FindOpenInvoices with row locks. Rows are locked
// in id order so two allocations for the same partner cannot deadlock.
func (r *GormDocumentRepository) FindOpenInvoicesForUpdate(ctx context.Context, companyID, partnerID uuid.UUID) ([]*document.Document, error) {
	return r.findOpen(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), companyID, partnerID)
}

func (r *GormDocumentRepository) findOpen(db *gorm.DB, companyID, partnerID uuid.UUID) ([]*document.Document, error) {
	var rows []models.DocumentModel
	err := db.
		Where("company_id = ? AND partner_id = ? AND type = ?", companyID, partnerID, string(document.TypeInvoice)).
		Where("status IN ?", []string{string(document.StatusPosted), string(document.StatusPaid)}).
		Where("balance_due > 0").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, translateError("find open invoices", err)
	}
	docs := make([]*document.Document, 0, len(rows))
	for i := range rows {
		d, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Save inserts a new document or updates an existing one if nobody else
// changed it since it was read
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	m := models.DocumentModelFromDomain(doc)
	version, err := saveVersioned(r.db.WithContext(ctx), m, doc.CompanyID, doc.ID, doc.Version, func(v int) { m.Version = v })
	if err != nil {
		return err
	}
	doc.Version = version
	return nil
}

// Delete removes an unposted document
func (r *GormDocumentRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ? AND status IN ?", companyID, id,
			[]string{string(document.StatusDraft), string(document.StatusConfirmed)}).
		Delete(&models.DocumentModel{})
	if result.Error != nil {
		return translateError("delete document", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ document.Repository = (*GormDocumentRepository)(nil)
