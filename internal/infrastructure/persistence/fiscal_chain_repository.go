package persistence

import (
	"context"
	"errors"

	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrChainSequenceTaken is returned when another posting appended the same
// sequence number first. The whole posting must be retried.
var ErrChainSequenceTaken = shared.NewConcurrencyError("CHAIN_SEQUENCE_TAKEN", "Fiscal chain moved on, retry the posting")

// GormFiscalChainRepository implements fiscal.Repository using GORM.
// It only ever inserts and reads.
type GormFiscalChainRepository struct {
	db *gorm.DB
}

// NewGormFiscalChainRepository creates a new GormFiscalChainRepository
func NewGormFiscalChainRepository(db *gorm.DB) *GormFiscalChainRepository {
	return &GormFiscalChainRepository{db: db}
}

// LastForUpdate locks and returns the newest entry of the chain, or nil for an empty chain
func (r *GormFiscalChainRepository) LastForUpdate(ctx context.Context, key fiscal.ChainKey) (*fiscal.Entry, error) {
	var m models.FiscalChainEntryModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND chain_type = ?", key.CompanyID, string(key.ChainType)).
		Order("sequence_number DESC").
		Limit(1).
		Find(&m).Error
	if err != nil {
		return nil, translateError("last chain entry", err)
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	e := m.ToDomain()
	return &e, nil
}

// Append inserts entry. A duplicate (company, chain, sequence) means the chain
// was extended concurrently.
func (r *GormFiscalChainRepository) Append(ctx context.Context, entry *fiscal.Entry) error {
	err := r.db.WithContext(ctx).Create(models.FiscalChainEntryModelFromDomain(entry)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrChainSequenceTaken.WithCause(err)
	}
	return translateError("append chain entry", err)
}

// ListChain returns every entry of the chain in sequence order
func (r *GormFiscalChainRepository) ListChain(ctx context.Context, key fiscal.ChainKey) ([]fiscal.Entry, error) {
	var rows []models.FiscalChainEntryModel
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND chain_type = ?", key.CompanyID, string(key.ChainType)).
		Order("sequence_number").
		Find(&rows).Error
	if err != nil {
		return nil, translateError("list chain", err)
	}
	entries := make([]fiscal.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToDomain())
	}
	return entries, nil
}

// ListChains returns the key of every non-empty chain
func (r *GormFiscalChainRepository) ListChains(ctx context.Context) ([]fiscal.ChainKey, error) {
	var rows []struct {
		CompanyID uuid.UUID
		ChainType string
	}
	err := r.db.WithContext(ctx).
		Model(&models.FiscalChainEntryModel{}).
		Distinct("company_id", "chain_type").
		Order("company_id, chain_type").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError("list chains", err)
	}
	keys := make([]fiscal.ChainKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, fiscal.ChainKey{CompanyID: row.CompanyID, ChainType: fiscal.ChainType(row.ChainType)})
	}
	return keys, nil
}

// FindByDocument returns the entry written when the document was posted, or nil
func (r *GormFiscalChainRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) (*fiscal.Entry, error) {
	var m models.FiscalChainEntryModel
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Limit(1).Find(&m).Error
	if err != nil {
		return nil, translateError("find chain entry", err)
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	e := m.ToDomain()
	return &e, nil
}

var _ fiscal.Repository = (*GormFiscalChainRepository)(nil)
