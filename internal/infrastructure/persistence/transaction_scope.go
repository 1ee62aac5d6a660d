package persistence

import (
	"context"

	"github.com/garage-erp/backend/internal/application/transaction"
	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise; ctx passed to fn is the
// caller's ctx.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos transaction.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Documents() document.Repository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() treasury.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Allocations() treasury.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) FiscalChain() fiscal.Repository {
	return NewGormFiscalChainRepository(r.tx)
}

func (r *gormTransactionalRepositories) Countings() inventory.CountingRepository {
	return NewGormCountingRepository(r.tx)
}

func (r *gormTransactionalRepositories) Events() shared.EventStore {
	return NewGormEventStore(r.tx)
}

var (
	_ transaction.Scope        = (*GormTransactionScope)(nil)
	_ transaction.Repositories = (*gormTransactionalRepositories)(nil)
)
