// Package transaction defines the unit-of-work boundary shared by the
// application services.
package transaction

import (
	"context"

	"github.com/garage-erp/backend/internal/domain/document"
	"github.com/garage-erp/backend/internal/domain/fiscal"
	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/treasury"
)

// Scope runs fn inside one database transaction. Any error returned by fn
// rolls back every write made through repos, including appended events.
type Scope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Repositories gives access to repositories bound to the current transaction.
// Row locks taken through them are held until Execute returns.
type Repositories interface {
	Documents() document.Repository
	Payments() treasury.PaymentRepository
	Allocations() treasury.AllocationRepository
	FiscalChain() fiscal.Repository
	Countings() inventory.CountingRepository
	Events() shared.EventStore
}

// Repos is a plain Repositories value. Tests use it with NoOpScope.
type Repos struct {
	DocumentRepo   document.Repository
	PaymentRepo    treasury.PaymentRepository
	AllocationRepo treasury.AllocationRepository
	ChainRepo      fiscal.Repository
	CountingRepo   inventory.CountingRepository
	EventStore     shared.EventStore
}

func (r *Repos) Documents() document.Repository             { return r.DocumentRepo }
func (r *Repos) Payments() treasury.PaymentRepository       { return r.PaymentRepo }
func (r *Repos) Allocations() treasury.AllocationRepository { return r.AllocationRepo }
func (r *Repos) FiscalChain() fiscal.Repository             { return r.ChainRepo }
func (r *Repos) Countings() inventory.CountingRepository    { return r.CountingRepo }
func (r *Repos) Events() shared.EventStore                  { return r.EventStore }

// NoOpScope calls fn directly with fixed repositories and no transaction.
type NoOpScope struct {
	repos Repositories
}

// NewNoOpScope creates a NoOpScope.
func NewNoOpScope(repos Repositories) *NoOpScope {
	return &NoOpScope{repos: repos}
}

// Execute runs fn without a transaction.
func (s *NoOpScope) Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return fn(ctx, s.repos)
}

var (
	_ Scope        = (*NoOpScope)(nil)
	_ Repositories = (*Repos)(nil)
)
