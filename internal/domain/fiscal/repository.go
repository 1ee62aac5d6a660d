package fiscal

import (
	"context"

	"github.com/google/uuid"
)

// ChainKey identifies one chain
type ChainKey struct {
	CompanyID uuid.UUID
	ChainType ChainType
}

// LockKey is the resource name used to serialize appends to the chain
func (k ChainKey) LockKey() string {
	return "fiscal:" + k.CompanyID.String() + ":" + string(k.ChainType)
}

// Repository persists chain entries. Entries are never updated or deleted.
type Repository interface {
	// LastForUpdate returns the newest entry of the chain, row-locked until
	// the surrounding transaction ends. Returns nil, nil for an empty chain.
	LastForUpdate(ctx context.Context, key ChainKey) (*Entry, error)
	Append(ctx context.Context, entry *Entry) error
	ListChain(ctx context.Context, key ChainKey) ([]Entry, error)
	ListChains(ctx context.Context) ([]ChainKey, error)
	FindByDocument(ctx context.Context, documentID uuid.UUID) (*Entry, error)
}
