package inventory

import (
	"context"

	"github.com/google/uuid"
)

// CountingRepository persists countings and their items
type CountingRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*InventoryCounting, error)
	Save(ctx context.Context, counting *InventoryCounting) error
	FindItems(ctx context.Context, companyID, countingID uuid.UUID) ([]*CountingItem, error)
	FindItem(ctx context.Context, companyID, countingID, itemID uuid.UUID) (*CountingItem, error)
	CreateItems(ctx context.Context, items []*CountingItem) error
	// SaveItem updates the item only if its version is unchanged and bumps it
	SaveItem(ctx context.Context, item *CountingItem) error
}
