package inventory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared"
)

// memoryCountings is a CountingRepository holding copies of rows, with the
// same version check as the database repository
type memoryCountings struct {
	mu        sync.Mutex
	countings map[uuid.UUID]inventory.InventoryCounting
	items     map[uuid.UUID]inventory.CountingItem
	order     []uuid.UUID
	conflict  map[uuid.UUID]bool
	saves     int
}

func newMemoryCountings() *memoryCountings {
	return &memoryCountings{
		countings: make(map[uuid.UUID]inventory.InventoryCounting),
		items:     make(map[uuid.UUID]inventory.CountingItem),
		conflict:  make(map[uuid.UUID]bool),
	}
}

func (r *memoryCountings) FindByID(_ context.Context, companyID, id uuid.UUID) (*inventory.InventoryCounting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.countings[id]
	if !ok || c.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r *memoryCountings) Save(_ context.Context, c *inventory.InventoryCounting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.ClearDomainEvents()
	r.countings[c.ID] = cp
	return nil
}

func (r *memoryCountings) FindItems(_ context.Context, companyID, countingID uuid.UUID) ([]*inventory.CountingItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.CountingItem
	for _, id := range r.order {
		it := r.items[id]
		if it.CountingID == countingID && it.CompanyID == companyID {
			out = append(out, &it)
		}
	}
	return out, nil
}

func (r *memoryCountings) FindItem(_ context.Context, companyID, countingID, itemID uuid.UUID) (*inventory.CountingItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[itemID]
	if !ok || it.CountingID != countingID || it.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return &it, nil
}

func (r *memoryCountings) CreateItems(_ context.Context, items []*inventory.CountingItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.items[it.ID] = *it
		r.order = append(r.order, it.ID)
	}
	return nil
}

func (r *memoryCountings) SaveItem(_ context.Context, item *inventory.CountingItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if r.conflict[item.ID] || stored.Version != item.Version {
		return shared.ErrConcurrencyConflict
	}
	item.Version++
	r.items[item.ID] = *item
	r.saves++
	return nil
}

func (r *memoryCountings) item(id uuid.UUID) inventory.CountingItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Append(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}
