package inventory

import (
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventTypeCountingFinalized is emitted when a counting closes
const EventTypeCountingFinalized = "InventoryCountingFinalized"

// CountingFinalizedEvent carries the finalized counting
type CountingFinalizedEvent struct {
	shared.EventHeader
	CountingID uuid.UUID `json:"counting_id"`
	Number     string    `json:"number"`
	ItemCount  int       `json:"item_count"`
}

// NewCountingFinalizedEvent creates the event
func NewCountingFinalizedEvent(c *InventoryCounting, itemCount int) *CountingFinalizedEvent {
	return &CountingFinalizedEvent{
		EventHeader: shared.NewEventHeader(EventTypeCountingFinalized, "InventoryCounting", c.ID, c.CompanyID),
		CountingID:  c.ID,
		Number:      c.Number,
		ItemCount:   itemCount,
	}
}
