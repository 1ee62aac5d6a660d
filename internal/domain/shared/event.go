package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate. The event store persists it
// with its full JSON encoding as the payload.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	CompanyID() uuid.UUID
}

// EventHeader implements DomainEvent for embedding in concrete events.
type EventHeader struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Occurred  time.Time `json:"occurred_at"`
	AggType   string    `json:"aggregate_type"`
	AggID     uuid.UUID `json:"aggregate_id"`
	CompanyOf uuid.UUID `json:"company_id"`
}

// NewEventHeader stamps a new event id and the current time.
func NewEventHeader(eventType, aggregateType string, aggregateID, companyID uuid.UUID) EventHeader {
	return EventHeader{
		ID:        NewID(),
		Type:      eventType,
		Occurred:  time.Now(),
		AggType:   aggregateType,
		AggID:     aggregateID,
		CompanyOf: companyID,
	}
}

func (h EventHeader) EventID() uuid.UUID     { return h.ID }
func (h EventHeader) EventType() string      { return h.Type }
func (h EventHeader) OccurredAt() time.Time  { return h.Occurred }
func (h EventHeader) AggregateType() string  { return h.AggType }
func (h EventHeader) AggregateID() uuid.UUID { return h.AggID }
func (h EventHeader) CompanyID() uuid.UUID   { return h.CompanyOf }

// EventStore records domain events in the same transaction as the state
// change that produced them
type EventStore interface {
	Append(ctx context.Context, events ...DomainEvent) error
}
