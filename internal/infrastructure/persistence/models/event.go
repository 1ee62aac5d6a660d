package models

import (
	"time"

	"github.com/google/uuid"
)

// DomainEventModel is a recorded domain event. Rows are written in the
// transaction that produced the event and never updated.
type DomainEventModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index:idx_domain_events_aggregate,priority:1"`
	AggregateType string    `gorm:"type:varchar(50);not null;index:idx_domain_events_aggregate,priority:2"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index:idx_domain_events_aggregate,priority:3"`
	EventType     string    `gorm:"type:varchar(100);not null;index"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	OccurredAt    time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DomainEventModel) TableName() string {
	return "domain_events"
}
