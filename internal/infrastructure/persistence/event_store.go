package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormEventStore implements shared.EventStore by inserting into domain_events
// inside the caller's transaction
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore creates a new GormEventStore
func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Append records events; the JSON payload is the full event
func (s *GormEventStore) Append(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.DomainEventModel, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.EventType(), err)
		}
		rows = append(rows, models.DomainEventModel{
			ID:            e.EventID(),
			CompanyID:     e.CompanyID(),
			AggregateType: e.AggregateType(),
			AggregateID:   e.AggregateID(),
			EventType:     e.EventType(),
			Payload:       payload,
			OccurredAt:    e.OccurredAt(),
			CreatedAt:     now,
		})
	}
	return translateError("append events", s.db.WithContext(ctx).Create(&rows).Error)
}

var _ shared.EventStore = (*GormEventStore)(nil)
