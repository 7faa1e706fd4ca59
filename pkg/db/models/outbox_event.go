package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes, then published asynchronously.
type OutboxEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventType    enums.OutboxEventType `gorm:"column:event_type;not null;index" json:"event_type"`
	AggregateID  uuid.UUID             `gorm:"column:aggregate_id;type:uuid;not null" json:"aggregate_id"`
	Payload      []byte                `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	AttemptCount int                   `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	LastError    *string               `gorm:"column:last_error" json:"last_error,omitempty"`
	PublishedAt  *time.Time            `gorm:"column:published_at;index" json:"published_at,omitempty"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the default GORM table name.
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
