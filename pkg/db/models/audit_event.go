package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent records a stock or order event for operators.
type AuditEvent struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EntityType string          `gorm:"column:entity_type;not null;index:idx_audit_events_entity,priority:1"`
	EntityID   uuid.UUID       `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_events_entity,priority:2"`
	Operation  string          `gorm:"column:operation;not null"`
	Quantity   *int            `gorm:"column:quantity"`
	OrderID    *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	Details    json.RawMessage `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (e *AuditEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
