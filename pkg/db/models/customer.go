package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer places orders. Wholesale customers are priced from the wholesale list.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Wholesale bool      `gorm:"column:wholesale;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
