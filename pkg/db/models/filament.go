package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Filament is a physical spool. RemainingWeight only ever decreases.
type Filament struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code            string          `gorm:"column:code;not null;uniqueIndex:ux_filaments_code"`
	Type            string          `gorm:"column:type;not null;index:idx_filaments_type_color,priority:1"`
	Color           string          `gorm:"column:color;not null;index:idx_filaments_type_color,priority:2"`
	RemainingWeight decimal.Decimal `gorm:"column:remaining_weight;type:numeric(12,2);not null;check:chk_filaments_remaining,remaining_weight >= 0"`
	TotalWeight     decimal.Decimal `gorm:"column:total_weight;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *Filament) BeforeCreate(*gorm.DB) error {
	assignID(&f.ID)
	return nil
}
