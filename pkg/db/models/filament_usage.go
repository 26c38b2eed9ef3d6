package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FilamentUsage is an append-only record of grams drawn from a spool.
type FilamentUsage struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FilamentID  uuid.UUID       `gorm:"column:filament_id;type:uuid;not null;index:idx_filament_usage_filament"`
	ProductID   *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	OrderID     *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	AmountGrams decimal.Decimal `gorm:"column:amount_grams;type:numeric(12,2);not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	UsageDate   time.Time       `gorm:"column:usage_date;not null"`
}

func (FilamentUsage) TableName() string {
	return "filament_usage"
}

func (u *FilamentUsage) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	if u.UsageDate.IsZero() {
		u.UsageDate = time.Now().UTC()
	}
	return nil
}
