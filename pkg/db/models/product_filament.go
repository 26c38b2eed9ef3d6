package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFilament is one bill-of-material row: grams of a filament type and
// color needed per printed unit.
type ProductFilament struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index:idx_product_filaments_product"`
	FilamentType  string          `gorm:"column:filament_type;not null"`
	FilamentColor string          `gorm:"column:filament_color;not null"`
	GramsPerUnit  decimal.Decimal `gorm:"column:grams_per_unit;type:numeric(12,2);not null"`
}

func (ProductFilament) TableName() string {
	return "product_filaments"
}

func (f *ProductFilament) BeforeCreate(*gorm.DB) error {
	assignID(&f.ID)
	return nil
}
