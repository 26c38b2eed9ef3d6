package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a printable catalog item.
type Product struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Code             string            `gorm:"column:code;not null;uniqueIndex:ux_products_code"`
	Name             string            `gorm:"column:name;not null"`
	CapacityPerBatch int               `gorm:"column:capacity_per_batch;not null;default:1"`
	UnitWeightGrams  decimal.Decimal   `gorm:"column:unit_weight_grams;type:numeric(12,2);not null;default:0"`
	UnitPrice        decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	WholesalePrice   decimal.Decimal   `gorm:"column:wholesale_price;type:numeric(12,2);not null;default:0"`
	Filaments        []ProductFilament `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Inventory        *InventoryRecord  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
