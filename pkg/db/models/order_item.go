package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/enums"
)

// OrderItem is one order line moving through the production flow.
// StockAllocated counts the units already drawn from the ledger for the line;
// only the uncovered remainder counts towards reservation.
type OrderItem struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index:idx_order_items_order"`
	ProductID          *uuid.UUID       `gorm:"column:product_id;type:uuid;index:idx_order_items_product_status,priority:1"`
	Quantity           int              `gorm:"column:quantity;not null;check:chk_order_items_quantity,quantity > 0"`
	ProductionQuantity int              `gorm:"column:production_quantity;not null;default:0"`
	StockAllocated     int              `gorm:"column:stock_allocated;not null;default:0;check:chk_order_items_stock_allocated,stock_allocated >= 0"`
	UnitPrice          decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	FilamentType       *string          `gorm:"column:filament_type"`
	Status             enums.LineStatus `gorm:"column:status;not null;index:idx_order_items_product_status,priority:2"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
