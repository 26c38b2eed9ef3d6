package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord holds the available finished units for a product. Rows are
// created on the first stock write.
type InventoryRecord struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity  int       `gorm:"column:quantity;not null;default:0;check:chk_inventory_quantity,quantity >= 0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string {
	return "inventory"
}
