package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockOrderPrefix marks internal replenishment orders that have no customer.
const StockOrderPrefix = "STK-"

// Order is the header of a customer or stock order. Status holds the display
// label mirrored from its lines.
type Order struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code               string          `gorm:"column:code;not null;uniqueIndex:ux_orders_code"`
	CustomerID         *uuid.UUID      `gorm:"column:customer_id;type:uuid"`
	Status             string          `gorm:"column:status;not null"`
	ProductionQuantity int             `gorm:"column:production_quantity;not null;default:0"`
	SkipProduction     bool            `gorm:"column:skip_production;not null;default:false"`
	TotalPrice         decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// IsStockOrder reports whether the order replenishes warehouse stock.
func (o Order) IsStockOrder() bool {
	return strings.HasPrefix(o.Code, StockOrderPrefix)
}
