package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printfarm-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly placed order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	OrderCode  string          `json:"order_code"`
	LineCount  int             `json:"line_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
	StockOrder bool            `json:"stock_order"`
}

// OrderDeletedEvent records the compensation applied when an order is removed.
type OrderDeletedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	RestoredLines int       `json:"restored_lines"`
	RestoredUnits int       `json:"restored_units"`
}

// LineStatusChangedEvent is emitted after a line transition commits.
type LineStatusChangedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderCode   string           `json:"order_code"`
	LineID      uuid.UUID        `json:"line_id"`
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	From        enums.LineStatus `json:"from"`
	To          enums.LineStatus `json:"to"`
	StockChange int              `json:"stock_change"`
	OrderStatus string           `json:"order_status"`
}

// StockChangedEvent mirrors an inventory audit entry.
type StockChangedEvent struct {
	ProductID uuid.UUID  `json:"product_id"`
	Operation string     `json:"operation"`
	Quantity  int        `json:"quantity"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
}

// FilamentLowWeightEvent warns that a spool dropped under the configured threshold.
type FilamentLowWeightEvent struct {
	FilamentID      uuid.UUID       `json:"filament_id"`
	Code            string          `json:"code"`
	Type            string          `json:"type"`
	Color           string          `json:"color"`
	RemainingWeight decimal.Decimal `json:"remaining_weight"`
	ThresholdGrams  decimal.Decimal `json:"threshold_grams"`
}
