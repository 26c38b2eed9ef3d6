package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
)

// CreateLineInput describes one requested order line.
type CreateLineInput struct {
	ProductID    uuid.UUID `json:"productId" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
	FilamentType *string   `json:"filamentType,omitempty"`
}

// CreateOrderInput captures a new customer or stock order. Without a
// customer the order replenishes stock and gets an STK- code.
type CreateOrderInput struct {
	Code       string            `json:"code,omitempty" validate:"omitempty,max=64"`
	CustomerID *uuid.UUID        `json:"customerId,omitempty"`
	Lines      []CreateLineInput `json:"lines" validate:"required,min=1,dive"`
}

// TransitionInput requests moving one order line to TargetStatus, which may
// be a display label or a raw status value.
type TransitionInput struct {
	OrderCode          string
	LineID             uuid.UUID
	TargetStatus       string
	ProductionQuantity int
	ProductionBatches  int
	SkipProduction     bool
	SelectedSpools     map[string]uuid.UUID
}

// TransitionResult reports what a transition changed.
type TransitionResult struct {
	Success      bool                    `json:"success"`
	Message      string                  `json:"message"`
	Line         LineDTO                 `json:"line"`
	OrderStatus  string                  `json:"orderStatus"`
	Consumptions []filaments.Consumption `json:"consumptions"`
	StockChange  int                     `json:"stockChange"`
}

// DeleteResult reports the stock restored by an order deletion.
type DeleteResult struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderCode     string    `json:"orderCode"`
	RestoredLines int       `json:"restoredLines"`
	RestoredUnits int       `json:"restoredUnits"`
}

// LineDTO is the API view of an order line.
type LineDTO struct {
	ID                 uuid.UUID        `json:"id"`
	ProductID          *uuid.UUID       `json:"productId,omitempty"`
	Quantity           int              `json:"quantity"`
	ProductionQuantity int              `json:"productionQuantity"`
	StockAllocated     int              `json:"stockAllocated"`
	UnitPrice          decimal.Decimal  `json:"unitPrice"`
	FilamentType       *string          `json:"filamentType,omitempty"`
	Status             enums.LineStatus `json:"status"`
	StatusLabel        string           `json:"statusLabel"`
}

// OrderDTO is the API view of an order with its lines.
type OrderDTO struct {
	ID                 uuid.UUID       `json:"id"`
	Code               string          `json:"code"`
	CustomerID         *uuid.UUID      `json:"customerId,omitempty"`
	Status             string          `json:"status"`
	ProductionQuantity int             `json:"productionQuantity"`
	SkipProduction     bool            `json:"skipProduction"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	StockOrder         bool            `json:"stockOrder"`
	Lines              []LineDTO       `json:"lines"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func toLineDTO(line models.OrderItem) LineDTO {
	return LineDTO{
		ID:                 line.ID,
		ProductID:          line.ProductID,
		Quantity:           line.Quantity,
		ProductionQuantity: line.ProductionQuantity,
		StockAllocated:     line.StockAllocated,
		UnitPrice:          line.UnitPrice,
		FilamentType:       line.FilamentType,
		Status:             line.Status,
		StatusLabel:        line.Status.Label(),
	}
}

func toOrderDTO(order *models.Order) *OrderDTO {
	lines := make([]LineDTO, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, toLineDTO(item))
	}
	return &OrderDTO{
		ID:                 order.ID,
		Code:               order.Code,
		CustomerID:         order.CustomerID,
		Status:             order.Status,
		ProductionQuantity: order.ProductionQuantity,
		SkipProduction:     order.SkipProduction,
		TotalPrice:         order.TotalPrice,
		StockOrder:         order.IsStockOrder(),
		Lines:              lines,
		CreatedAt:          order.CreatedAt,
	}
}
