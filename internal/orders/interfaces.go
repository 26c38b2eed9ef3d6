package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByCode(ctx context.Context, code string) (*models.Order, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderDetail(ctx context.Context, code string) (*models.Order, error)
	LockOrderLine(ctx context.Context, lineID uuid.UUID) (*models.OrderItem, error)
	LockOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListLineStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.LineStatus, error)
	UpdateOrderLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteOrderLines(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
}

// Auditor receives order and stock history after the owning transaction commits.
type Auditor interface {
	RecordStockEvent(ctx context.Context, productID uuid.UUID, operation string, quantity int, orderID *uuid.UUID)
	RecordOrderEvent(ctx context.Context, orderID uuid.UUID, event enums.OutboxEventType, details any)
}
