package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/printfarm-backend/internal/products"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockAuditor receives stock events after the owning transaction commits.
type StockAuditor interface {
	RecordStockEvent(ctx context.Context, productID uuid.UUID, operation string, quantity int, orderID *uuid.UUID)
}

// OperationResult describes the outcome of a gateway call. A rejected REMOVE
// returns a result with Success false alongside the error.
type OperationResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Status  StockStatus `json:"status"`
}

// GatewayParams groups the gateway collaborators.
type GatewayParams struct {
	TX         txRunner
	Catalog    *product.Catalog
	Ledger     Ledger
	Calculator *Calculator
	Auditor    StockAuditor
	Metrics    *metrics.FulfillmentMetrics
	Logger     *logger.Logger
}

// Gateway applies manual stock corrections outside the order flow.
type Gateway struct {
	tx      txRunner
	catalog *product.Catalog
	ledger  Ledger
	calc    *Calculator
	auditor StockAuditor
	metrics *metrics.FulfillmentMetrics
	logg    *logger.Logger
}

// NewGateway validates and wires the gateway.
func NewGateway(params GatewayParams) (*Gateway, error) {
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("calculator required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("auditor required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Gateway{
		tx:      params.TX,
		catalog: params.Catalog,
		ledger:  params.Ledger,
		calc:    params.Calculator,
		auditor: params.Auditor,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Apply runs op against the product's stock in its own transaction.
// RESERVE and UNRESERVE leave the ledger untouched and only audit.
func (g *Gateway) Apply(ctx context.Context, productID uuid.UUID, op enums.StockOperation, quantity int) (result *OperationResult, err error) {
	ctx = g.logg.WithFields(g.logg.WithProductID(ctx, productID.String()), map[string]any{
		"operation": op.String(),
		"quantity":  quantity,
	})
	defer func() {
		g.metrics.ObserveStockOperation(op.String(), err)
	}()

	if !op.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown stock operation %q", op))
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	err = g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := g.catalog.WithTx(tx).Get(ctx, productID); err != nil {
			return err
		}
		ledger := g.ledger.WithTx(tx)
		if _, _, err := ledger.LockQuantity(ctx, productID); err != nil {
			return err
		}
		current, err := g.calc.WithTx(tx).Status(ctx, productID)
		if err != nil {
			return err
		}

		switch op {
		case enums.StockOperationAdd:
			return ledger.Add(ctx, productID, quantity)
		case enums.StockOperationRemove:
			if current.Available < quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock").
					WithDetails(map[string]any{"available": current.Available, "requested": quantity})
			}
			return ledger.Subtract(ctx, productID, quantity)
		default:
			return nil
		}
	})
	if err != nil {
		g.logg.Warn(ctx, fmt.Sprintf("stock operation rejected: %v", err))
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			return &OperationResult{
				Success: false,
				Message: "Insufficient stock",
				Status:  g.calc.Display(ctx, productID),
			}, err
		}
		return nil, err
	}

	g.auditor.RecordStockEvent(ctx, productID, op.String(), quantity, nil)

	status := g.calc.Display(ctx, productID)
	g.logg.Info(ctx, "stock operation applied")
	return &OperationResult{
		Success: true,
		Message: operationMessage(op, quantity),
		Status:  status,
	}, nil
}

func operationMessage(op enums.StockOperation, quantity int) string {
	switch op {
	case enums.StockOperationAdd:
		return fmt.Sprintf("Added %d units to stock", quantity)
	case enums.StockOperationRemove:
		return fmt.Sprintf("Removed %d units from stock", quantity)
	case enums.StockOperationReserve:
		return fmt.Sprintf("Recorded reservation of %d units", quantity)
	default:
		return fmt.Sprintf("Recorded release of %d reserved units", quantity)
	}
}
