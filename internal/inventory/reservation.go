package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
)

const (
	ColorGreen = "green"
	ColorBlue  = "blue"
	ColorRed   = "red"

	DisplayOutOfStock = "Out of stock"
)

// StockStatus is the combined read view for a product.
type StockStatus struct {
	ProductID uuid.UUID `json:"productId"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	Display   string    `json:"display"`
	Color     string    `json:"color"`
}

// Calculator derives reserved stock from active order lines on every read.
// Reserved units are never stored.
type Calculator struct {
	db     *gorm.DB
	ledger Ledger
	logg   *logger.Logger
}

// NewCalculator builds a calculator reading through db.
func NewCalculator(db *gorm.DB, logg *logger.Logger) (*Calculator, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Calculator{db: db, ledger: NewLedger(db), logg: logg}, nil
}

// WithTx returns a calculator reading inside tx.
func (c *Calculator) WithTx(tx *gorm.DB) *Calculator {
	if tx == nil {
		return c
	}
	return &Calculator{db: tx, ledger: c.ledger.WithTx(tx), logg: c.logg}
}

// Status computes the stock status and returns any query failure.
func (c *Calculator) Status(ctx context.Context, productID uuid.UUID) (StockStatus, error) {
	available, err := c.ledger.Quantity(ctx, productID)
	if err != nil {
		return StockStatus{}, err
	}
	active, err := c.activeLineQuantity(ctx, productID)
	if err != nil {
		return StockStatus{}, err
	}
	return BuildStatus(productID, available, active), nil
}

// Display computes the status for read-only surfaces. Failures are logged and
// reported as out of stock.
func (c *Calculator) Display(ctx context.Context, productID uuid.UUID) StockStatus {
	status, err := c.Status(ctx, productID)
	if err != nil {
		c.logg.Error(c.logg.WithProductID(ctx, productID.String()), "stock status read failed", err)
		return BuildStatus(productID, 0, 0)
	}
	return status
}

func (c *Calculator) activeLineQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int64
	err := c.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("COALESCE(SUM(quantity - stock_allocated), 0)").
		Where("product_id = ? AND status IN ?", productID, enums.ActiveLineStatusValues()).
		Scan(&total).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum active order lines")
	}
	return int(total), nil
}

// BuildStatus derives reserved units and the display fields from the
// available count and the quantity demanded by active lines.
func BuildStatus(productID uuid.UUID, available, activeDemand int) StockStatus {
	if available < 0 {
		available = 0
	}
	reserved := activeDemand - available
	if reserved < 0 {
		reserved = 0
	}
	status := StockStatus{ProductID: productID, Available: available, Reserved: reserved}
	switch {
	case available > 0 && reserved > 0:
		status.Display = fmt.Sprintf("In stock: %d, Reserved: %d", available, reserved)
		status.Color = ColorBlue
	case reserved > 0:
		status.Display = fmt.Sprintf("Reserved: %d", reserved)
		status.Color = ColorBlue
	case available > 0:
		status.Display = fmt.Sprintf("In stock: %d", available)
		status.Color = ColorGreen
	default:
		status.Display = DisplayOutOfStock
		status.Color = ColorRed
	}
	return status
}
