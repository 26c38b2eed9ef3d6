package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
)

// Ledger keeps the available finished-unit count per product. Counts never go
// below zero; a write that would is rejected with INSUFFICIENT_STOCK.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Quantity(ctx context.Context, productID uuid.UUID) (int, error)
	LockQuantity(ctx context.Context, productID uuid.UUID) (qty int, found bool, err error)
	Add(ctx context.Context, productID uuid.UUID, delta int) error
	Subtract(ctx context.Context, productID uuid.UUID, qty int) error
	Set(ctx context.Context, productID uuid.UUID, qty int) error
}

type ledger struct {
	db *gorm.DB
}

// NewLedger builds a ledger bound to the provided DB.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{db: tx}
}

// Quantity returns the available units; a product without a row has none.
func (l *ledger) Quantity(ctx context.Context, productID uuid.UUID) (int, error) {
	qty, _, err := l.read(ctx, productID, false)
	return qty, err
}

// LockQuantity reads the row FOR UPDATE so the caller can decide on it safely.
func (l *ledger) LockQuantity(ctx context.Context, productID uuid.UUID) (int, bool, error) {
	return l.read(ctx, productID, true)
}

func (l *ledger) read(ctx context.Context, productID uuid.UUID, lock bool) (int, bool, error) {
	query := l.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record models.InventoryRecord
	err := query.Where("product_id = ?", productID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read inventory")
	}
	return record.Quantity, true, nil
}

// Add upserts the row and applies delta atomically.
func (l *ledger) Add(ctx context.Context, productID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	now := time.Now().UTC()
	record := models.InventoryRecord{ProductID: productID, Quantity: delta, UpdatedAt: now}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("inventory.quantity + ?", delta),
				"updated_at": now,
			}),
		}).
		Create(&record).Error
	return mapWriteError(err, productID)
}

// Subtract removes qty units; the row must hold at least that many.
func (l *ledger) Subtract(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity to subtract must be positive")
	}
	return l.Add(ctx, productID, -qty)
}

// Set overwrites the available count.
func (l *ledger) Set(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory quantity must be zero or positive")
	}
	record := models.InventoryRecord{ProductID: productID, Quantity: qty, UpdatedAt: time.Now().UTC()}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&record).Error
	return mapWriteError(err, productID)
}

func mapWriteError(err error, productID uuid.UUID) error {
	if err == nil {
		return nil
	}
	if db.IsCheckViolation(err) {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("inventory for product %s cannot go below zero", productID)).
			WithDetails(map[string]any{"productId": productID})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write inventory")
}
