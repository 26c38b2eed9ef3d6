package inventory

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.New(logger.Options{ServiceName: "inventory-test", Output: buf}), buf
}

func seedProduct(t *testing.T, db *gorm.DB, code string) *models.Product {
	t.Helper()
	p := &models.Product{Code: code, Name: code, CapacityPerBatch: 1, UnitPrice: decimal.NewFromInt(10)}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedStock(t *testing.T, db *gorm.DB, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.InventoryRecord{ProductID: productID, Quantity: qty}).Error)
}

func seedLine(t *testing.T, db *gorm.DB, productID uuid.UUID, qty int, status enums.LineStatus) {
	t.Helper()
	order := &models.Order{Code: "ORD-" + uuid.NewString()[:8], Status: status.Label()}
	require.NoError(t, db.Create(order).Error)
	pid := productID
	require.NoError(t, db.Create(&models.OrderItem{OrderID: order.ID, ProductID: &pid, Quantity: qty, Status: status}).Error)
}

type stockEvent struct {
	productID uuid.UUID
	operation string
	quantity  int
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []stockEvent
}

func (r *recordingAuditor) RecordStockEvent(_ context.Context, productID uuid.UUID, operation string, quantity int, _ *uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, stockEvent{productID: productID, operation: operation, quantity: quantity})
}
