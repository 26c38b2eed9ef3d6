package orders

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/internal/inventory"
	"github.com/angelmondragon/printfarm-backend/internal/pricing"
	product "github.com/angelmondragon/printfarm-backend/internal/products"
	pkgdb "github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
)

type fixture struct {
	db      *gorm.DB
	svc     Service
	auditor *recordingAuditor
	metrics *metrics.FulfillmentMetrics
	reg     *prometheus.Registry
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithFallback(t, false)
}

func newFixtureWithFallback(t *testing.T, legacyFallback bool) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: buf})
	catalog, err := product.NewCatalog(product.NewRepository(db))
	require.NoError(t, err)
	depot, err := filaments.NewDepot(filaments.NewRepository(db))
	require.NoError(t, err)
	pricer, err := pricing.NewCatalogPricer(db)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m := metrics.NewFulfillmentMetrics(reg)
	auditor := &recordingAuditor{}

	svc, err := NewService(ServiceParams{
		TX:                   pkgdb.NewFromGorm(db),
		Repository:           NewRepository(db),
		Catalog:              catalog,
		Depot:                depot,
		Ledger:               inventory.NewLedger(db),
		Pricer:               pricer,
		Auditor:              auditor,
		Metrics:              m,
		Logger:               logg,
		LegacyStatusFallback: legacyFallback,
	})
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, auditor: auditor, metrics: m, reg: reg, logs: buf}
}

func (f *fixture) seedProduct(t *testing.T, code string, bom ...models.ProductFilament) *models.Product {
	t.Helper()
	p := &models.Product{Code: code, Name: code, CapacityPerBatch: 4, UnitPrice: decimal.NewFromInt(25), WholesalePrice: decimal.NewFromInt(20)}
	require.NoError(t, f.db.Create(p).Error)
	for _, row := range bom {
		row.ProductID = p.ID
		require.NoError(t, f.db.Create(&row).Error)
	}
	return p
}

func (f *fixture) seedSpool(t *testing.T, code, filamentType, color string, remaining int64) *models.Filament {
	t.Helper()
	spool := &models.Filament{Code: code, Type: filamentType, Color: color, RemainingWeight: decimal.NewFromInt(remaining), TotalWeight: decimal.NewFromInt(1000)}
	require.NoError(t, f.db.Create(spool).Error)
	return spool
}

func (f *fixture) seedStock(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.InventoryRecord{ProductID: productID, Quantity: qty}).Error)
}

// seedOrder creates an order with one line per status, all for productID.
func (f *fixture) seedOrder(t *testing.T, code string, productID uuid.UUID, qty int, statuses ...enums.LineStatus) (*models.Order, []models.OrderItem) {
	t.Helper()
	order := &models.Order{Code: code, Status: statuses[0].Label()}
	require.NoError(t, f.db.Create(order).Error)
	lines := make([]models.OrderItem, 0, len(statuses))
	for _, status := range statuses {
		pid := productID
		line := models.OrderItem{OrderID: order.ID, ProductID: &pid, Quantity: qty, UnitPrice: decimal.NewFromInt(25), Status: status}
		require.NoError(t, f.db.Create(&line).Error)
		lines = append(lines, line)
	}
	return order, lines
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	qty, err := inventory.NewLedger(f.db).Quantity(context.Background(), productID)
	require.NoError(t, err)
	return qty
}

func (f *fixture) spoolWeight(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var spool models.Filament
	require.NoError(t, f.db.First(&spool, "id = ?", id).Error)
	return spool.RemainingWeight
}

func (f *fixture) line(t *testing.T, id uuid.UUID) models.OrderItem {
	t.Helper()
	var line models.OrderItem
	require.NoError(t, f.db.First(&line, "id = ?", id).Error)
	return line
}

func (f *fixture) order(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", id).Error)
	return order
}

func (f *fixture) usageCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.FilamentUsage{}).Count(&count).Error)
	return count
}

func bomRow(filamentType, color string, gramsPerUnit int64) models.ProductFilament {
	return models.ProductFilament{FilamentType: filamentType, FilamentColor: color, GramsPerUnit: decimal.NewFromInt(gramsPerUnit)}
}

type stockEvent struct {
	productID uuid.UUID
	operation string
	quantity  int
}

type orderEvent struct {
	orderID uuid.UUID
	event   enums.OutboxEventType
	details any
}

type recordingAuditor struct {
	mu     sync.Mutex
	stock  []stockEvent
	orders []orderEvent
}

func (r *recordingAuditor) RecordStockEvent(_ context.Context, productID uuid.UUID, operation string, quantity int, _ *uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock = append(r.stock, stockEvent{productID: productID, operation: operation, quantity: quantity})
}

func (r *recordingAuditor) RecordOrderEvent(_ context.Context, orderID uuid.UUID, event enums.OutboxEventType, details any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, orderEvent{orderID: orderID, event: event, details: details})
}
