package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/internal/inventory"
	"github.com/angelmondragon/printfarm-backend/internal/orders"
	"github.com/angelmondragon/printfarm-backend/internal/pricing"
	product "github.com/angelmondragon/printfarm-backend/internal/products"
	"github.com/angelmondragon/printfarm-backend/pkg/config"
	pkgdb "github.com/angelmondragon/printfarm-backend/pkg/db"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	"github.com/angelmondragon/printfarm-backend/pkg/logger"
	"github.com/angelmondragon/printfarm-backend/pkg/metrics"
)

type noopAuditor struct{}

func (noopAuditor) RecordStockEvent(context.Context, uuid.UUID, string, int, *uuid.UUID) {}

func (noopAuditor) RecordOrderEvent(context.Context, uuid.UUID, enums.OutboxEventType, any) {}

type sqlPinger struct{ db *gorm.DB }

func (p sqlPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:router_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: &bytes.Buffer{}})
	reg := prometheus.NewRegistry()
	m := metrics.NewFulfillmentMetrics(reg)
	tx := pkgdb.NewFromGorm(conn)

	catalog, err := product.NewCatalog(product.NewRepository(conn))
	require.NoError(t, err)
	depot, err := filaments.NewDepot(filaments.NewRepository(conn))
	require.NoError(t, err)
	calc, err := inventory.NewCalculator(conn, logg)
	require.NoError(t, err)
	pricer, err := pricing.NewCatalogPricer(conn)
	require.NoError(t, err)
	ledger := inventory.NewLedger(conn)

	gateway, err := inventory.NewGateway(inventory.GatewayParams{
		TX: tx, Catalog: catalog, Ledger: ledger, Calculator: calc, Auditor: noopAuditor{}, Metrics: m, Logger: logg,
	})
	require.NoError(t, err)
	svc, err := orders.NewService(orders.ServiceParams{
		TX: tx, Repository: orders.NewRepository(conn), Catalog: catalog, Depot: depot, Ledger: ledger,
		Pricer: pricer, Auditor: noopAuditor{}, Metrics: m, Logger: logg,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		App:  config.AppConfig{Env: "dev"},
		HTTP: config.HTTPConfig{CORSAllowedOrigins: []string{"http://localhost:3000"}},
	}
	return NewRouter(cfg, logg, RouterParams{
		DB:      sqlPinger{db: conn},
		Orders:  svc,
		Stock:   calc,
		Gateway: gateway,
		Catalog: catalog,
		Depot:   depot,
		Metrics: metrics.Handler(reg),
	}), conn
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	}
}

func TestStockOrderLifecycleOverHTTP(t *testing.T) {
	router, conn := newTestRouter(t)
	p := &models.Product{Code: "VASE-01", Name: "Vase", CapacityPerBatch: 2}
	require.NoError(t, conn.Create(p).Error)

	body := `{"lines":[{"productId":"` + p.ID.String() + `","quantity":2}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"stockOrder":true`)

	var order models.Order
	require.NoError(t, conn.Preload("Items").First(&order).Error)
	require.Len(t, order.Items, 1)

	path := "/api/v1/orders/" + order.Code + "/lines/" + order.Items[0].ID.String() + "/status"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"targetStatus":"hazirlandi"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+p.ID.String()+"/stock", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"available":2`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "printfarm_fulfillment_transitions_total")
}

func TestUnknownOrderIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-MISSING", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
