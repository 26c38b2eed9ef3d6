package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/printfarm-backend/internal/filaments"
	"github.com/angelmondragon/printfarm-backend/internal/inventory"
	"github.com/angelmondragon/printfarm-backend/pkg/config"
	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	"github.com/angelmondragon/printfarm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubStock struct {
	status func(ctx context.Context, productID uuid.UUID) (inventory.StockStatus, error)
	apply  func(ctx context.Context, productID uuid.UUID, op enums.StockOperation, quantity int) (*inventory.OperationResult, error)
	weight func(ctx context.Context, productID uuid.UUID, grams decimal.Decimal) error
}

func (s *stubStock) Status(ctx context.Context, productID uuid.UUID) (inventory.StockStatus, error) {
	return s.status(ctx, productID)
}

func (s *stubStock) Apply(ctx context.Context, productID uuid.UUID, op enums.StockOperation, quantity int) (*inventory.OperationResult, error) {
	return s.apply(ctx, productID, op, quantity)
}

func (s *stubStock) CorrectUnitWeight(ctx context.Context, productID uuid.UUID, grams decimal.Decimal) error {
	return s.weight(ctx, productID, grams)
}

type stubDepot struct {
	filter   filaments.SpoolFilter
	params   pagination.Params
	usage    map[uuid.UUID][]models.FilamentUsage
	register func(ctx context.Context, input filaments.RegisterSpoolInput) (*models.Filament, error)
}

func (s *stubDepot) ListSpools(_ context.Context, filter filaments.SpoolFilter) ([]models.Filament, error) {
	s.filter = filter
	return []models.Filament{{Code: "PLA-RED-01", Type: "PLA", Color: "Red"}}, nil
}

func (s *stubDepot) ListUsage(_ context.Context, spoolID uuid.UUID, params pagination.Params) (*filaments.UsagePage, error) {
	s.params = params
	rows, ok := s.usage[spoolID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "spool not found")
	}
	return &filaments.UsagePage{Entries: rows, NextCursor: "next"}, nil
}

func (s *stubDepot) RegisterSpool(ctx context.Context, input filaments.RegisterSpoolInput) (*models.Filament, error) {
	return s.register(ctx, input)
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "dev"}}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	handler := HealthReady(testConfig(), nil, map[string]Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{err: errors.New("connection refused")},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "redis")
}

func TestHealthReadySkipsNilPingers(t *testing.T) {
	handler := HealthReady(testConfig(), nil, map[string]Pinger{"db": stubPinger{}, "redis": nil})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dev", rec.Header().Get("X-PrintFarm-Env"))
}

func TestProductStockReturnsStatus(t *testing.T) {
	productID := uuid.New()
	stub := &stubStock{status: func(_ context.Context, id uuid.UUID) (inventory.StockStatus, error) {
		return inventory.BuildStatus(id, 3, 5), nil
	}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", productID.String())
	rec := httptest.NewRecorder()
	ProductStock(stub, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"reserved":2`)
}

func TestProductStockOperationParsesOperation(t *testing.T) {
	productID := uuid.New()
	stub := &stubStock{apply: func(_ context.Context, id uuid.UUID, op enums.StockOperation, qty int) (*inventory.OperationResult, error) {
		require.Equal(t, productID, id)
		require.Equal(t, enums.StockOperationAdd, op)
		require.Equal(t, 4, qty)
		return &inventory.OperationResult{Success: true, Message: "Added 4 units"}, nil
	}}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"operation":"add","quantity":4}`)), "productId", productID.String())
	rec := httptest.NewRecorder()
	ProductStockOperation(stub, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Added 4 units")
}

func TestProductStockOperationRejectsUnknownOperation(t *testing.T) {
	stub := &stubStock{apply: func(context.Context, uuid.UUID, enums.StockOperation, int) (*inventory.OperationResult, error) {
		t.Fatalf("gateway should not be called")
		return nil, nil
	}}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"operation":"TRANSFER","quantity":1}`)), "productId", uuid.NewString())
	rec := httptest.NewRecorder()
	ProductStockOperation(stub, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductStockOperationInsufficientStock(t *testing.T) {
	stub := &stubStock{apply: func(context.Context, uuid.UUID, enums.StockOperation, int) (*inventory.OperationResult, error) {
		return &inventory.OperationResult{Success: false}, pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 1 units available")
	}}
	req := withParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"operation":"REMOVE","quantity":3}`)), "productId", uuid.NewString())
	rec := httptest.NewRecorder()
	ProductStockOperation(stub, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), string(pkgerrors.CodeInsufficientStock))
}

func TestProductUnitWeightForwardsGrams(t *testing.T) {
	var got decimal.Decimal
	stub := &stubStock{weight: func(_ context.Context, _ uuid.UUID, grams decimal.Decimal) error {
		got = grams
		return nil
	}}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"grams":"42.5"}`)), "productId", uuid.NewString())
	rec := httptest.NewRecorder()
	ProductUnitWeight(stub, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, got.Equal(decimal.RequireFromString("42.5")))
}

func TestFilamentListForwardsFilter(t *testing.T) {
	depot := &stubDepot{}
	rec := httptest.NewRecorder()
	FilamentList(depot, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/filaments?type=PLA&color=%20Red%20", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, filaments.SpoolFilter{Type: "PLA", Color: "Red"}, depot.filter)
	require.Contains(t, rec.Body.String(), "PLA-RED-01")
}

func TestFilamentUsageUnknownSpool(t *testing.T) {
	depot := &stubDepot{usage: map[uuid.UUID][]models.FilamentUsage{}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "filamentId", uuid.NewString())
	rec := httptest.NewRecorder()
	FilamentUsage(depot, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilamentUsagePassesPaging(t *testing.T) {
	spoolID := uuid.New()
	depot := &stubDepot{usage: map[uuid.UUID][]models.FilamentUsage{
		spoolID: {{FilamentID: spoolID, AmountGrams: decimal.NewFromInt(30)}},
	}}
	req := withParam(httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil), "filamentId", spoolID.String())
	rec := httptest.NewRecorder()
	FilamentUsage(depot, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, depot.params)
	require.Contains(t, rec.Body.String(), `"nextCursor":"next"`)

	rec = httptest.NewRecorder()
	req = withParam(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), "filamentId", spoolID.String())
	FilamentUsage(depot, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilamentRegisterCreatesSpool(t *testing.T) {
	depot := &stubDepot{register: func(_ context.Context, input filaments.RegisterSpoolInput) (*models.Filament, error) {
		require.Equal(t, "PETG-BLK-02", input.Code)
		require.True(t, input.TotalWeight.Equal(decimal.NewFromInt(1000)))
		require.Nil(t, input.RemainingWeight)
		return &models.Filament{Code: input.Code, Type: input.Type, Color: input.Color, TotalWeight: input.TotalWeight, RemainingWeight: input.TotalWeight}, nil
	}}
	body := `{"code":" PETG-BLK-02 ","type":"PETG","color":"Black","totalWeight":1000}`
	rec := httptest.NewRecorder()
	FilamentRegister(depot, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/filaments", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
}
