package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductFilament{}, &models.InventoryRecord{}))
	return db
}

func TestCatalogReturnsBillOfMaterial(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	catalog, err := NewCatalog(repo)
	require.NoError(t, err)

	created, err := repo.CreateProduct(ctx, &models.Product{
		Code:             "VASE-01",
		Name:             "Spiral vase",
		CapacityPerBatch: 4,
		Filaments: []models.ProductFilament{
			{FilamentType: "PLA", FilamentColor: "Red", GramsPerUnit: decimal.NewFromInt(50)},
			{FilamentType: "PETG", FilamentColor: "Black", GramsPerUnit: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	got, err := catalog.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "VASE-01", got.Code)

	bom, err := catalog.BillOfMaterial(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, bom, 2)
	require.Equal(t, "PETG", bom[0].FilamentType)
	require.True(t, bom[1].GramsPerUnit.Equal(decimal.NewFromInt(50)))

	require.NoError(t, repo.ReplaceBillOfMaterial(ctx, created.ID, []models.ProductFilament{
		{FilamentType: "PLA", FilamentColor: "White", GramsPerUnit: decimal.NewFromInt(20)},
	}))
	bom, err = catalog.BillOfMaterial(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, bom, 1)
	require.Equal(t, "White", bom[0].FilamentColor)

	require.Equal(t, 12, UnitsForBatches(got, 3))
}

func TestCatalogMissingProductIsNotFound(t *testing.T) {
	catalog, err := NewCatalog(NewRepository(newTestDB(t)))
	require.NoError(t, err)

	missing := uuid.New()
	_, err = catalog.Get(context.Background(), missing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Contains(t, err.Error(), missing.String())

	err = catalog.CorrectUnitWeight(context.Background(), missing, decimal.NewFromInt(12))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCorrectUnitWeightRejectsNegative(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	catalog, err := NewCatalog(repo)
	require.NoError(t, err)
	p, err := repo.CreateProduct(context.Background(), &models.Product{Code: "P1", Name: "P1"})
	require.NoError(t, err)

	err = catalog.CorrectUnitWeight(context.Background(), p.ID, decimal.NewFromInt(-1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, catalog.CorrectUnitWeight(context.Background(), p.ID, decimal.RequireFromString("12.5")))
	got, err := catalog.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, got.UnitWeightGrams.Equal(decimal.RequireFromString("12.5")))
}
