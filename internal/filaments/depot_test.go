package filaments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/printfarm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	"github.com/angelmondragon/printfarm-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:filaments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Filament{}, &models.FilamentUsage{}))
	return db
}

func grams(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func seedSpool(t *testing.T, db *gorm.DB, code, filamentType, color string, remaining int64) *models.Filament {
	t.Helper()
	spool := &models.Filament{Code: code, Type: filamentType, Color: color, RemainingWeight: grams(remaining), TotalWeight: grams(1000)}
	require.NoError(t, db.Create(spool).Error)
	return spool
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) models.Filament {
	t.Helper()
	var spool models.Filament
	require.NoError(t, db.First(&spool, "id = ?", id).Error)
	return spool
}

func newDepot(t *testing.T, db *gorm.DB) *Depot {
	t.Helper()
	depot, err := NewDepot(NewRepository(db))
	require.NoError(t, err)
	return depot
}

func TestConsumeDrawsFromHeaviestSpool(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	light := seedSpool(t, db, "SP-1", "PLA", "Red", 120)
	heavy := seedSpool(t, db, "SP-2", "PLA", "Red", 200)
	orderID := uuid.New()

	out, err := depot.Consume(context.Background(), ConsumeRequest{
		ProductID: uuid.New(),
		OrderID:   &orderID,
		Units:     3,
		BillOfMaterial: []models.ProductFilament{
			{FilamentType: "PLA", FilamentColor: "Red", GramsPerUnit: grams(50)},
		},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "SP-2", out[0].SpoolCode)
	require.True(t, out[0].Grams.Equal(grams(150)))

	require.True(t, reload(t, db, heavy.ID).RemainingWeight.Equal(grams(50)))
	require.True(t, reload(t, db, light.ID).RemainingWeight.Equal(grams(120)))

	page, err := depot.ListUsage(context.Background(), heavy.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Empty(t, page.NextCursor)
	require.True(t, page.Entries[0].AmountGrams.Equal(grams(150)))
	require.Equal(t, orderID, *page.Entries[0].OrderID)
}

func TestConsumeHonoursSelectedSpool(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	seedSpool(t, db, "SP-1", "PLA", "Red", 500)
	pinned := seedSpool(t, db, "SP-2", "PLA", "Red", 100)

	_, err := depot.Consume(context.Background(), ConsumeRequest{
		ProductID:      uuid.New(),
		Units:          1,
		BillOfMaterial: []models.ProductFilament{{FilamentType: "PLA", FilamentColor: "Red", GramsPerUnit: grams(40)}},
		SelectedSpools: map[string]uuid.UUID{SpoolKey("PLA", "Red"): pinned.ID},
	})
	require.NoError(t, err)
	require.True(t, reload(t, db, pinned.ID).RemainingWeight.Equal(grams(60)))
}

func TestConsumeRejectsMismatchedSelection(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	blue := seedSpool(t, db, "SP-B", "PLA", "Blue", 500)

	_, err := depot.Consume(context.Background(), ConsumeRequest{
		ProductID:      uuid.New(),
		Units:          1,
		BillOfMaterial: []models.ProductFilament{{FilamentType: "PLA", FilamentColor: "Red", GramsPerUnit: grams(40)}},
		SelectedSpools: map[string]uuid.UUID{SpoolKey("PLA", "Red"): blue.ID},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.True(t, reload(t, db, blue.ID).RemainingWeight.Equal(grams(500)))
}

func TestConsumeInsufficientNamesSpoolAndAmounts(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	spool := seedSpool(t, db, "SP-9", "PETG", "Black", 10)

	_, err := depot.Consume(context.Background(), ConsumeRequest{
		ProductID:      uuid.New(),
		Units:          1,
		BillOfMaterial: []models.ProductFilament{{FilamentType: "PETG", FilamentColor: "Black", GramsPerUnit: grams(15)}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientMaterial))
	msg := pkgerrors.As(err).Message()
	require.Contains(t, msg, "SP-9")
	require.Contains(t, msg, "PETG/Black")
	require.Contains(t, msg, "10.00")
	require.Contains(t, msg, "15.00")
	require.True(t, reload(t, db, spool.ID).RemainingWeight.Equal(grams(10)))
}

func TestConsumeIsAllOrNothingInsideTransaction(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	red := seedSpool(t, db, "SP-R", "PLA", "Red", 100)
	seedSpool(t, db, "SP-W", "PLA", "White", 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := depot.WithTx(tx).Consume(context.Background(), ConsumeRequest{
			ProductID: uuid.New(),
			Units:     1,
			BillOfMaterial: []models.ProductFilament{
				{FilamentType: "PLA", FilamentColor: "Red", GramsPerUnit: grams(30)},
				{FilamentType: "PLA", FilamentColor: "White", GramsPerUnit: grams(10)},
			},
		})
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientMaterial))
	require.True(t, reload(t, db, red.ID).RemainingWeight.Equal(grams(100)))

	var usage int64
	require.NoError(t, db.Model(&models.FilamentUsage{}).Count(&usage).Error)
	require.Zero(t, usage)
}

func TestConsumeWithoutBillOfMaterialIsNoop(t *testing.T) {
	depot := newDepot(t, newTestDB(t))
	out, err := depot.Consume(context.Background(), ConsumeRequest{ProductID: uuid.New(), Units: 2})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestConsumeMissingSpoolIsNotFound(t *testing.T) {
	depot := newDepot(t, newTestDB(t))
	_, err := depot.Consume(context.Background(), ConsumeRequest{
		ProductID:      uuid.New(),
		Units:          1,
		BillOfMaterial: []models.ProductFilament{{FilamentType: "TPU", FilamentColor: "Green", GramsPerUnit: grams(5)}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRegisterAndListSpools(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	ctx := context.Background()

	_, err := depot.RegisterSpool(ctx, RegisterSpoolInput{Code: "SP-1", Type: "PLA", Color: "Red", TotalWeight: grams(1000)})
	require.NoError(t, err)
	low := grams(40)
	_, err = depot.RegisterSpool(ctx, RegisterSpoolInput{Code: "SP-2", Type: "PLA", Color: "Blue", TotalWeight: grams(1000), RemainingWeight: &low})
	require.NoError(t, err)

	_, err = depot.RegisterSpool(ctx, RegisterSpoolInput{Code: "SP-1", Type: "PLA", Color: "Red", TotalWeight: grams(1000)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = depot.RegisterSpool(ctx, RegisterSpoolInput{Code: "SP-3", Type: "PLA", Color: "Red", TotalWeight: grams(0)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	red, err := depot.ListSpools(ctx, SpoolFilter{Color: "Red"})
	require.NoError(t, err)
	require.Len(t, red, 1)
	require.True(t, red[0].RemainingWeight.Equal(grams(1000)))

	lowSpools, err := depot.ListLowSpools(ctx, grams(100))
	require.NoError(t, err)
	require.Len(t, lowSpools, 1)
	require.Equal(t, "SP-2", lowSpools[0].Code)

	_, err = depot.ListUsage(ctx, uuid.New(), pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListUsagePagesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	depot := newDepot(t, db)
	ctx := context.Background()
	spool := seedSpool(t, db, "SP-1", "PLA", "Red", 500)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.FilamentUsage{
			FilamentID:  spool.ID,
			AmountGrams: grams(int64(10 * (i + 1))),
			UsageDate:   base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	first, err := depot.ListUsage(ctx, spool.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	require.True(t, first.Entries[0].AmountGrams.Equal(grams(30)))
	require.NotEmpty(t, first.NextCursor)

	second, err := depot.ListUsage(ctx, spool.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	require.True(t, second.Entries[0].AmountGrams.Equal(grams(10)))
	require.Empty(t, second.NextCursor)

	_, err = depot.ListUsage(ctx, spool.ID, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
