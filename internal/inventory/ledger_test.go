package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
)

func TestLedgerMissingRowReadsZero(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)

	qty, err := ledger.Quantity(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Zero(t, qty)

	_, found, err := ledger.LockQuantity(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, found)
}

func TestLedgerAddUpsertsAndAccumulates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, db, "CUBE")
	ledger := NewLedger(db)

	require.NoError(t, ledger.Add(ctx, p.ID, 4))
	require.NoError(t, ledger.Add(ctx, p.ID, 3))
	require.NoError(t, ledger.Subtract(ctx, p.ID, 2))

	qty, err := ledger.Quantity(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 5, qty)

	require.NoError(t, ledger.Set(ctx, p.ID, 9))
	qty, err = ledger.Quantity(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 9, qty)
}

func TestLedgerRejectsNegativeBalance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, db, "GEAR")
	seedStock(t, db, p.ID, 2)
	ledger := NewLedger(db)

	err := ledger.Subtract(ctx, p.ID, 3)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	err = ledger.Add(ctx, seedProduct(t, db, "NEW").ID, -1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	qty, err := ledger.Quantity(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, qty)

	require.True(t, pkgerrors.IsCode(ledger.Set(ctx, p.ID, -1), pkgerrors.CodeValidation))
}

func TestLedgerWithTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, db, "HOOK")
	ledger := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.WithTx(tx).Add(ctx, p.ID, 10); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "abort")
	})
	require.Error(t, err)

	qty, err := ledger.Quantity(ctx, p.ID)
	require.NoError(t, err)
	require.Zero(t, qty)
}
