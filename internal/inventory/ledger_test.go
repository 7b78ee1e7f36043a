package inventory

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

func TestTryDecrement(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	product := testutil.MustCreateProduct(t, db, uuid.New(), 10000, 5)
	variantID := product.Variants[0].ID
	l := NewLedger(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		ok, err := l.TryDecrement(ctx, tx, variantID, 3)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.TryDecrement(ctx, tx, variantID, 3)
		require.NoError(t, err)
		require.False(t, ok, "only 2 units remain")

		ok, err = l.TryDecrement(ctx, tx, variantID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	stock, err := l.Stock(ctx, variantID)
	require.NoError(t, err)
	require.Equal(t, 0, stock)
}

func TestTryDecrementRejectsNonPositiveQty(t *testing.T) {
	db := testutil.OpenDB(t)
	l := NewLedger(db)

	_, err := l.TryDecrement(context.Background(), db, uuid.New(), 0)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = l.Increment(context.Background(), nil, uuid.New(), 1)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestIncrement(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	product := testutil.MustCreateProduct(t, db, uuid.New(), 10000, 1)
	variantID := product.Variants[0].ID
	l := NewLedger(db)

	ok, err := l.Increment(ctx, db, variantID, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, testutil.VariantStock(t, db, variantID))

	ok, err = l.Increment(ctx, db, uuid.New(), 4)
	require.NoError(t, err)
	require.False(t, ok, "missing variant reports not applied")
}

func TestStockMissingVariant(t *testing.T) {
	db := testutil.OpenDB(t)
	_, err := NewLedger(db).Stock(context.Background(), uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestTryDecrementConcurrentNeverOversells(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	product := testutil.MustCreateProduct(t, db, uuid.New(), 10000, 3)
	variantID := product.Variants[0].ID
	l := NewLedger(db)

	var applied atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			return db.Transaction(func(tx *gorm.DB) error {
				ok, err := l.TryDecrement(ctx, tx, variantID, 1)
				if ok {
					applied.Add(1)
				}
				return err
			})
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(3), applied.Load())
	require.Equal(t, 0, testutil.VariantStock(t, db, variantID))
}
