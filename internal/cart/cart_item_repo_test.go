package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
)

func TestListAndDeleteCartItems(t *testing.T) {
	db := testutil.OpenDB(t)
	r := NewCartItemRepository(db)
	ctx := context.Background()
	buyer, other := uuid.New(), uuid.New()
	product := testutil.MustCreateProduct(t, db, uuid.New(), 5000, 10, 10)

	mine := []*models.CartItem{
		testutil.MustCreateCartItem(t, db, buyer, &product.Variants[0], 1),
		testutil.MustCreateCartItem(t, db, buyer, &product.Variants[1], 2),
	}
	theirs := testutil.MustCreateCartItem(t, db, other, &product.Variants[0], 4)

	all, err := r.ListByBuyer(ctx, buyer, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	selected, err := r.ListByBuyer(ctx, buyer, []uuid.UUID{mine[1].ID, theirs.ID})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, mine[1].ID, selected[0].ID)

	deleted, err := r.DeleteItems(ctx, buyer, []uuid.UUID{mine[0].ID, theirs.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	remaining, err := r.ListByBuyer(ctx, other, nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	deleted, err = r.DeleteItems(ctx, buyer, nil)
	require.NoError(t, err)
	require.Zero(t, deleted)
}
