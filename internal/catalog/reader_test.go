package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
)

func TestLoadVariantsIncludesSoftDeletedProducts(t *testing.T) {
	db := testutil.OpenDB(t)
	r := NewReader(db)
	seller := uuid.New()
	live := testutil.MustCreateProduct(t, db, seller, 10000, 3)
	gone := testutil.MustCreateProduct(t, db, seller, 8000, 2)
	require.NoError(t, db.Delete(&models.Product{}, "id = ?", gone.ID).Error)
	require.NoError(t, db.Model(&models.ProductVariant{}).Where("id = ?", live.Variants[0].ID).
		Update("additional_price_krw", 500).Error)

	records, err := r.LoadVariants(context.Background(), []uuid.UUID{live.Variants[0].ID, gone.Variants[0].ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, records, 2)

	liveRec := records[live.Variants[0].ID]
	require.True(t, liveRec.Available())
	require.Equal(t, int64(10500), liveRec.UnitPriceKrw())

	goneRec := records[gone.Variants[0].ID]
	require.False(t, goneRec.Available())
}

func TestLoadVariantsInactiveProduct(t *testing.T) {
	db := testutil.OpenDB(t)
	product := testutil.MustCreateProduct(t, db, uuid.New(), 10000, 3)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)

	records, err := NewReader(db).LoadVariants(context.Background(), []uuid.UUID{product.Variants[0].ID})
	require.NoError(t, err)
	require.False(t, records[product.Variants[0].ID].Available())
}

func TestFirstVariant(t *testing.T) {
	db := testutil.OpenDB(t)
	product := testutil.MustCreateProduct(t, db, uuid.New(), 10000, 3, 4)
	r := NewReader(db)

	first, err := r.FirstVariant(context.Background(), product.ID)
	require.NoError(t, err)
	require.Contains(t, []uuid.UUID{product.Variants[0].ID, product.Variants[1].ID}, first.ID)

	_, err = r.FirstVariant(context.Background(), uuid.New())
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestShippingPolicies(t *testing.T) {
	db := testutil.OpenDB(t)
	withPolicy, without := uuid.New(), uuid.New()
	testutil.MustCreateShippingPolicy(t, db, withPolicy, 2500, 30000)

	policies, err := NewReader(db).ShippingPolicies(context.Background(), []uuid.UUID{withPolicy, without})
	require.NoError(t, err)
	require.Len(t, policies, 1)
	require.Equal(t, int64(2500), policies[withPolicy].ShippingFeeKrw)
}
