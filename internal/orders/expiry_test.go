package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
	"github.com/seoulmarket/marketplace-backend/pkg/db"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
)

func newTestExpirer(t *testing.T, conn *gorm.DB) *Expirer {
	t.Helper()
	logg := testutil.Logger()
	expirer, err := NewExpirer(NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), logg), logg, nil)
	require.NoError(t, err)
	return expirer
}

func TestExpireTxCancelsPendingOrder(t *testing.T) {
	conn := testutil.OpenDB(t)
	expirer := newTestExpirer(t, conn)
	order := testutil.MustCreateOrder(t, conn, uuid.New(), uuid.New(), enums.OrderStatusPending)

	var applied bool
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = expirer.ExpireTx(context.Background(), tx, order, ExpirySourceConfirmation)
		return err
	}))
	require.True(t, applied)
	require.Equal(t, enums.OrderStatusCancelled, order.Status)

	var payment models.Payment
	require.NoError(t, conn.First(&payment, "order_id = ?", order.ID).Error)
	require.Equal(t, enums.PaymentStatusFailed, payment.Status)
	require.Equal(t, enums.PaymentFailureOrderExpired, *payment.FailureCode)

	events, err := outbox.NewRepository(conn).ListByAggregate(context.Background(), enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderExpired, events[0].EventType)
}

func TestExpireTxSkipsNonPending(t *testing.T) {
	conn := testutil.OpenDB(t)
	expirer := newTestExpirer(t, conn)
	order := testutil.MustCreateOrder(t, conn, uuid.New(), uuid.New(), enums.OrderStatusPaid)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		applied, err := expirer.ExpireTx(context.Background(), tx, order, ExpirySourceSweep)
		require.False(t, applied)
		return err
	}))
}

func TestSweepExpiresOverdueOrders(t *testing.T) {
	conn := testutil.OpenDB(t)
	expirer := newTestExpirer(t, conn)
	overdue := testutil.MustCreateOrder(t, conn, uuid.New(), uuid.New(), enums.OrderStatusPending)
	fresh := testutil.MustCreateOrder(t, conn, uuid.New(), uuid.New(), enums.OrderStatusPending)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", overdue.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error)

	count, err := expirer.Sweep(context.Background(), db.NewFromConn(conn), time.Now(), 50)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var reloaded models.Order
	require.NoError(t, conn.First(&reloaded, "id = ?", overdue.ID).Error)
	require.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	require.NoError(t, conn.First(&reloaded, "id = ?", fresh.ID).Error)
	require.Equal(t, enums.OrderStatusPending, reloaded.Status)

	count, err = expirer.Sweep(context.Background(), db.NewFromConn(conn), time.Now(), 50)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestShouldRestock(t *testing.T) {
	for _, from := range []enums.OrderStatus{
		enums.OrderStatusPaid, enums.OrderStatusShipped, enums.OrderStatusCompleted, enums.OrderStatusRefundRequested,
	} {
		require.True(t, shouldRestock(from, enums.OrderStatusRefunded), from)
	}
	require.False(t, shouldRestock(enums.OrderStatusPending, enums.OrderStatusRefunded))
	require.False(t, shouldRestock(enums.OrderStatusCancelled, enums.OrderStatusRefunded))
	require.False(t, shouldRestock(enums.OrderStatusPaid, enums.OrderStatusCancelled))
}
