package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/testutil"
	"github.com/seoulmarket/marketplace-backend/pkg/config"
	"github.com/seoulmarket/marketplace-backend/pkg/db"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox/payloads"
)

type fakeStream struct {
	entries []map[string]any
	fail    map[string]error
}

func (f *fakeStream) Ping(context.Context) error { return nil }

func (f *fakeStream) XAdd(_ context.Context, stream string, _ int64, values map[string]any) (string, error) {
	if err := f.fail[values["aggregate_id"].(string)]; err != nil {
		return "", err
	}
	values["_stream"] = stream
	f.entries = append(f.entries, values)
	return "1-0", nil
}

type relayFixture struct {
	svc    *Service
	conn   *gorm.DB
	stream *fakeStream
	emit   func(orderID uuid.UUID)
}

func newRelayFixture(t *testing.T, maxAttempts int) *relayFixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	repo := outbox.NewRepository(conn)
	stream := &fakeStream{fail: map[string]error{}}
	svc, err := NewService(ServiceParams{
		Config:     config.OutboxConfig{Stream: "order-events", MaxAttempts: maxAttempts},
		Logger:     testutil.Logger(),
		DB:         db.NewFromConn(conn),
		Stream:     stream,
		Repository: repo,
		Decoders:   outbox.DefaultDecoders(),
	})
	require.NoError(t, err)

	publisher := outbox.NewService(repo, nil)
	emit := func(orderID uuid.UUID) {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return publisher.Emit(context.Background(), tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Data:          payloads.OrderPaidEvent{OrderID: orderID, PaymentKey: "pk", PaidAt: time.Now()},
			})
		}))
	}
	return &relayFixture{svc: svc, conn: conn, stream: stream, emit: emit}
}

func loadEvent(t *testing.T, conn *gorm.DB, orderID uuid.UUID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "aggregate_id = ?", orderID).Error)
	return row
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	f := newRelayFixture(t, 5)
	failing, ok := uuid.New(), uuid.New()
	f.emit(failing)
	f.emit(ok)
	f.stream.fail[failing.String()] = errors.New("transient")

	processed, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Len(t, f.stream.entries, 1)
	entry := f.stream.entries[0]
	require.Equal(t, "order-events", entry["_stream"])
	require.Equal(t, string(enums.EventOrderPaid), entry["event_type"])
	require.NotEmpty(t, entry["event_id"])

	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal([]byte(entry["payload"].(string)), &env))
	require.Equal(t, entry["event_id"], env.EventID)

	require.NotNil(t, loadEvent(t, f.conn, ok).PublishedAt)
	failed := loadEvent(t, f.conn, failing)
	require.Nil(t, failed.PublishedAt)
	require.Equal(t, 1, failed.AttemptCount)
}

func TestProcessBatchParksAfterMaxAttempts(t *testing.T) {
	f := newRelayFixture(t, 2)
	orderID := uuid.New()
	f.emit(orderID)
	f.stream.fail[orderID.String()] = errors.New("stream down")

	_, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)
	_, err = f.svc.processBatch(context.Background())
	require.NoError(t, err)

	row := loadEvent(t, f.conn, orderID)
	require.Equal(t, 2, row.AttemptCount)
	require.Contains(t, *row.LastError, "max publish attempts reached")

	processed, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed, "parked rows are not fetched again")
}

func TestProcessBatchParksUndecodableRows(t *testing.T) {
	f := newRelayFixture(t, 5)
	row := models.OutboxEvent{
		EventType:     "order_teleported",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
	}
	require.NoError(t, f.conn.Create(&row).Error)

	_, err := f.svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, f.stream.entries)
	require.Equal(t, 5, loadEvent(t, f.conn, row.AggregateID).AttemptCount)
}

func TestNextBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	require.Equal(t, time.Second, nextBackoff(base, base, maxBackoff))
	require.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))
	require.Equal(t, time.Second, nextBackoff(0, base, maxBackoff))
}

func TestNewServiceRequiresStream(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:     config.OutboxConfig{},
		Logger:     testutil.Logger(),
		DB:         db.NewFromConn(nil),
		Stream:     &fakeStream{},
		Repository: outbox.NewRepository(nil),
		Decoders:   outbox.DefaultDecoders(),
	})
	require.Error(t, err)
}
