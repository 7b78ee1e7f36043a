package orders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox/payloads"
)

// Expiry sources recorded on order_expired events.
const (
	ExpirySourceConfirmation = "confirmation"
	ExpirySourceSweep        = "sweep"
)

// Expirer cancels PENDING orders whose deadline has passed. Payment
// confirmation calls ExpireTx lazily; the cron worker calls Sweep.
type Expirer struct {
	repo    Repository
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

func NewExpirer(repo Repository, publisher outboxPublisher, logg *logger.Logger, m *metrics.OrderMetrics) (*Expirer, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Expirer{repo: repo, outbox: publisher, logg: logg, metrics: m}, nil
}

// ExpireTx moves order PENDING -> CANCELLED and fails its payment. It
// reports false when the order had already left PENDING.
func (e *Expirer) ExpireTx(ctx context.Context, tx *gorm.DB, order *models.Order, source string) (bool, error) {
	repo := e.repo.WithTx(tx)

	applied, err := repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel expired order")
	}
	if !applied {
		return false, nil
	}

	failure := enums.PaymentFailureOrderExpired
	message := "order expired before payment confirmation"
	if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
		"status":          enums.PaymentStatusFailed,
		"failure_code":    &failure,
		"failure_message": &message,
	}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail expired payment")
	}

	var expiresAt time.Time
	if order.ExpiresAt != nil {
		expiresAt = *order.ExpiresAt
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.OrderExpiredEvent{
			OrderID:   order.ID,
			ExpiresAt: expiresAt,
			Source:    source,
		},
	}
	if err := e.outbox.Emit(ctx, tx, event); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order expired")
	}

	order.Status = enums.OrderStatusCancelled
	e.metrics.IncTransition("expiry", string(enums.OrderStatusCancelled))
	return true, nil
}

// Sweep expires up to limit overdue orders, one transaction per order.
func (e *Expirer) Sweep(ctx context.Context, runner TxRunner, now time.Time, limit int) (int, error) {
	if runner == nil {
		return 0, fmt.Errorf("transaction runner required")
	}
	if limit <= 0 {
		limit = 100
	}

	candidates, err := e.repo.FindExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired orders")
	}

	expired := 0
	var errs error
	for i := range candidates {
		order := &candidates[i]
		err := runner.WithTx(ctx, func(tx *gorm.DB) error {
			applied, err := e.ExpireTx(ctx, tx, order, ExpirySourceSweep)
			if err != nil {
				return err
			}
			if applied {
				expired++
			}
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}

	if e.logg != nil && expired > 0 {
		e.logg.Info(e.logg.WithField(ctx, "expired", expired), "expired pending orders")
	}
	return expired, errs
}
