package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/catalog"
	"github.com/seoulmarket/marketplace-backend/internal/inventory"
	"github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/db"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox/payloads"
)

const maxPaymentKeyLength = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderExpirer interface {
	ExpireTx(ctx context.Context, tx *gorm.DB, order *models.Order, source string) (bool, error)
}

// Outcome is the successful result kind of a confirmation attempt.
type Outcome string

const (
	OutcomeConfirmed   Outcome = "confirmed"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeOutOfStock  Outcome = "out_of_stock"
)

// ConfirmInput is the gateway callback payload.
type ConfirmInput struct {
	OrderID    uuid.UUID
	PaymentKey string
	Amount     *int64
}

// ConfirmResult carries the committed order state. An out_of_stock outcome
// means the order was moved to FAILED and committed.
type ConfirmResult struct {
	Outcome Outcome
	Order   *orders.OrderDetail
}

// Service confirms payments against stock.
type Service interface {
	ConfirmPayment(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
}

// Options holds optional collaborators.
type Options struct {
	Metrics *metrics.OrderMetrics
	Now     func() time.Time
}

type service struct {
	tx      txRunner
	orders  orders.Repository
	catalog catalog.Reader
	ledger  inventory.Ledger
	expirer orderExpirer
	outbox  outboxPublisher
	gateway Gateway
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	catalogReader catalog.Reader,
	ledger inventory.Ledger,
	expirer orderExpirer,
	publisher outboxPublisher,
	gateway Gateway,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogReader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:      tx,
		orders:  ordersRepo,
		catalog: catalogReader,
		ledger:  ledger,
		expirer: expirer,
		outbox:  publisher,
		gateway: gateway,
		logg:    logg,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// shortage describes the item that stopped a confirmation.
type shortage struct {
	code      string
	message   string
	variantID *uuid.UUID
	restored  int
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	key := strings.TrimSpace(input.PaymentKey)
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if key == "" || len(key) > maxPaymentKeyLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment key required").
			WithDetails(map[string]any{"field": "payment_key", "max_length": maxPaymentKeyLength})
	}
	if s.logg != nil {
		ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	}

	if result, err := s.preflight(ctx, input.OrderID, key); result != nil || err != nil {
		s.recordOutcome(result, err)
		return result, err
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	switch {
	case order.Status == enums.OrderStatusPaid:
		return s.result(ctx, OutcomeAlreadyPaid, order.ID)
	case order.Status != enums.OrderStatusPending:
		return nil, invalidState(order.Status)
	case order.IsExpired(s.now()):
		return nil, s.expire(ctx, order)
	}

	if input.Amount != nil {
		expected := order.ItemsSubtotalKrw + order.ShippingFeeKrw
		if *input.Amount != expected {
			s.metrics.IncConfirmation("amount_mismatch")
			return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "amount does not match order total").
				WithDetails(map[string]any{"expected": expected, "received": *input.Amount})
		}
	}

	var (
		outcome Outcome
		short   *shortage
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		current, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.Status == enums.OrderStatusPaid {
			outcome = OutcomeAlreadyPaid
			return nil
		}
		if current.Status != enums.OrderStatusPending {
			return invalidState(current.Status)
		}

		items, err := repo.FindItems(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}

		short, err = s.decrementAll(ctx, tx, items)
		if err != nil {
			return err
		}
		if short != nil {
			outcome = OutcomeOutOfStock
			return s.commitFailure(ctx, tx, repo, current, key, short)
		}
		outcome = OutcomeConfirmed
		return s.commitPaid(ctx, tx, repo, current, key)
	})
	if err != nil {
		s.recordOutcome(nil, err)
		return nil, err
	}

	if outcome == OutcomeOutOfStock {
		s.metrics.AddRestocked(short.restored)
		s.cancelAtGateway(ctx, key, short)
	}
	result, err := s.result(ctx, outcome, order.ID)
	s.recordOutcome(result, err)
	return result, err
}

// preflight resolves repeat deliveries of a key before any order work.
func (s *service) preflight(ctx context.Context, orderID uuid.UUID, key string) (*ConfirmResult, error) {
	payment, err := s.orders.FindPaymentByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment key")
	}
	if payment.OrderID != orderID {
		return nil, keyReused()
	}
	if payment.Status != enums.PaymentStatusConfirmed {
		return nil, nil
	}
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, invalidState(order.Status)
	}
	return s.result(ctx, OutcomeAlreadyPaid, orderID)
}

// decrementAll takes stock for every item in order. On the first shortage it
// gives back what this attempt already took and reports the shortage.
func (s *service) decrementAll(ctx context.Context, tx *gorm.DB, items []models.OrderItem) (*shortage, error) {
	type taken struct {
		variantID uuid.UUID
		qty       int
	}
	var done []taken

	release := func() (int, error) {
		restored := 0
		for _, t := range done {
			if _, err := s.ledger.Increment(ctx, tx, t.variantID, t.qty); err != nil {
				return restored, err
			}
			restored += t.qty
		}
		return restored, nil
	}

	for _, item := range items {
		variantID, err := s.resolveVariant(ctx, tx, item)
		if err != nil {
			return nil, err
		}
		if variantID == nil {
			restored, err := release()
			if err != nil {
				return nil, err
			}
			return &shortage{
				code:     enums.PaymentFailureVariantNotFound,
				message:  fmt.Sprintf("no variant for item %q", item.ProductName),
				restored: restored,
			}, nil
		}

		applied, err := s.ledger.TryDecrement(ctx, tx, *variantID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if !applied {
			restored, err := release()
			if err != nil {
				return nil, err
			}
			return &shortage{
				code:      enums.PaymentFailureOutOfStock,
				message:   fmt.Sprintf("insufficient stock for %q", item.ProductName),
				variantID: variantID,
				restored:  restored,
			}, nil
		}
		done = append(done, taken{variantID: *variantID, qty: item.Quantity})
	}
	return nil, nil
}

// resolveVariant returns the item's variant, or the product's first variant
// for items recorded before variants existed. Nil means nothing resolves.
func (s *service) resolveVariant(ctx context.Context, tx *gorm.DB, item models.OrderItem) (*uuid.UUID, error) {
	if item.VariantID != nil {
		return item.VariantID, nil
	}
	if item.ProductID == nil {
		return nil, nil
	}
	variant, err := s.catalog.WithTx(tx).FirstVariant(ctx, *item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve first variant")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_item_id": item.ID.String(),
			"product_id":    item.ProductID.String(),
			"variant_id":    variant.ID.String(),
		})
		s.logg.Warn(logCtx, "order item without variant; using first variant of product")
	}
	id := variant.ID
	return &id, nil
}

func (s *service) commitPaid(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, key string) error {
	now := s.now().UTC()
	ok, err := repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid, map[string]any{
		"paid_at":    now,
		"expires_at": nil,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently; reload and retry")
	}
	if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
		"status":      enums.PaymentStatusConfirmed,
		"payment_key": key,
		"approved_at": now,
	}); err != nil {
		return bindKeyError(err, "confirm payment")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.OrderPaidEvent{
			OrderID:     order.ID,
			PaymentKey:  key,
			TotalPayKrw: order.TotalPayKrw,
			PaidAt:      now,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
	}
	return nil
}

// commitFailure records FAILED as the committed outcome of this attempt.
func (s *service) commitFailure(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, key string, short *shortage) error {
	ok, err := repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusFailed, map[string]any{
		"expires_at": nil,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently; reload and retry")
	}
	code, message := short.code, short.message
	if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
		"status":          enums.PaymentStatusFailed,
		"payment_key":     key,
		"failure_code":    &code,
		"failure_message": &message,
	}); err != nil {
		return bindKeyError(err, "fail payment")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.PaymentFailedEvent{
			OrderID:       order.ID,
			PaymentKey:    key,
			FailureCode:   code,
			FailedVariant: short.variantID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment failed")
	}
	return nil
}

// expire cancels an overdue order found by this attempt and reports why the
// confirmation cannot proceed.
func (s *service) expire(ctx context.Context, order *models.Order) error {
	var applied bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		applied, err = s.expirer.ExpireTx(ctx, tx, order, orders.ExpirySourceConfirmation)
		return err
	})
	if err != nil {
		return err
	}
	if applied && s.logg != nil {
		s.logg.Info(ctx, "pending order expired on confirmation")
	}
	s.metrics.IncConfirmation("expired")
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order expired before payment").
		WithDetails(map[string]any{"reason": enums.PaymentFailureOrderExpired})
}

func (s *service) cancelAtGateway(ctx context.Context, key string, short *shortage) {
	if err := s.gateway.Cancel(ctx, key, short.code); err != nil {
		s.metrics.IncCancelFailure()
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "payment_key", key), "gateway cancel failed", err)
		}
	}
}

func (s *service) result(ctx context.Context, outcome Outcome, orderID uuid.UUID) (*ConfirmResult, error) {
	order, err := s.orders.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return &ConfirmResult{Outcome: outcome, Order: orders.NewOrderDetail(order)}, nil
}

func (s *service) recordOutcome(result *ConfirmResult, err error) {
	switch {
	case err != nil:
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncConfirmation(strings.ToLower(string(typed.Code())))
			return
		}
		s.metrics.IncConfirmation("error")
	case result != nil:
		s.metrics.IncConfirmation(string(result.Outcome))
		switch result.Outcome {
		case OutcomeConfirmed:
			s.metrics.IncTransition("payment", string(enums.OrderStatusPaid))
		case OutcomeOutOfStock:
			s.metrics.IncTransition("payment", string(enums.OrderStatusFailed))
		}
	}
}

func invalidState(status enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
		WithDetails(map[string]any{"status": status})
}

func keyReused() error {
	return pkgerrors.New(pkgerrors.CodePaymentKeyReused, "payment key already used for another order")
}

// bindKeyError maps a payment_key unique violation, raised when another order
// bound the key after preflight, to PAYMENT_KEY_REUSED.
func bindKeyError(err error, msg string) error {
	if db.IsUniqueViolation(err, "") {
		return keyReused()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
