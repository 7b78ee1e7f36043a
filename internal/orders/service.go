package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/inventory"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox/payloads"
	"github.com/seoulmarket/marketplace-backend/pkg/pagination"
	"github.com/seoulmarket/marketplace-backend/pkg/types"
)

const defaultOverrideReasonMinLength = 10

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AddressSnapshotter resolves a buyer-owned address into an order snapshot.
type AddressSnapshotter interface {
	Snapshot(ctx context.Context, buyerID, addressID uuid.UUID) (*types.ShippingSnapshot, error)
}

// Service is the transition authority gate plus order reads.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*OrderDetail, error)
	AdminOverride(ctx context.Context, input OverrideInput) (*OrderDetail, error)
	ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]AuditLogEntry, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error)
	ListBuyerOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListSellerOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateShippingAddress(ctx context.Context, input UpdateShippingInput) (*OrderDetail, error)
}

// Actor is the authenticated principal driving an operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// TransitionInput captures a status change through the normal path.
type TransitionInput struct {
	ActorID   uuid.UUID
	ActorRole enums.UserRole
	OrderID   uuid.UUID
	ToStatus  enums.OrderStatus
}

// OverrideInput captures an administrator any-to-any status change.
type OverrideInput struct {
	AdminID   uuid.UUID
	AdminRole enums.UserRole
	OrderID   uuid.UUID
	ToStatus  enums.OrderStatus
	Reason    string
}

// UpdateShippingInput points a pending order at a buyer address.
type UpdateShippingInput struct {
	BuyerID   uuid.UUID
	BuyerRole enums.UserRole
	OrderID   uuid.UUID
	AddressID uuid.UUID
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	OverrideReasonMinLength int
	Metrics                 *metrics.OrderMetrics
}

type service struct {
	repo      Repository
	tx        TxRunner
	outbox    outboxPublisher
	ledger    inventory.Ledger
	addresses AddressSnapshotter
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics
	minReason int
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx TxRunner, publisher outboxPublisher, ledger inventory.Ledger, addresses AddressSnapshotter, logg *logger.Logger, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address store required")
	}
	minReason := opts.OverrideReasonMinLength
	if minReason <= 0 {
		minReason = defaultOverrideReasonMinLength
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    publisher,
		ledger:    ledger,
		addresses: addresses,
		logg:      logg,
		metrics:   opts.Metrics,
		minReason: minReason,
	}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*OrderDetail, error) {
	if input.ActorID == uuid.Nil || !input.ActorRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.ToStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": input.ToStatus})
	}

	var (
		detail  *models.Order
		from    enums.OrderStatus
		applied bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if input.ActorRole.IsAdmin() {
			if order.Status != input.ToStatus {
				if err := AssertTransitionWithTable(order.Status, input.ToStatus); err != nil {
					return err
				}
			}
			return pkgerrors.New(pkgerrors.CodeForbidden, "administrators must use the override endpoint").
				WithDetails(map[string]any{"reason": ReasonAdminOverrideRequired})
		}
		side, err := checkOwnership(order, input.ActorID, input.ActorRole)
		if err != nil {
			return err
		}
		from = order.Status
		if order.Status != input.ToStatus {
			if err := AssertTransition(order.Status, input.ToStatus); err != nil {
				return err
			}
			if err := checkRole(side, input.ActorRole, order.Status, input.ToStatus); err != nil {
				return err
			}

			restocked, err := s.apply(ctx, tx, repo, order, input.ToStatus)
			if err != nil {
				return err
			}
			applied = true

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderStateChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         outbox.NewActorRef(input.ActorID, input.ActorRole),
				Data: payloads.OrderStateChangedEvent{
					OrderID:   order.ID,
					From:      from,
					To:        input.ToStatus,
					ActorID:   input.ActorID,
					ActorRole: input.ActorRole,
					Restocked: restocked > 0,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order state changed")
			}
		}

		detail, err = repo.FindOrderDetail(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.metrics.IncTransition("normal", string(input.ToStatus))
		s.logTransition(ctx, input.OrderID, from, input.ToStatus, "order transition applied")
	}
	return NewOrderDetail(detail), nil
}

func (s *service) AdminOverride(ctx context.Context, input OverrideInput) (*OrderDetail, error) {
	if input.AdminID == uuid.Nil || !input.AdminRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.AdminRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required").
			WithDetails(map[string]any{"reason": ReasonAdminOnly})
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.ToStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": input.ToStatus})
	}
	reason := strings.TrimSpace(input.Reason)
	if utf8.RuneCountInString(reason) < s.minReason {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reason must be at least %d characters", s.minReason)).
			WithDetails(map[string]any{"field": "reason", "min_length": s.minReason})
	}

	var (
		detail  *models.Order
		from    enums.OrderStatus
		applied bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		from = order.Status
		if order.Status != input.ToStatus {
			restocked, err := s.apply(ctx, tx, repo, order, input.ToStatus)
			if err != nil {
				return err
			}
			applied = true

			entry := &models.OrderAuditLog{
				OrderID:    order.ID,
				AdminID:    input.AdminID,
				FromStatus: from,
				ToStatus:   input.ToStatus,
				Reason:     reason,
			}
			if err := repo.CreateAuditLog(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderOverridden,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         outbox.NewActorRef(input.AdminID, input.AdminRole),
				Data: payloads.OrderOverriddenEvent{
					OrderID:   order.ID,
					AdminID:   input.AdminID,
					From:      from,
					To:        input.ToStatus,
					Reason:    reason,
					Restocked: restocked > 0,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order overridden")
			}
		}

		detail, err = repo.FindOrderDetail(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.metrics.IncTransition("override", string(input.ToStatus))
		s.logTransition(ctx, input.OrderID, from, input.ToStatus, "admin override applied")
	}
	return NewOrderDetail(detail), nil
}

// apply performs the conditional status update plus its side effects and
// returns the number of units restocked.
func (s *service) apply(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, to enums.OrderStatus) (int, error) {
	from := order.Status
	ok, err := repo.CompareAndSetStatus(ctx, order.ID, from, to, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently; reload and retry").
			WithDetails(map[string]any{"expected_status": from})
	}
	order.Status = to

	if from == enums.OrderStatusPending && to == enums.OrderStatusCancelled {
		failure := enums.PaymentFailureOrderCancelled
		if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
			"status":       enums.PaymentStatusFailed,
			"failure_code": &failure,
		}); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail cancelled payment")
		}
	}

	if !shouldRestock(from, to) {
		return 0, nil
	}
	items, err := repo.FindItems(ctx, order.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	restored, err := restoreStock(ctx, tx, s.ledger, s.logg, items)
	if err != nil {
		return 0, err
	}
	s.metrics.AddRestocked(restored)
	return restored, nil
}

func (s *service) ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]AuditLogEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if _, err := s.loadOrder(ctx, s.repo, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAuditLogs(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	entries := make([]AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, AuditLogEntry{
			ID:         row.ID,
			OrderID:    row.OrderID,
			AdminID:    row.AdminID,
			FromStatus: row.FromStatus,
			ToStatus:   row.ToStatus,
			Reason:     row.Reason,
			CreatedAt:  row.CreatedAt,
		})
	}
	return entries, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error) {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.Role.IsAdmin() {
		if _, err := checkOwnership(order, actor.ID, actor.Role); err != nil {
			return nil, err
		}
	}
	return NewOrderDetail(order), nil
}

func (s *service) ListBuyerOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListBuyerOrders(ctx, actor.ID, params, filters)
	if err != nil {
		return nil, wrapListError(err)
	}
	return list, nil
}

func (s *service) ListSellerOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.CanAccessSellerFeatures() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required").
			WithDetails(map[string]any{"reason": ReasonRoleNotPermitted})
	}
	list, err := s.repo.ListSellerOrders(ctx, actor.ID, params, filters)
	if err != nil {
		return nil, wrapListError(err)
	}
	return list, nil
}

func (s *service) UpdateShippingAddress(ctx context.Context, input UpdateShippingInput) (*OrderDetail, error) {
	if input.BuyerID == uuid.Nil || !input.BuyerRole.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil || input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and address id required")
	}

	order, err := s.loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor").
			WithDetails(map[string]any{"reason": ReasonNotOwner})
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipping address can only change before payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	snapshot, err := s.addresses.Snapshot(ctx, input.BuyerID, input.AddressID)
	if err != nil {
		return nil, err
	}
	var patch models.Order
	patch.ApplyShipping(snapshot)
	ok, err := s.repo.UpdatePendingShipping(ctx, order.ID, map[string]any{
		"ship_name":  patch.ShipName,
		"ship_phone": patch.ShipPhone,
		"ship_zip":   patch.ShipZip,
		"ship_addr1": patch.ShipAddr1,
		"ship_addr2": patch.ShipAddr2,
		"ship_memo":  patch.ShipMemo,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipping address")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
	}

	detail, err := s.repo.FindOrderDetail(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return NewOrderDetail(detail), nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) logTransition(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": to})
	s.logg.Info(logCtx, msg)
}

func wrapListError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, pagination.ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
}
