package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/cart"
	"github.com/seoulmarket/marketplace-backend/internal/catalog"
	"github.com/seoulmarket/marketplace-backend/internal/checkout/helpers"
	"github.com/seoulmarket/marketplace-backend/internal/orders"
	pkgcheckout "github.com/seoulmarket/marketplace-backend/pkg/checkout"
	"github.com/seoulmarket/marketplace-backend/pkg/config"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/metrics"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox/payloads"
	"github.com/seoulmarket/marketplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type addressSnapshotter interface {
	Snapshot(ctx context.Context, buyerID, addressID uuid.UUID) (*types.ShippingSnapshot, error)
}

// Service builds PENDING orders from cart or direct-purchase lines.
type Service interface {
	CreateOrders(ctx context.Context, input CreateOrdersInput) ([]models.Order, error)
	CreateOrdersFromCart(ctx context.Context, input CartCheckoutInput) ([]models.Order, error)
	CreateDirectOrder(ctx context.Context, input DirectOrderInput) (*models.Order, error)
}

// CreateOrdersInput is an explicit multi-line checkout.
type CreateOrdersInput struct {
	BuyerID   uuid.UUID
	BuyerRole enums.UserRole
	Lines     []helpers.Line
	AddressID *uuid.UUID
}

// CartCheckoutInput checks out the persistent cart. An empty CartItemIDs
// takes every item.
type CartCheckoutInput struct {
	BuyerID     uuid.UUID
	BuyerRole   enums.UserRole
	CartItemIDs []uuid.UUID
	AddressID   *uuid.UUID
}

// DirectOrderInput is a single-variant "buy now".
type DirectOrderInput struct {
	BuyerID   uuid.UUID
	BuyerRole enums.UserRole
	VariantID uuid.UUID
	Quantity  int
	AddressID *uuid.UUID
}

// Options carries the pricing defaults plus optional collaborators.
type Options struct {
	Config  config.CheckoutConfig
	Metrics *metrics.OrderMetrics
	Now     func() time.Time
}

type service struct {
	tx         txRunner
	ordersRepo orders.Repository
	catalog    catalog.Reader
	cartRepo   cart.Repository
	addresses  addressSnapshotter
	outbox     outboxPublisher
	logg       *logger.Logger
	cfg        config.CheckoutConfig
	metrics    *metrics.OrderMetrics
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	catalogReader catalog.Reader,
	cartRepo cart.Repository,
	addresses addressSnapshotter,
	publisher outboxPublisher,
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
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if opts.Config.PendingOrderTTL <= 0 {
		return nil, fmt.Errorf("pending order ttl must be positive")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:         tx,
		ordersRepo: ordersRepo,
		catalog:    catalogReader,
		cartRepo:   cartRepo,
		addresses:  addresses,
		outbox:     publisher,
		logg:       logg,
		cfg:        opts.Config,
		metrics:    opts.Metrics,
		now:        now,
	}, nil
}

func (s *service) CreateOrders(ctx context.Context, input CreateOrdersInput) ([]models.Order, error) {
	if err := helpers.ValidateBuyer(input.BuyerID, input.BuyerRole); err != nil {
		return nil, err
	}
	return s.build(ctx, input.BuyerID, input.Lines, input.AddressID, nil)
}

func (s *service) CreateOrdersFromCart(ctx context.Context, input CartCheckoutInput) ([]models.Order, error) {
	if err := helpers.ValidateBuyer(input.BuyerID, input.BuyerRole); err != nil {
		return nil, err
	}

	items, err := s.cartRepo.ListByBuyer(ctx, input.BuyerID, input.CartItemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if len(input.CartItemIDs) > 0 && len(items) != len(uniqueIDs(input.CartItemIDs)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	lines := make([]helpers.Line, 0, len(items))
	consumed := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		lines = append(lines, helpers.Line{VariantID: item.VariantID, Quantity: item.Quantity})
		consumed = append(consumed, item.ID)
	}

	return s.build(ctx, input.BuyerID, lines, input.AddressID, func(ctx context.Context, tx *gorm.DB) error {
		deleted, err := s.cartRepo.WithTx(tx).DeleteItems(ctx, input.BuyerID, consumed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		if deleted != int64(len(consumed)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout").
				WithDetails(map[string]any{"expected": len(consumed), "deleted": deleted})
		}
		return nil
	})
}

func (s *service) CreateDirectOrder(ctx context.Context, input DirectOrderInput) (*models.Order, error) {
	if err := helpers.ValidateBuyer(input.BuyerID, input.BuyerRole); err != nil {
		return nil, err
	}
	created, err := s.build(ctx, input.BuyerID, []helpers.Line{{VariantID: input.VariantID, Quantity: input.Quantity}}, input.AddressID, nil)
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// build validates lines, splits them by seller and persists every order in
// one transaction. afterCreate runs inside that transaction.
func (s *service) build(
	ctx context.Context,
	buyerID uuid.UUID,
	lines []helpers.Line,
	addressID *uuid.UUID,
	afterCreate func(ctx context.Context, tx *gorm.DB) error,
) ([]models.Order, error) {
	if err := helpers.ValidateLines(lines, s.cfg.MaxLinesPerCheckout, s.cfg.MaxQuantityPerLine); err != nil {
		return nil, err
	}
	merged := helpers.MergeLines(lines)
	if err := helpers.ValidateLines(merged, s.cfg.MaxLinesPerCheckout, s.cfg.MaxQuantityPerLine); err != nil {
		return nil, err
	}

	var snapshot *types.ShippingSnapshot
	if addressID != nil {
		snap, err := s.addresses.Snapshot(ctx, buyerID, *addressID)
		if err != nil {
			return nil, err
		}
		snapshot = snap
	}

	priced, err := s.price(ctx, buyerID, merged)
	if err != nil {
		return nil, err
	}
	groups := helpers.GroupBySeller(priced)

	policies, err := s.catalog.ShippingPolicies(ctx, helpers.SellerIDs(groups))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping policies")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.PendingOrderTTL)
	pending := make([]*models.Order, 0, len(groups))
	for _, group := range groups {
		order, err := s.newOrder(buyerID, group, s.policyFor(policies, group.SellerID), now, expiresAt)
		if err != nil {
			return nil, err
		}
		order.ApplyShipping(snapshot)
		pending = append(pending, order)
	}
	created := make([]models.Order, 0, len(pending))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		for _, order := range pending {
			if err := repo.CreateOrder(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			if err := s.emitCreated(ctx, tx, order); err != nil {
				return err
			}
			created = append(created, *order)
		}
		if afterCreate != nil {
			return afterCreate(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddCreated(len(created))
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, buyerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"orders": len(created), "lines": len(merged)})
		s.logg.Info(logCtx, "checkout created pending orders")
	}
	return created, nil
}

// price resolves merged lines against the catalog and runs the pre-checks.
// Nothing is reserved here.
func (s *service) price(ctx context.Context, buyerID uuid.UUID, lines []helpers.Line) ([]helpers.PricedLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.VariantID)
	}
	records, err := s.catalog.LoadVariants(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}

	priced := make([]helpers.PricedLine, 0, len(lines))
	var unavailable []pkgcheckout.UnavailableDetail
	stock := make([]pkgcheckout.StockValidationInput, 0, len(lines))
	for _, line := range lines {
		record, ok := records[line.VariantID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]any{"variant_id": line.VariantID})
		}
		if record.Product.SellerID == buyerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot buy their own products").
				WithDetails(map[string]any{"product_id": record.Product.ID})
		}
		if !record.Available() {
			unavailable = append(unavailable, pkgcheckout.UnavailableDetail{
				VariantID:   record.Variant.ID,
				ProductID:   record.Product.ID,
				ProductName: record.Product.Name,
			})
			continue
		}
		stock = append(stock, pkgcheckout.StockValidationInput{
			VariantID:   record.Variant.ID,
			ProductName: record.Product.Name,
			Stock:       record.Variant.Stock,
			Quantity:    line.Quantity,
		})
		priced = append(priced, helpers.PricedLine{Record: record, Quantity: line.Quantity})
	}
	if err := pkgcheckout.ProductUnavailable(unavailable); err != nil {
		return nil, err
	}
	if err := pkgcheckout.ValidateStock(stock); err != nil {
		return nil, err
	}
	return priced, nil
}

func (s *service) policyFor(policies map[uuid.UUID]models.SellerShippingPolicy, sellerID uuid.UUID) pkgcheckout.ShippingPolicy {
	if p, ok := policies[sellerID]; ok {
		return pkgcheckout.ShippingPolicy{FeeKrw: p.ShippingFeeKrw, ThresholdKrw: p.FreeShippingThresholdKrw}
	}
	return pkgcheckout.ShippingPolicy{FeeKrw: s.cfg.DefaultShippingFeeKrw, ThresholdKrw: s.cfg.DefaultFreeShippingThreshold}
}

func (s *service) newOrder(buyerID uuid.UUID, group helpers.SellerGroup, policy pkgcheckout.ShippingPolicy, now, expiresAt time.Time) (*models.Order, error) {
	subtotal, ok := group.SubtotalKrw()
	fee := policy.Fee(subtotal)
	var total int64
	if ok {
		total, ok = helpers.AddKrw(subtotal, fee)
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount out of range").
			WithDetails(map[string]any{"seller_id": group.SellerID})
	}
	expires := expiresAt
	order := &models.Order{
		OrderNo:          pkgcheckout.NewOrderNo(now),
		BuyerID:          buyerID,
		SellerID:         group.SellerID,
		Status:           enums.OrderStatusPending,
		ItemsSubtotalKrw: subtotal,
		ShippingFeeKrw:   fee,
		TotalPayKrw:      total,
		ExpiresAt:        &expires,
		Items:            make([]models.OrderItem, 0, len(group.Lines)),
		Payment: &models.Payment{
			Status:    enums.PaymentStatusReady,
			AmountKrw: total,
		},
	}
	for _, line := range group.Lines {
		productID, variantID := line.Record.Product.ID, line.Record.Variant.ID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    &productID,
			VariantID:    &variantID,
			ProductName:  line.Record.Product.Name,
			Quantity:     line.Quantity,
			UnitPriceKrw: line.UnitPriceKrw(),
		})
	}
	return order, nil
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         outbox.NewActorRef(order.BuyerID, ""),
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNo:     order.OrderNo,
			BuyerID:     order.BuyerID,
			SellerID:    order.SellerID,
			TotalPayKrw: order.TotalPayKrw,
			ItemCount:   itemCount,
			ExpiresAt:   *order.ExpiresAt,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
