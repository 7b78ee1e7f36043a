package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per seller order produced by a checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNo     string    `json:"order_no"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	TotalPayKrw int64     `json:"total_pay_krw"`
	ItemCount   int       `json:"item_count"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// OrderStateChangedEvent records a status change through the normal path.
type OrderStateChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ActorID   uuid.UUID         `json:"actor_id"`
	ActorRole enums.UserRole    `json:"actor_role"`
	Restocked bool              `json:"restocked,omitempty"`
}

// OrderPaidEvent is emitted when a confirmation commits PAID.
type OrderPaidEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	PaymentKey  string    `json:"payment_key"`
	TotalPayKrw int64     `json:"total_pay_krw"`
	PaidAt      time.Time `json:"paid_at"`
}

// PaymentFailedEvent is emitted when a confirmation commits FAILED.
type PaymentFailedEvent struct {
	OrderID       uuid.UUID  `json:"order_id"`
	PaymentKey    string     `json:"payment_key"`
	FailureCode   string     `json:"failure_code"`
	FailedVariant *uuid.UUID `json:"failed_variant_id,omitempty"`
}

// OrderExpiredEvent is emitted when a pending order is cancelled for expiry.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Source    string    `json:"source"`
}

// OrderOverriddenEvent mirrors an administrator override audit row.
type OrderOverriddenEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	AdminID   uuid.UUID         `json:"admin_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	Reason    string            `json:"reason"`
	Restocked bool              `json:"restocked,omitempty"`
}
