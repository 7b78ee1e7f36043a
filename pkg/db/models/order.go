package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	"github.com/seoulmarket/marketplace-backend/pkg/types"
)

// Order is the per-seller order produced from one checkout attempt. The
// monetary columns are a snapshot taken at creation and never recomputed.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNo          string            `gorm:"column:order_no;not null;uniqueIndex"`
	BuyerID          uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID         uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	ItemsSubtotalKrw int64             `gorm:"column:items_subtotal_krw;not null"`
	ShippingFeeKrw   int64             `gorm:"column:shipping_fee_krw;not null"`
	TotalPayKrw      int64             `gorm:"column:total_pay_krw;not null"`
	ExpiresAt        *time.Time        `gorm:"column:expires_at"`
	PaidAt           *time.Time        `gorm:"column:paid_at"`
	ShipName         *string           `gorm:"column:ship_name"`
	ShipPhone        *string           `gorm:"column:ship_phone"`
	ShipZip          *string           `gorm:"column:ship_zip"`
	ShipAddr1        *string           `gorm:"column:ship_addr1"`
	ShipAddr2        *string           `gorm:"column:ship_addr2"`
	ShipMemo         *string           `gorm:"column:ship_memo"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID"`
	Payment          *Payment          `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ApplyShipping copies an address snapshot onto the order.
func (o *Order) ApplyShipping(s *types.ShippingSnapshot) {
	if s == nil {
		return
	}
	name, phone, zip, addr1 := s.Name, s.Phone, s.Zip, s.Addr1
	o.ShipName = &name
	o.ShipPhone = &phone
	o.ShipZip = &zip
	o.ShipAddr1 = &addr1
	o.ShipAddr2 = s.Addr2
	o.ShipMemo = s.Memo
}

// IsExpired reports whether a pending order has passed its deadline.
func (o *Order) IsExpired(now time.Time) bool {
	return o.Status == enums.OrderStatusPending && o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// OrderItem is a purchased variant with its unit price frozen at creation.
// Product and variant references may dangle after catalog deletes.
type OrderItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    *uuid.UUID `gorm:"column:product_id;type:uuid"`
	VariantID    *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	ProductName  string     `gorm:"column:product_name;not null"`
	Quantity     int        `gorm:"column:quantity;not null"`
	UnitPriceKrw int64      `gorm:"column:unit_price_krw;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotalKrw returns unit price times quantity.
func (i OrderItem) LineTotalKrw() int64 {
	return i.UnitPriceKrw * int64(i.Quantity)
}

// Payment is one-to-one with Order. PaymentKey is globally unique once set.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'READY'"`
	PaymentKey     *string             `gorm:"column:payment_key;uniqueIndex"`
	AmountKrw      int64               `gorm:"column:amount_krw;not null"`
	ApprovedAt     *time.Time          `gorm:"column:approved_at"`
	FailureCode    *string             `gorm:"column:failure_code"`
	FailureMessage *string             `gorm:"column:failure_message"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OrderAuditLog is an append-only record of an administrator override.
type OrderAuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	AdminID    uuid.UUID         `gorm:"column:admin_id;type:uuid;not null"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	Reason     string            `gorm:"column:reason;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *OrderAuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
