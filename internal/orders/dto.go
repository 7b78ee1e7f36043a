package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the order lists.
type ListFilters struct {
	Status   *enums.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderSummary exposes the aggregated fields returned in order lists.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNo       string              `json:"order_no"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	SellerID      uuid.UUID           `json:"seller_id"`
	Status        enums.OrderStatus   `json:"status"`
	StatusLabel   string              `json:"status_label"`
	TotalPayKrw   int64               `json:"total_pay_krw"`
	TotalItems    int                 `json:"total_items"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItemDetail is the read model of one order item.
type OrderItemDetail struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	VariantID    *uuid.UUID `json:"variant_id,omitempty"`
	ProductName  string     `json:"product_name"`
	Quantity     int        `json:"quantity"`
	UnitPriceKrw int64      `json:"unit_price_krw"`
	LineTotalKrw int64      `json:"line_total_krw"`
}

// PaymentDetail is the read model of the order payment.
type PaymentDetail struct {
	Status      enums.PaymentStatus `json:"status"`
	PaymentKey  *string             `json:"payment_key,omitempty"`
	AmountKrw   int64               `json:"amount_krw"`
	ApprovedAt  *time.Time          `json:"approved_at,omitempty"`
	FailureCode *string             `json:"failure_code,omitempty"`
}

// ShippingDetail is the address snapshot stored on the order.
type ShippingDetail struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Zip   *string `json:"zip,omitempty"`
	Addr1 *string `json:"addr1,omitempty"`
	Addr2 *string `json:"addr2,omitempty"`
	Memo  *string `json:"memo,omitempty"`
}

// OrderDetail is the full read model returned by GetOrder and mutations.
type OrderDetail struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNo            string              `json:"order_no"`
	BuyerID            uuid.UUID           `json:"buyer_id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	Status             enums.OrderStatus   `json:"status"`
	StatusLabel        string              `json:"status_label"`
	AllowedTransitions []enums.OrderStatus `json:"allowed_transitions"`
	ItemsSubtotalKrw   int64               `json:"items_subtotal_krw"`
	ShippingFeeKrw     int64               `json:"shipping_fee_krw"`
	TotalPayKrw        int64               `json:"total_pay_krw"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	Shipping           ShippingDetail      `json:"shipping"`
	Items              []OrderItemDetail   `json:"items"`
	Payment            *PaymentDetail      `json:"payment,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewOrderDetail maps a loaded order into its read model.
func NewOrderDetail(order *models.Order) *OrderDetail {
	if order == nil {
		return nil
	}
	detail := &OrderDetail{
		ID:                 order.ID,
		OrderNo:            order.OrderNo,
		BuyerID:            order.BuyerID,
		SellerID:           order.SellerID,
		Status:             order.Status,
		StatusLabel:        Label(order.Status),
		AllowedTransitions: AllowedTransitions(order.Status),
		ItemsSubtotalKrw:   order.ItemsSubtotalKrw,
		ShippingFeeKrw:     order.ShippingFeeKrw,
		TotalPayKrw:        order.TotalPayKrw,
		ExpiresAt:          order.ExpiresAt,
		PaidAt:             order.PaidAt,
		Shipping: ShippingDetail{
			Name:  order.ShipName,
			Phone: order.ShipPhone,
			Zip:   order.ShipZip,
			Addr1: order.ShipAddr1,
			Addr2: order.ShipAddr2,
			Memo:  order.ShipMemo,
		},
		Items:     make([]OrderItemDetail, 0, len(order.Items)),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemDetail{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPriceKrw: item.UnitPriceKrw,
			LineTotalKrw: item.LineTotalKrw(),
		})
	}
	if p := order.Payment; p != nil {
		detail.Payment = &PaymentDetail{
			Status:      p.Status,
			PaymentKey:  p.PaymentKey,
			AmountKrw:   p.AmountKrw,
			ApprovedAt:  p.ApprovedAt,
			FailureCode: p.FailureCode,
		}
	}
	return detail
}

// AuditLogEntry is the read model of one override audit row.
type AuditLogEntry struct {
	ID         uuid.UUID         `json:"id"`
	OrderID    uuid.UUID         `json:"order_id"`
	AdminID    uuid.UUID         `json:"admin_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Reason     string            `json:"reason"`
	CreatedAt  time.Time         `json:"created_at"`
}
