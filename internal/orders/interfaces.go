package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	"github.com/seoulmarket/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for order, payment and audit
// tables. Status changes only go through CompareAndSetStatus.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindPaymentByKey(ctx context.Context, paymentKey string) (*models.Payment, error)
	CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdatePendingShipping(ctx context.Context, orderID uuid.UUID, updates map[string]any) (bool, error)
	CreateAuditLog(ctx context.Context, entry *models.OrderAuditLog) error
	ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderAuditLog, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
