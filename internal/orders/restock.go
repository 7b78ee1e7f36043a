package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/inventory"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
)

// restockSources are the statuses in which confirmation had already taken
// stock, so moving to REFUNDED from them must give it back.
var restockSources = map[enums.OrderStatus]struct{}{
	enums.OrderStatusPaid:            {},
	enums.OrderStatusShipped:         {},
	enums.OrderStatusCompleted:       {},
	enums.OrderStatusRefundRequested: {},
}

func shouldRestock(from, to enums.OrderStatus) bool {
	if to != enums.OrderStatusRefunded {
		return false
	}
	_, ok := restockSources[from]
	return ok
}

// restoreStock increments every item's variant by its quantity. Items with no
// variant link, or whose variant is gone, are skipped with a warning.
func restoreStock(ctx context.Context, tx *gorm.DB, ledger inventory.Ledger, logg *logger.Logger, items []models.OrderItem) (int, error) {
	restored := 0
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.VariantID == nil {
			warnSkippedRestock(ctx, logg, item, "order item has no variant")
			continue
		}
		applied, err := ledger.Increment(ctx, tx, *item.VariantID, item.Quantity)
		if err != nil {
			return restored, err
		}
		if !applied {
			warnSkippedRestock(ctx, logg, item, "variant no longer exists")
			continue
		}
		restored += item.Quantity
	}
	return restored, nil
}

func warnSkippedRestock(ctx context.Context, logg *logger.Logger, item models.OrderItem, msg string) {
	if logg == nil {
		return
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"order_id":      item.OrderID.String(),
		"order_item_id": item.ID.String(),
		"quantity":      item.Quantity,
	})
	logg.Warn(logCtx, "restock skipped: "+msg)
}
