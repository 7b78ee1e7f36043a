package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/repo"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
)

// CartItemRepository manages persistent cart items.
type CartItemRepository struct {
	repo.Base
}

func NewCartItemRepository(db *gorm.DB) *CartItemRepository {
	return &CartItemRepository{Base: repo.NewBase(db)}
}

func (r *CartItemRepository) WithTx(tx *gorm.DB) Repository {
	return &CartItemRepository{Base: r.Base.WithTx(tx)}
}

// ListByBuyer returns the buyer's cart items in insertion order. A non-empty
// itemIDs narrows the result to those items; ids owned by someone else are
// silently dropped.
func (r *CartItemRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) ([]models.CartItem, error) {
	q := r.DB(ctx).Where("buyer_id = ?", buyerID)
	if len(itemIDs) > 0 {
		q = q.Where("id IN ?", itemIDs)
	}
	var items []models.CartItem
	if err := q.Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CartItemRepository) DeleteItems(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Where("buyer_id = ? AND id IN ?", buyerID, itemIDs).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
