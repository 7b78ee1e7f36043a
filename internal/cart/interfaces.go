package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
)

// Repository is the persistent cart surface checkout consumes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) ([]models.CartItem, error)
	DeleteItems(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
}
