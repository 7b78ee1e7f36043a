package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/repo"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
)

// Repository reads buyer addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, addressID uuid.UUID) (*models.Address, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) FindByID(ctx context.Context, addressID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.DB(ctx).Where("id = ?", addressID).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}
