package address

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/types"
)

// Service turns stored addresses into order shipping snapshots.
type Service interface {
	Snapshot(ctx context.Context, buyerID, addressID uuid.UUID) (*types.ShippingSnapshot, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

// Snapshot loads addressID and verifies buyerID owns it.
func (s *service) Snapshot(ctx context.Context, buyerID, addressID uuid.UUID) (*types.ShippingSnapshot, error) {
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	addr, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr.UserID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another user").
			WithDetails(map[string]any{"reason": "NOT_OWNER"})
	}
	return toSnapshot(addr), nil
}

func toSnapshot(addr *models.Address) *types.ShippingSnapshot {
	return &types.ShippingSnapshot{
		Name:  addr.Name,
		Phone: addr.Phone,
		Zip:   addr.Zip,
		Addr1: addr.Addr1,
		Addr2: addr.Addr2,
		Memo:  addr.Memo,
	}
}
