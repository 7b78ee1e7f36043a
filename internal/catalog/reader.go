package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/internal/repo"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
)

// VariantRecord pairs a variant with its product, including soft-deleted
// products so callers can tell "unavailable" apart from "unknown".
type VariantRecord struct {
	Variant models.ProductVariant
	Product models.Product
}

// Available reports whether the product can be purchased.
func (r VariantRecord) Available() bool {
	return r.Product.IsActive && !r.Product.DeletedAt.Valid
}

// UnitPriceKrw is the product price plus the variant surcharge.
func (r VariantRecord) UnitPriceKrw() int64 {
	return r.Product.PriceKrw + r.Variant.AdditionalPriceKrw
}

// Reader is the read-only catalog view used by checkout and payments.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	LoadVariants(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]VariantRecord, error)
	FirstVariant(ctx context.Context, productID uuid.UUID) (*models.ProductVariant, error)
	ShippingPolicies(ctx context.Context, sellerIDs []uuid.UUID) (map[uuid.UUID]models.SellerShippingPolicy, error)
}

type reader struct {
	repo.Base
}

func NewReader(db *gorm.DB) Reader {
	return &reader{Base: repo.NewBase(db)}
}

func (r *reader) WithTx(tx *gorm.DB) Reader {
	return &reader{Base: r.Base.WithTx(tx)}
}

// LoadVariants returns the requested variants keyed by id. Unknown ids are
// absent from the map.
func (r *reader) LoadVariants(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]VariantRecord, error) {
	out := make(map[uuid.UUID]VariantRecord, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}

	var variants []models.ProductVariant
	if err := r.DB(ctx).Where("id IN ?", variantIDs).Find(&variants).Error; err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return out, nil
	}

	productIDs := make([]uuid.UUID, 0, len(variants))
	seen := make(map[uuid.UUID]struct{}, len(variants))
	for _, v := range variants {
		if _, ok := seen[v.ProductID]; ok {
			continue
		}
		seen[v.ProductID] = struct{}{}
		productIDs = append(productIDs, v.ProductID)
	}

	var products []models.Product
	if err := r.DB(ctx).Unscoped().Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, v := range variants {
		product, ok := byID[v.ProductID]
		if !ok {
			continue
		}
		out[v.ID] = VariantRecord{Variant: v, Product: product}
	}
	return out, nil
}

// FirstVariant returns the oldest variant of productID. Legacy order items
// that predate variants resolve to it.
func (r *reader) FirstVariant(ctx context.Context, productID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Order("id ASC").
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *reader) ShippingPolicies(ctx context.Context, sellerIDs []uuid.UUID) (map[uuid.UUID]models.SellerShippingPolicy, error) {
	out := make(map[uuid.UUID]models.SellerShippingPolicy, len(sellerIDs))
	if len(sellerIDs) == 0 {
		return out, nil
	}
	var rows []models.SellerShippingPolicy
	if err := r.DB(ctx).Where("seller_id IN ?", sellerIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SellerID] = row
	}
	return out, nil
}
