package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

// StockValidationInput describes one merged checkout line against the stock
// visible when the order is built.
type StockValidationInput struct {
	VariantID   uuid.UUID
	ProductName string
	Stock       int
	Quantity    int
}

// StockViolationDetail is returned to callers when a line exceeds stock.
type StockViolationDetail struct {
	VariantID    uuid.UUID `json:"variant_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Available    int       `json:"available"`
	RequestedQty int       `json:"requested_qty"`
}

// ValidateStock rejects the checkout when any line asks for more units than
// the variant currently holds. Nothing is reserved; payment confirmation
// re-checks atomically.
func ValidateStock(items []StockValidationInput) error {
	var violations []StockViolationDetail
	for _, item := range items {
		if item.Quantity <= item.Stock {
			continue
		}
		violations = append(violations, StockViolationDetail{
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			Available:    item.Stock,
			RequestedQty: item.Quantity,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("insufficient stock for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// UnavailableDetail names a product that is inactive or deleted.
type UnavailableDetail struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
}

// ProductUnavailable builds the error for lines whose product cannot be sold.
func ProductUnavailable(items []UnavailableDetail) error {
	if len(items) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, fmt.Sprintf("%d product(s) are no longer available", len(items))).WithDetails(map[string]any{
		"products": items,
	})
}
