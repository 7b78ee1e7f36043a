package helpers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

// ValidateBuyer ensures the principal is authenticated and allowed to buy.
func ValidateBuyer(buyerID uuid.UUID, role enums.UserRole) error {
	if buyerID == uuid.Nil || !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if role.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "administrators cannot place orders")
	}
	return nil
}

// ValidateLines checks shape only: non-empty, bounded, positive quantities.
// Zero limits disable the corresponding bound.
func ValidateLines(lines []Line, maxLines, maxQuantity int) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	if maxLines > 0 && len(lines) > maxLines {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d lines per checkout", maxLines))
	}
	for i, line := range lines {
		if line.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant id required").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"line": i, "quantity": line.Quantity})
		}
		if maxQuantity > 0 && line.Quantity > maxQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d units per line", maxQuantity)).
				WithDetails(map[string]any{"line": i, "quantity": line.Quantity, "variant_id": line.VariantID})
		}
	}
	return nil
}
