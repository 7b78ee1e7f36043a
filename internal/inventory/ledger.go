package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

// Ledger owns the per-variant stock counters. TryDecrement and Increment are
// the only code paths that mutate product_variants.stock; both are single
// conditional statements so concurrent callers can never drive stock negative.
type Ledger interface {
	TryDecrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error)
	Stock(ctx context.Context, variantID uuid.UUID) (int, error)
}

type ledger struct {
	db *gorm.DB
}

// NewLedger exposes the SQL-backed ledger.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

// TryDecrement subtracts qty iff the variant holds at least qty units.
func (l *ledger) TryDecrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error) {
	if err := checkArgs(tx, qty); err != nil {
		return false, err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, variantID, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	return res.RowsAffected == 1, nil
}

// Increment adds qty back; it reports false when the variant no longer exists.
func (l *ledger) Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error) {
	if err := checkArgs(tx, qty); err != nil {
		return false, err
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, variantID)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	return res.RowsAffected == 1, nil
}

func (l *ledger) Stock(ctx context.Context, variantID uuid.UUID) (int, error) {
	var variant models.ProductVariant
	err := l.db.WithContext(ctx).Select("stock").First(&variant, "id = ?", variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	return variant.Stock, nil
}

func checkArgs(tx *gorm.DB, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock mutation")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	return nil
}
