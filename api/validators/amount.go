package validators

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

// ParseKrwAmount converts a JSON number or numeric string into whole won.
// Fractional or negative amounts are rejected; KRW has no minor unit.
func ParseKrwAmount(field string, raw json.RawMessage) (*int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	trimmed = strings.Trim(trimmed, `"`)

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be numeric").WithDetails(map[string]any{"field": field})
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").WithDetails(map[string]any{"field": field})
	}
	if !amount.Equal(amount.Truncate(0)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be whole won").WithDetails(map[string]any{"field": field})
	}
	if amount.GreaterThan(decimal.NewFromInt(maxKrwAmount)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount out of range").WithDetails(map[string]any{"field": field})
	}
	value := amount.IntPart()
	return &value, nil
}

const maxKrwAmount = 1 << 53
