package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/api/validators"
	"github.com/seoulmarket/marketplace-backend/internal/checkout/helpers"
	internalorders "github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/pagination"
)

type lineRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,max=9999"`
}

type createOrdersRequest struct {
	Lines     []lineRequest `json:"lines" validate:"required,min=1,dive"`
	AddressID *string       `json:"address_id,omitempty"`
}

func (req createOrdersRequest) toLines() ([]helpers.Line, error) {
	lines := make([]helpers.Line, 0, len(req.Lines))
	for i, line := range req.Lines {
		id, err := uuid.Parse(line.VariantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id").
				WithDetails(map[string]any{"field": "lines", "index": i})
		}
		lines = append(lines, helpers.Line{VariantID: id, Quantity: line.Quantity})
	}
	return lines, nil
}

type cartCheckoutRequest struct {
	CartItemIDs []string `json:"cart_item_ids,omitempty" validate:"omitempty,dive,uuid"`
	AddressID   *string  `json:"address_id,omitempty"`
}

type directOrderRequest struct {
	VariantID string  `json:"variant_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"required,gt=0,max=9999"`
	AddressID *string `json:"address_id,omitempty"`
}

type shippingAddressRequest struct {
	AddressID string `json:"address_id" validate:"required,uuid"`
}

type transitionRequest struct {
	ToStatus string `json:"to_status" validate:"required"`
}

type createdOrdersResponse struct {
	Orders []*internalorders.OrderDetail `json:"orders"`
}

func parseListParams(r *http.Request) (pagination.Params, internalorders.ListFilters, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, internalorders.ListFilters{}, err
	}
	params := pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	var filters internalorders.ListFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(strings.ToUpper(raw))
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
				WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	if filters.DateFrom, filters.DateTo, err = validators.ParseQueryDateRange(r, "date_from", "date_to"); err != nil {
		return params, filters, err
	}
	return params, filters, nil
}
