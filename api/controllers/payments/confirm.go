package payments

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/api/middleware"
	"github.com/seoulmarket/marketplace-backend/api/responses"
	"github.com/seoulmarket/marketplace-backend/api/validators"
	internalorders "github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/internal/payments"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
)

type confirmRequest struct {
	OrderID    string          `json:"order_id" validate:"required,uuid"`
	PaymentKey string          `json:"payment_key" validate:"required,max=200"`
	Amount     json.RawMessage `json:"amount,omitempty"`
}

type confirmResponse struct {
	Outcome payments.Outcome            `json:"outcome"`
	Order   *internalorders.OrderDetail `json:"order"`
}

// Confirm handles the simulated gateway callback. confirmed and already_paid
// answer 200; a stock shortage answers 409 after the order was failed.
func Confirm(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		if _, _, err := middleware.RequirePrincipal(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		amount, err := validators.ParseKrwAmount("amount", req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		result, err := svc.ConfirmPayment(ctx, payments.ConfirmInput{
			OrderID:    orderID,
			PaymentKey: strings.TrimSpace(req.PaymentKey),
			Amount:     amount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.Outcome == payments.OutcomeOutOfStock {
			details := map[string]any{"order_id": orderID.String()}
			if result.Order != nil {
				details["status"] = result.Order.Status
				if p := result.Order.Payment; p != nil && p.FailureCode != nil {
					details["failure_code"] = *p.FailureCode
				}
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeOutOfStock, "order failed: insufficient stock").WithDetails(details))
			return
		}
		responses.WriteSuccess(w, confirmResponse{Outcome: result.Outcome, Order: result.Order})
	}
}
