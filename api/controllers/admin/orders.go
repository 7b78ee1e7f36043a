package admin

import (
	"net/http"
	"strings"

	"github.com/seoulmarket/marketplace-backend/api/middleware"
	"github.com/seoulmarket/marketplace-backend/api/responses"
	"github.com/seoulmarket/marketplace-backend/api/validators"
	internalorders "github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
)

const maxReasonLength = 1000

type overrideRequest struct {
	ToStatus string `json:"to_status" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

type transitionRow struct {
	From     enums.OrderStatus   `json:"from"`
	Label    string              `json:"label"`
	Allowed  []enums.OrderStatus `json:"allowed"`
	Terminal bool                `json:"terminal"`
}

// OrderOverride applies an audited any-to-any status change.
func OrderOverride(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		adminID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req overrideRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		detail, err := svc.AdminOverride(ctx, internalorders.OverrideInput{
			AdminID:   adminID,
			AdminRole: role,
			OrderID:   orderID,
			ToStatus:  enums.OrderStatus(strings.ToUpper(strings.TrimSpace(req.ToStatus))),
			Reason:    validators.SanitizeText(req.Reason, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// OrderAuditLogs lists the override history of one order, oldest first.
func OrderAuditLogs(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListAuditLogs(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"audit_logs": entries})
	}
}

// OrderTransitions exposes the state machine for admin tooling.
func OrderTransitions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := internalorders.Table()
		rows := make([]transitionRow, 0, len(table))
		for _, status := range enums.OrderStatuses() {
			rows = append(rows, transitionRow{
				From:     status,
				Label:    internalorders.Label(status),
				Allowed:  table[status],
				Terminal: internalorders.IsTerminal(status),
			})
		}
		responses.WriteSuccess(w, map[string]any{"transitions": rows})
	}
}
