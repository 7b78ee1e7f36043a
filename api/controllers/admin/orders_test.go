package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/seoulmarket/marketplace-backend/api/middleware"
	internalorders "github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
)

type stubOrders struct {
	internalorders.Service
	override internalorders.OverrideInput
	logs     []internalorders.AuditLogEntry
}

func (s *stubOrders) AdminOverride(_ context.Context, input internalorders.OverrideInput) (*internalorders.OrderDetail, error) {
	s.override = input
	return &internalorders.OrderDetail{ID: input.OrderID, Status: input.ToStatus}, nil
}

func (s *stubOrders) ListAuditLogs(context.Context, uuid.UUID) ([]internalorders.AuditLogEntry, error) {
	return s.logs, nil
}

func adminRouter(adminID uuid.UUID, svc internalorders.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUserID(req.Context(), adminID.String())
			ctx = middleware.WithRole(ctx, string(enums.UserRoleAdmin))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/orders/{orderId}/override", OrderOverride(svc, nil))
	r.Get("/orders/{orderId}/audit-logs", OrderAuditLogs(svc, nil))
	r.Get("/orders/transitions", OrderTransitions())
	return r
}

func TestOrderOverridePassesReasonAndStatus(t *testing.T) {
	adminID, orderID := uuid.New(), uuid.New()
	svc := &stubOrders{}
	h := adminRouter(adminID, svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/override",
		strings.NewReader(`{"to_status":"refunded","reason":"  customer dispute upheld  "}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, adminID, svc.override.AdminID)
	require.Equal(t, enums.UserRoleAdmin, svc.override.AdminRole)
	require.Equal(t, enums.OrderStatusRefunded, svc.override.ToStatus)
	require.Equal(t, "customer dispute upheld", svc.override.Reason)
}

func TestOrderOverrideRequiresReasonField(t *testing.T) {
	h := adminRouter(uuid.New(), &stubOrders{})
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/override", strings.NewReader(`{"to_status":"PAID"}`))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderAuditLogs(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrders{logs: []internalorders.AuditLogEntry{{OrderID: orderID, FromStatus: enums.OrderStatusPaid, ToStatus: enums.OrderStatusRefunded, Reason: "damaged in transit"}}}
	h := adminRouter(uuid.New(), svc)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String()+"/audit-logs", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "damaged in transit")
}

func TestOrderTransitionsListsEveryStatus(t *testing.T) {
	h := adminRouter(uuid.New(), &stubOrders{})
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/transitions", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			Transitions []transitionRow `json:"transitions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data.Transitions, len(enums.OrderStatuses()))
	for _, row := range body.Data.Transitions {
		require.Equal(t, len(row.Allowed) == 0, row.Terminal, row.From)
	}
}
