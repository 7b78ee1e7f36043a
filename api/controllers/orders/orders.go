package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/seoulmarket/marketplace-backend/api/middleware"
	"github.com/seoulmarket/marketplace-backend/api/responses"
	"github.com/seoulmarket/marketplace-backend/api/validators"
	"github.com/seoulmarket/marketplace-backend/internal/checkout"
	internalorders "github.com/seoulmarket/marketplace-backend/internal/orders"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
	"github.com/seoulmarket/marketplace-backend/pkg/logger"
	"github.com/seoulmarket/marketplace-backend/pkg/pagination"
)

// Create splits an explicit line list into one pending order per seller.
func Create(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrdersRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := req.toLines()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := validators.ParseOptionalUUID("address_id", req.AddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateOrders(r.Context(), checkout.CreateOrdersInput{
			BuyerID:   buyerID,
			BuyerRole: role,
			Lines:     lines,
			AddressID: addressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, createdOrders(created))
	}
}

// CreateFromCart checks out the buyer's persistent cart.
func CreateFromCart(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cartCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemIDs, err := validators.ParseUUIDs("cart_item_ids", req.CartItemIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := validators.ParseOptionalUUID("address_id", req.AddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateOrdersFromCart(r.Context(), checkout.CartCheckoutInput{
			BuyerID:     buyerID,
			BuyerRole:   role,
			CartItemIDs: itemIDs,
			AddressID:   addressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, createdOrders(created))
	}
}

// CreateDirect is the single-variant "buy now" path.
func CreateDirect(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req directOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantIDs, err := validators.ParseUUIDs("variant_id", []string{req.VariantID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := validators.ParseOptionalUUID("address_id", req.AddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateDirectOrder(r.Context(), checkout.DirectOrderInput{
			BuyerID:   buyerID,
			BuyerRole: role,
			VariantID: variantIDs[0],
			Quantity:  req.Quantity,
			AddressID: addressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, internalorders.NewOrderDetail(order))
	}
}

// List returns the caller's purchases.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		listOrders(w, r, logg, svc.ListBuyerOrders)
	}
}

// SellerList returns the orders placed against the calling seller.
func SellerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		listOrders(w, r, logg, svc.ListSellerOrders)
	}
}

type listFunc func(context.Context, internalorders.Actor, pagination.Params, internalorders.ListFilters) (*internalorders.OrderList, error)

func listOrders(w http.ResponseWriter, r *http.Request, logg *logger.Logger, list listFunc) {
	userID, role, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	params, filters, err := parseListParams(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page, err := list(r.Context(), internalorders.Actor{ID: userID, Role: role}, params, filters)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, page)
}

// Detail returns one order to its buyer, its seller, or an administrator.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetOrder(r.Context(), internalorders.Actor{ID: userID, Role: role}, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// UpdateShippingAddress freezes one of the buyer's addresses onto a pending order.
func UpdateShippingAddress(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		buyerID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shippingAddressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressIDs, err := validators.ParseUUIDs("address_id", []string{req.AddressID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.UpdateShippingAddress(r.Context(), internalorders.UpdateShippingInput{
			BuyerID:   buyerID,
			BuyerRole: role,
			OrderID:   orderID,
			AddressID: addressIDs[0],
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Transition moves an order through the normal, role-gated path.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actorID, role, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		detail, err := svc.Transition(ctx, internalorders.TransitionInput{
			ActorID:   actorID,
			ActorRole: role,
			OrderID:   orderID,
			ToStatus:  enums.OrderStatus(strings.ToUpper(strings.TrimSpace(req.ToStatus))),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func createdOrders(created []models.Order) createdOrdersResponse {
	out := createdOrdersResponse{Orders: make([]*internalorders.OrderDetail, 0, len(created))}
	for i := range created {
		out.Orders = append(out.Orders, internalorders.NewOrderDetail(&created[i]))
	}
	return out
}
