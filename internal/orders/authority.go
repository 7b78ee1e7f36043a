package orders

import (
	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

// Forbidden reasons surfaced in error details.
const (
	ReasonNotOwner              = "NOT_OWNER"
	ReasonRoleNotPermitted      = "ROLE_NOT_PERMITTED"
	ReasonAdminOverrideRequired = "ADMIN_OVERRIDE_REQUIRED"
	ReasonAdminOnly             = "ADMIN_ONLY"
)

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

var buyerEdges = map[edge]struct{}{
	{enums.OrderStatusPending, enums.OrderStatusCancelled}:       {},
	{enums.OrderStatusPaid, enums.OrderStatusRefundRequested}:    {},
	{enums.OrderStatusShipped, enums.OrderStatusRefundRequested}: {},
}

var sellerEdges = map[edge]struct{}{
	{enums.OrderStatusPaid, enums.OrderStatusShipped}:            {},
	{enums.OrderStatusShipped, enums.OrderStatusCompleted}:       {},
	{enums.OrderStatusRefundRequested, enums.OrderStatusRefunded}: {},
}

// actorSide is the party of the order the actor acts as.
type actorSide int

const (
	sideNone actorSide = iota
	sideBuyer
	sideSeller
)

func resolveSide(order *models.Order, actorID uuid.UUID, role enums.UserRole) actorSide {
	switch {
	case role == enums.UserRoleCustomer && order.BuyerID == actorID:
		return sideBuyer
	case role.CanAccessSellerFeatures() && order.SellerID == actorID:
		return sideSeller
	case role.CanAccessSellerFeatures() && order.BuyerID == actorID:
		return sideBuyer
	default:
		return sideNone
	}
}

func checkOwnership(order *models.Order, actorID uuid.UUID, role enums.UserRole) (actorSide, error) {
	side := resolveSide(order, actorID, role)
	if side == sideNone {
		return sideNone, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor").
			WithDetails(map[string]any{"reason": ReasonNotOwner})
	}
	return side, nil
}

// checkRole applies the per-role transition set on top of table legality.
func checkRole(side actorSide, role enums.UserRole, from, to enums.OrderStatus) error {
	e := edge{from: from, to: to}
	var permitted bool
	switch side {
	case sideBuyer:
		_, permitted = buyerEdges[e]
	case sideSeller:
		_, permitted = sellerEdges[e]
	}
	if permitted {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not perform this transition").
		WithDetails(map[string]any{
			"reason": ReasonRoleNotPermitted,
			"role":   role,
			"from":   from,
			"to":     to,
		})
}
