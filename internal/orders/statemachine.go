package orders

import (
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

// transitions is the single source of truth for status legality. Statuses
// absent from the map, or mapped to nothing, are terminal.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:         {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:            {enums.OrderStatusShipped, enums.OrderStatusRefundRequested},
	enums.OrderStatusShipped:         {enums.OrderStatusCompleted, enums.OrderStatusRefundRequested},
	enums.OrderStatusRefundRequested: {enums.OrderStatusRefunded},
	enums.OrderStatusFailed:          {},
	enums.OrderStatusCancelled:       {},
	enums.OrderStatusCompleted:       {},
	enums.OrderStatusRefunded:        {},
}

var statusLabels = map[enums.OrderStatus]string{
	enums.OrderStatusPending:         "Awaiting payment",
	enums.OrderStatusPaid:            "Paid",
	enums.OrderStatusShipped:         "Shipped",
	enums.OrderStatusCompleted:       "Completed",
	enums.OrderStatusCancelled:       "Cancelled",
	enums.OrderStatusRefundRequested: "Refund requested",
	enums.OrderStatusRefunded:        "Refunded",
	enums.OrderStatusFailed:          "Payment failed",
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the legal targets for from.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	allowed := transitions[from]
	out := make([]enums.OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s enums.OrderStatus) bool {
	return len(transitions[s]) == 0
}

// Table returns the full transition table keyed by source status.
func Table() map[enums.OrderStatus][]enums.OrderStatus {
	out := make(map[enums.OrderStatus][]enums.OrderStatus, len(transitions))
	for _, status := range enums.OrderStatuses() {
		out[status] = AllowedTransitions(status)
	}
	return out
}

// Label returns the human readable status name.
func Label(s enums.OrderStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// AssertTransition returns INVALID_TRANSITION carrying the legal target set
// when from -> to is not allowed.
func AssertTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": to})
	}
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move order from "+Label(from)+" to "+Label(to)).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": AllowedTransitions(from),
		})
}

// AssertTransitionWithTable is AssertTransition with the full table attached
// under details.table, for administrators.
func AssertTransitionWithTable(from, to enums.OrderStatus) error {
	err := AssertTransition(from, to)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		return err
	}
	if details, ok := typed.Details().(map[string]any); ok {
		details["table"] = Table()
	}
	return err
}
