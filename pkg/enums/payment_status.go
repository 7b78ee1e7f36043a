package enums

import "fmt"

// PaymentStatus tracks the lifecycle of an order's payment row.
type PaymentStatus string

const (
	PaymentStatusReady     PaymentStatus = "READY"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusReady,
	PaymentStatusConfirmed,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// Payment failure codes stored on payments.failure_code.
const (
	PaymentFailureOutOfStock      = "OUT_OF_STOCK"
	PaymentFailureVariantNotFound = "VARIANT_NOT_FOUND"
	PaymentFailureOrderExpired    = "ORDER_EXPIRED"
	PaymentFailureOrderCancelled  = "ORDER_CANCELLED"
)
