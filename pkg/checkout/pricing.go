package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShippingPolicy is the flat fee plus optional free-shipping threshold of a seller.
type ShippingPolicy struct {
	FeeKrw       int64
	ThresholdKrw int64
}

// Fee returns the shipping charge for subtotal. A threshold of zero disables
// free shipping.
func (p ShippingPolicy) Fee(subtotalKrw int64) int64 {
	if p.ThresholdKrw > 0 && subtotalKrw >= p.ThresholdKrw {
		return 0
	}
	return p.FeeKrw
}

const orderNoLayout = "060102150405"

// NewOrderNo formats a display number as YYMMDDhhmmss-XXXXXXXX. The suffix is
// random; uniqueness is enforced by the database index.
func NewOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return now.Format(orderNoLayout) + "-" + suffix
}
