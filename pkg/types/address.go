package types

import "strings"

// ShippingSnapshot is the address copy frozen onto an order.
type ShippingSnapshot struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Zip   string  `json:"zip"`
	Addr1 string  `json:"addr1"`
	Addr2 *string `json:"addr2,omitempty"`
	Memo  *string `json:"memo,omitempty"`
}

// IsComplete reports whether the mandatory delivery fields are present.
func (s ShippingSnapshot) IsComplete() bool {
	return strings.TrimSpace(s.Name) != "" &&
		strings.TrimSpace(s.Phone) != "" &&
		strings.TrimSpace(s.Zip) != "" &&
		strings.TrimSpace(s.Addr1) != ""
}
