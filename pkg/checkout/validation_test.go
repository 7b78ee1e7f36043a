package checkout

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

func TestValidateStock_NoViolations(t *testing.T) {
	items := []StockValidationInput{
		{VariantID: uuid.New(), ProductName: "Exact", Stock: 2, Quantity: 2},
		{VariantID: uuid.New(), ProductName: "Plenty", Stock: 9, Quantity: 1},
	}
	if err := ValidateStock(items); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStock_Violations(t *testing.T) {
	short := uuid.New()
	err := ValidateStock([]StockValidationInput{
		{VariantID: short, ProductName: "Short", Stock: 1, Quantity: 3},
		{VariantID: uuid.New(), ProductName: "Fine", Stock: 5, Quantity: 1},
	})
	if err == nil {
		t.Fatal("expected out of stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out of stock code, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	violations, ok := details["violations"].([]StockViolationDetail)
	if !ok || len(violations) != 1 {
		t.Fatalf("expected one violation, got %#v", details["violations"])
	}
	if violations[0].VariantID != short || violations[0].Available != 1 || violations[0].RequestedQty != 3 {
		t.Fatalf("unexpected violation %+v", violations[0])
	}
}

func TestProductUnavailable(t *testing.T) {
	if err := ProductUnavailable(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := ProductUnavailable([]UnavailableDetail{{VariantID: uuid.New(), ProductID: uuid.New()}})
	if !pkgerrors.Is(err, pkgerrors.CodeProductUnavailable) {
		t.Fatalf("expected product unavailable, got %v", err)
	}
}

func TestShippingPolicyFee(t *testing.T) {
	cases := []struct {
		name     string
		policy   ShippingPolicy
		subtotal int64
		want     int64
	}{
		{"below threshold", ShippingPolicy{FeeKrw: 3000, ThresholdKrw: 50000}, 49999, 3000},
		{"at threshold", ShippingPolicy{FeeKrw: 3000, ThresholdKrw: 50000}, 50000, 0},
		{"no threshold", ShippingPolicy{FeeKrw: 2500}, 1_000_000, 2500},
		{"free seller", ShippingPolicy{}, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.Fee(tc.subtotal); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestNewOrderNo(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 5, 1, 0, time.UTC)
	no := NewOrderNo(now)
	if !regexp.MustCompile(`^260307090501-[0-9A-F]{8}$`).MatchString(no) {
		t.Fatalf("unexpected order number %q", no)
	}
	if NewOrderNo(now) == no {
		t.Fatal("expected random suffix")
	}
}
