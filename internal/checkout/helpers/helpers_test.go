package helpers

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/internal/catalog"
	"github.com/seoulmarket/marketplace-backend/pkg/db/models"
	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/seoulmarket/marketplace-backend/pkg/errors"
)

func TestMergeLines(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	merged := MergeLines([]Line{
		{VariantID: a, Quantity: 1},
		{VariantID: b, Quantity: 2},
		{VariantID: a, Quantity: 3},
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(merged))
	}
	if merged[0].VariantID != a || merged[0].Quantity != 4 {
		t.Fatalf("unexpected first line %+v", merged[0])
	}
	if merged[1].VariantID != b || merged[1].Quantity != 2 {
		t.Fatalf("unexpected second line %+v", merged[1])
	}
}

func pricedLine(seller uuid.UUID, price, extra int64, qty int) PricedLine {
	return PricedLine{
		Record: catalog.VariantRecord{
			Product: models.Product{ID: uuid.New(), SellerID: seller, PriceKrw: price},
			Variant: models.ProductVariant{ID: uuid.New(), AdditionalPriceKrw: extra},
		},
		Quantity: qty,
	}
}

func TestGroupBySellerKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()
	s1, s2 := uuid.New(), uuid.New()
	groups := GroupBySeller([]PricedLine{
		pricedLine(s2, 10000, 0, 1),
		pricedLine(s1, 5000, 1000, 2),
		pricedLine(s2, 2000, 0, 3),
	})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].SellerID != s2 || groups[1].SellerID != s1 {
		t.Fatalf("unexpected seller order %v, %v", groups[0].SellerID, groups[1].SellerID)
	}
	if got, ok := groups[0].SubtotalKrw(); !ok || got != 16000 {
		t.Fatalf("expected 16000, got %d (ok=%v)", got, ok)
	}
	if got, ok := groups[1].SubtotalKrw(); !ok || got != 12000 {
		t.Fatalf("expected 12000, got %d (ok=%v)", got, ok)
	}
	ids := SellerIDs(groups)
	if len(ids) != 2 || ids[0] != s2 {
		t.Fatalf("unexpected seller ids %v", ids)
	}
}

func TestValidateBuyer(t *testing.T) {
	t.Parallel()
	if err := ValidateBuyer(uuid.New(), enums.UserRoleCustomer); err != nil {
		t.Fatalf("expected customer allowed, got %v", err)
	}
	if err := ValidateBuyer(uuid.New(), enums.UserRoleSellerActive); err != nil {
		t.Fatalf("expected seller allowed, got %v", err)
	}
	if err := ValidateBuyer(uuid.New(), enums.UserRoleAdmin); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for admin, got %v", err)
	}
	if err := ValidateBuyer(uuid.Nil, enums.UserRoleCustomer); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestValidateLines(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		lines  []Line
		max    int
		maxQty int
		ok     bool
	}{
		{"empty", nil, 10, 99, false},
		{"zero quantity", []Line{{VariantID: uuid.New(), Quantity: 0}}, 10, 99, false},
		{"nil variant", []Line{{Quantity: 1}}, 10, 99, false},
		{"too many", []Line{{VariantID: uuid.New(), Quantity: 1}, {VariantID: uuid.New(), Quantity: 1}}, 1, 99, false},
		{"over quantity cap", []Line{{VariantID: uuid.New(), Quantity: 100}}, 10, 99, false},
		{"huge quantity", []Line{{VariantID: uuid.New(), Quantity: math.MaxInt}}, 10, 99, false},
		{"at quantity cap", []Line{{VariantID: uuid.New(), Quantity: 99}}, 10, 99, true},
		{"valid", []Line{{VariantID: uuid.New(), Quantity: 2}}, 10, 99, true},
	}
	for _, tc := range cases {
		err := ValidateLines(tc.lines, tc.max, tc.maxQty)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestMergedQuantityOverCapFailsRevalidation(t *testing.T) {
	t.Parallel()
	v := uuid.New()
	lines := []Line{{VariantID: v, Quantity: 60}, {VariantID: v, Quantity: 50}}
	if err := ValidateLines(lines, 10, 99); err != nil {
		t.Fatalf("each line is under the cap, got %v", err)
	}
	merged := MergeLines(lines)
	if err := ValidateLines(merged, 10, 99); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected merged quantity 110 rejected, got %v", err)
	}
}

func TestMergeLinesWrapIsCaughtByRevalidation(t *testing.T) {
	t.Parallel()
	v := uuid.New()
	merged := MergeLines([]Line{{VariantID: v, Quantity: math.MaxInt}, {VariantID: v, Quantity: 1}})
	if err := ValidateLines(merged, 10, 0); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected wrapped quantity rejected, got %v", err)
	}
}

func TestSubtotalReportsOverflow(t *testing.T) {
	t.Parallel()
	seller := uuid.New()
	group := SellerGroup{SellerID: seller, Lines: []PricedLine{pricedLine(seller, math.MaxInt64/2, 0, 3)}}
	if _, ok := group.SubtotalKrw(); ok {
		t.Fatal("expected line total overflow")
	}

	group = SellerGroup{SellerID: seller, Lines: []PricedLine{
		pricedLine(seller, math.MaxInt64/2, 0, 1),
		pricedLine(seller, math.MaxInt64/2, 0, 1),
		pricedLine(seller, 10, 0, 1),
	}}
	if _, ok := group.SubtotalKrw(); ok {
		t.Fatal("expected subtotal sum overflow")
	}

	if _, ok := AddKrw(math.MaxInt64, 1); ok {
		t.Fatal("expected AddKrw overflow")
	}
	if got, ok := AddKrw(40000, 3000); !ok || got != 43000 {
		t.Fatalf("expected 43000, got %d (ok=%v)", got, ok)
	}
}
