package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus(" refund_requested ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusRefundRequested {
		t.Fatalf("expected REFUND_REQUESTED, got %s", got)
	}
	if _, err := ParseOrderStatus("DELIVERED"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if len(OrderStatuses()) != 8 {
		t.Fatalf("expected 8 statuses, got %d", len(OrderStatuses()))
	}
}

func TestUserRoleSellerPredicate(t *testing.T) {
	cases := map[UserRole]bool{
		UserRoleCustomer:      false,
		UserRoleSellerPending: true,
		UserRoleSellerActive:  true,
		UserRoleAdmin:         false,
	}
	for role, want := range cases {
		if got := role.CanAccessSellerFeatures(); got != want {
			t.Fatalf("%s.CanAccessSellerFeatures() = %v, want %v", role, got, want)
		}
	}
	if !UserRoleAdmin.IsAdmin() || UserRoleSellerActive.IsAdmin() {
		t.Fatal("IsAdmin mismatch")
	}
}

func TestParseUserRoleRejectsLowercase(t *testing.T) {
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatal("expected lowercase role to be rejected")
	}
}

func TestPaymentAndOutboxEnums(t *testing.T) {
	if !PaymentStatusConfirmed.IsValid() || PaymentStatus("DONE").IsValid() {
		t.Fatal("payment status validity mismatch")
	}
	if _, err := ParseOutboxEventType("order_paid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg := OutboxAggregateType("store"); agg.IsValid() {
		t.Fatal("expected store aggregate to be invalid")
	}
}
