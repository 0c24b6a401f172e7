package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	got, err := ParseOrderStatus("DELIVERED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", got)
	}
	if _, err := ParseOrderStatus("delivered"); err == nil {
		t.Fatal("expected lowercase status to be rejected")
	}
}

func TestPaymentMethodIsValid(t *testing.T) {
	t.Parallel()

	if !PaymentMethodCOD.IsValid() || !PaymentMethodStripe.IsValid() {
		t.Fatal("expected COD and STRIPE to be valid")
	}
	if PaymentMethod("CARD").IsValid() {
		t.Fatal("expected CARD to be invalid")
	}
}

func TestParseReturnRequestType(t *testing.T) {
	t.Parallel()

	if _, err := ParseReturnRequestType("EXCHANGE"); err == nil {
		t.Fatal("expected unknown request type to fail")
	}
	got, err := ParseReturnRequestType("REPLACEMENT")
	if err != nil || got != ReturnRequestTypeReplacement {
		t.Fatalf("expected replacement, got %s err=%v", got, err)
	}
}

func TestOutboxEventTypes(t *testing.T) {
	t.Parallel()

	for _, et := range []OutboxEventType{EventOrderCreated, EventOrderPaid, EventNotificationRequested} {
		if !et.IsValid() {
			t.Fatalf("expected %s to be valid", et)
		}
	}
	if _, err := ParseOutboxEventType("license_expired"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
}
