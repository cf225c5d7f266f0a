package billing

import "testing"

func TestParsePaymentStatus(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentStatus
		ok   bool
	}{
		{in: "pending", want: PaymentPending, ok: true},
		{in: "PROCESSING", want: PaymentProcessing, ok: true},
		{in: " paid ", want: PaymentPaid, ok: true},
		{in: "failed", want: PaymentFailed, ok: true},
		{in: "canceled", want: PaymentCancelled, ok: true},
		{in: "cancelled", want: PaymentCancelled, ok: true},
		{in: "refunded", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParsePaymentStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParsePaymentStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSettled(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCancelled} {
		if !s.Settled() {
			t.Fatalf("expected %q to be settled", s)
		}
	}
	for _, s := range []PaymentStatus{PaymentPending, PaymentProcessing} {
		if s.Settled() {
			t.Fatalf("expected %q to be unsettled", s)
		}
	}
}
