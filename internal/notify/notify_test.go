package notify

import (
	"context"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, region, want string
		ok               bool
	}{
		{"+7 (912) 345-67-89", "US", "+79123456789", true},
		{"(650) 253-0000", "US", "+16502530000", true},
		{"0170 1234567", "DE", "+491701234567", true},
		{"+49 170 1234567", "US", "+491701234567", true},
		{"12345", "US", "", false},
		{"+49abc", "US", "", false},
		{"+1 555 0001", "US", "", false},
		{"", "US", "", false},
	}
	for _, tc := range tests {
		got, err := NormalizePhoneIn(tc.in, tc.region)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("NormalizePhoneIn(%q, %s) = %q, %v; want %q", tc.in, tc.region, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("NormalizePhoneIn(%q, %s) should fail, got %q", tc.in, tc.region, got)
		}
	}
}

func TestSetDefaultRegion(t *testing.T) {
	if err := SetDefaultRegion("zz"); err == nil {
		t.Error("unknown region should be rejected")
	}
	if DefaultRegion != "US" {
		t.Fatalf("DefaultRegion changed to %q after a rejected update", DefaultRegion)
	}
	if got, err := NormalizePhone("650-253-0000"); err != nil || got != "+16502530000" {
		t.Errorf("NormalizePhone = %q, %v", got, err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	logp := NewLogProvider(nil)

	if err := r.Register(logp); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(logp); err == nil {
		t.Error("duplicate registration should fail")
	}
	if !r.Has("log") || r.Has("twilio") {
		t.Error("Has returned the wrong answer")
	}
	if _, err := r.Get("twilio"); err == nil {
		t.Error("Get of an unknown provider should fail")
	}
	if codes := r.Codes(); len(codes) != 1 || codes[0] != "log" {
		t.Errorf("Codes = %v", codes)
	}
}

func TestLogProvider(t *testing.T) {
	p := NewLogProvider(nil)
	receipt, err := p.Send(context.Background(), Message{To: "+16502531234", Body: "Your turn"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if receipt.ID == "" || receipt.Provider != "log" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if p.Sent() != 1 {
		t.Errorf("Sent = %d", p.Sent())
	}
	if _, err := p.Send(context.Background(), Message{To: "x", Body: "hi"}); err == nil {
		t.Error("invalid phone should be rejected")
	}
}
