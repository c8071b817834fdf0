package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mendelflow/mendelflowgo/internal/notify"
)

func TestNewProviderValidation(t *testing.T) {
	if _, err := NewProvider(Config{AuthToken: "t", PhoneNumber: "+1"}); err == nil {
		t.Error("expected error without account SID")
	}
	if _, err := NewProvider(Config{AccountSID: "AC1", PhoneNumber: "+1"}); err == nil {
		t.Error("expected error without auth token")
	}
	if _, err := NewProvider(Config{AccountSID: "AC1", AuthToken: "t"}); err == nil {
		t.Error("expected error without sender number")
	}
	if _, err := NewProvider(Config{AccountSID: "AC1", AuthToken: "t", PhoneNumber: "+1", BaseURL: "not a url"}); err == nil {
		t.Error("expected error for a base URL without a host")
	}
}

func TestSend(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotTo, gotFrom, gotBody = r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	p, err := NewProvider(Config{AccountSID: "AC1", AuthToken: "secret", PhoneNumber: "+16502530000", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	receipt, err := p.Send(context.Background(), notify.Message{To: "+49 170 123-4567", Body: "Your turn"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if receipt.ID != "SM123" || receipt.Provider != "twilio" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if gotPath != "/2010-04-01/Accounts/AC1/Messages.json" {
		t.Errorf("path = %s", gotPath)
	}
	if gotUser != "AC1" || gotPass != "secret" {
		t.Errorf("basic auth = %s:%s", gotUser, gotPass)
	}
	if gotTo != "+491701234567" || gotFrom != "+16502530000" || gotBody != "Your turn" {
		t.Errorf("form = %s %s %s", gotTo, gotFrom, gotBody)
	}
}

func TestSendReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{AccountSID: "AC1", AuthToken: "secret", PhoneNumber: "+16502530000", BaseURL: srv.URL})
	_, err := p.Send(context.Background(), notify.Message{To: "+16502531234", Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "not a valid phone number") {
		t.Errorf("expected gateway error, got %v", err)
	}
}

func TestSendRejectsBadInput(t *testing.T) {
	p, _ := NewProvider(Config{AccountSID: "AC1", AuthToken: "secret", PhoneNumber: "+16502530000", BaseURL: "http://127.0.0.1:1"})
	if _, err := p.Send(context.Background(), notify.Message{To: "abc", Body: "hi"}); err == nil {
		t.Error("expected invalid phone error")
	}
	if _, err := p.Send(context.Background(), notify.Message{To: "+16502531234", Body: " "}); err == nil {
		t.Error("expected empty body error")
	}
}

func TestSendHonorsCanceledContext(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{AccountSID: "AC1", AuthToken: "secret", PhoneNumber: "+16502530000", BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Send(ctx, notify.Message{To: "+16502531234", Body: "hi"}); err == nil {
		t.Error("expected an error for a canceled context")
	}
	if called {
		t.Error("gateway should not be called after cancellation")
	}
}
