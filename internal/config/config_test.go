package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	for _, key := range []string{"PORT", "TOKEN_TTL", "PICKING_SESSION_TTL", "QUEUE_DEFAULT_PLACE", "QUEUE_STRICT_CALL", "SMS_PROVIDER", "SMS_DEFAULT_REGION", "PUBLIC_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %s", cfg.Port)
	}
	if cfg.TokenTTL != time.Hour || cfg.Picking.SessionTTL != 8*time.Hour {
		t.Errorf("unexpected TTLs: %v %v", cfg.TokenTTL, cfg.Picking.SessionTTL)
	}
	if cfg.Queue.DefaultPlace != "office1" || cfg.Queue.StrictCall {
		t.Errorf("unexpected queue config: %+v", cfg.Queue)
	}
	if cfg.SMS.Provider != "log" || cfg.SMS.DefaultRegion != "US" {
		t.Errorf("unexpected sms config: %+v", cfg.SMS)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("QUEUE_STRICT_CALL", "true")
	t.Setenv("QUEUE_DEFAULT_PLACE", "Dock2")
	t.Setenv("PICKING_SESSION_TTL", "30m")
	t.Setenv("PUBLIC_BASE_URL", "https://wms.example.com/")
	t.Setenv("SMS_PROVIDER", "log")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Queue.StrictCall || cfg.Queue.DefaultPlace != "dock2" {
		t.Errorf("unexpected queue config: %+v", cfg.Queue)
	}
	if cfg.Picking.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.Picking.SessionTTL)
	}
	if cfg.Queue.PublicBaseURL != "https://wms.example.com" {
		t.Errorf("PublicBaseURL = %s", cfg.Queue.PublicBaseURL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid TOKEN_TTL")
	}
}

func TestLoadTwilioNeedsCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("SMS_PROVIDER", "twilio")
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for twilio without credentials")
	}
}
