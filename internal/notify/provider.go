package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// Message is a text message to a phone number
type Message struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Receipt is what a provider returns for an accepted message
type Receipt struct {
	Provider string    `json:"provider"`
	ID       string    `json:"id"`
	SentAt   time.Time `json:"sentAt"`
}

// Provider defines the contract for SMS gateways
type Provider interface {
	// Code returns the unique code for this provider (e.g., "twilio", "log")
	Code() string

	// Send delivers the message or returns why it could not
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// DefaultRegion is the ISO 3166 region assumed for numbers entered without
// a leading country code
var DefaultRegion = "US"

// SetDefaultRegion changes the region used by NormalizePhone
func SetDefaultRegion(region string) error {
	region = strings.ToUpper(strings.TrimSpace(region))
	if phonenumbers.GetCountryCodeForRegion(region) == 0 {
		return fmt.Errorf("unknown phone region %q", region)
	}
	DefaultRegion = region
	return nil
}

// NormalizePhone parses a phone number in DefaultRegion and returns it in
// E.164 form
func NormalizePhone(phone string) (string, error) {
	return NormalizePhoneIn(phone, DefaultRegion)
}

// NormalizePhoneIn is NormalizePhone with an explicit region
func NormalizePhoneIn(phone, region string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Validate checks a message before it is handed to a provider
func (m Message) Validate() error {
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("message body is required")
	}
	if _, err := NormalizePhone(m.To); err != nil {
		return err
	}
	return nil
}
