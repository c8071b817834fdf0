package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	twiliosdk "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/mendelflow/mendelflowgo/internal/notify"
)

// Config holds configuration for the Twilio provider
type Config struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string // Sender number
	BaseURL     string // Replaces the scheme and host of api.twilio.com when set
	Timeout     time.Duration
}

// Provider implements notify.Provider over the Twilio Messages API
type Provider struct {
	config Config
	rest   *twiliosdk.RestClient
}

// NewProvider creates a new Twilio provider
func NewProvider(config Config) (*Provider, error) {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	if config.AccountSID == "" {
		return nil, fmt.Errorf("account SID is required")
	}
	if config.AuthToken == "" {
		return nil, fmt.Errorf("auth token is required")
	}
	if config.PhoneNumber == "" {
		return nil, fmt.Errorf("sender phone number is required")
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	if config.BaseURL != "" {
		base, err := url.Parse(config.BaseURL)
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("invalid base URL %q", config.BaseURL)
		}
		httpClient.Transport = rewriteHost{base: base, next: http.DefaultTransport}
	}

	c := &client.Client{
		Credentials: client.NewCredentials(config.AccountSID, config.AuthToken),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(config.AccountSID)

	return &Provider{
		config: config,
		rest:   twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{Client: c}),
	}, nil
}

func (p *Provider) Code() string { return "twilio" }

// Send posts the message to Twilio
func (p *Provider) Send(ctx context.Context, msg notify.Message) (*notify.Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	to, _ := notify.NormalizePhone(msg.To)

	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(p.config.PhoneNumber)
	params.SetBody(msg.Body)

	resp, err := p.rest.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio send failed: %w", err)
	}

	receipt := &notify.Receipt{Provider: p.Code(), SentAt: time.Now().UTC()}
	if resp.Sid != nil {
		receipt.ID = *resp.Sid
	}
	return receipt, nil
}

// rewriteHost points SDK requests at another server, used for test gateways
type rewriteHost struct {
	base *url.URL
	next http.RoundTripper
}

func (r rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = r.base.Scheme
	out.URL.Host = r.base.Host
	out.Host = r.base.Host
	return r.next.RoundTrip(out)
}
