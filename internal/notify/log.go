package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogProvider writes messages to the log instead of sending them. Used in
// development and when no gateway is configured.
type LogProvider struct {
	log  *zap.Logger
	sent atomic.Int64
}

// NewLogProvider creates a log-only provider
func NewLogProvider(log *zap.Logger) *LogProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogProvider{log: log}
}

func (p *LogProvider) Code() string { return "log" }

// Send logs the message
func (p *LogProvider) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	p.sent.Add(1)
	p.log.Info("sms (log provider)", zap.String("to", msg.To), zap.String("body", msg.Body), zap.String("id", id))
	return &Receipt{Provider: p.Code(), ID: id, SentAt: time.Now().UTC()}, nil
}

// Sent is the number of messages logged so far
func (p *LogProvider) Sent() int64 {
	return p.sent.Load()
}
