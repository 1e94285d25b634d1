package mail

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogGateway writes messages to the log instead of sending them. Used in
// development mode; the last message is kept for inspection.
type LogGateway struct {
	logger *logrus.Logger

	mu   sync.Mutex
	last *Message
}

// NewLogGateway creates a new development gateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) GetName() string { return "log" }

func (g *LogGateway) Send(ctx context.Context, msg Message) error {
	g.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email (dev mode, not sent)")
	g.logger.Debug(msg.Text)

	g.mu.Lock()
	defer g.mu.Unlock()
	m := msg
	g.last = &m
	return nil
}

// Last returns the most recently sent message, if any
func (g *LogGateway) Last() (Message, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return Message{}, false
	}
	return *g.last, true
}
