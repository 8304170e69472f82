package mail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// LogTransport writes messages to the logger instead of sending them. Used
// when no SMTP relay is configured.
type LogTransport struct {
	Level slog.Level
}

func (t LogTransport) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	slogx.FromContext(ctx).Log(ctx, t.Level, "mail not sent (log transport)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

// Outbox keeps messages in memory.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	return nil
}

func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Last returns the most recent message sent to addr.
func (o *Outbox) Last(addr string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == addr {
			return o.messages[i], true
		}
	}
	return Message{}, false
}
