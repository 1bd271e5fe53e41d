// Package notify queues outbound notifications about case activity.
// Delivery itself is owned by a downstream worker; this package only
// enqueues.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound notification.
type Message struct {
	ID         string         `json:"id"`
	CaseID     string         `json:"case_id"`
	ActivityID string         `json:"activity_id,omitempty"`
	Recipients []Recipient    `json:"recipients"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
	QueuedAt   time.Time      `json:"queued_at"`
}

// Recipient identifies one notification target.
type Recipient struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Dispatcher queues messages for delivery.
type Dispatcher interface {
	// Dispatch enqueues a message. Callers treat failures as
	// best-effort: the triggering operation has already succeeded.
	Dispatch(ctx context.Context, msg Message) error
}

// LogDispatcher logs messages instead of queuing them. Used in
// development and as the fallback driver.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the message.
func (d *LogDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.logger.Info("notification queued",
		zap.String("notification_id", msg.ID),
		zap.String("case_id", msg.CaseID),
		zap.Int("recipients", len(msg.Recipients)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// MemoryDispatcher collects messages in memory. For testing.
type MemoryDispatcher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewMemoryDispatcher creates an in-memory dispatcher.
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

// Dispatch records the message.
func (d *MemoryDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return d.err
	}
	d.messages = append(d.messages, msg)
	return nil
}

// Messages returns a copy of the collected messages.
func (d *MemoryDispatcher) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// FailWith makes every subsequent Dispatch return err.
func (d *MemoryDispatcher) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}
