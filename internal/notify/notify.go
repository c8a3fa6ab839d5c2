// Package notify delivers outbound workflow mail: approvals, discrepancy
// reports, contract release requests and SLA alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contract_workflow_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// ErrNoRecipient is returned when a message has no primary recipient.
var ErrNoRecipient = errors.New("notification has no recipient")

// Message is one outbound mail. Body is plain text; transports that send
// HTML turn line breaks into <br>.
type Message struct {
	To      string
	CC      []string
	Subject string
	Body    string
}

// Validate checks the message has a recipient and a subject.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("notification to %s has no subject", m.To)
	}
	return nil
}

// Notifier sends a single message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SendAll delivers msgs concurrently and returns the first failure.
func SendAll(ctx context.Context, n Notifier, msgs ...Message) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, msg := range msgs {
		g.Go(func() error {
			if err := n.Send(gctx, msg); err != nil {
				return fmt.Errorf("send to %s: %w", msg.To, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// timeoutNotifier bounds every send.
type timeoutNotifier struct {
	next    Notifier
	timeout time.Duration
}

// WithTimeout wraps n so each Send is bounded by d.
func WithTimeout(n Notifier, d time.Duration) Notifier {
	if d <= 0 {
		return n
	}
	return &timeoutNotifier{next: n, timeout: d}
}

func (t *timeoutNotifier) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Send(ctx, msg)
}

// NoopNotifier logs messages instead of sending them.
type NoopNotifier struct {
	Log *logger.Logger
}

func (n NoopNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if n.Log != nil {
		n.Log.WithContext(ctx).Info("notification suppressed", "to", msg.To, "cc", msg.CC, "subject", msg.Subject)
	}
	return nil
}
