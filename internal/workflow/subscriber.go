package workflow

import (
	"context"
	"fmt"

	"contract_workflow_backend/internal/events"
	"contract_workflow_backend/internal/mailbox"
	platformevents "contract_workflow_backend/platform/events"
	"contract_workflow_backend/platform/logger"
)

// Normalizer turns a mailbox message id into an Email.
type Normalizer interface {
	Normalize(ctx context.Context, id string) (mailbox.Email, error)
}

// RegisterSubscriptions wires the workflow to mailbox notifications. Each
// MessageNotified runs on its own goroutine through the bus; failures are
// logged there and the event is dropped.
func (s *Service) RegisterSubscriptions(bus events.Bus, normalizer Normalizer) {
	platformevents.On(bus, func(ctx context.Context, ev events.MessageNotified) error {
		ctx = context.WithValue(ctx, logger.MessageIDKey, ev.MessageID)

		email, err := normalizer.Normalize(ctx, ev.MessageID)
		if err != nil {
			return fmt.Errorf("normalize message %s: %w", ev.MessageID, err)
		}
		out, err := s.Process(ctx, email)
		if err != nil {
			return err
		}
		bus.Publish(ctx, events.EmailProcessed{
			BaseEvent: events.NewBaseEvent(),
			MessageID: ev.MessageID,
			Route:     out.Route.String(),
			Status:    string(out.Status),
			Detail:    out.Detail,
		})
		return nil
	})
}
