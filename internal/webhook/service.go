package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"contract_workflow_backend/internal/dedup"
	"contract_workflow_backend/internal/events"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/workflow"
	"contract_workflow_backend/platform/apperr"
	"contract_workflow_backend/platform/logger"
)

// Notification is one change-notification delivery from the mailbox
// provider. A subscription handshake carries only ValidationToken.
type Notification struct {
	ValidationToken string               `json:"validationToken,omitempty"`
	Value           []ChangeNotification `json:"value"`
}

// ChangeNotification describes one changed mailbox resource.
type ChangeNotification struct {
	SubscriptionID string       `json:"subscriptionId"`
	ClientState    string       `json:"clientState"`
	ChangeType     string       `json:"changeType"`
	Resource       string       `json:"resource"`
	ResourceData   ResourceData `json:"resourceData"`
}

// ResourceData carries the id of the changed message.
type ResourceData struct {
	ID string `json:"id"`
}

// IngestResult counts what happened to a delivery's notifications.
type IngestResult struct {
	Received   int `json:"received"`
	Dispatched int `json:"dispatched"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// Processor runs the workflow for one email.
type Processor interface {
	Process(ctx context.Context, email mailbox.Email) (workflow.Outcome, error)
}

// Subscriber creates the mailbox change subscription.
type Subscriber interface {
	CreateSubscription(ctx context.Context, notificationURL, clientState string) (mailbox.Subscription, error)
}

// Config is the webhook's view of the mailbox settings.
type Config interface {
	GetSubscriptionNotificationURL() string
	GetSubscriptionClientState() string
}

// Service gates inbound notifications and serves the internal mail API.
type Service struct {
	seen       dedup.Cache
	bus        events.Bus
	processor  Processor
	notifier   notify.Notifier
	subscriber Subscriber
	cfg        Config
	log        *logger.Logger
}

// NewService creates the webhook service. subscriber may be nil when no
// mailbox is connected.
func NewService(seen dedup.Cache, bus events.Bus, processor Processor, notifier notify.Notifier, subscriber Subscriber, cfg Config, log *logger.Logger) *Service {
	return &Service{
		seen:       seen,
		bus:        bus,
		processor:  processor,
		notifier:   notifier,
		subscriber: subscriber,
		cfg:        cfg,
		log:        log,
	}
}

// Ingest dispatches every novel message id in n onto the event bus. It
// never fails: bad entries are counted and logged.
func (s *Service) Ingest(ctx context.Context, n Notification) IngestResult {
	log := s.log.WithContext(ctx)
	res := IngestResult{Received: len(n.Value)}
	expected := s.cfg.GetSubscriptionClientState()

	for _, item := range n.Value {
		id := strings.TrimSpace(item.ResourceData.ID)
		if id == "" {
			res.Rejected++
			log.Warn("notification without message id", "resource", item.Resource)
			continue
		}
		if expected != "" && subtle.ConstantTimeCompare([]byte(item.ClientState), []byte(expected)) != 1 {
			res.Rejected++
			log.Warn("notification with unexpected client state", "subscription_id", item.SubscriptionID)
			continue
		}

		seen, err := s.seen.Seen(ctx, id)
		if err != nil {
			// Duplicate processing is tolerated; dropping a message is not.
			log.Error("dedup check failed, dispatching anyway", "message_id", id, "error", err)
		}
		if seen {
			res.Duplicates++
			log.Debug("duplicate notification ignored", "message_id", id)
			continue
		}

		s.bus.Publish(ctx, events.MessageNotified{
			BaseEvent:  events.NewBaseEvent(),
			MessageID:  id,
			DeliveryID: item.SubscriptionID,
		})
		res.Dispatched++
	}
	return res
}

// ProcessEmail runs the workflow synchronously on a posted email.
func (s *Service) ProcessEmail(ctx context.Context, email mailbox.Email) (workflow.Outcome, error) {
	out, err := s.processor.Process(ctx, email)
	if err != nil {
		return out, apperr.Unavailable("workflow stage failed", err).WithOp("webhook.ProcessEmail")
	}
	return out, nil
}

// SendEmail delivers an ad-hoc message through the configured transport.
func (s *Service) SendEmail(ctx context.Context, msg notify.Message) error {
	if err := msg.Validate(); err != nil {
		return apperr.Validation(err.Error())
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return apperr.Unavailable("send failed", err).WithOp("webhook.SendEmail")
	}
	return nil
}

// Subscribe creates the inbox subscription pointing at this service.
func (s *Service) Subscribe(ctx context.Context) (mailbox.Subscription, error) {
	if s.subscriber == nil {
		return mailbox.Subscription{}, apperr.Internal("no mailbox connected")
	}
	url := s.cfg.GetSubscriptionNotificationURL()
	if url == "" {
		return mailbox.Subscription{}, apperr.Validation("SUBSCRIPTION_NOTIFICATION_URL is not configured")
	}
	sub, err := s.subscriber.CreateSubscription(ctx, url, s.cfg.GetSubscriptionClientState())
	if errors.Is(err, mailbox.ErrUnauthorized) || errors.Is(err, mailbox.ErrNoCredentials) {
		return sub, apperr.Wrap(apperr.KindUnavailable, "mailbox credentials rejected", err)
	}
	if err != nil {
		return sub, apperr.Unavailable("create subscription", fmt.Errorf("mailbox: %w", err))
	}
	return sub, nil
}
