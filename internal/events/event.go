// Package events defines the events exchanged between the mailbox ingress,
// the workflow and the SLA scheduler. Bus plumbing lives in platform/events.
package events

import (
	"contract_workflow_backend/platform/events"
	"contract_workflow_backend/platform/logger"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus { return events.NewInMemoryBus(log) }

// Mailbox

// MessageNotified is published once per novel mailbox change notification.
type MessageNotified struct {
	BaseEvent
	MessageID string `json:"messageId"`
	// DeliveryID is the notification id used for deduplication.
	DeliveryID string `json:"deliveryId"`
}

func (e MessageNotified) EventName() string { return "mailbox.message.notified" }

// Workflow

// EmailProcessed is published after a workflow stage has handled an email.
type EmailProcessed struct {
	BaseEvent
	MessageID string `json:"messageId"`
	Route     string `json:"route"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

func (e EmailProcessed) EventName() string { return "workflow.email.processed" }

// DeadlineSwept is published after an SLA sweep completes.
type DeadlineSwept struct {
	BaseEvent
	Date    string `json:"date"`
	Checked int    `json:"checked"`
	Alerted int    `json:"alerted"`
	Deleted int    `json:"deleted"`
}

func (e DeadlineSwept) EventName() string { return "deadlines.swept" }
