package notify

import (
	"context"

	"contract_workflow_backend/platform/sanitize"
)

// MailSender is the mailbox capability used to send mail as the mailbox owner.
type MailSender interface {
	SendMail(ctx context.Context, to string, cc []string, subject, htmlBody string) error
}

// GraphNotifier sends through the connected mailbox so replies land in the
// same inbox that feeds the workflow.
type GraphNotifier struct {
	sender MailSender
}

// NewGraphNotifier creates a notifier over a mailbox sender.
func NewGraphNotifier(sender MailSender) *GraphNotifier {
	return &GraphNotifier{sender: sender}
}

func (g *GraphNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return g.sender.SendMail(ctx, msg.To, msg.CC, msg.Subject, sanitize.NewlinesToBreaks(msg.Body))
}
