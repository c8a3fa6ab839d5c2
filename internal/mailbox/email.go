// Package mailbox integrates the monitored mailbox: it owns the OAuth
// credential lifecycle, talks to the Graph API, and turns change
// notifications into canonical Email values.
package mailbox

import (
	"strings"
	"time"
)

// Attachment references one attachment of an Email. Key points at the
// object store; Content is populated when no object store is configured or
// when the caller already holds the bytes.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Key         string `json:"key,omitempty"`
	Content     []byte `json:"-"`
}

// Email is the canonical inbound message handed to the router. It is not
// modified after construction.
type Email struct {
	MessageID   string       `json:"message_id,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Sender      string       `json:"from_email"`
	Recipient   string       `json:"to_email"`
	Attachments []Attachment `json:"attachments"`
	ReceivedAt  time.Time    `json:"received_at"`
}

// HasAttachments reports whether the email carries at least one attachment.
func (e Email) HasAttachments() bool { return len(e.Attachments) > 0 }

// LastAttachment returns the final attachment, the one workflow stages read.
func (e Email) LastAttachment() (Attachment, bool) {
	if len(e.Attachments) == 0 {
		return Attachment{}, false
	}
	return e.Attachments[len(e.Attachments)-1], true
}

// AttachmentNames lists attachment file names in order.
func (e Email) AttachmentNames() []string {
	names := make([]string, len(e.Attachments))
	for i, a := range e.Attachments {
		names[i] = a.Name
	}
	return names
}

// SenderAddress returns the lower-cased sender address.
func (e Email) SenderAddress() string {
	return strings.ToLower(strings.TrimSpace(e.Sender))
}
