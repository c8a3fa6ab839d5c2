package mailbox

import (
	"context"
	"fmt"
	"strings"

	"contract_workflow_backend/internal/storage"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/sanitize"
)

const fileAttachmentType = "#microsoft.graph.fileAttachment"

// MessageSource fetches raw messages. *Client implements it.
type MessageSource interface {
	GetMessage(ctx context.Context, id string) (Message, error)
	ListAttachments(ctx context.Context, id string) ([]FileAttachment, error)
}

// Normalizer turns a notified message id into a canonical Email.
type Normalizer struct {
	source  MessageSource
	objects storage.ObjectStore
	log     *logger.Logger
}

// NewNormalizer creates a normalizer. objects may be nil, in which case
// attachment bytes travel inline with the Email.
func NewNormalizer(source MessageSource, objects storage.ObjectStore, log *logger.Logger) *Normalizer {
	return &Normalizer{source: source, objects: objects, log: log}
}

// Normalize fetches message id and its attachments.
func (n *Normalizer) Normalize(ctx context.Context, id string) (Email, error) {
	msg, err := n.source.GetMessage(ctx, id)
	if err != nil {
		return Email{}, fmt.Errorf("fetch message: %w", err)
	}

	email := Email{
		MessageID:  msg.ID,
		Subject:    strings.TrimSpace(msg.Subject),
		Body:       bodyText(msg.Body),
		Sender:     strings.TrimSpace(msg.From.EmailAddress.Address),
		ReceivedAt: msg.ReceivedDateTime,
	}
	if email.MessageID == "" {
		email.MessageID = id
	}
	if len(msg.ToRecipients) > 0 {
		email.Recipient = strings.TrimSpace(msg.ToRecipients[0].EmailAddress.Address)
	}
	if !msg.HasAttachments {
		return email, nil
	}

	raw, err := n.source.ListAttachments(ctx, id)
	if err != nil {
		return Email{}, fmt.Errorf("fetch attachments: %w", err)
	}
	for _, a := range raw {
		if a.ODataType != "" && a.ODataType != fileAttachmentType {
			continue
		}
		email.Attachments = append(email.Attachments, n.store(ctx, email.MessageID, a))
	}
	return email, nil
}

// store uploads the bytes when an object store is configured. On failure the
// bytes stay inline so the workflow can still read them.
func (n *Normalizer) store(ctx context.Context, messageID string, a FileAttachment) Attachment {
	att := Attachment{Name: a.Name, ContentType: a.ContentType, Size: int64(len(a.ContentBytes)), Content: a.ContentBytes}
	if n.objects == nil || len(a.ContentBytes) == 0 {
		return att
	}
	folder := "messages/" + strings.NewReplacer("/", "_", "\\", "_").Replace(messageID)
	key, err := n.objects.Put(ctx, folder, a.Name, a.ContentType, a.ContentBytes)
	if err != nil {
		n.log.WithContext(ctx).Warn("attachment upload failed, keeping inline", "name", a.Name, "error", err)
		return att
	}
	att.Key = key
	att.Content = nil
	return att
}

func bodyText(b itemBody) string {
	if strings.EqualFold(b.ContentType, "html") {
		return sanitize.StripHTML(b.Content)
	}
	return strings.TrimSpace(strings.ReplaceAll(b.Content, "\r\n", "\n"))
}

// AttachmentLoader resolves attachment bytes, inline or from the object store.
type AttachmentLoader struct {
	objects storage.ObjectStore
}

// NewAttachmentLoader creates a loader. objects may be nil.
func NewAttachmentLoader(objects storage.ObjectStore) *AttachmentLoader {
	return &AttachmentLoader{objects: objects}
}

// Load returns the bytes of a.
func (l *AttachmentLoader) Load(ctx context.Context, a Attachment) ([]byte, error) {
	if len(a.Content) > 0 {
		return a.Content, nil
	}
	if a.Key == "" {
		return nil, fmt.Errorf("attachment %q has no content", a.Name)
	}
	if l.objects == nil {
		return nil, fmt.Errorf("attachment %q stored at %s but no object store is configured", a.Name, a.Key)
	}
	return l.objects.Get(ctx, a.Key)
}
