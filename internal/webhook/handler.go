package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/storage"
	"contract_workflow_backend/platform/httpkit"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles webhook and internal mail HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
	log     *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, val: val, log: log}
}

// ---- Mailbox notifications (public) ----

// HandleNotification answers the subscription handshake and accepts change
// notifications.
// GET|POST /webhook
// Always 202 for notifications, including malformed ones.
func (h *Handler) HandleNotification(c *gin.Context) {
	if token := c.Query("validationToken"); token != "" {
		echoValidationToken(c, token)
		return
	}

	var n Notification
	raw, err := io.ReadAll(c.Request.Body)
	if err == nil && len(strings.TrimSpace(string(raw))) > 0 {
		err = json.Unmarshal(raw, &n)
	}
	if err != nil {
		h.log.WithContext(c.Request.Context()).Warn("malformed notification payload", "error", err)
		httpkit.Accepted(c, gin.H{"status": "ok"})
		return
	}
	if n.ValidationToken != "" {
		echoValidationToken(c, n.ValidationToken)
		return
	}

	res := h.service.Ingest(c.Request.Context(), n)
	httpkit.Accepted(c, gin.H{
		"status":     "ok",
		"received":   res.Received,
		"dispatched": res.Dispatched,
		"duplicates": res.Duplicates,
	})
}

func echoValidationToken(c *gin.Context, token string) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(token))
}

// ---- Internal mail API (service token) ----

// AttachmentRequest is one posted attachment. Content is base64 in JSON.
type AttachmentRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"max=255"`
	Content     []byte `json:"content" validate:"required"`
}

// IncomingEmailRequest is an email posted for synchronous processing.
type IncomingEmailRequest struct {
	Subject     string              `json:"subject" validate:"max=998"`
	Body        string              `json:"body"`
	FromEmail   string              `json:"from_email" validate:"required,email"`
	ToEmail     string              `json:"to_email" validate:"omitempty,email"`
	Attachments []AttachmentRequest `json:"attachments" validate:"max=20,dive"`
}

// IncomingEmailResponse reports the route taken and what the stage did.
type IncomingEmailResponse struct {
	Route  string `json:"route"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HandleIncomingEmail routes and handles a posted email.
// POST /api/v1/incoming-email
func (h *Handler) HandleIncomingEmail(c *gin.Context) {
	var req IncomingEmailRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	email := mailbox.Email{
		Subject:    req.Subject,
		Body:       req.Body,
		Sender:     req.FromEmail,
		Recipient:  req.ToEmail,
		ReceivedAt: time.Now().UTC(),
	}
	for _, a := range req.Attachments {
		if err := storage.ValidateContentType(a.ContentType); err != nil {
			httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
			return
		}
		email.Attachments = append(email.Attachments, mailbox.Attachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Size:        int64(len(a.Content)),
			Content:     a.Content,
		})
	}

	out, err := h.service.ProcessEmail(c.Request.Context(), email)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, IncomingEmailResponse{Route: out.Route.String(), Status: string(out.Status), Detail: out.Detail})
}

// SendEmailRequest is an ad-hoc outbound message.
type SendEmailRequest struct {
	Recipient string   `json:"recipient" validate:"required,email"`
	CC        []string `json:"cc" validate:"max=20,dive,email"`
	Subject   string   `json:"subject" validate:"required,notblank,max=998"`
	Body      string   `json:"body"`
}

// HandleSendEmail sends one message.
// POST /api/v1/send-email
func (h *Handler) HandleSendEmail(c *gin.Context) {
	var req SendEmailRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	err := h.service.SendEmail(c.Request.Context(), notify.Message{
		To:      req.Recipient,
		CC:      req.CC,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "sent"})
}

// HandleSubscribe creates the inbox change subscription.
// GET /api/v1/subscribe
func (h *Handler) HandleSubscribe(c *gin.Context) {
	sub, err := h.service.Subscribe(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, sub)
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, validator.Describe(err))
		return false
	}
	return true
}
