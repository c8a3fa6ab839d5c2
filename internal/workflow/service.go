package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contract_workflow_backend/internal/agent"
	"contract_workflow_backend/internal/deadlines"
	"contract_workflow_backend/internal/inquiry"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/vendors"
	"contract_workflow_backend/platform/logger"
)

// ErrNoMatch marks an email whose inquiry or deadline could not be resolved
// to a single record. It is an informational outcome, not a failure.
var ErrNoMatch = errors.New("no single matching record")

// Status is the result of handling one email.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusNoMatch   Status = "no_match"
)

// Outcome reports what a stage did with an email.
type Outcome struct {
	Route    RouteLabel `json:"route"`
	Status   Status     `json:"status"`
	Detail   string     `json:"detail,omitempty"`
	Notified int        `json:"notified"`
}

// InquiryExtractor reads an EOI document.
type InquiryExtractor interface {
	Extract(ctx context.Context, body string, doc agent.Document) (inquiry.PropertyInquiry, error)
}

// QueryDeriver derives the inquiry lookup query from an email.
type QueryDeriver interface {
	Derive(ctx context.Context, subject, body string) (agent.InquiryQuery, error)
}

// ContractReviewer reads a contract against an inquiry.
type ContractReviewer interface {
	Review(ctx context.Context, q inquiry.PropertyInquiry, doc agent.Document) (agent.ContractReview, error)
}

// AppointmentExtractor resolves a signing appointment relative to now.
type AppointmentExtractor interface {
	Extract(ctx context.Context, body string, now time.Time) (time.Time, error)
}

// AttachmentLoader returns attachment bytes.
type AttachmentLoader interface {
	Load(ctx context.Context, a mailbox.Attachment) ([]byte, error)
}

// Deps wires the service.
type Deps struct {
	Classifier   Classifier
	Extractor    InquiryExtractor
	QueryDeriver QueryDeriver
	Reviewer     ContractReviewer
	Appointments AppointmentExtractor
	Attachments  AttachmentLoader

	Inquiries *inquiry.Store
	Matcher   inquiry.Matcher
	Vendors   *vendors.Directory
	Deadlines *deadlines.Store

	Notifier  notify.Notifier
	Templates *notify.Templates

	// InternalAddress receives a copy of every discrepancy report.
	InternalAddress string
	Location        *time.Location
	Log             *logger.Logger
	Now             func() time.Time
}

// Service routes an email and runs the matching stage.
type Service struct {
	router *Router
	deps   Deps
	log    *logger.Logger
}

// NewService creates the workflow service.
func NewService(d Deps) *Service {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{router: NewRouter(d.Classifier, d.Log), deps: d, log: d.Log}
}

// Process routes email and runs its stage. Reasoning failures abort the
// stage before any record is written.
func (s *Service) Process(ctx context.Context, email mailbox.Email) (Outcome, error) {
	label := s.router.Route(ctx, email)
	log := s.log.WithContext(ctx)
	log.WorkflowEvent("route", label.String(), slog.String("subject", email.Subject), slog.String("sender", email.SenderAddress()))

	var (
		out Outcome
		err error
	)
	switch label {
	case RouteExtract:
		out, err = s.extract(ctx, email)
	case RouteValidateContract:
		out, err = s.validateContract(ctx, email)
	case RouteRecordSigningDate:
		out, err = s.recordSigningDate(ctx, email)
	case RouteSigningStatusUpdate:
		out, err = s.signingStatusUpdate(ctx, email)
	case RouteOther:
		out = Outcome{Status: StatusSkipped, Detail: "not part of the contract workflow"}
	default:
		panic(fmt.Sprintf("workflow: unhandled route label %d", label))
	}
	out.Route = label

	if err != nil {
		log.WorkflowEvent(label.String(), "failed", slog.String("error", err.Error()))
		return out, err
	}
	log.WorkflowEvent(label.String(), string(out.Status), slog.String("detail", out.Detail), slog.Int("notified", out.Notified))
	return out, nil
}

// document loads the last attachment for the reasoning service.
func (s *Service) document(ctx context.Context, email mailbox.Email) (agent.Document, bool, error) {
	att, ok := email.LastAttachment()
	if !ok {
		return agent.Document{}, false, nil
	}
	data, err := s.deps.Attachments.Load(ctx, att)
	if err != nil {
		return agent.Document{}, true, fmt.Errorf("load attachment %q: %w", att.Name, err)
	}
	return agent.Document{Name: att.Name, MIMEType: att.ContentType, Data: data}, true, nil
}

// resolveInquiry derives the lookup query and finds the single matching inquiry.
func (s *Service) resolveInquiry(ctx context.Context, email mailbox.Email) (inquiry.Record, error) {
	query, err := s.deps.QueryDeriver.Derive(ctx, email.Subject, email.Body)
	if err != nil {
		return inquiry.Record{}, fmt.Errorf("derive inquiry query: %w", err)
	}
	rec, ok, err := s.deps.Matcher.Match(ctx, query.String())
	if err != nil {
		return inquiry.Record{}, fmt.Errorf("match inquiry: %w", err)
	}
	if !ok {
		return inquiry.Record{}, ErrNoMatch
	}
	return rec, nil
}
