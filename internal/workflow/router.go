package workflow

import (
	"context"

	"contract_workflow_backend/internal/agent"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/platform/logger"
)

// Classifier returns the reasoning service's raw label for an email.
type Classifier interface {
	Classify(ctx context.Context, in agent.ClassifyInput) (string, error)
}

// Router picks exactly one label per email. It never fails: reasoning
// errors and unrecognized answers route to OTHER.
type Router struct {
	classifier Classifier
	log        *logger.Logger
}

// NewRouter creates a router.
func NewRouter(classifier Classifier, log *logger.Logger) *Router {
	return &Router{classifier: classifier, log: log}
}

// Route classifies email.
func (r *Router) Route(ctx context.Context, email mailbox.Email) RouteLabel {
	raw, err := r.classifier.Classify(ctx, agent.ClassifyInput{
		Subject:         email.Subject,
		Body:            email.Body,
		AttachmentNames: email.AttachmentNames(),
	})
	if err != nil {
		r.log.WithContext(ctx).Warn("route classification failed, using OTHER", "error", err)
		return RouteOther
	}
	label := ParseRouteLabel(raw)
	if label == RouteOther && raw != "" {
		r.log.WithContext(ctx).Debug("route answer mapped to OTHER", "answer", raw)
	}
	return label
}
