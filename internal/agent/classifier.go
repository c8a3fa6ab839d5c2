package agent

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ClassifyInput is what the router shows the reasoning service.
type ClassifyInput struct {
	Subject         string
	Body            string
	AttachmentNames []string
}

// Classifier asks for a single route label. The raw answer is returned;
// callers parse it and fail closed.
type Classifier struct {
	run *jsonRunner
}

// NewClassifier creates the routing agent.
func NewClassifier(llm model.LLM) (*Classifier, error) {
	r, err := newRunner(runnerConfig{
		name:        "IntentRouter",
		description: "Classifies inbound contract workflow email into one route label.",
		instruction: classifierInstruction,
		llm:         llm,
	})
	if err != nil {
		return nil, err
	}
	return &Classifier{run: r}, nil
}

// Classify returns the model's raw label text.
func (c *Classifier) Classify(ctx context.Context, in ClassifyInput) (string, error) {
	attachments := "none"
	if len(in.AttachmentNames) > 0 {
		attachments = strings.Join(in.AttachmentNames, ", ")
	}
	prompt := fmt.Sprintf("Subject: %s\nHas attachments: %t\nAttachments: %s\n\nBody:\n%s",
		in.Subject, len(in.AttachmentNames) > 0, attachments, in.Body)
	return c.run.run(ctx, &genai.Part{Text: prompt})
}

const classifierInstruction = `You route inbound email for a real-estate contract workflow.
Answer with exactly one label and nothing else:

EXTRACT - an Expression of Interest (EOI) arrives, usually a signed EOI PDF.
VALIDATE_CONTRACT - a vendor sends a Contract of Sale for checking.
RECORD_SIGNING_DATE - a solicitor has finished reviewing and names a signing appointment.
SIGNING_STATUS_UPDATE - a DocuSign notice that a party signed or the envelope completed.
OTHER - anything else.`
