// Package agent wraps the reasoning service behind narrow, typed calls:
// route classification, inquiry extraction, query derivation, contract
// review and appointment extraction. Each agent is an ADK llmagent with its
// own runner; structured outputs are validated against embedded JSON schemas.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// Document is an attachment handed to the reasoning service.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (d Document) part() *genai.Part {
	mime := d.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}
	if strings.HasPrefix(mime, "text/") {
		return &genai.Part{Text: "Attachment " + d.Name + ":\n" + string(d.Data)}
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: d.Data}}
}

type runnerConfig struct {
	name        string
	description string
	instruction string
	llm         model.LLM
	jsonOutput  bool
	schema      string
}

// jsonRunner runs one llmagent with a fresh session per call. Calls share
// no state beyond the session service, so they run concurrently.
type jsonRunner struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	schema         *jsonschema.Schema
}

func newRunner(cfg runnerConfig) (*jsonRunner, error) {
	var genCfg *genai.GenerateContentConfig
	if cfg.jsonOutput {
		genCfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:                  cfg.name,
		Model:                 cfg.llm,
		Description:           cfg.description,
		Instruction:           cfg.instruction,
		GenerateContentConfig: genCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s agent: %w", cfg.name, err)
	}

	appName := strings.ToLower(cfg.name)
	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s runner: %w", cfg.name, err)
	}

	jr := &jsonRunner{runner: r, sessionService: sessionService, appName: appName}
	if cfg.schema != "" {
		if jr.schema, err = compileSchema(cfg.schema); err != nil {
			return nil, err
		}
	}
	return jr, nil
}

// run sends parts as one user turn and returns the concatenated model text.
func (j *jsonRunner) run(ctx context.Context, parts ...*genai.Part) (string, error) {
	sessionID := uuid.New().String()
	userID := j.appName
	if _, err := j.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   j.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("%s: create session: %w", j.appName, err)
	}
	defer func() {
		_ = j.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   j.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	msg := &genai.Content{Role: "user", Parts: parts}
	var out strings.Builder
	for event, err := range j.runner.Run(ctx, userID, sessionID, msg, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", fmt.Errorf("%s: run failed: %w", j.appName, err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// runJSON runs and decodes the schema-validated output into out.
func (j *jsonRunner) runJSON(ctx context.Context, out any, parts ...*genai.Part) error {
	text, err := j.run(ctx, parts...)
	if err != nil {
		return err
	}
	if err := decodeValidated(j.schema, text, out); err != nil {
		return fmt.Errorf("%s: %w", j.appName, err)
	}
	return nil
}
