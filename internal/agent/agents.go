package agent

import (
	"fmt"

	"contract_workflow_backend/platform/ai/openaicompat"
	"contract_workflow_backend/platform/config"

	"google.golang.org/adk/model"
)

// Agents bundles every reasoning agent used by the workflow.
type Agents struct {
	Classifier   *Classifier
	Extractor    *InquiryExtractor
	QueryDeriver *QueryDeriver
	Reviewer     *ContractReviewer
	Appointments *AppointmentExtractor
}

// New builds the agents on the configured chat endpoint. Routing and query
// derivation use the lighter router model.
func New(cfg config.ReasoningConfig) (*Agents, error) {
	if cfg.GetLLMAPIKey() == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	low := 0.2
	main := openaicompat.NewModel(openaicompat.Config{
		APIKey:  cfg.GetLLMAPIKey(),
		BaseURL: cfg.GetLLMBaseURL(),
		Model:   cfg.GetLLMModel(),
		Timeout: cfg.GetReasoningTimeout(),
	})
	router := openaicompat.NewModel(openaicompat.Config{
		APIKey:      cfg.GetLLMAPIKey(),
		BaseURL:     cfg.GetLLMBaseURL(),
		Model:       cfg.GetLLMRouterModel(),
		Temperature: &low,
		Timeout:     cfg.GetReasoningTimeout(),
	})
	return NewWithModels(main, router)
}

// NewWithModels builds the agents on explicit models.
func NewWithModels(main, router model.LLM) (*Agents, error) {
	var (
		a   Agents
		err error
	)
	if a.Classifier, err = NewClassifier(router); err != nil {
		return nil, err
	}
	if a.QueryDeriver, err = NewQueryDeriver(router); err != nil {
		return nil, err
	}
	if a.Extractor, err = NewInquiryExtractor(main); err != nil {
		return nil, err
	}
	if a.Reviewer, err = NewContractReviewer(main); err != nil {
		return nil, err
	}
	if a.Appointments, err = NewAppointmentExtractor(main); err != nil {
		return nil, err
	}
	return &a, nil
}
