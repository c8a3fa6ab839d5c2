package agent

import (
	"context"

	"contract_workflow_backend/internal/inquiry"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// InquiryExtractor reads an EOI document into a PropertyInquiry.
type InquiryExtractor struct {
	run *jsonRunner
}

// NewInquiryExtractor creates the extraction agent.
func NewInquiryExtractor(llm model.LLM) (*InquiryExtractor, error) {
	r, err := newRunner(runnerConfig{
		name:        "InquiryExtractor",
		description: "Extracts the structured Expression of Interest from an EOI document.",
		instruction: extractorInstruction,
		llm:         llm,
		jsonOutput:  true,
		schema:      "property_inquiry.json",
	})
	if err != nil {
		return nil, err
	}
	return &InquiryExtractor{run: r}, nil
}

// Extract returns the inquiry described by doc and the accompanying body.
func (e *InquiryExtractor) Extract(ctx context.Context, body string, doc Document) (inquiry.PropertyInquiry, error) {
	var q inquiry.PropertyInquiry
	err := e.run.runJSON(ctx, &q,
		&genai.Part{Text: "Email body:\n" + body},
		doc.part(),
	)
	return q, err
}

const extractorInstruction = `Extract the Expression of Interest from the attached document.
Return one JSON object with exactly these keys:
Purchaser (array of {First_Name, Last_Name, Purchaser_Email, Purchaser_Mobile}),
Residential_Address, Lot_Number, Property_Address, Project_Name, Total_Price,
Land_Price, Build_Price, Finance_Terms, Solicitor_Name, Solicitor_Email,
Finance_Provider.
Use "" for values the document does not state, except Finance_Provider which is null when absent.
Copy values as written; do not invent data.`
