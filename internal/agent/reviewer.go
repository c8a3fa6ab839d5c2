package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"contract_workflow_backend/internal/inquiry"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Conflict is a field the reasoning service judged inconsistent with the
// inquiry, including implied conflicts.
type Conflict struct {
	Field         string `json:"field"`
	ContractValue string `json:"contract_value"`
	Reason        string `json:"reason"`
}

// ContractReview is the reasoning service's reading of a contract:
// the explicit statement per inquiry field and the conflicts it flagged.
type ContractReview struct {
	Statements map[string]string `json:"statements"`
	Conflicts  []Conflict        `json:"conflicts"`
}

// ContractReviewer reads a Contract of Sale against an inquiry.
type ContractReviewer struct {
	run *jsonRunner
}

// NewContractReviewer creates the review agent.
func NewContractReviewer(llm model.LLM) (*ContractReviewer, error) {
	r, err := newRunner(runnerConfig{
		name:        "ContractReviewer",
		description: "Extracts explicit contract statements and flags conflicts with the EOI.",
		instruction: reviewerInstruction,
		llm:         llm,
		jsonOutput:  true,
		schema:      "contract_review.json",
	})
	if err != nil {
		return nil, err
	}
	return &ContractReviewer{run: r}, nil
}

// Review reads doc against q.
func (r *ContractReviewer) Review(ctx context.Context, q inquiry.PropertyInquiry, doc Document) (ContractReview, error) {
	eoi, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return ContractReview{}, fmt.Errorf("marshal inquiry: %w", err)
	}
	var review ContractReview
	err = r.run.runJSON(ctx, &review,
		&genai.Part{Text: "Expression of Interest (authoritative values):\n" + string(eoi)},
		doc.part(),
	)
	return review, err
}

const reviewerInstruction = `You compare a Contract of Sale with the buyer's Expression of Interest (EOI).
Return JSON {"statements": {...}, "conflicts": [...]}.

statements: for each EOI field name (Purchaser, Residential_Address, Lot_Number,
Property_Address, Project_Name, Total_Price, Land_Price, Build_Price, Finance_Terms,
Solicitor_Name, Solicitor_Email, Finance_Provider) that the contract explicitly states,
the contract's value as written. Omit fields the contract does not mention.
For Purchaser use "First Last <email>" entries joined by "; ".

conflicts: fields whose contract statement contradicts the EOI, including implied
contradictions, e.g. EOI Finance_Terms "Not Subject to Finance" while a clause makes
the purchaser responsible for obtaining finance approval.
Each item: {"field", "contract_value", "reason"}.
Never list a field the contract does not state. Never list a field whose EOI value is empty.`
