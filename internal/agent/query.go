package agent

import (
	"context"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// InquiryQuery identifies the inquiry an email refers to.
type InquiryQuery struct {
	PurchaserNames  string `json:"purchaser_names"`
	PropertyAddress string `json:"property_address"`
}

// String renders the query in the form the matchers index.
func (q InquiryQuery) String() string {
	return "Purchaser(s) Name: " + strings.TrimSpace(q.PurchaserNames) +
		"\nProperty Address: " + strings.TrimSpace(q.PropertyAddress)
}

// QueryDeriver pulls purchaser names and property address out of an email.
type QueryDeriver struct {
	run *jsonRunner
}

// NewQueryDeriver creates the query agent.
func NewQueryDeriver(llm model.LLM) (*QueryDeriver, error) {
	r, err := newRunner(runnerConfig{
		name:        "QueryDeriver",
		description: "Derives purchaser names and property address from an email.",
		instruction: queryInstruction,
		llm:         llm,
		jsonOutput:  true,
		schema:      "inquiry_query.json",
	})
	if err != nil {
		return nil, err
	}
	return &QueryDeriver{run: r}, nil
}

// Derive returns the query for subject and body.
func (d *QueryDeriver) Derive(ctx context.Context, subject, body string) (InquiryQuery, error) {
	var q InquiryQuery
	err := d.run.runJSON(ctx, &q, &genai.Part{Text: "Subject: " + subject + "\n\n" + body})
	return q, err
}

const queryInstruction = `Extract the purchaser(s) full name(s) and the property address from the
email regarding a Contract of Sale. Return JSON:
{"purchaser_names": "<Full Name(s)>", "property_address": "<Full Address>"}
Use "" for anything the email does not state.`
