package agent

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"contract_workflow_backend/internal/inquiry"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// scriptedLLM answers every request with reply and records the last request.
type scriptedLLM struct {
	mu    sync.Mutex
	reply string
	last  *model.LLMRequest
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	s.mu.Lock()
	s.last = req
	reply := s.reply
	s.mu.Unlock()
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(&model.LLMResponse{Content: genai.NewContentFromText(reply, genai.RoleModel)}, nil)
	}
}

func TestClassifierReturnsRawLabel(t *testing.T) {
	llm := &scriptedLLM{reply: "  VALIDATE_CONTRACT \n"}
	c, err := NewClassifier(llm)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	got, err := c.Classify(context.Background(), ClassifyInput{Subject: "Contract of Sale", AttachmentNames: []string{"contract.pdf"}})
	if err != nil || got != "VALIDATE_CONTRACT" {
		t.Fatalf("Classify = %q, %v", got, err)
	}
}

const validInquiry = "```json\n" + `{
  "Purchaser": [{"First_Name": "Jane", "Last_Name": "Citizen", "Purchaser_Email": "jane@example.com", "Purchaser_Mobile": "0412 345 678"}],
  "Residential_Address": "1 Home St VIC 3000", "Lot_Number": "95", "Property_Address": "Lot 95 Fake Rise VIC 3336",
  "Project_Name": "Fake Estate", "Total_Price": "$550,000", "Land_Price": "", "Build_Price": "",
  "Finance_Terms": "Not Subject to Finance", "Solicitor_Name": "Sam", "Solicitor_Email": "sam@law.example",
  "Finance_Provider": null
}` + "\n```"

func TestInquiryExtractorValidatesAndDecodes(t *testing.T) {
	llm := &scriptedLLM{reply: validInquiry}
	e, err := NewInquiryExtractor(llm)
	if err != nil {
		t.Fatalf("NewInquiryExtractor: %v", err)
	}
	q, err := e.Extract(context.Background(), "Please find the signed EOI attached.", Document{Name: "eoi.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if q.PropertyAddress != "Lot 95 Fake Rise VIC 3336" || len(q.Purchasers) != 1 || q.FinanceProvider != nil {
		t.Fatalf("unexpected inquiry %+v", q)
	}

	var sawPDF bool
	for _, c := range llm.last.Contents {
		for _, p := range c.Parts {
			if p.InlineData != nil && p.InlineData.MIMEType == "application/pdf" {
				sawPDF = true
			}
		}
	}
	if !sawPDF {
		t.Fatalf("expected the document to be sent inline")
	}
	if llm.last.Config == nil || llm.last.Config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response mode")
	}
}

func TestInquiryExtractorRejectsSchemaViolations(t *testing.T) {
	llm := &scriptedLLM{reply: `{"Purchaser": [], "Property_Address": ""}`}
	e, err := NewInquiryExtractor(llm)
	if err != nil {
		t.Fatalf("NewInquiryExtractor: %v", err)
	}
	_, err = e.Extract(context.Background(), "", Document{Data: []byte("x")})
	if !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("expected ErrInvalidOutput, got %v", err)
	}

	llm.reply = "I could not read the document."
	if _, err := e.Extract(context.Background(), "", Document{Data: []byte("x")}); !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("expected ErrInvalidOutput for prose, got %v", err)
	}
}

func TestContractReviewerDecodesStatements(t *testing.T) {
	llm := &scriptedLLM{reply: `{"statements": {"Finance_Terms": "Subject to finance approval within 21 days"},
		"conflicts": [{"field": "Finance_Terms", "contract_value": "Subject to finance approval within 21 days", "reason": "finance clause"}]}`}
	r, err := NewContractReviewer(llm)
	if err != nil {
		t.Fatalf("NewContractReviewer: %v", err)
	}
	review, err := r.Review(context.Background(), sampleForReview(), Document{Name: "contract.txt", MIMEType: "text/plain", Data: []byte("clause 12")})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Statements["Finance_Terms"] == "" || len(review.Conflicts) != 1 || review.Conflicts[0].Field != "Finance_Terms" {
		t.Fatalf("unexpected review %+v", review)
	}
}

func TestAppointmentDefaultsToNine(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	llm := &scriptedLLM{reply: `{"appointment_date": "20-03-2025", "appointment_time": null}`}
	a, err := NewAppointmentExtractor(llm)
	if err != nil {
		t.Fatalf("NewAppointmentExtractor: %v", err)
	}
	now := time.Date(2025, 3, 17, 10, 0, 0, 0, loc)
	got, err := a.Extract(context.Background(), "Signing is on Thursday.", now)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := time.Date(2025, 3, 20, 9, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("appointment = %s, want %s", got, want)
	}

	llm.reply = `{"appointment_date": "17/03/2025"}`
	if _, err := a.Extract(context.Background(), "x", now); !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("expected ErrInvalidOutput for bad date, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```":     `{"a":1}`,
		"Here you go: {\"a\":1} bye": `{"a":1}`,
		"{\"a\":{\"b\":2}}":          `{"a":{"b":2}}`,
	}
	for in, want := range tests {
		if got := extractJSON(in); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQueryString(t *testing.T) {
	q := InquiryQuery{PurchaserNames: " Jane Citizen ", PropertyAddress: "Lot 95 Fake Rise VIC 3336"}
	if !strings.HasPrefix(q.String(), "Purchaser(s) Name: Jane Citizen\nProperty Address: Lot 95") {
		t.Fatalf("unexpected query %q", q.String())
	}
}

func sampleForReview() inquiry.PropertyInquiry {
	return inquiry.PropertyInquiry{PropertyAddress: "Lot 95 Fake Rise VIC 3336", FinanceTerms: "Not Subject to Finance"}
}

// gatedLLM answers only once want requests are in flight together.
type gatedLLM struct {
	want    int
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	count   int
}

func newGatedLLM(want int) *gatedLLM {
	return &gatedLLM{want: want, release: make(chan struct{})}
}

func (g *gatedLLM) Name() string { return "gated" }

func (g *gatedLLM) GenerateContent(ctx context.Context, _ *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		g.mu.Lock()
		g.count++
		if g.count == g.want {
			g.once.Do(func() { close(g.release) })
		}
		g.mu.Unlock()

		select {
		case <-g.release:
			yield(&model.LLMResponse{Content: genai.NewContentFromText("EXTRACT", genai.RoleModel)}, nil)
		case <-ctx.Done():
			yield(nil, ctx.Err())
		}
	}
}

func TestClassifierCallsRunConcurrently(t *testing.T) {
	const callers = 5
	c, err := NewClassifier(newGatedLLM(callers))
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := c.Classify(ctx, ClassifyInput{Subject: "EOI"})
			errs <- err
		}()
	}
	for i := 0; i < callers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Classify under concurrent load: %v", err)
		}
	}
}
