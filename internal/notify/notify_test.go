package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestRenderDiscrepancyItemizesMismatches(t *testing.T) {
	tpl := MustLoadTemplates("OneCorp")
	msg, err := tpl.Render(TemplateDiscrepancy, "vendor@example.com", DiscrepancyData{
		Purchasers: "Jane Citizen & John Citizen",
		Address:    "Lot 95 Fake Rise VIC 3336",
		Mismatches: []MismatchLine{
			{Field: "Finance_Terms", InquiryValue: "Not Subject to Finance", ContractValue: "Subject to finance approval"},
			{Field: "Total_Price", InquiryValue: "550000", ContractValue: "565000"},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.Subject != "Contract of Sale Discrepancies for Jane Citizen & John Citizen - Lot 95 Fake Rise VIC 3336" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	want := "- Finance_Terms: EOI Value = 'Not Subject to Finance', Contract Value = 'Subject to finance approval'"
	if !strings.Contains(msg.Body, want) {
		t.Fatalf("body missing itemized line:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "- Total_Price: EOI Value = '550000'") {
		t.Fatalf("body missing second line:\n%s", msg.Body)
	}
}

func TestRenderSLAAlert(t *testing.T) {
	tpl := MustLoadTemplates("OneCorp")
	msg, err := tpl.Render(TemplateSLAAlert, "ops@example.com", SLAAlertData{
		Purchasers:   "Jane Citizen, John Citizen",
		Address:      "Fake Rise VIC 3336",
		Appointment:  "17-03-2025 11:30",
		Reminder:     "19-03-2025 09:00",
		ReminderDate: "19-03-2025",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.Subject != "SLA Alert: Contract Not Signed by 19-03-2025 for Jane Citizen, John Citizen - Fake Rise VIC 3336" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "- Signing Appointment: 17-03-2025 11:30") {
		t.Fatalf("unexpected body:\n%s", msg.Body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := MustLoadTemplates("x").Render("nope", "a@b.c", nil); err == nil {
		t.Fatalf("expected unknown template error")
	}
}

func TestSendAllDeliversEveryMessage(t *testing.T) {
	rec := &recordingSender{}
	err := SendAll(context.Background(), rec,
		Message{To: "a@example.com", Subject: "s"},
		Message{To: "b@example.com", Subject: "s"},
	)
	if err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if len(rec.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rec.sent))
	}

	failing := &recordingSender{err: errors.New("smtp down")}
	if err := SendAll(context.Background(), failing, Message{To: "a@example.com", Subject: "s"}); err == nil {
		t.Fatalf("expected error to surface")
	}
}

type mailSenderFunc func(ctx context.Context, to string, cc []string, subject, htmlBody string) error

func (f mailSenderFunc) SendMail(ctx context.Context, to string, cc []string, subject, htmlBody string) error {
	return f(ctx, to, cc, subject, htmlBody)
}

func TestGraphNotifierConvertsLineBreaks(t *testing.T) {
	var gotBody string
	var gotCC []string
	n := NewGraphNotifier(mailSenderFunc(func(_ context.Context, _ string, cc []string, _ string, htmlBody string) error {
		gotBody, gotCC = htmlBody, cc
		return nil
	}))
	err := n.Send(context.Background(), Message{To: "a@example.com", CC: []string{"c@example.com"}, Subject: "s", Body: "line1\nline2"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotBody != "line1<br>line2" || len(gotCC) != 1 {
		t.Fatalf("unexpected body %q cc %v", gotBody, gotCC)
	}
	if err := n.Send(context.Background(), Message{Subject: "s"}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestWithTimeoutBoundsSend(t *testing.T) {
	slow := mailSenderFunc(func(ctx context.Context, _ string, _ []string, _ string, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	n := WithTimeout(NewGraphNotifier(slow), 10*time.Millisecond)
	if err := n.Send(context.Background(), Message{To: "a@example.com", Subject: "s"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
