package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contract_workflow_backend/internal/agent"
	"contract_workflow_backend/internal/deadlines"
	"contract_workflow_backend/internal/events"
	"contract_workflow_backend/internal/inquiry"
	"contract_workflow_backend/internal/kvstore"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/vendors"
	"contract_workflow_backend/platform/logger"
)

type fakeExtractor struct {
	q   inquiry.PropertyInquiry
	doc agent.Document
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, doc agent.Document) (inquiry.PropertyInquiry, error) {
	f.doc = doc
	return f.q, nil
}

type fakeDeriver struct{ q agent.InquiryQuery }

func (f fakeDeriver) Derive(context.Context, string, string) (agent.InquiryQuery, error) {
	return f.q, nil
}

type fakeReviewer struct {
	review agent.ContractReview
	err    error
}

func (f fakeReviewer) Review(context.Context, inquiry.PropertyInquiry, agent.Document) (agent.ContractReview, error) {
	return f.review, f.err
}

type fakeAppointments struct{ at time.Time }

func (f fakeAppointments) Extract(context.Context, string, time.Time) (time.Time, error) {
	return f.at, nil
}

type inlineLoader struct{}

func (inlineLoader) Load(_ context.Context, a mailbox.Attachment) ([]byte, error) {
	if a.Content == nil {
		return nil, errors.New("no content")
	}
	return a.Content, nil
}

type fakeMatcher struct {
	rec inquiry.Record
	ok  bool
}

func (f fakeMatcher) Match(context.Context, string) (inquiry.Record, bool, error) {
	return f.rec, f.ok, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

type harness struct {
	svc       *Service
	deps      Deps
	notifier  *recordingNotifier
	deadlines *deadlines.Store
	vendors   *vendors.Directory
	inquiries *inquiry.Store
	loc       *time.Location
}

func newHarness(t *testing.T, label string, mutate func(*Deps)) *harness {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	kv := kvstore.NewMemoryStore()
	h := &harness{
		notifier:  &recordingNotifier{},
		deadlines: deadlines.NewStore(kv),
		vendors:   vendors.NewDirectory(kv),
		inquiries: inquiry.NewStore(inquiry.NewMemoryRepository(), nil, logger.Discard()),
		loc:       loc,
	}
	h.deps = Deps{
		Classifier:      &fakeClassifier{answer: label},
		Extractor:       &fakeExtractor{q: baseInquiry()},
		QueryDeriver:    fakeDeriver{q: agent.InquiryQuery{PurchaserNames: "Jane Citizen", PropertyAddress: "Fake Rise VIC 3336"}},
		Reviewer:        fakeReviewer{},
		Appointments:    fakeAppointments{at: time.Date(2025, 3, 17, 11, 30, 0, 0, loc)},
		Attachments:     inlineLoader{},
		Inquiries:       h.inquiries,
		Matcher:         fakeMatcher{rec: inquiry.Record{Inquiry: baseInquiry()}, ok: true},
		Vendors:         h.vendors,
		Deadlines:       h.deadlines,
		Notifier:        h.notifier,
		Templates:       notify.MustLoadTemplates("OneCorp"),
		InternalAddress: "internal@example.com",
		Location:        loc,
		Log:             logger.Discard(),
		Now:             func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, loc) },
	}
	if mutate != nil {
		mutate(&h.deps)
	}
	h.svc = NewService(h.deps)
	return h
}

func contractEmail() mailbox.Email {
	return mailbox.Email{
		Subject:     "Contract of Sale - Lot 95 Fake Rise VIC 3336",
		Body:        "Please find the contract attached for Jane and John Citizen.",
		Sender:      "Vendor@Builder.example",
		Attachments: []mailbox.Attachment{{Name: "contract.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}},
	}
}

func TestExtractStoresInquiryTaggedBySender(t *testing.T) {
	h := newHarness(t, "EXTRACT", nil)
	email := contractEmail()
	email.Attachments = append([]mailbox.Attachment{{Name: "cover.txt", Content: []byte("x")}},
		mailbox.Attachment{Name: "eoi.pdf", ContentType: "application/pdf", Content: []byte("%PDF-eoi")})

	out, err := h.svc.Process(context.Background(), email)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Route != RouteExtract || out.Status != StatusProcessed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := h.deps.Extractor.(*fakeExtractor).doc; got.Name != "eoi.pdf" || string(got.Data) != "%PDF-eoi" {
		t.Fatalf("extractor did not get the last attachment: %+v", got)
	}
	recs, err := h.inquiries.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].Sender != "vendor@builder.example" {
		t.Fatalf("unexpected stored inquiries %+v", recs)
	}
	if len(h.notifier.messages()) != 0 {
		t.Fatalf("extraction must not notify")
	}
}

func TestExtractWithoutAttachmentIsNoop(t *testing.T) {
	h := newHarness(t, "EXTRACT", nil)
	email := contractEmail()
	email.Attachments = nil

	out, err := h.svc.Process(context.Background(), email)
	if err != nil || out.Status != StatusSkipped {
		t.Fatalf("expected skipped outcome, got %+v, %v", out, err)
	}
	if recs, _ := h.inquiries.List(context.Background()); len(recs) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestValidContractSendsApprovalToSolicitor(t *testing.T) {
	h := newHarness(t, "VALIDATE_CONTRACT", func(d *Deps) {
		d.Reviewer = fakeReviewer{review: agent.ContractReview{Statements: map[string]string{
			"Total_Price":   "$650,000.00",
			"Finance_Terms": "Not subject to finance",
		}}}
	})

	out, err := h.svc.Process(context.Background(), contractEmail())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Notified != 1 {
		t.Fatalf("expected one notification, got %+v", out)
	}
	msg := h.notifier.messages()[0]
	if msg.To != "sam@lawyers.example" {
		t.Fatalf("approval sent to %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "Jane Citizen & John Citizen") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	vendor, err := h.vendors.Lookup(context.Background(), "Lot 95 Fake Rise VIC 3336")
	if err != nil || vendor != "vendor@builder.example" {
		t.Fatalf("vendor not recorded: %q, %v", vendor, err)
	}
}

func TestDiscrepancyGoesToSenderAndInternalAddress(t *testing.T) {
	h := newHarness(t, "VALIDATE_CONTRACT", func(d *Deps) {
		d.Reviewer = fakeReviewer{review: agent.ContractReview{
			Statements: map[string]string{"Finance_Terms": "The purchaser must obtain finance approval."},
			Conflicts:  []agent.Conflict{{Field: "Finance_Terms", Reason: "finance required"}},
		}}
	})

	out, err := h.svc.Process(context.Background(), contractEmail())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	msgs := h.notifier.messages()
	if out.Notified != 2 || len(msgs) != 2 {
		t.Fatalf("expected two notifications, got %d", len(msgs))
	}
	to := map[string]bool{}
	for _, m := range msgs {
		to[m.To] = true
		if !strings.Contains(m.Body, "- Finance_Terms: EOI Value = 'Not Subject to Finance', Contract Value = 'The purchaser must obtain finance approval.'") {
			t.Fatalf("discrepancy not itemized:\n%s", m.Body)
		}
	}
	if !to["vendor@builder.example"] || !to["internal@example.com"] {
		t.Fatalf("unexpected recipients %v", to)
	}
}

func TestValidationWithoutMatchingInquiryIsNoop(t *testing.T) {
	h := newHarness(t, "VALIDATE_CONTRACT", func(d *Deps) {
		d.Matcher = fakeMatcher{}
	})

	out, err := h.svc.Process(context.Background(), contractEmail())
	if err != nil || out.Status != StatusNoMatch {
		t.Fatalf("expected no-match outcome, got %+v, %v", out, err)
	}
	if len(h.notifier.messages()) != 0 {
		t.Fatalf("no mail expected")
	}
	if _, err := h.vendors.Lookup(context.Background(), "Lot 95 Fake Rise VIC 3336"); !errors.Is(err, vendors.ErrNotFound) {
		t.Fatalf("vendor must not be recorded, got %v", err)
	}
}

func TestReasoningFailureWritesNothing(t *testing.T) {
	h := newHarness(t, "VALIDATE_CONTRACT", func(d *Deps) {
		d.Reviewer = fakeReviewer{err: errors.New("deadline exceeded")}
	})

	if _, err := h.svc.Process(context.Background(), contractEmail()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := h.vendors.Lookup(context.Background(), "Lot 95 Fake Rise VIC 3336"); !errors.Is(err, vendors.ErrNotFound) {
		t.Fatalf("vendor written before reasoning completed: %v", err)
	}
	if len(h.notifier.messages()) != 0 {
		t.Fatalf("no mail expected")
	}
}

func TestRecordSigningDateTracksDeadlineAndRequestsRelease(t *testing.T) {
	h := newHarness(t, "RECORD_SIGNING_DATE", nil)
	ctx := context.Background()
	if err := h.vendors.Upsert(ctx, "Lot 95 Fake Rise VIC 3336", "vendor@builder.example"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	out, err := h.svc.Process(ctx, mailbox.Email{Subject: "Signing appointment", Body: "Signing is booked for Monday 17 March at 11:30am", Sender: "solicitor@example.com"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Notified != 1 {
		t.Fatalf("expected contract release request, got %+v", out)
	}
	rec, err := h.deadlines.Get(ctx, "Lot 95 Fake Rise VIC 3336")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.AppointmentDatetime != "17-03-2025 11:30" || rec.ReminderDatetime != "19-03-2025 09:00" {
		t.Fatalf("unexpected deadline %+v", rec)
	}
	msg := h.notifier.messages()[0]
	if msg.To != "vendor@builder.example" || msg.Subject != "Contract Request: Lot 95 Fake Rise VIC 3336" {
		t.Fatalf("unexpected release mail %+v", msg)
	}
}

func TestRecordSigningDateWithoutVendorKeepsDeadline(t *testing.T) {
	h := newHarness(t, "RECORD_SIGNING_DATE", nil)
	ctx := context.Background()

	out, err := h.svc.Process(ctx, mailbox.Email{Subject: "Signing appointment", Body: "17/03 at 11:30"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Notified != 0 || out.Status != StatusProcessed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if _, err := h.deadlines.Get(ctx, "Lot 95 Fake Rise VIC 3336"); err != nil {
		t.Fatalf("deadline should be kept: %v", err)
	}
}

func TestSigningStatusStopsTrackingNamedProperty(t *testing.T) {
	h := newHarness(t, "SIGNING_STATUS_UPDATE", nil)
	ctx := context.Background()
	appt := time.Date(2025, 3, 17, 11, 30, 0, 0, h.loc)
	for _, address := range []string{"44 Pineview Crescent VIC 3977", "Fake Set VIC 3336", "12 Rivergum Road NSW 2259", "Fake Rise VIC 3336"} {
		if err := h.deadlines.Put(ctx, deadlines.NewRecord(address, baseInquiry().Purchasers, appt)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	out, err := h.svc.Process(ctx, mailbox.Email{
		Subject: "Completed: Please DocuSign",
		Body:    "All parties have completed the envelope.\nDocument: Contract of Sale – Lot 95 Fake Rise VIC 3336\nThank you",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Status != StatusProcessed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	left, err := h.deadlines.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(left) != 3 {
		t.Fatalf("expected 3 tracked deadlines, got %d", len(left))
	}
	for _, rec := range left {
		if rec.PropertyAddress == "Fake Rise VIC 3336" {
			t.Fatalf("Fake Rise should no longer be tracked")
		}
	}
}

func TestOtherIsTerminalNoop(t *testing.T) {
	h := newHarness(t, "OTHER", nil)
	out, err := h.svc.Process(context.Background(), contractEmail())
	if err != nil || out.Route != RouteOther || out.Status != StatusSkipped {
		t.Fatalf("unexpected outcome %+v, %v", out, err)
	}
	if len(h.notifier.messages()) != 0 {
		t.Fatalf("no mail expected")
	}
}

type fakeNormalizer struct{ email mailbox.Email }

func (f fakeNormalizer) Normalize(_ context.Context, id string) (mailbox.Email, error) {
	e := f.email
	e.MessageID = id
	return e, nil
}

func TestNotifiedMessageRunsWorkflow(t *testing.T) {
	h := newHarness(t, "EXTRACT", nil)
	bus := events.NewInMemoryBus(logger.Discard())
	h.svc.RegisterSubscriptions(bus, fakeNormalizer{email: contractEmail()})

	processed := make(chan events.EmailProcessed, 1)
	bus.Subscribe(events.EmailProcessed{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		processed <- e.(events.EmailProcessed)
		return nil
	}))

	bus.Publish(context.Background(), events.MessageNotified{BaseEvent: events.NewBaseEvent(), MessageID: "AAMk-1"})
	bus.Wait()

	select {
	case ev := <-processed:
		if ev.MessageID != "AAMk-1" || ev.Route != "EXTRACT" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("workflow did not run")
	}
	if recs, _ := h.inquiries.List(context.Background()); len(recs) != 1 {
		t.Fatalf("expected stored inquiry, got %d", len(recs))
	}
}
