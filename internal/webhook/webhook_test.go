package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contract_workflow_backend/internal/dedup"
	"contract_workflow_backend/internal/events"
	apphttp "contract_workflow_backend/internal/http"
	"contract_workflow_backend/internal/http/router"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/workflow"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type stubConfig struct {
	clientState string
	url         string
}

func (s stubConfig) GetHTTPAddr() string                    { return ":0" }
func (s stubConfig) GetInternalAPISecret() string           { return "" }
func (s stubConfig) GetSubscriptionNotificationURL() string { return s.url }
func (s stubConfig) GetSubscriptionClientState() string     { return s.clientState }

type stubProcessor struct {
	mu  sync.Mutex
	got []mailbox.Email
}

func (p *stubProcessor) Process(_ context.Context, email mailbox.Email) (workflow.Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, email)
	return workflow.Outcome{Route: workflow.RouteExtract, Status: workflow.StatusProcessed, Detail: "stored"}, nil
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *captureNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type stubSubscriber struct{ url, state string }

func (s *stubSubscriber) CreateSubscription(_ context.Context, url, state string) (mailbox.Subscription, error) {
	s.url, s.state = url, state
	return mailbox.Subscription{ID: "sub-1", NotificationURL: url, ClientState: state}, nil
}

type testServer struct {
	engine     *gin.Engine
	bus        *events.InMemoryBus
	attempts   *atomic.Int32
	processor  *stubProcessor
	notifier   *captureNotifier
	subscriber *stubSubscriber
}

func newTestServer(t *testing.T, cfg stubConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()
	bus := events.NewInMemoryBus(log)
	attempts := &atomic.Int32{}
	bus.Subscribe(events.MessageNotified{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		attempts.Add(1)
		return nil
	}))

	ts := &testServer{bus: bus, attempts: attempts, processor: &stubProcessor{}, notifier: &captureNotifier{}, subscriber: &stubSubscriber{}}
	svc := NewService(dedup.NewMemoryCache(1000, 10*time.Minute), bus, ts.processor, ts.notifier, ts.subscriber, cfg, log)
	ts.engine = router.New(&apphttp.App{
		Config:  cfg,
		Logger:  log,
		Modules: []apphttp.Module{NewModule(svc, validator.New(), log)},
	})
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func notification(state string, ids ...string) Notification {
	n := Notification{}
	for _, id := range ids {
		n.Value = append(n.Value, ChangeNotification{
			SubscriptionID: "sub-1",
			ClientState:    state,
			ChangeType:     "created",
			ResourceData:   ResourceData{ID: id},
		})
	}
	return n
}

func TestValidationTokenIsEchoed(t *testing.T) {
	ts := newTestServer(t, stubConfig{})

	rec := ts.do(http.MethodPost, "/webhook?validationToken=abc%20123", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "abc 123" {
		t.Fatalf("unexpected query echo %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}

	rec = ts.do(http.MethodPost, "/webhook", map[string]string{"validationToken": "from-body"})
	if rec.Code != http.StatusOK || rec.Body.String() != "from-body" {
		t.Fatalf("unexpected body echo %d %q", rec.Code, rec.Body.String())
	}
}

func TestDuplicateDeliveryIsProcessedOnce(t *testing.T) {
	ts := newTestServer(t, stubConfig{clientState: "secret"})

	for i := 0; i < 3; i++ {
		rec := ts.do(http.MethodPost, "/webhook", notification("secret", "AAMk-1"))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("delivery %d: expected 202, got %d", i, rec.Code)
		}
	}
	ts.bus.Wait()
	if got := ts.attempts.Load(); got != 1 {
		t.Fatalf("expected one processing attempt, got %d", got)
	}
}

func TestConcurrentDuplicatesAreProcessedOnce(t *testing.T) {
	ts := newTestServer(t, stubConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts.do(http.MethodPost, "/webhook", notification("", "AAMk-1", "AAMk-2"))
		}()
	}
	wg.Wait()
	ts.bus.Wait()
	if got := ts.attempts.Load(); got != 2 {
		t.Fatalf("expected two processing attempts, got %d", got)
	}
}

func TestWrongClientStateIsAcknowledgedButDropped(t *testing.T) {
	ts := newTestServer(t, stubConfig{clientState: "secret"})

	rec := ts.do(http.MethodPost, "/webhook", notification("forged", "AAMk-1"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	ts.bus.Wait()
	if got := ts.attempts.Load(); got != 0 {
		t.Fatalf("forged notification dispatched")
	}
}

func TestMalformedPayloadIsAcknowledged(t *testing.T) {
	ts := newTestServer(t, stubConfig{})

	for _, body := range []string{"{not json", `{"value": [{"resourceData": {}}]}`, ""} {
		rec := ts.do(http.MethodPost, "/webhook", body)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("body %q: expected 202, got %d", body, rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["status"] != "ok" {
			t.Fatalf("body %q: unexpected response %s", body, rec.Body.String())
		}
	}
	ts.bus.Wait()
	if ts.attempts.Load() != 0 {
		t.Fatalf("nothing should be dispatched")
	}
}

func TestIncomingEmailRunsWorkflow(t *testing.T) {
	ts := newTestServer(t, stubConfig{})

	rec := ts.do(http.MethodPost, "/api/v1/incoming-email", map[string]any{
		"subject":    "EOI - Lot 95 Fake Rise",
		"body":       "Attached",
		"from_email": "agent@example.com",
		"attachments": []map[string]any{
			{"name": "eoi.pdf", "content_type": "application/pdf", "content": []byte("%PDF")},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp IncomingEmailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Route != "EXTRACT" {
		t.Fatalf("unexpected route %q", resp.Route)
	}
	got := ts.processor.got[0]
	if len(got.Attachments) != 1 || string(got.Attachments[0].Content) != "%PDF" {
		t.Fatalf("attachment not passed through: %+v", got.Attachments)
	}

	rec = ts.do(http.MethodPost, "/api/v1/incoming-email", map[string]any{"subject": "x", "from_email": "not-an-email"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid sender, got %d", rec.Code)
	}
}

func TestSendEmailWithCC(t *testing.T) {
	ts := newTestServer(t, stubConfig{})

	rec := ts.do(http.MethodPost, "/api/v1/send-email", map[string]any{
		"recipient": "vendor@example.com",
		"cc":        []string{"ops@example.com"},
		"subject":   "Contract Request",
		"body":      "Line one\nLine two",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	msg := ts.notifier.sent[0]
	if msg.To != "vendor@example.com" || len(msg.CC) != 1 || msg.CC[0] != "ops@example.com" {
		t.Fatalf("unexpected message %+v", msg)
	}

	rec = ts.do(http.MethodPost, "/api/v1/send-email", map[string]any{"recipient": "vendor@example.com", "subject": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank subject, got %d", rec.Code)
	}
}

func TestSubscribeUsesConfiguredClientState(t *testing.T) {
	ts := newTestServer(t, stubConfig{clientState: "secret", url: "https://hooks.example.com/webhook"})

	rec := ts.do(http.MethodGet, "/api/v1/subscribe", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ts.subscriber.url != "https://hooks.example.com/webhook" || ts.subscriber.state != "secret" {
		t.Fatalf("unexpected subscription request %+v", ts.subscriber)
	}

	ts = newTestServer(t, stubConfig{})
	if rec := ts.do(http.MethodGet, "/api/v1/subscribe", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without notification url, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, stubConfig{})
	if rec := ts.do(http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
