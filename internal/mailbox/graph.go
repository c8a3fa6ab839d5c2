package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contract_workflow_backend/platform/logger"

	"github.com/sony/gobreaker"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	// SubscriptionLifetime is close to the longest lifetime Graph accepts
	// for message subscriptions.
	SubscriptionLifetime = 4210 * time.Minute
	inboxResource        = "me/mailFolders('inbox')/messages"
)

// GraphError is a non-2xx Graph response.
type GraphError struct {
	Status int
	Body   string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph returned %d: %s", e.Status, e.Body)
}

// Client calls the Graph mail API as the mailbox owner. Every call goes
// through the credential manager and a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Manager
	cb      *gobreaker.CircuitBreaker
	log     *logger.Logger
	now     func() time.Time
}

// NewClient creates a Graph client. An empty baseURL uses the public endpoint.
func NewClient(baseURL string, creds *Manager, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	settings := gobreaker.Settings{
		Name:        "graph-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		creds:   creds,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
		now:     time.Now,
	}
}

// BreakerState returns the circuit breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Message is the subset of a Graph message the workflow reads.
type Message struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	Body             itemBody    `json:"body"`
	From             recipient   `json:"from"`
	ToRecipients     []recipient `json:"toRecipients"`
	ReceivedDateTime time.Time   `json:"receivedDateTime"`
	HasAttachments   bool        `json:"hasAttachments"`
}

// FileAttachment is a Graph attachment with its decoded bytes.
type FileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	ContentBytes []byte `json:"contentBytes"`
}

// Subscription is a Graph change notification subscription.
type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	Resource           string    `json:"resource"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	ClientState        string    `json:"clientState,omitempty"`
}

// GetMessage fetches one message.
func (c *Client) GetMessage(ctx context.Context, id string) (Message, error) {
	var msg Message
	err := c.do(ctx, http.MethodGet, "/me/messages/"+url.PathEscape(id), nil, &msg)
	return msg, err
}

// ListAttachments fetches a message's attachments including content bytes.
func (c *Client) ListAttachments(ctx context.Context, id string) ([]FileAttachment, error) {
	var resp struct {
		Value []FileAttachment `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/messages/"+url.PathEscape(id)+"/attachments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// SendMail sends an HTML mail from the mailbox and keeps a copy in Sent Items.
func (c *Client) SendMail(ctx context.Context, to string, cc []string, subject, htmlBody string) error {
	type message struct {
		Subject      string      `json:"subject"`
		Body         itemBody    `json:"body"`
		ToRecipients []recipient `json:"toRecipients"`
		CCRecipients []recipient `json:"ccRecipients,omitempty"`
	}
	payload := struct {
		Message         message `json:"message"`
		SaveToSentItems bool    `json:"saveToSentItems"`
	}{
		Message: message{
			Subject:      subject,
			Body:         itemBody{ContentType: "HTML", Content: htmlBody},
			ToRecipients: []recipient{{EmailAddress: emailAddress{Address: to}}},
		},
		SaveToSentItems: true,
	}
	for _, addr := range cc {
		if addr = strings.TrimSpace(addr); addr != "" {
			payload.Message.CCRecipients = append(payload.Message.CCRecipients, recipient{EmailAddress: emailAddress{Address: addr}})
		}
	}
	return c.do(ctx, http.MethodPost, "/me/sendMail", payload, nil)
}

// CreateSubscription subscribes notificationURL to messages created in the inbox.
func (c *Client) CreateSubscription(ctx context.Context, notificationURL, clientState string) (Subscription, error) {
	if notificationURL == "" {
		return Subscription{}, errors.New("subscription notification url is not configured")
	}
	req := Subscription{
		ChangeType:         "created",
		NotificationURL:    notificationURL,
		Resource:           inboxResource,
		ExpirationDateTime: c.now().UTC().Add(SubscriptionLifetime).Truncate(time.Second),
		ClientState:        clientState,
	}
	var created Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", req, &created); err != nil {
		return Subscription{}, err
	}
	return created, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal graph request: %w", err)
		}
	}

	return c.creds.AuthorizedCall(ctx, func(ctx context.Context, token string) error {
		return c.withBreaker(path, func() error {
			var body io.Reader
			if payload != nil {
				body = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("graph %s %s: %w", method, path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized {
				return ErrUnauthorized
			}
			if resp.StatusCode >= 300 {
				raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return &GraphError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
			}
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode graph response: %w", err)
			}
			return nil
		})
	})
}

// withBreaker runs fn under the circuit breaker. Client errors (auth,
// not found, bad request) pass through without counting as failures.
func (c *Client) withBreaker(operation string, fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		err := fn()
		if err == nil {
			return nil, nil
		}
		if isClientError(err) {
			return nil, &nonCircuitError{err: err}
		}
		return nil, err
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	if err != nil {
		c.log.Warn("graph call failed", "operation", operation, "breaker", c.cb.State().String(), "error", err)
	}
	return err
}

func isClientError(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Status >= 400 && ge.Status < 500 && ge.Status != http.StatusTooManyRequests
	}
	return false
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}
