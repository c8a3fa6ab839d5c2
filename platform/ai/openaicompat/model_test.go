package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestGenerateSendsSystemFileAndJSONFormat(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"route\":\"OTHER\"}"}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "key", BaseURL: srv.URL + "/v1/", Model: "test-model"})
	req := &model.LLMRequest{
		Contents: []*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "classify this"},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: []byte("%PDF-1.4")}},
			},
		}},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: "be strict"}}},
			ResponseMIMEType:  "application/json",
		},
	}

	var got *model.LLMResponse
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("GenerateContent: %v", err)
		}
		got = resp
	}
	if got == nil || len(got.Content.Parts) != 1 || got.Content.Parts[0].Text != `{"route":"OTHER"}` {
		t.Fatalf("unexpected response %+v", got)
	}

	messages := payload["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(messages))
	}
	if messages[0].(map[string]interface{})["role"] != "system" {
		t.Fatalf("expected system message first")
	}
	userParts := messages[1].(map[string]interface{})["content"].([]interface{})
	if len(userParts) != 2 || userParts[1].(map[string]interface{})["type"] != "file" {
		t.Fatalf("expected text + file parts, got %v", userParts)
	}
	if payload["response_format"] == nil {
		t.Fatalf("expected json response format")
	}
}

func TestGenerateSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	m := NewModel(Config{BaseURL: srv.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		if err == nil {
			t.Fatalf("expected error")
		}
	}
}
