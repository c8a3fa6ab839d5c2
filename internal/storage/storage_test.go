package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	key, err := s.Put(context.Background(), "messages/AAMk", "contract.pdf", "application/pdf", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(key, "messages/AAMk/contract_") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	got, err := s.Get(context.Background(), key)
	if err != nil || !bytes.Equal(got, []byte("%PDF-1.7")) {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestObjectKeyStripsPathComponents(t *testing.T) {
	key := objectKey("messages/1", `..\..\evil.pdf`)
	if !strings.HasPrefix(key, "messages/1/evil_") {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateContentType("application/pdf; name=x.pdf"); err != nil {
		t.Fatalf("pdf rejected: %v", err)
	}
	if err := ValidateContentType("application/x-msdownload"); err == nil {
		t.Fatalf("expected executable rejected")
	}
	if err := ValidateFileSize(10, 5); err == nil {
		t.Fatalf("expected size limit enforced")
	}
	if err := ValidateFileSize(10, 0); err != nil {
		t.Fatalf("expected zero max to disable limit: %v", err)
	}
}
