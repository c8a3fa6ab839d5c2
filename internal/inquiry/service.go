package inquiry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contract_workflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Indexer is notified of every stored inquiry. VectorMatcher implements it.
type Indexer interface {
	Index(ctx context.Context, rec Record) error
}

// Store saves inquiries and keeps the search index current.
type Store struct {
	repo    Repository
	indexer Indexer
	log     *logger.Logger
	now     func() time.Time
}

// NewStore creates an inquiry store. indexer may be nil.
func NewStore(repo Repository, indexer Indexer, log *logger.Logger) *Store {
	return &Store{repo: repo, indexer: indexer, log: log, now: time.Now}
}

// Save normalizes and persists q tagged by sender. An indexing failure is
// logged; the record stays reachable through the token matcher.
func (s *Store) Save(ctx context.Context, sender string, q PropertyInquiry) (Record, error) {
	rec := Record{
		ID:        uuid.New(),
		Sender:    strings.ToLower(strings.TrimSpace(sender)),
		Inquiry:   q.Normalized(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save inquiry: %w", err)
	}
	if s.indexer != nil {
		if err := s.indexer.Index(ctx, rec); err != nil {
			s.log.WithContext(ctx).Warn("inquiry indexing failed", "inquiry_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// List returns every stored inquiry, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.repo.List(ctx)
}
