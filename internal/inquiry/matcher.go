package inquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contract_workflow_backend/internal/property"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/qdrant"

	"github.com/google/uuid"
)

// Matcher finds the inquiry a short query (purchaser names + property
// address) refers to. ok is false when there is no single clear candidate.
type Matcher interface {
	Match(ctx context.Context, query string) (rec Record, ok bool, err error)
}

// TokenOverlapMatcher scores each stored inquiry by the share of its
// identifying tokens (purchaser names, lot and property address) present in
// the query. The best score wins if it clears the threshold and is unique.
type TokenOverlapMatcher struct {
	repo      Repository
	threshold float64
}

// NewTokenOverlapMatcher creates a deterministic matcher. threshold is in (0, 1].
func NewTokenOverlapMatcher(repo Repository, threshold float64) *TokenOverlapMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	return &TokenOverlapMatcher{repo: repo, threshold: threshold}
}

func (m *TokenOverlapMatcher) Match(ctx context.Context, query string) (Record, bool, error) {
	records, err := m.repo.List(ctx)
	if err != nil {
		return Record{}, false, fmt.Errorf("list inquiries: %w", err)
	}
	queryTokens := property.Tokens(query)
	if len(queryTokens) == 0 {
		return Record{}, false, nil
	}

	var best Record
	bestScore, tied := 0.0, false
	for _, rec := range records {
		score := overlap(queryTokens, identifyingTokens(rec.Inquiry))
		switch {
		case score > bestScore:
			best, bestScore, tied = rec, score, false
		case score == bestScore && score > 0:
			if property.Key(rec.Inquiry.PropertyAddress) != property.Key(best.Inquiry.PropertyAddress) {
				tied = true
			}
		}
	}
	if bestScore < m.threshold || tied {
		return Record{}, false, nil
	}
	return best, true, nil
}

func identifyingTokens(q PropertyInquiry) map[string]struct{} {
	var b strings.Builder
	for _, p := range q.Purchasers {
		b.WriteString(p.FullName())
		b.WriteByte(' ')
	}
	b.WriteString(q.PropertyAddress)
	return property.Tokens(b.String())
}

func overlap(query, candidate map[string]struct{}) float64 {
	if len(candidate) == 0 {
		return 0
	}
	hits := 0
	for t := range candidate {
		if _, ok := query[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(candidate))
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the subset of the Qdrant client used for inquiry search.
type VectorIndex interface {
	Upsert(ctx context.Context, points []qdrant.Point) error
	Search(ctx context.Context, vector []float32, limit int, filter *qdrant.Filter) ([]qdrant.SearchResult, error)
}

// VectorMatcher indexes inquiries as embeddings and matches queries by
// cosine similarity. A runner-up for a different property within margin of
// the best hit makes the result ambiguous.
type VectorMatcher struct {
	embedder Embedder
	index    VectorIndex
	repo     Repository
	minScore float64
	margin   float64
}

// NewVectorMatcher creates a semantic matcher.
func NewVectorMatcher(embedder Embedder, index VectorIndex, repo Repository, minScore float64) *VectorMatcher {
	if minScore <= 0 {
		minScore = 0.5
	}
	return &VectorMatcher{embedder: embedder, index: index, repo: repo, minScore: minScore, margin: 0.02}
}

// Index stores rec's embedding. The payload carries the sender tag.
func (m *VectorMatcher) Index(ctx context.Context, rec Record) error {
	vec, err := m.embedder.Embed(ctx, documentText(rec.Inquiry))
	if err != nil {
		return fmt.Errorf("embed inquiry: %w", err)
	}
	return m.index.Upsert(ctx, []qdrant.Point{{
		ID:     rec.ID.String(),
		Vector: vec,
		Payload: map[string]interface{}{
			"inquiry_id":   rec.ID.String(),
			"sender":       strings.ToLower(rec.Sender),
			"property_key": property.Key(rec.Inquiry.PropertyAddress),
		},
	}})
}

func (m *VectorMatcher) Match(ctx context.Context, query string) (Record, bool, error) {
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return Record{}, false, fmt.Errorf("embed query: %w", err)
	}
	hits, err := m.index.Search(ctx, vec, 2, nil)
	if err != nil {
		return Record{}, false, err
	}
	if len(hits) == 0 || hits[0].Score < m.minScore {
		return Record{}, false, nil
	}
	if len(hits) > 1 && hits[0].Score-hits[1].Score < m.margin &&
		payloadString(hits[0], "property_key") != payloadString(hits[1], "property_key") {
		return Record{}, false, nil
	}

	id, err := uuid.Parse(payloadString(hits[0], "inquiry_id"))
	if err != nil {
		return Record{}, false, fmt.Errorf("vector hit without inquiry id: %w", err)
	}
	rec, err := m.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func documentText(q PropertyInquiry) string {
	return "Purchaser(s) Name: " + q.PurchaserNames(" & ") + "\nProperty Address: " + q.PropertyAddress +
		"\nLot: " + q.LotNumber + "\nProject: " + q.ProjectName
}

func payloadString(hit qdrant.SearchResult, key string) string {
	v, _ := hit.Payload[key].(string)
	return v
}

// FallbackMatcher asks primary first and falls back when it errors or finds nothing.
type FallbackMatcher struct {
	primary  Matcher
	fallback Matcher
	log      *logger.Logger
}

// NewFallbackMatcher chains two matchers.
func NewFallbackMatcher(primary, fallback Matcher, log *logger.Logger) *FallbackMatcher {
	return &FallbackMatcher{primary: primary, fallback: fallback, log: log}
}

func (m *FallbackMatcher) Match(ctx context.Context, query string) (Record, bool, error) {
	rec, ok, err := m.primary.Match(ctx, query)
	if err == nil && ok {
		return rec, true, nil
	}
	if err != nil {
		m.log.WithContext(ctx).Warn("primary inquiry matcher failed, falling back", "error", err)
	}
	return m.fallback.Match(ctx, query)
}
