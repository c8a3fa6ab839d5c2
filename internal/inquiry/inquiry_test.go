package inquiry

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"contract_workflow_backend/platform/db"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/qdrant"

	"github.com/google/uuid"
)

func sampleInquiry(first, last, address string) PropertyInquiry {
	return PropertyInquiry{
		Purchasers: []Purchaser{{
			FirstName: first, LastName: last,
			Email: strings.ToLower(first) + "@example.com", Mobile: "0412 345 678",
		}},
		LotNumber:       "95",
		PropertyAddress: address,
		TotalPrice:      "$550,000",
		FinanceTerms:    "Not Subject to Finance",
		SolicitorName:   "Sam Solicitor",
		SolicitorEmail:  "sam@law.example",
	}
}

func TestMissingFinanceProviderEncodesAsNull(t *testing.T) {
	raw, err := json.Marshal(sampleInquiry("Jane", "Citizen", "Lot 95 Fake Rise VIC 3336"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"Finance_Provider":null`) {
		t.Fatalf("expected explicit null, got %s", raw)
	}
	for _, key := range []string{`"Purchaser":[`, `"First_Name"`, `"Purchaser_Mobile"`, `"Solicitor_Email"`, `"Lot_Number"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("missing schema key %s in %s", key, raw)
		}
	}
}

func TestNormalizedMobilesAndBlankProvider(t *testing.T) {
	blank := "  "
	q := sampleInquiry("Jane", "Citizen", " Lot 95 Fake Rise VIC 3336 ")
	q.FinanceProvider = &blank
	n := q.Normalized()
	if n.Purchasers[0].Mobile != "+61412345678" {
		t.Fatalf("unexpected mobile %q", n.Purchasers[0].Mobile)
	}
	if n.FinanceProvider != nil {
		t.Fatalf("expected blank provider to become nil")
	}
	if n.PropertyAddress != "Lot 95 Fake Rise VIC 3336" {
		t.Fatalf("expected trimmed address, got %q", n.PropertyAddress)
	}
	if q.Purchasers[0].Mobile != "0412 345 678" {
		t.Fatalf("Normalized must not mutate the receiver")
	}
}

func seededStore(t *testing.T, repo Repository) *Store {
	t.Helper()
	s := NewStore(repo, nil, logger.Discard())
	ctx := context.Background()
	for _, q := range []PropertyInquiry{
		sampleInquiry("Jane", "Citizen", "Lot 95 Fake Rise VIC 3336"),
		sampleInquiry("Arjun", "Patel", "12 Rivergum Road NSW 2259"),
		sampleInquiry("Mei", "Wong", "44 Pineview Crescent VIC 3977"),
	} {
		if _, err := s.Save(ctx, "Vendor@Example.com", q); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return s
}

func TestTokenOverlapMatcherPicksNamedInquiry(t *testing.T) {
	repo := NewMemoryRepository()
	seededStore(t, repo)
	m := NewTokenOverlapMatcher(repo, 0.6)

	rec, ok, err := m.Match(context.Background(), "Purchaser(s) Name: Jane Citizen\nProperty Address: Lot 95 Fake Rise VIC 3336")
	if err != nil || !ok {
		t.Fatalf("Match = %v, %v", ok, err)
	}
	if rec.Inquiry.PropertyAddress != "Lot 95 Fake Rise VIC 3336" || rec.Sender != "vendor@example.com" {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, ok, _ := m.Match(context.Background(), "Purchaser(s) Name: Nobody\nProperty Address: 1 Unknown St TAS 7000"); ok {
		t.Fatalf("expected no match for unrelated query")
	}
}

func TestTokenOverlapMatcherTieIsNoMatch(t *testing.T) {
	repo := NewMemoryRepository()
	s := NewStore(repo, nil, logger.Discard())
	ctx := context.Background()
	_, _ = s.Save(ctx, "a@x.com", sampleInquiry("Jane", "Citizen", "1 Alpha Street VIC 3000"))
	_, _ = s.Save(ctx, "b@x.com", sampleInquiry("Jane", "Citizen", "1 Beta Street VIC 3000"))

	m := NewTokenOverlapMatcher(repo, 0.5)
	if _, ok, _ := m.Match(ctx, "Jane Citizen 1 Street VIC 3000"); ok {
		t.Fatalf("expected tie between different properties to be ambiguous")
	}
}

type fakeEmbedder struct{}

// Embed maps text onto a tiny bag-of-letters vector so similar strings score close.
func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

type fakeIndex struct {
	points []qdrant.Point
	hits   []qdrant.SearchResult
}

func (f *fakeIndex) Upsert(_ context.Context, points []qdrant.Point) error {
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ int, _ *qdrant.Filter) ([]qdrant.SearchResult, error) {
	return f.hits, nil
}

func TestVectorMatcherIndexesAndResolves(t *testing.T) {
	repo := NewMemoryRepository()
	idx := &fakeIndex{}
	vm := NewVectorMatcher(fakeEmbedder{}, idx, repo, 0.5)
	store := NewStore(repo, vm, logger.Discard())

	rec, err := store.Save(context.Background(), "Vendor@Example.com", sampleInquiry("Jane", "Citizen", "Lot 95 Fake Rise VIC 3336"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(idx.points) != 1 || idx.points[0].Payload["sender"] != "vendor@example.com" {
		t.Fatalf("expected indexed point tagged by sender, got %+v", idx.points)
	}

	idx.hits = []qdrant.SearchResult{{ID: rec.ID.String(), Score: 0.91, Payload: idx.points[0].Payload}}
	got, ok, err := vm.Match(context.Background(), "Jane Citizen Fake Rise")
	if err != nil || !ok || got.ID != rec.ID {
		t.Fatalf("Match = %+v, %v, %v", got, ok, err)
	}

	idx.hits = append(idx.hits, qdrant.SearchResult{Score: 0.90, Payload: map[string]interface{}{
		"inquiry_id": uuid.NewString(), "property_key": "other property",
	}})
	if _, ok, _ := vm.Match(context.Background(), "Jane"); ok {
		t.Fatalf("expected near tie across properties to be ambiguous")
	}

	idx.hits = []qdrant.SearchResult{{Score: 0.2, Payload: idx.points[0].Payload}}
	if _, ok, _ := vm.Match(context.Background(), "x"); ok {
		t.Fatalf("expected low score to be rejected")
	}
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlDB.Close()

	repo := NewSQLiteRepository(sqlDB)
	provider := "Big Bank"
	q := sampleInquiry("Jane", "Citizen", "Lot 95 Fake Rise VIC 3336")
	q.FinanceProvider = &provider
	rec := Record{ID: uuid.New(), Sender: "v@example.com", Inquiry: q, CreatedAt: time.Date(2025, 3, 17, 1, 0, 0, 0, time.UTC)}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Inquiry.FinanceProvider == nil || *got.Inquiry.FinanceProvider != "Big Bank" || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unexpected record %+v", got)
	}
	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
	if _, err := repo.Get(ctx, uuid.New()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
