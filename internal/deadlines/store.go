package deadlines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contract_workflow_backend/internal/kvstore"
	"contract_workflow_backend/internal/property"
)

// Namespace is the kv namespace holding deadline records.
const Namespace = "deadlines"

// ErrNotFound is returned when no deadline is tracked for a property.
var ErrNotFound = errors.New("deadline not found")

// Store keeps one live deadline per canonical property key. Writes and
// deletes for the same key are serialized in process.
type Store struct {
	kv    kvstore.Store
	locks keyedMutex
}

// NewStore creates a deadline store over a kv store.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Put creates or overwrites the deadline for rec.PropertyAddress.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	key := property.Key(rec.PropertyAddress)
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal deadline: %w", err)
	}

	unlock := s.locks.Lock(key)
	defer unlock()
	if err := s.kv.Put(ctx, Namespace, key, string(raw)); err != nil {
		return fmt.Errorf("put deadline: %w", err)
	}
	return nil
}

// Get returns the deadline tracked for address.
func (s *Store) Get(ctx context.Context, address string) (Record, error) {
	return s.get(ctx, property.Key(address))
}

func (s *Store) get(ctx context.Context, key string) (Record, error) {
	raw, err := s.kv.Get(ctx, Namespace, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get deadline: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode deadline %q: %w", key, err)
	}
	return rec, nil
}

// Delete stops tracking address.
func (s *Store) Delete(ctx context.Context, address string) error {
	key := property.Key(address)
	unlock := s.locks.Lock(key)
	defer unlock()
	return s.delete(ctx, key)
}

func (s *Store) delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, Namespace, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	return nil
}

// List returns every tracked deadline ordered by property key. Entries that
// fail to decode are skipped and reported in the returned error alongside
// the readable ones.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	entries, err := s.kv.List(ctx, Namespace)
	if err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	out := make([]Record, 0, len(entries))
	var errs []error
	for _, e := range entries {
		var rec Record
		if err := json.Unmarshal([]byte(e.Value), &rec); err != nil {
			errs = append(errs, fmt.Errorf("decode deadline %q: %w", e.Key, err))
			continue
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}

// DeleteMatching resolves named (e.g. the document line of a signing
// notice) against the tracked properties and deletes the single clear
// match. ok is false when nothing, or more than one thing, matches.
func (s *Store) DeleteMatching(ctx context.Context, named string) (Record, bool, error) {
	records, err := s.List(ctx)
	if err != nil && len(records) == 0 {
		return Record{}, false, err
	}
	candidates := make([]string, len(records))
	byAddress := make(map[string]Record, len(records))
	for i, rec := range records {
		candidates[i] = rec.PropertyAddress
		byAddress[rec.PropertyAddress] = rec
	}
	address, ok := property.BestMatch(named, candidates)
	if !ok {
		return Record{}, false, nil
	}

	key := property.Key(address)
	unlock := s.locks.Lock(key)
	defer unlock()
	if err := s.delete(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return byAddress[address], true, nil
}

// deleteIfReminder deletes the record for address only if its reminder is
// still reminder. A deadline re-recorded since it was read is kept.
func (s *Store) deleteIfReminder(ctx context.Context, address, reminder string) (bool, error) {
	key := property.Key(address)
	unlock := s.locks.Lock(key)
	defer unlock()

	current, err := s.get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current.ReminderDatetime != reminder {
		return false, nil
	}
	if err := s.delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return true, nil
}
