package kvstore

import (
	"context"
	"errors"
	"testing"

	"contract_workflow_backend/platform/db"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlDB, err := db.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(sqlDB),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "vendors", "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := store.Put(ctx, "vendors", "b", "1"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(ctx, "vendors", "a", "2"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put(ctx, "vendors", "a", "3"); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			if err := store.Put(ctx, "deadlines", "a", "other namespace"); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, err := store.Get(ctx, "vendors", "a")
			if err != nil || got != "3" {
				t.Fatalf("Get = %q, %v", got, err)
			}

			entries, err := store.List(ctx, "vendors")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 || entries[0].Key != "a" || entries[1].Key != "b" {
				t.Fatalf("unexpected entries %+v", entries)
			}

			if err := store.Delete(ctx, "vendors", "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := store.Delete(ctx, "vendors", "a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
			if v, _ := store.Get(ctx, "deadlines", "a"); v != "other namespace" {
				t.Fatalf("namespaces leaked: %q", v)
			}
		})
	}
}
