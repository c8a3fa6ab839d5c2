// Package vendors maps a property to the vendor who sent its contract.
package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contract_workflow_backend/internal/kvstore"
	"contract_workflow_backend/internal/property"
)

// Namespace is the kv namespace holding vendor records.
const Namespace = "vendors"

// ErrNotFound is returned when no vendor is recorded for a property.
var ErrNotFound = errors.New("vendor not found")

// Directory stores one vendor email per canonical property key. Last write wins.
type Directory struct {
	store kvstore.Store
}

// NewDirectory creates a vendor directory over a kv store.
func NewDirectory(store kvstore.Store) *Directory {
	return &Directory{store: store}
}

// Upsert records email as the vendor for address, replacing any previous value.
func (d *Directory) Upsert(ctx context.Context, address, email string) error {
	key := property.Key(address)
	if key == "" {
		return fmt.Errorf("vendor upsert: empty property address")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("vendor upsert: empty email for %q", address)
	}
	if err := d.store.Put(ctx, Namespace, key, email); err != nil {
		return fmt.Errorf("vendor upsert: %w", err)
	}
	return nil
}

// Lookup returns the vendor email for address.
func (d *Directory) Lookup(ctx context.Context, address string) (string, error) {
	email, err := d.store.Get(ctx, Namespace, property.Key(address))
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("vendor lookup: %w", err)
	}
	return email, nil
}
