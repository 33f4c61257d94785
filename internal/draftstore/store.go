// Package draftstore is the local draft key-value store: JSON-serialized
// drafts keyed by draft_{caseId}_{encounterId}.
package draftstore

import (
	"context"
	"fmt"
)

// Store is a string key-value store. Implementations must be safe for
// concurrent use.
type Store interface {
	// GetItem returns the value for key. ok is false if the key is absent.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Renamer is implemented by stores that can move a value between keys in
// one atomic step. Rename is a no-op when oldKey is absent.
type Renamer interface {
	Rename(ctx context.Context, oldKey, newKey string) error
}

// MigrateKey moves the value stored at oldKey to newKey and removes oldKey.
// It is idempotent: migrating when oldKey is absent, or migrating a key to
// itself, does nothing. Stores that implement Renamer move the value
// atomically; others copy then remove.
func MigrateKey(ctx context.Context, s Store, oldKey, newKey string) error {
	if oldKey == newKey {
		return nil
	}
	if r, ok := s.(Renamer); ok {
		if err := r.Rename(ctx, oldKey, newKey); err != nil {
			return fmt.Errorf("rename %s to %s: %w", oldKey, newKey, err)
		}
		return nil
	}

	value, ok, err := s.GetItem(ctx, oldKey)
	if err != nil {
		return fmt.Errorf("read %s: %w", oldKey, err)
	}
	if !ok {
		return nil
	}
	if err := s.SetItem(ctx, newKey, value); err != nil {
		return fmt.Errorf("write %s: %w", newKey, err)
	}
	if err := s.RemoveItem(ctx, oldKey); err != nil {
		return fmt.Errorf("remove %s: %w", oldKey, err)
	}
	return nil
}
