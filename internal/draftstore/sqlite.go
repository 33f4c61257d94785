package draftstore

import (
	"context"
	"database/sql"

	"github.com/ptnote/ptnote/internal/db"
)

// SQLite stores drafts in the drafts table of the local database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a store backed by an initialized database (see db.Init).
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) GetItem(ctx context.Context, key string) (string, bool, error) {
	return db.GetDraft(ctx, s.db, key)
}

func (s *SQLite) SetItem(ctx context.Context, key, value string) error {
	return db.PutDraft(ctx, s.db, key, value)
}

func (s *SQLite) RemoveItem(ctx context.Context, key string) error {
	return db.DeleteDraft(ctx, s.db, key)
}

func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	return db.DraftKeys(ctx, s.db)
}

// Rename moves oldKey to newKey in one transaction.
func (s *SQLite) Rename(ctx context.Context, oldKey, newKey string) error {
	return db.RenameDraft(ctx, s.db, oldKey, newKey)
}
