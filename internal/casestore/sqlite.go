package casestore

import (
	"context"
	"database/sql"

	"github.com/ptnote/ptnote/internal/db"
	"github.com/ptnote/ptnote/internal/note"
)

// SQLite stores case records in the cases table of the local database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a store backed by an initialized database (see db.Init).
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) Get(ctx context.Context, id string) (*note.CaseRecord, error) {
	row, err := db.GetCase(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return decode(row.ID, []byte(row.Payload))
}

func (s *SQLite) Create(ctx context.Context, rec *note.CaseRecord) (string, error) {
	id := note.NewID()
	payload, err := encode(id, rec)
	if err != nil {
		return "", err
	}
	if err := db.InsertCase(ctx, s.db, &db.CaseRow{ID: id, Title: rec.Meta.Title, Payload: string(payload)}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLite) Update(ctx context.Context, id string, rec *note.CaseRecord) error {
	payload, err := encode(id, rec)
	if err != nil {
		return err
	}
	return db.UpdateCase(ctx, s.db, &db.CaseRow{ID: id, Title: rec.Meta.Title, Payload: string(payload)})
}

func (s *SQLite) List(ctx context.Context) ([]Summary, error) {
	rows, err := db.ListCases(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		out[i] = Summary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}
