// Package casestore persists faculty-authored case records.
package casestore

import (
	"context"
	"encoding/json"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

// Store resolves and persists case records. Get returns a NOT_FOUND
// NoteError for unknown ids. Implementations must be safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, id string) (*note.CaseRecord, error)
	// Create persists a new record under a generated id and returns the id.
	// The record passed in is not modified.
	Create(ctx context.Context, rec *note.CaseRecord) (string, error)
	Update(ctx context.Context, id string, rec *note.CaseRecord) error
	List(ctx context.Context) ([]Summary, error)
}

// Summary is the listing form of a case record.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// encode serializes rec with its id set, without mutating rec.
func encode(id string, rec *note.CaseRecord) ([]byte, error) {
	if rec == nil {
		return nil, errors.NewInvalidRequest("case record is required")
	}
	c := *rec
	c.ID = id
	data, err := json.Marshal(&c)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

func decode(id string, payload []byte) (*note.CaseRecord, error) {
	rec, err := note.ParseCaseRecord(payload)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	rec.ID = id
	return rec, nil
}
