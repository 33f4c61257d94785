package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/ptnote/ptnote/internal/errors"
)

// GetDraft returns the stored value for key. ok is false if the key is absent.
func GetDraft(ctx context.Context, db *sql.DB, key string) (value string, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM drafts WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// PutDraft stores value under key, replacing any existing value.
func PutDraft(ctx context.Context, db *sql.DB, key, value string) error {
	query := `
		INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteDraft removes key. Removing an absent key is not an error.
func DeleteDraft(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DraftKeys returns every stored key in lexical order.
func DraftKeys(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key FROM drafts ORDER BY key`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.NewInternal(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return keys, nil
}

// RenameDraft moves the value at oldKey to newKey in one transaction,
// overwriting newKey. It is a no-op when oldKey is absent.
func RenameDraft(ctx context.Context, db *sql.DB, oldKey, newKey string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	var value string
	err = tx.QueryRowContext(ctx, `SELECT value FROM drafts WHERE key = ?`, oldKey).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	upsert := `
		INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert, newKey, value, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, oldKey); err != nil {
		return errors.NewInternal(err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CaseRow is a stored case record with its JSON payload.
type CaseRow struct {
	ID        string
	Title     string
	Payload   string
	CreatedAt int64
	UpdatedAt int64
}

// InsertCase stores a new case record.
func InsertCase(ctx context.Context, db *sql.DB, row *CaseRow) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO cases (id, title, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, query, row.ID, row.Title, row.Payload, now, now); err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("case already exists: " + row.ID)
		}
		return errors.NewInternal(err)
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	return nil
}

// GetCase retrieves a case record by id.
func GetCase(ctx context.Context, db *sql.DB, id string) (*CaseRow, error) {
	var row CaseRow
	query := `SELECT id, title, payload, created_at, updated_at FROM cases WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(&row.ID, &row.Title, &row.Payload, &row.CreatedAt, &row.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("case", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &row, nil
}

// UpdateCase replaces the title and payload of an existing case record.
func UpdateCase(ctx context.Context, db *sql.DB, row *CaseRow) error {
	now := time.Now().Unix()
	query := `UPDATE cases SET title = ?, payload = ?, updated_at = ? WHERE id = ?`

	result, err := db.ExecContext(ctx, query, row.Title, row.Payload, now, row.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("case", row.ID)
	}
	row.UpdatedAt = now
	return nil
}

// ListCases returns case summaries, most recently updated first. Payloads
// are not loaded.
func ListCases(ctx context.Context, db *sql.DB) ([]CaseRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, title, created_at, updated_at FROM cases ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	cases := []CaseRow{}
	for rows.Next() {
		var row CaseRow
		if err := rows.Scan(&row.ID, &row.Title, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		cases = append(cases, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return cases, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
