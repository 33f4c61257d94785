package casestore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

const postgresDriver = "pgx"

// Postgres stores case records as JSONB rows in a shared Postgres database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens dsn, verifies the connection and ensures the cases table
// exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	database, err := sql.Open(postgresDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureCasesTable(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return &Postgres{db: database}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func ensureCasesTable(ctx context.Context, database *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS cases (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := database.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure cases table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*note.CaseRecord, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM cases WHERE id = $1`, id).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("case", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return decode(id, payload)
}

func (p *Postgres) Create(ctx context.Context, rec *note.CaseRecord) (string, error) {
	id := note.NewID()
	payload, err := encode(id, rec)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO cases (id, title, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		id, rec.Meta.Title, string(payload), now)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, id string, rec *note.CaseRecord) error {
	payload, err := encode(id, rec)
	if err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx,
		`UPDATE cases SET title = $1, payload = $2, updated_at = $3 WHERE id = $4`,
		rec.Meta.Title, string(payload), time.Now().UTC(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("case", id)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, title, created_at, updated_at FROM cases ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer func() { _ = rows.Close() }()

	out := []Summary{}
	for rows.Next() {
		var (
			s                    Summary
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&s.ID, &s.Title, &createdAt, &updatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.CreatedAt = createdAt.Unix()
		s.UpdatedAt = updatedAt.Unix()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}
