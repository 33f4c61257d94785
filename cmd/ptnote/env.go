package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ptnote/ptnote/internal/casestore"
	"github.com/ptnote/ptnote/internal/config"
	"github.com/ptnote/ptnote/internal/db"
	"github.com/ptnote/ptnote/internal/draftstore"
	"github.com/ptnote/ptnote/internal/ops"
)

// newLogger builds the process logger. Output goes to w, which is stderr in
// both modes since stdout carries JSON results and the MCP stream.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// buildEnv opens the configured stores. The returned close function releases
// every connection that was opened, including on error paths.
func buildEnv(ctx context.Context, baseDir string, cfg *config.Config, logger zerolog.Logger) (*ops.Env, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}

	var database *sql.DB
	sqliteDB := func() (*sql.DB, error) {
		if database != nil {
			return database, nil
		}
		d, err := db.Init(baseDir)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		db.ConfigurePool(d, cfg)
		closers = append(closers, d)
		database = d
		return d, nil
	}

	env := &ops.Env{Config: cfg, Logger: logger}

	switch cfg.DraftStore {
	case config.StoreMemory:
		env.Drafts = draftstore.NewMemory()
	case config.StoreRedis:
		r, err := draftstore.NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, r)
		env.Drafts = r
	default:
		d, err := sqliteDB()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		env.Drafts = draftstore.NewSQLite(d)
	}

	switch cfg.CaseStore {
	case config.StoreMemory:
		env.Cases = casestore.NewMemory()
	case config.StorePostgres:
		p, err := casestore.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, p)
		env.Cases = p
	default:
		d, err := sqliteDB()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		env.Cases = casestore.NewSQLite(d)
	}

	logger.Debug().
		Str("draft_store", cfg.DraftStore).
		Str("case_store", cfg.CaseStore).
		Msg("stores ready")
	return env, closeAll, nil
}
