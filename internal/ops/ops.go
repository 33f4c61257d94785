package ops

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ptnote/ptnote/internal/casestore"
	"github.com/ptnote/ptnote/internal/config"
	"github.com/ptnote/ptnote/internal/draftstore"
	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
	"github.com/ptnote/ptnote/internal/reconcile"
	"github.com/ptnote/ptnote/internal/session"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env carries the collaborators every operation runs against.
type Env struct {
	Drafts draftstore.Store
	Cases  casestore.Store
	Config *config.Config
	Logger zerolog.Logger
	// Confirm answers the reset prompt. Nil means never confirm.
	Confirm session.ConfirmFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) skipNewCaseDrafts() bool {
	return e.Config != nil && e.Config.SkipNewCaseDrafts
}

// Target addresses one encounter draft in a given editor mode.
type Target struct {
	CaseID      string
	EncounterID string // default: "eval"
	Mode        string // student (default), faculty or key
}

func (t Target) normalize() (Target, session.Mode, error) {
	t.CaseID = strings.TrimSpace(t.CaseID)
	t.EncounterID = strings.TrimSpace(t.EncounterID)
	if t.CaseID == "" {
		return t, "", errors.NewInvalidRequest("case_id is required")
	}
	if t.EncounterID == "" {
		t.EncounterID = reconcile.EvalEncounter
	}
	if strings.Contains(t.EncounterID, "_") {
		return t, "", errors.NewInvalidRequest("encounter_id must not contain underscores")
	}
	mode, err := session.ParseMode(t.Mode)
	if err != nil {
		return t, "", err
	}
	return t, mode, nil
}

// resolveCase returns the case record a session runs against. The
// placeholder id yields a blank record and is only available to faculty.
func resolveCase(ctx context.Context, env *Env, caseID string, mode session.Mode) (*note.CaseRecord, error) {
	if caseID == note.NewCaseID {
		if mode != session.ModeFaculty {
			return nil, errors.NewAccessDenied("open new case", string(session.ModeFaculty))
		}
		return note.NewBlankCaseRecord(), nil
	}
	if env.Cases == nil {
		return nil, errors.NewInternal(errNoCaseStore)
	}
	return env.Cases.Get(ctx, caseID)
}

// openSession resolves the case for t and initializes an editor session.
func openSession(ctx context.Context, env *Env, t Target, onPromote func(oldID, newID string)) (*session.Session, error) {
	t, mode, err := t.normalize()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("open")
	}

	rec, err := resolveCase(ctx, env, t.CaseID, mode)
	if err != nil {
		return nil, err
	}

	return session.Initialize(ctx, session.Deps{
		Drafts:    env.Drafts,
		Cases:     env.Cases,
		Confirm:   env.Confirm,
		Logger:    env.Logger,
		Now:       env.Now,
		OnPromote: onPromote,
	}, session.Options{
		CaseID:            t.CaseID,
		EncounterID:       t.EncounterID,
		Mode:              mode,
		Case:              rec,
		SkipNewCaseDrafts: env.skipNewCaseDrafts(),
	})
}

// requireFaculty rejects operations that only case authors may run.
func requireFaculty(op, mode string) error {
	m, err := session.ParseMode(mode)
	if err != nil {
		return err
	}
	if m != session.ModeFaculty {
		return errors.NewAccessDenied(op, string(session.ModeFaculty))
	}
	return nil
}

// clampPage applies limit defaults and bounds.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}
