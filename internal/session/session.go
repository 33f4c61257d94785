// Package session owns one editor session: the working draft for a
// (case, encounter) pair, when to read a persisted draft, how saves reach the
// case store and the draft store, and the storage key lifecycle when a new
// case is first persisted.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ptnote/ptnote/internal/casestore"
	"github.com/ptnote/ptnote/internal/draftstore"
	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
	"github.com/ptnote/ptnote/internal/reconcile"
)

// Mode is the editor mode a session runs in.
type Mode string

const (
	// ModeStudent edits a draft against a case without seeing its answer key.
	ModeStudent Mode = "student"
	// ModeFaculty authors the case record itself.
	ModeFaculty Mode = "faculty"
	// ModeKey is the read-only answer key view. Nothing is loaded or saved.
	ModeKey Mode = "key"
)

// ParseMode maps a mode name to a Mode. Empty means student.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStudent:
		return ModeStudent, nil
	case ModeFaculty, ModeKey:
		return Mode(s), nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown mode %q (expected student, faculty or key)", s))
	}
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Deps are the collaborators a session uses.
type Deps struct {
	Drafts draftstore.Store
	// Cases is only needed for faculty saves.
	Cases   casestore.Store
	Confirm ConfirmFunc
	Logger  zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// OnPromote is called after a new case has been persisted and its draft
	// key migrated.
	OnPromote func(oldID, newID string)
}

// Options select what a session edits.
type Options struct {
	CaseID      string
	EncounterID string
	Mode        Mode
	// Case is the resolved case record. It is merged into the draft in
	// faculty and key mode, and it is what faculty saves persist.
	Case *note.CaseRecord
	// SkipNewCaseDrafts suppresses loading a persisted draft for the
	// placeholder case id.
	SkipNewCaseDrafts bool
}

// Session is a single editor session. Its methods are safe for concurrent use.
type Session struct {
	deps        Deps
	mode        Mode
	encounterID string

	mu      sync.Mutex
	caseID  string
	record  *note.CaseRecord
	draft   *note.Draft
	overlay bool
}

// SaveResult describes what a Save call did.
type SaveResult struct {
	Key    string `json:"key"`
	CaseID string `json:"case_id"`
	// Skipped is true in key mode.
	Skipped bool `json:"skipped,omitempty"`
	// Promoted is true when this save created the case record and moved the
	// draft off the placeholder key.
	Promoted bool `json:"promoted,omitempty"`
	// CasePersisted is true when the case record was created or updated.
	CasePersisted bool `json:"case_persisted,omitempty"`
	// Saved is true when the draft reached the draft store.
	Saved bool `json:"saved"`
}

// Initialize builds the working draft: a default template, the case record
// merged in for faculty and key mode, then the persisted draft overlaid
// unless loading is suppressed. A persisted draft that cannot be read or
// parsed is logged and ignored.
func Initialize(ctx context.Context, deps Deps, opts Options) (*Session, error) {
	if opts.CaseID == "" {
		return nil, errors.NewInvalidRequest("case_id is required")
	}
	if opts.EncounterID == "" {
		return nil, errors.NewInvalidRequest("encounter_id is required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeStudent
	}
	if deps.Drafts == nil {
		return nil, errors.NewInvalidRequest("draft store is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{
		deps:        deps,
		mode:        opts.Mode,
		encounterID: opts.EncounterID,
		caseID:      opts.CaseID,
		record:      opts.Case,
		draft:       note.NewDefaultDraft(),
	}

	if opts.Case != nil && (s.mode == ModeFaculty || s.mode == ModeKey) {
		reconcile.PopulateDraftFromCaseData(s.draft, opts.Case, reconcile.WithLogger(s.deps.Logger))
	}

	if s.shouldLoad(opts) {
		s.overlay = s.loadPersisted(ctx)
	}

	if s.mode != ModeFaculty {
		s.draft.EditorSettings = nil
	}
	return s, nil
}

func (s *Session) shouldLoad(opts Options) bool {
	if s.mode == ModeKey {
		return false
	}
	if opts.SkipNewCaseDrafts && opts.CaseID == note.NewCaseID {
		return false
	}
	return true
}

func (s *Session) loadPersisted(ctx context.Context) bool {
	key := s.key()
	value, ok, err := s.deps.Drafts.GetItem(ctx, key)
	if err != nil {
		s.deps.Logger.Error().Err(err).Str("key", key).Msg("read persisted draft")
		return false
	}
	if !ok {
		return false
	}
	if err := note.OverlayDraft(s.draft, []byte(value)); err != nil {
		s.deps.Logger.Warn().Err(errors.NewMalformedDraft(key, err)).Str("key", key).Msg("ignoring malformed persisted draft")
		return false
	}
	return true
}

func (s *Session) key() string {
	return note.StorageKey(s.caseID, s.encounterID)
}

// Mode returns the session's editor mode.
func (s *Session) Mode() Mode { return s.mode }

// EncounterID returns the encounter being edited.
func (s *Session) EncounterID() string { return s.encounterID }

// CaseID returns the current case id. It changes from the placeholder to
// the real id when a faculty save first persists a new case.
func (s *Session) CaseID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caseID
}

// StorageKey returns the key the draft is currently persisted under.
func (s *Session) StorageKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key()
}

// Overlaid reports whether a persisted draft was applied during Initialize.
func (s *Session) Overlaid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay
}

// Draft returns a copy of the working draft.
func (s *Session) Draft() *note.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Edit applies fn to the working draft under the session lock.
func (s *Session) Edit(fn func(d *note.Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.draft)
	s.draft.EnsureShape()
	if s.mode != ModeFaculty {
		s.draft.EditorSettings = nil
	}
}

// Overlay applies caller-supplied draft JSON to the working draft with the
// same rules as loading a persisted draft: each section present in data
// replaces the current one. On error the draft is unchanged.
func (s *Session) Overlay(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := note.OverlayDraft(s.draft, data); err != nil {
		return errors.NewMalformedDraft(s.key(), err)
	}
	if s.mode != ModeFaculty {
		s.draft.EditorSettings = nil
	}
	return nil
}

// Case returns a copy of the bound case record, or nil.
func (s *Session) Case() (*note.CaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, nil
	}
	return s.record.Clone()
}

// Save persists the session. Key mode saves nothing. In faculty mode with a
// bound case record the draft's sections are written into the record's
// encounter and the record is created (promoting the placeholder id and
// migrating the draft key) or updated. Student saves stamp savedAt. In
// every saving mode the draft is then written to the draft store, even when
// the case store failed. Failures are logged, never returned.
func (s *Session) Save(ctx context.Context) SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeKey {
		return SaveResult{Key: s.key(), CaseID: s.caseID, Skipped: true}
	}

	var res SaveResult
	var staleKey string
	switch {
	case s.mode == ModeFaculty && s.record != nil:
		res.Promoted, res.CasePersisted, staleKey = s.persistCase(ctx)
	case s.mode == ModeStudent:
		s.draft.SavedAt = s.deps.Now().UTC().Format(time.RFC3339)
	}

	res.Key = s.key()
	res.CaseID = s.caseID
	res.Saved = s.saveLocal(ctx, res.Key)
	if res.Saved && staleKey != "" {
		if err := s.deps.Drafts.RemoveItem(ctx, staleKey); err != nil {
			s.deps.Logger.Error().Err(err).Str("key", staleKey).Msg("remove placeholder draft")
		}
	}
	return res
}

// persistCase must be called with s.mu held. A second save that arrives
// while the first is promoting waits on the lock and then sees the real id.
// staleKey is the placeholder key left behind when the draft could not be
// migrated after a promotion.
func (s *Session) persistCase(ctx context.Context) (promoted, persisted bool, staleKey string) {
	log := s.deps.Logger.With().Str("case_id", s.caseID).Str("encounter_id", s.encounterID).Logger()

	if s.deps.Cases == nil {
		log.Error().Msg("no case store configured; saving draft locally only")
		return false, false, ""
	}

	enc, err := note.EncounterFromDraft(s.draft)
	if err != nil {
		log.Error().Err(err).Msg("convert draft to encounter")
		return false, false, ""
	}
	if s.record.Encounters == nil {
		s.record.Encounters = map[string]*note.Encounter{}
	}
	s.record.Encounters[s.encounterID] = enc

	if s.caseID != note.NewCaseID {
		if err := s.deps.Cases.Update(ctx, s.caseID, s.record); err != nil {
			log.Error().Err(errors.NewPersistenceFailure("update case", err)).Msg("case persistence failed; saving draft locally only")
			return false, false, ""
		}
		return false, true, ""
	}

	id, err := s.deps.Cases.Create(ctx, s.record)
	if err != nil {
		log.Error().Err(errors.NewPersistenceFailure("create case", err)).Msg("case persistence failed; saving draft locally only")
		return false, false, ""
	}

	oldKey := s.key()
	s.caseID = id
	s.record.ID = id
	newKey := s.key()
	if err := draftstore.MigrateKey(ctx, s.deps.Drafts, oldKey, newKey); err != nil {
		log.Error().Err(err).Str("old_key", oldKey).Str("new_key", newKey).Msg("migrate draft key")
		staleKey = oldKey
	} else {
		log.Info().Str("old_key", oldKey).Str("new_key", newKey).Msg("migrated draft key")
	}
	if s.deps.OnPromote != nil {
		s.deps.OnPromote(note.NewCaseID, id)
	}
	return true, true, staleKey
}

func (s *Session) saveLocal(ctx context.Context, key string) bool {
	data, err := json.Marshal(s.draft)
	if err != nil {
		s.deps.Logger.Error().Err(err).Str("key", key).Msg("encode draft")
		return false
	}
	if err := s.deps.Drafts.SetItem(ctx, key, string(data)); err != nil {
		s.deps.Logger.Error().Err(err).Str("key", key).Msg("save draft")
		return false
	}
	return true
}

// ResetDraft asks for confirmation, then replaces the working draft with a
// fresh template and removes the persisted entry. It reports whether the
// reset happened. Without a confirm function nothing is reset.
func (s *Session) ResetDraft(ctx context.Context) (bool, error) {
	if s.deps.Confirm == nil {
		return false, nil
	}
	ok, err := s.deps.Confirm(ctx, "Reset this draft? All unsaved and saved edits will be lost.")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = note.NewDefaultDraft()
	if s.mode != ModeFaculty {
		s.draft.EditorSettings = nil
	}
	if s.mode == ModeKey {
		return true, nil
	}
	key := s.key()
	if err := s.deps.Drafts.RemoveItem(ctx, key); err != nil {
		return true, errors.NewPersistenceFailure("remove draft", err)
	}
	s.deps.Logger.Info().Str("key", key).Msg("draft reset")
	return true, nil
}
