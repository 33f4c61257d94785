package ops

import (
	"context"
	"strings"

	"github.com/ptnote/ptnote/internal/draftstore"
	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

// MigrateDraftKeyInput contains parameters for the MigrateDraftKey operation.
type MigrateDraftKeyInput struct {
	FromCaseID  string // default: "new"
	ToCaseID    string
	EncounterID string // default: "eval"
}

// MigrateDraftKeyOutput contains the result of the MigrateDraftKey operation.
type MigrateDraftKeyOutput struct {
	OldKey string `json:"old_key"`
	NewKey string `json:"new_key"`
	// Moved is false when there was nothing under the old key.
	Moved bool `json:"moved"`
}

// MigrateDraftKey moves a draft from one case id to another, normally from
// the placeholder id to a newly assigned one. Repeating it is a no-op.
func MigrateDraftKey(ctx context.Context, env *Env, input MigrateDraftKeyInput) (*MigrateDraftKeyOutput, error) {
	from := strings.TrimSpace(input.FromCaseID)
	if from == "" {
		from = note.NewCaseID
	}
	to := strings.TrimSpace(input.ToCaseID)
	if to == "" {
		return nil, errors.NewInvalidRequest("to_case_id is required")
	}
	if to == note.NewCaseID {
		return nil, errors.NewInvalidRequest("cannot migrate a draft onto the placeholder case id")
	}

	oldKey, err := DraftAddress{CaseID: from, EncounterID: input.EncounterID}.Key()
	if err != nil {
		return nil, err
	}
	newKey, err := DraftAddress{CaseID: to, EncounterID: input.EncounterID}.Key()
	if err != nil {
		return nil, err
	}

	_, existed, err := env.Drafts.GetItem(ctx, oldKey)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := draftstore.MigrateKey(ctx, env.Drafts, oldKey, newKey); err != nil {
		return nil, errors.NewInternal(err)
	}
	if existed && oldKey != newKey {
		env.Logger.Info().Str("old_key", oldKey).Str("new_key", newKey).Msg("migrated draft key")
	}
	return &MigrateDraftKeyOutput{OldKey: oldKey, NewKey: newKey, Moved: existed && oldKey != newKey}, nil
}
