package ops

import (
	"context"
	"encoding/json"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/session"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Target
	// Draft is the edited draft. Sections it contains replace the session's
	// sections; sections it omits keep their initialized values. Empty saves
	// the initialized draft as is.
	Draft json.RawMessage
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	session.SaveResult
	EncounterID string `json:"encounter_id"`
	SavedAt     string `json:"saved_at,omitempty"`
}

// Save opens a session, applies the edited draft and saves it. Case store
// failures do not fail the operation; they show up as case_persisted=false.
func Save(ctx context.Context, env *Env, input SaveInput) (*SaveOutput, error) {
	sess, err := openSession(ctx, env, input.Target, func(oldID, newID string) {
		env.Logger.Info().Str("old_case_id", oldID).Str("new_case_id", newID).Msg("case promoted")
	})
	if err != nil {
		return nil, err
	}

	if len(input.Draft) > 0 {
		if err := sess.Overlay(input.Draft); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("save")
	}
	res := sess.Save(ctx)
	return &SaveOutput{
		SaveResult:  res,
		EncounterID: sess.EncounterID(),
		SavedAt:     sess.Draft().SavedAt,
	}, nil
}
