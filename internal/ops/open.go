package ops

import (
	"context"

	"github.com/ptnote/ptnote/internal/note"
)

// OpenInput contains parameters for the Open operation.
type OpenInput struct {
	Target
}

// OpenOutput contains the result of the Open operation.
type OpenOutput struct {
	Draft       *note.Draft `json:"draft"`
	Key         string      `json:"key"`
	CaseID      string      `json:"case_id"`
	EncounterID string      `json:"encounter_id"`
	Mode        string      `json:"mode"`
	// Overlaid is true when a persisted draft was applied.
	Overlaid bool `json:"overlaid"`
}

// Open starts an editor session and returns the initialized draft.
func Open(ctx context.Context, env *Env, input OpenInput) (*OpenOutput, error) {
	sess, err := openSession(ctx, env, input.Target, nil)
	if err != nil {
		return nil, err
	}
	return &OpenOutput{
		Draft:       sess.Draft(),
		Key:         sess.StorageKey(),
		CaseID:      sess.CaseID(),
		EncounterID: sess.EncounterID(),
		Mode:        string(sess.Mode()),
		Overlaid:    sess.Overlaid(),
	}, nil
}
