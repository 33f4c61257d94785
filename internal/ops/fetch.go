package ops

import (
	"context"
	"strings"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
	"github.com/ptnote/ptnote/internal/reconcile"
)

// DraftAddress identifies a stored draft.
type DraftAddress struct {
	CaseID      string
	EncounterID string // default: "eval"
}

// Key validates the address and returns its storage key.
func (a DraftAddress) Key() (string, error) {
	caseID := strings.TrimSpace(a.CaseID)
	encounterID := strings.TrimSpace(a.EncounterID)
	if caseID == "" {
		return "", errors.NewInvalidRequest("case_id is required")
	}
	if encounterID == "" {
		encounterID = reconcile.EvalEncounter
	}
	if strings.Contains(encounterID, "_") {
		return "", errors.NewInvalidRequest("encounter_id must not contain underscores")
	}
	return note.StorageKey(caseID, encounterID), nil
}

// FetchDraftInput contains parameters for the FetchDraft operation.
type FetchDraftInput struct {
	DraftAddress
}

// FetchDraftOutput contains the result of the FetchDraft operation.
type FetchDraftOutput struct {
	Key   string      `json:"key"`
	Draft *note.Draft `json:"draft"`
}

// FetchDraft reads a stored draft directly, without a case merge.
func FetchDraft(ctx context.Context, env *Env, input FetchDraftInput) (*FetchDraftOutput, error) {
	key, err := input.Key()
	if err != nil {
		return nil, err
	}
	value, ok, err := env.Drafts.GetItem(ctx, key)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !ok {
		return nil, errors.NewNotFound("draft", key)
	}
	d, err := note.ParseDraft([]byte(value))
	if err != nil {
		return nil, errors.NewMalformedDraft(key, err)
	}
	return &FetchDraftOutput{Key: key, Draft: d}, nil
}
