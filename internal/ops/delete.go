package ops

import (
	"context"

	"github.com/ptnote/ptnote/internal/errors"
)

// DeleteDraftInput contains parameters for the DeleteDraft operation.
type DeleteDraftInput struct {
	DraftAddress
}

// DeleteDraftOutput contains the result of the DeleteDraft operation.
type DeleteDraftOutput struct {
	Deleted bool   `json:"deleted"`
	Key     string `json:"key"`
}

// DeleteDraft removes a stored draft. Unlike Reset it asks no questions.
func DeleteDraft(ctx context.Context, env *Env, input DeleteDraftInput) (*DeleteDraftOutput, error) {
	key, err := input.Key()
	if err != nil {
		return nil, err
	}

	// Verify it exists
	_, ok, err := env.Drafts.GetItem(ctx, key)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !ok {
		return nil, errors.NewNotFound("draft", key)
	}

	if err := env.Drafts.RemoveItem(ctx, key); err != nil {
		return nil, errors.NewInternal(err)
	}
	env.Logger.Info().Str("key", key).Msg("draft deleted")
	return &DeleteDraftOutput{Deleted: true, Key: key}, nil
}
