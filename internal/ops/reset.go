package ops

import (
	"context"
)

// ResetInput contains parameters for the Reset operation.
type ResetInput struct {
	Target
}

// ResetOutput contains the result of the Reset operation.
type ResetOutput struct {
	Key   string `json:"key"`
	Reset bool   `json:"reset"`
}

// Reset clears a draft back to the empty template after confirmation.
func Reset(ctx context.Context, env *Env, input ResetInput) (*ResetOutput, error) {
	sess, err := openSession(ctx, env, input.Target, nil)
	if err != nil {
		return nil, err
	}
	ok, err := sess.ResetDraft(ctx)
	if err != nil {
		return nil, err
	}
	return &ResetOutput{Key: sess.StorageKey(), Reset: ok}, nil
}
