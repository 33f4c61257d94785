package ops

import (
	"context"

	"github.com/ptnote/ptnote/internal/note"
)

// LintInput contains parameters for the Lint operation.
type LintInput struct {
	Target
}

// LintOutput contains the result of the Lint operation.
type LintOutput struct {
	Key string `json:"key"`
	*note.LintResult
}

// Lint opens a session and reports which required sections its draft lacks.
func Lint(ctx context.Context, env *Env, input LintInput) (*LintOutput, error) {
	sess, err := openSession(ctx, env, input.Target, nil)
	if err != nil {
		return nil, err
	}
	return &LintOutput{Key: sess.StorageKey(), LintResult: note.Lint(sess.Draft())}, nil
}
