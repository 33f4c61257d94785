package ops

import (
	"context"
	"strings"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

// ListDraftsInput contains parameters for the ListDrafts operation.
type ListDraftsInput struct {
	CaseID string // optional filter
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// DraftSummary describes one stored draft.
type DraftSummary struct {
	Key         string `json:"key"`
	CaseID      string `json:"case_id"`
	EncounterID string `json:"encounter_id"`
	NoteTitle   string `json:"note_title,omitempty"`
	SavedAt     string `json:"saved_at,omitempty"`
	// Malformed is set when the stored value is not a readable draft.
	Malformed bool `json:"malformed,omitempty"`
}

// ListDraftsOutput contains the result of the ListDrafts operation.
type ListDraftsOutput struct {
	Items      []DraftSummary `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// ListDrafts lists the draft_{caseId}_{encounterId} keys in the draft store.
// Keys that are not draft keys are skipped.
func ListDrafts(ctx context.Context, env *Env, input ListDraftsInput) (*ListDraftsOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset)
	caseFilter := strings.TrimSpace(input.CaseID)

	keys, err := env.Drafts.Keys(ctx)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var matched []DraftSummary
	for _, key := range keys {
		caseID, encounterID, ok := note.ParseStorageKey(key)
		if !ok {
			continue
		}
		if caseFilter != "" && caseID != caseFilter {
			continue
		}
		matched = append(matched, DraftSummary{Key: key, CaseID: caseID, EncounterID: encounterID})
	}

	total := len(matched)
	end := min(offset+limit, total)
	items := []DraftSummary{}
	if offset < total {
		items = append(items, matched[offset:end]...)
	}

	// Only the returned page is read back for titles.
	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("list drafts")
		}
		value, ok, err := env.Drafts.GetItem(ctx, items[i].Key)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if !ok {
			continue
		}
		d, err := note.ParseDraft([]byte(value))
		if err != nil {
			items[i].Malformed = true
			continue
		}
		items[i].NoteTitle = d.NoteTitle
		items[i].SavedAt = d.SavedAt
	}

	return &ListDraftsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "key_asc",
	}, nil
}
