package ops

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/ptnote/ptnote/internal/casestore"
	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
	"github.com/ptnote/ptnote/internal/session"
)

var errNoCaseStore = stderrors.New("no case store configured")

// GetCaseInput contains parameters for the GetCase operation.
type GetCaseInput struct {
	ID   string
	Mode string
}

// GetCaseOutput contains the result of the GetCase operation.
type GetCaseOutput struct {
	Case *note.CaseRecord `json:"case"`
	// AnswerKeyHidden is set when encounters were withheld (student mode).
	AnswerKeyHidden bool `json:"answer_key_hidden,omitempty"`
}

// GetCase reads a case record. Students get the case without its encounter
// answer keys.
func GetCase(ctx context.Context, env *Env, input GetCaseInput) (*GetCaseOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	mode, err := session.ParseMode(input.Mode)
	if err != nil {
		return nil, err
	}
	if env.Cases == nil {
		return nil, errors.NewInternal(errNoCaseStore)
	}

	rec, err := env.Cases.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &GetCaseOutput{Case: rec}
	if mode == session.ModeStudent {
		rec.Encounters = map[string]*note.Encounter{}
		out.AnswerKeyHidden = true
	}
	return out, nil
}

// ListCasesInput contains parameters for the ListCases operation.
type ListCasesInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListCasesOutput contains the result of the ListCases operation.
type ListCasesOutput struct {
	Items      []casestore.Summary `json:"items"`
	Pagination Pagination          `json:"pagination"`
	Sort       string              `json:"sort"`
}

// ListCases lists case summaries, most recently updated first.
func ListCases(ctx context.Context, env *Env, input ListCasesInput) (*ListCasesOutput, error) {
	if env.Cases == nil {
		return nil, errors.NewInternal(errNoCaseStore)
	}
	limit, offset := clampPage(input.Limit, input.Offset)

	all, err := env.Cases.List(ctx)
	if err != nil {
		return nil, err
	}
	total := len(all)
	items := []casestore.Summary{}
	if offset < total {
		items = append(items, all[offset:min(offset+limit, total)]...)
	}
	return &ListCasesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

// CreateCaseInput contains parameters for the CreateCase operation.
type CreateCaseInput struct {
	Mode string
	// Case is the record to create. Empty creates a blank case.
	Case json.RawMessage
}

// CreateCaseOutput contains the result of the CreateCase operation.
type CreateCaseOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CreateCase persists a new case record. Faculty only.
func CreateCase(ctx context.Context, env *Env, input CreateCaseInput) (*CreateCaseOutput, error) {
	if err := requireFaculty("create case", input.Mode); err != nil {
		return nil, err
	}
	if env.Cases == nil {
		return nil, errors.NewInternal(errNoCaseStore)
	}

	rec := note.NewBlankCaseRecord()
	if len(input.Case) > 0 {
		var err error
		if rec, err = parseCaseInput(input.Case); err != nil {
			return nil, err
		}
	}

	id, err := env.Cases.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	env.Logger.Info().Str("case_id", id).Msg("case created")
	return &CreateCaseOutput{ID: id, Title: rec.Meta.Title}, nil
}

// UpdateCaseInput contains parameters for the UpdateCase operation.
type UpdateCaseInput struct {
	ID   string
	Mode string
	Case json.RawMessage
}

// UpdateCaseOutput contains the result of the UpdateCase operation.
type UpdateCaseOutput struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

// UpdateCase replaces an existing case record. Faculty only.
func UpdateCase(ctx context.Context, env *Env, input UpdateCaseInput) (*UpdateCaseOutput, error) {
	if err := requireFaculty("update case", input.Mode); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" || id == note.NewCaseID {
		return nil, errors.NewInvalidRequest("id must name an existing case")
	}
	if len(input.Case) == 0 {
		return nil, errors.NewInvalidRequest("case is required")
	}
	if env.Cases == nil {
		return nil, errors.NewInternal(errNoCaseStore)
	}

	rec, err := parseCaseInput(input.Case)
	if err != nil {
		return nil, err
	}
	if err := env.Cases.Update(ctx, id, rec); err != nil {
		return nil, err
	}
	return &UpdateCaseOutput{ID: id, Updated: true}, nil
}

func parseCaseInput(data []byte) (*note.CaseRecord, error) {
	rec, err := note.ParseCaseRecord(data)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid case record: %v", err))
	}
	return rec, nil
}
