package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// TargetRequest addresses one encounter draft in an editor mode.
type TargetRequest struct {
	CaseID      string `json:"case_id"`
	EncounterID string `json:"encounter_id,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

func (r TargetRequest) target() ops.Target {
	return ops.Target{CaseID: r.CaseID, EncounterID: r.EncounterID, Mode: r.Mode}
}

// SaveRequest represents the arguments for note_save.
type SaveRequest struct {
	TargetRequest
	Draft json.RawMessage `json:"draft,omitempty"`
}

// ResetRequest represents the arguments for note_reset.
type ResetRequest struct {
	TargetRequest
	Confirm bool `json:"confirm,omitempty"`
}

// ExportRequest represents the arguments for note_export.
type ExportRequest struct {
	TargetRequest
	Format          string `json:"format,omitempty"`
	Path            string `json:"path,omitempty"`
	AllowIncomplete bool   `json:"allow_incomplete,omitempty"`
}

// DraftListRequest represents the arguments for draft_list.
type DraftListRequest struct {
	CaseID string `json:"case_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// DraftRequest addresses a stored draft for draft_fetch and draft_delete.
type DraftRequest struct {
	CaseID      string `json:"case_id"`
	EncounterID string `json:"encounter_id,omitempty"`
}

func (r DraftRequest) address() ops.DraftAddress {
	return ops.DraftAddress{CaseID: r.CaseID, EncounterID: r.EncounterID}
}

// DraftMigrateRequest represents the arguments for draft_migrate.
type DraftMigrateRequest struct {
	FromCaseID  string `json:"from_case_id,omitempty"`
	ToCaseID    string `json:"to_case_id"`
	EncounterID string `json:"encounter_id,omitempty"`
}

// CaseFetchRequest represents the arguments for case_fetch.
type CaseFetchRequest struct {
	ID   string `json:"id"`
	Mode string `json:"mode,omitempty"`
}

// CaseListRequest represents the arguments for case_list.
type CaseListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// CaseWriteRequest represents the arguments for case_create and case_update.
type CaseWriteRequest struct {
	ID   string          `json:"id,omitempty"`
	Mode string          `json:"mode"`
	Case json.RawMessage `json:"case,omitempty"`
}

// Handler implementations

// HandleOpen handles the note_open tool call.
func (h *Handlers) HandleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TargetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Open(ctx, h.env, ops.OpenInput{Target: input.target()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSave handles the note_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(ctx, h.env, ops.SaveInput{
		Target: input.target(),
		Draft:  input.Draft,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReset handles the note_reset tool call. The confirm argument stands
// in for the interactive prompt.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	env := *h.env
	env.Confirm = func(context.Context, string) (bool, error) { return input.Confirm, nil }

	result, err := ops.Reset(ctx, &env, ops.ResetInput{Target: input.target()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the note_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.env, ops.ExportInput{
		Target:          input.target(),
		Format:          input.Format,
		Path:            input.Path,
		AllowIncomplete: input.AllowIncomplete,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLint handles the note_lint tool call.
func (h *Handlers) HandleLint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TargetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Lint(ctx, h.env, ops.LintInput{Target: input.target()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDraftList handles the draft_list tool call.
func (h *Handlers) HandleDraftList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListDrafts(ctx, h.env, ops.ListDraftsInput{
		CaseID: input.CaseID,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDraftFetch handles the draft_fetch tool call.
func (h *Handlers) HandleDraftFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchDraft(ctx, h.env, ops.FetchDraftInput{DraftAddress: input.address()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDraftDelete handles the draft_delete tool call.
func (h *Handlers) HandleDraftDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteDraft(ctx, h.env, ops.DeleteDraftInput{DraftAddress: input.address()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDraftMigrate handles the draft_migrate tool call.
func (h *Handlers) HandleDraftMigrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftMigrateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MigrateDraftKey(ctx, h.env, ops.MigrateDraftKeyInput{
		FromCaseID:  input.FromCaseID,
		ToCaseID:    input.ToCaseID,
		EncounterID: input.EncounterID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCaseFetch handles the case_fetch tool call.
func (h *Handlers) HandleCaseFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaseFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetCase(ctx, h.env, ops.GetCaseInput{ID: input.ID, Mode: input.Mode})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCaseList handles the case_list tool call.
func (h *Handlers) HandleCaseList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaseListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListCases(ctx, h.env, ops.ListCasesInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCaseCreate handles the case_create tool call.
func (h *Handlers) HandleCaseCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaseWriteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateCase(ctx, h.env, ops.CreateCaseInput{Mode: input.Mode, Case: input.Case})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCaseUpdate handles the case_update tool call.
func (h *Handlers) HandleCaseUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaseWriteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateCase(ctx, h.env, ops.UpdateCaseInput{ID: input.ID, Mode: input.Mode, Case: input.Case})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error. Details of
// internal errors are withheld so driver and file system messages do not
// reach the client.
func errorResult(err error) *mcp.CallToolResult {
	res := errors.ToResult(err)
	errorObj := map[string]any{
		"code":    res.Code,
		"title":   res.Title,
		"message": res.Message,
		"status":  500,
	}

	var nErr *errors.NoteError
	if stderrors.As(err, &nErr) {
		errorObj["status"] = nErr.Status
		if nErr.Code != errors.ErrInternal && nErr.Details != nil {
			errorObj["details"] = nErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
