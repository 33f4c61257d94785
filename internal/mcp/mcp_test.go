package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/ptnote/ptnote/internal/casestore"
	"github.com/ptnote/ptnote/internal/config"
	"github.com/ptnote/ptnote/internal/db"
	"github.com/ptnote/ptnote/internal/draftstore"
	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/ops"
)

// testSetup creates an Env over a temporary database whose directory is an
// allowed export location.
func testSetup(t *testing.T) (*ops.Env, string) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{tmpDir}

	return &ops.Env{
		Drafts: draftstore.NewSQLite(database),
		Cases:  casestore.NewSQLite(database),
		Config: cfg,
		Logger: zerolog.Nop(),
	}, tmpDir
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// call runs a handler and decodes its JSON payload.
func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (map[string]any, bool) {
	t.Helper()
	result, err := handler(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	return payload, result.IsError
}

// errorCode extracts the error code from an error payload.
func errorCode(t *testing.T, payload map[string]any) string {
	t.Helper()
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", payload)
	}
	return errObj["code"].(string)
}

func studentDraft() map[string]any {
	return map[string]any{
		"noteTitle":  "Initial Evaluation",
		"subjective": map[string]any{"chiefComplaint": "Right shoulder pain reaching overhead"},
		"objective":  map[string]any{"text": "Painful arc 70-120 degrees"},
		"assessment": map[string]any{"ptDiagnosis": "Rotator cuff tendinopathy"},
		"plan":       map[string]any{"interventions": "Scapular stabilization"},
		"billing":    map[string]any{"diagnosisCodes": []any{map[string]any{"code": "M75.111"}}},
	}
}

func createCase(t *testing.T, h *Handlers) string {
	t.Helper()
	payload, isErr := call(t, h.HandleCaseCreate, map[string]any{
		"mode": "faculty",
		"case": map[string]any{
			"meta": map[string]any{"title": "Shoulder Impingement"},
			"encounters": map[string]any{"eval": map[string]any{
				"assessment": map[string]any{"ptDiagnosis": "Subacromial pain syndrome"},
			}},
		},
	})
	if isErr {
		t.Fatalf("case_create failed: %v", payload)
	}
	if payload["title"] != "Shoulder Impingement" {
		t.Errorf("title = %v, want Shoulder Impingement", payload["title"])
	}
	return payload["id"].(string)
}

func TestHandleOpen(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	id := createCase(t, h)

	tests := []struct {
		name     string
		args     map[string]any
		wantCode string
		wantDx   string
	}{
		{"student hides answer key", map[string]any{"case_id": id}, "", ""},
		{"key mode shows answer key", map[string]any{"case_id": id, "mode": "key"}, "", "Subacromial pain syndrome"},
		{"faculty new case", map[string]any{"case_id": "new", "mode": "faculty"}, "", ""},
		{"student new case denied", map[string]any{"case_id": "new"}, string(errors.ErrAccessDenied), ""},
		{"missing case", map[string]any{"case_id": "01MISSING"}, string(errors.ErrNotFound), ""},
		{"missing case id", map[string]any{}, string(errors.ErrInvalidRequest), ""},
		{"unknown mode", map[string]any{"case_id": id, "mode": "admin"}, string(errors.ErrInvalidRequest), ""},
		{"unknown argument", map[string]any{"case_id": id, "encounter": "eval"}, string(errors.ErrInvalidRequest), ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, isErr := call(t, h.HandleOpen, tc.args)
			if tc.wantCode != "" {
				if !isErr {
					t.Fatalf("expected error %s, got %v", tc.wantCode, payload)
				}
				if got := errorCode(t, payload); got != tc.wantCode {
					t.Errorf("code = %s, want %s", got, tc.wantCode)
				}
				return
			}
			if isErr {
				t.Fatalf("unexpected error: %v", payload)
			}
			draft := payload["draft"].(map[string]any)
			dx := draft["assessment"].(map[string]any)["ptDiagnosis"]
			if dx != tc.wantDx {
				t.Errorf("ptDiagnosis = %v, want %q", dx, tc.wantDx)
			}
		})
	}
}

func TestHandleSave_StudentRoundTrip(t *testing.T) {
	env, dir := testSetup(t)
	h := NewHandlers(env)
	id := createCase(t, h)

	payload, isErr := call(t, h.HandleSave, map[string]any{"case_id": id, "draft": studentDraft()})
	if isErr {
		t.Fatalf("note_save failed: %v", payload)
	}
	if payload["saved"] != true {
		t.Errorf("saved = %v, want true", payload["saved"])
	}
	if payload["key"] != "draft_"+id+"_eval" {
		t.Errorf("key = %v", payload["key"])
	}

	payload, _ = call(t, h.HandleOpen, map[string]any{"case_id": id})
	if payload["overlaid"] != true {
		t.Errorf("overlaid = %v, want true", payload["overlaid"])
	}

	payload, _ = call(t, h.HandleLint, map[string]any{"case_id": id})
	if payload["valid"] != true {
		t.Errorf("lint = %v, want valid", payload)
	}

	payload, _ = call(t, h.HandleDraftList, map[string]any{"case_id": id})
	items := payload["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("draft_list items = %d, want 1", len(items))
	}
	if items[0].(map[string]any)["note_title"] != "Initial Evaluation" {
		t.Errorf("note_title = %v", items[0])
	}

	path := filepath.Join(dir, "shoulder.md")
	payload, isErr = call(t, h.HandleExport, map[string]any{"case_id": id, "path": path})
	if isErr {
		t.Fatalf("note_export failed: %v", payload)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}

	payload, isErr = call(t, h.HandleDraftFetch, map[string]any{"case_id": id})
	if isErr {
		t.Fatalf("draft_fetch failed: %v", payload)
	}
	if payload["draft"].(map[string]any)["noteTitle"] != "Initial Evaluation" {
		t.Errorf("fetched draft = %v", payload["draft"])
	}
}

func TestHandleSave_FacultyPromotesNewCase(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)

	payload, isErr := call(t, h.HandleSave, map[string]any{
		"case_id": "new",
		"mode":    "faculty",
		"draft":   studentDraft(),
	})
	if isErr {
		t.Fatalf("note_save failed: %v", payload)
	}
	if payload["promoted"] != true || payload["case_persisted"] != true {
		t.Fatalf("expected promotion, got %v", payload)
	}
	id := payload["case_id"].(string)
	if payload["key"] != "draft_"+id+"_eval" {
		t.Errorf("key = %v, want draft_%s_eval", payload["key"], id)
	}

	payload, isErr = call(t, h.HandleCaseFetch, map[string]any{"id": id, "mode": "faculty"})
	if isErr {
		t.Fatalf("case_fetch failed: %v", payload)
	}
	encounters := payload["case"].(map[string]any)["encounters"].(map[string]any)
	if _, ok := encounters["eval"]; !ok {
		t.Errorf("expected eval encounter in %v", encounters)
	}

	payload, _ = call(t, h.HandleDraftFetch, map[string]any{"case_id": "new"})
	if errorCode(t, payload) != string(errors.ErrNotFound) {
		t.Errorf("placeholder draft should be gone, got %v", payload)
	}
}

func TestHandleReset(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	id := createCase(t, h)

	if payload, isErr := call(t, h.HandleSave, map[string]any{"case_id": id, "draft": studentDraft()}); isErr {
		t.Fatalf("note_save failed: %v", payload)
	}

	payload, _ := call(t, h.HandleReset, map[string]any{"case_id": id})
	if payload["reset"] != false {
		t.Errorf("reset without confirm = %v, want false", payload["reset"])
	}
	if _, isErr := call(t, h.HandleDraftFetch, map[string]any{"case_id": id}); isErr {
		t.Fatal("draft should survive an unconfirmed reset")
	}

	payload, _ = call(t, h.HandleReset, map[string]any{"case_id": id, "confirm": true})
	if payload["reset"] != true {
		t.Errorf("reset with confirm = %v, want true", payload["reset"])
	}
	payload, _ = call(t, h.HandleDraftFetch, map[string]any{"case_id": id})
	if errorCode(t, payload) != string(errors.ErrNotFound) {
		t.Errorf("draft should be removed, got %v", payload)
	}
	if env.Confirm != nil {
		t.Error("reset must not leave a confirmer on the shared env")
	}
}

func TestHandleExport_Incomplete(t *testing.T) {
	env, dir := testSetup(t)
	h := NewHandlers(env)
	id := createCase(t, h)

	path := filepath.Join(dir, "blank.md")
	payload, isErr := call(t, h.HandleExport, map[string]any{"case_id": id, "path": path})
	if !isErr {
		t.Fatalf("expected error, got %v", payload)
	}
	if got := errorCode(t, payload); got != string(errors.ErrNoteIncomplete) {
		t.Errorf("code = %s, want %s", got, errors.ErrNoteIncomplete)
	}
	details := payload["error"].(map[string]any)["details"].(map[string]any)
	if missing := details["missing_sections"].([]any); len(missing) == 0 || missing[0] != "Chief complaint" {
		t.Errorf("missing_sections = %v", missing)
	}

	payload, isErr = call(t, h.HandleExport, map[string]any{"case_id": id, "path": path, "allow_incomplete": true})
	if isErr {
		t.Fatalf("allow_incomplete export failed: %v", payload)
	}
}

func TestHandleDraftMigrateAndDelete(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	ctx := context.Background()

	if err := env.Drafts.SetItem(ctx, "draft_new_eval", `{"noteTitle": "Moved"}`); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}

	payload, isErr := call(t, h.HandleDraftMigrate, map[string]any{"to_case_id": "01TARGET"})
	if isErr {
		t.Fatalf("draft_migrate failed: %v", payload)
	}
	if payload["moved"] != true || payload["new_key"] != "draft_01TARGET_eval" {
		t.Errorf("draft_migrate = %v", payload)
	}

	payload, isErr = call(t, h.HandleDraftDelete, map[string]any{"case_id": "01TARGET"})
	if isErr || payload["deleted"] != true {
		t.Fatalf("draft_delete = %v", payload)
	}

	payload, _ = call(t, h.HandleDraftDelete, map[string]any{"case_id": "01TARGET"})
	if errorCode(t, payload) != string(errors.ErrNotFound) {
		t.Errorf("second delete = %v, want NOT_FOUND", payload)
	}
}

func TestHandleCaseWrites_FacultyOnly(t *testing.T) {
	env, _ := testSetup(t)
	h := NewHandlers(env)
	id := createCase(t, h)

	payload, _ := call(t, h.HandleCaseCreate, map[string]any{"mode": "student"})
	if errorCode(t, payload) != string(errors.ErrAccessDenied) {
		t.Errorf("student case_create = %v", payload)
	}

	payload, isErr := call(t, h.HandleCaseUpdate, map[string]any{
		"id":   id,
		"mode": "faculty",
		"case": map[string]any{"meta": map[string]any{"title": "Shoulder Impingement, revised"}},
	})
	if isErr || payload["updated"] != true {
		t.Fatalf("case_update = %v", payload)
	}

	payload, _ = call(t, h.HandleCaseList, map[string]any{})
	items := payload["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["title"] != "Shoulder Impingement, revised" {
		t.Errorf("case_list = %v", payload)
	}

	payload, _ = call(t, h.HandleCaseFetch, map[string]any{"id": id})
	if payload["answer_key_hidden"] != true {
		t.Errorf("student case_fetch should hide answer key, got %v", payload)
	}
}

func TestServerRegistration(t *testing.T) {
	env, _ := testSetup(t)

	s := NewServer(env, "test")
	tools := s.ListTools()
	if len(tools) != len(toolRegistry) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry))
	}
	for _, name := range AllToolNames() {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	env, _ := testSetup(t)
	env.Config.DisabledTools = []string{"draft_delete", "case_update", "case_update"}

	s := NewServer(env, "test")
	tools := s.ListTools()
	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"draft_delete", "case_update"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["note_save"]; !ok {
		t.Error("note_save should be registered")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"all valid", []string{"note_save", "case_list"}, []string{}},
		{"some unknown", []string{"note_save", "note_publish"}, []string{"note_publish"}},
		{"empty", nil, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateDisabledTools(tc.input); !slices.Equal(got, tc.want) {
				t.Errorf("ValidateDisabledTools(%v) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	if !slices.IsSorted(names) {
		t.Errorf("AllToolNames() not sorted: %v", names)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	for _, err := range []error{
		errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")),
		fmt.Errorf("dial tcp 10.0.0.5:6379: connection refused"),
	} {
		r := errorResult(err)
		if !r.IsError {
			t.Fatal("expected IsError=true")
		}
		text := r.Content[0].(mcp.TextContent).Text

		var payload map[string]any
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			t.Fatalf("failed to unmarshal error payload: %v", err)
		}
		errObj := payload["error"].(map[string]any)
		if errObj["code"] != string(errors.ErrInternal) {
			t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInternal)
		}
		if _, ok := errObj["details"]; ok {
			t.Error("expected INTERNAL errors to omit details")
		}
		for _, leak := range []string{"secret.db", "10.0.0.5"} {
			if strings.Contains(text, leak) {
				t.Errorf("payload leaks %q: %s", leak, text)
			}
		}
	}
}

func TestErrorResult_WrappedErrorKeepsCode(t *testing.T) {
	r := errorResult(fmt.Errorf("open draft: %w", errors.NewNotFound("case", "01ABC")))

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if errObj["status"] != float64(404) {
		t.Errorf("status=%v, want 404", errObj["status"])
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected non-INTERNAL errors to include details when present")
	}
}
