package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Shared argument descriptions.
const (
	caseIDDesc      = "Case id, or \"new\" for an unsaved case (faculty mode only)"
	encounterIDDesc = "Encounter id (default: eval). Must not contain underscores"
	modeDesc        = "Editor mode: student (default), faculty or key"
)

func targetArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("case_id", mcp.Required(), mcp.Description(caseIDDesc)),
		mcp.WithString("encounter_id", mcp.Description(encounterIDDesc)),
		mcp.WithString("mode", mcp.Description(modeDesc), mcp.Enum("student", "faculty", "key")),
	}
}

var openToolDef = mcp.NewTool("note_open", append([]mcp.ToolOption{
	mcp.WithDescription("Open a SOAP note draft for a case encounter. Faculty and key mode merge the case record into the template; student and faculty mode then overlay any saved draft."),
	mcp.WithReadOnlyHintAnnotation(true),
}, targetArgs()...)...)

var saveToolDef = mcp.NewTool("note_save", append([]mcp.ToolOption{
	mcp.WithDescription("Save a SOAP note draft. Sections present in draft replace the opened ones. Faculty saves also write the encounter into the case record; saving case \"new\" creates the case and moves the draft to the real id. Key mode saves nothing."),
	mcp.WithObject("draft", mcp.Description("Draft sections to save: subjective, objective, assessment, plan, billing, meta")),
}, targetArgs()...)...)

var resetToolDef = mcp.NewTool("note_reset", append([]mcp.ToolOption{
	mcp.WithDescription("Reset a draft to the empty template and remove the saved copy. Nothing happens unless confirm is true."),
	mcp.WithBoolean("confirm", mcp.Description("Must be true to reset")),
	mcp.WithDestructiveHintAnnotation(true),
}, targetArgs()...)...)

var exportToolDef = mcp.NewTool("note_export", append([]mcp.ToolOption{
	mcp.WithDescription("Export a draft as Markdown or HTML. Incomplete notes are rejected unless allow_incomplete is set."),
	mcp.WithString("format", mcp.Description("Output format: markdown (default) or html"), mcp.Enum("markdown", "html")),
	mcp.WithString("path", mcp.Description("Output file path (default: ~/.ptnote/exports/<title>-<case>-<encounter>-<timestamp>.<ext>)")),
	mcp.WithBoolean("allow_incomplete", mcp.Description("Export even when required sections are missing")),
}, targetArgs()...)...)

var lintToolDef = mcp.NewTool("note_lint", append([]mcp.ToolOption{
	mcp.WithDescription("Report which required SOAP sections the opened draft is still missing."),
	mcp.WithReadOnlyHintAnnotation(true),
}, targetArgs()...)...)

var draftListToolDef = mcp.NewTool("draft_list",
	mcp.WithDescription("List saved drafts, optionally for one case. Sorted by key."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("case_id", mcp.Description("Only list drafts for this case")),
	mcp.WithNumber("limit", mcp.Description("Max items (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default: 0)")),
)

var draftFetchToolDef = mcp.NewTool("draft_fetch",
	mcp.WithDescription("Read a saved draft as stored, without merging the case record."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("case_id", mcp.Required(), mcp.Description(caseIDDesc)),
	mcp.WithString("encounter_id", mcp.Description(encounterIDDesc)),
)

var draftDeleteToolDef = mcp.NewTool("draft_delete",
	mcp.WithDescription("Delete a saved draft without confirmation."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("case_id", mcp.Required(), mcp.Description(caseIDDesc)),
	mcp.WithString("encounter_id", mcp.Description(encounterIDDesc)),
)

var draftMigrateToolDef = mcp.NewTool("draft_migrate",
	mcp.WithDescription("Move a saved draft from one case id to another, removing the old key."),
	mcp.WithString("from_case_id", mcp.Description("Source case id (default: new)")),
	mcp.WithString("to_case_id", mcp.Required(), mcp.Description("Destination case id")),
	mcp.WithString("encounter_id", mcp.Description(encounterIDDesc)),
)

var caseFetchToolDef = mcp.NewTool("case_fetch",
	mcp.WithDescription("Read a case record. Student mode hides the encounter answer keys."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Case id")),
	mcp.WithString("mode", mcp.Description(modeDesc), mcp.Enum("student", "faculty", "key")),
)

var caseListToolDef = mcp.NewTool("case_list",
	mcp.WithDescription("List case summaries, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max items (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default: 0)")),
)

var caseCreateToolDef = mcp.NewTool("case_create",
	mcp.WithDescription("Create a case record (faculty mode only). Omit case for a blank record."),
	mcp.WithString("mode", mcp.Required(), mcp.Description("Must be faculty")),
	mcp.WithObject("case", mcp.Description("Case record: meta, snapshot, history, findings, encounters")),
)

var caseUpdateToolDef = mcp.NewTool("case_update",
	mcp.WithDescription("Replace a case record (faculty mode only)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Case id")),
	mcp.WithString("mode", mcp.Required(), mcp.Description("Must be faculty")),
	mcp.WithObject("case", mcp.Required(), mcp.Description("Full case record")),
)
