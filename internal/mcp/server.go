// Package mcp exposes the note operations as MCP tools over stdio.
package mcp

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ptnote/ptnote/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"note_open": {
		def:     openToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOpen },
	},
	"note_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"note_reset": {
		def:     resetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
	"note_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"note_lint": {
		def:     lintToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLint },
	},
	"draft_list": {
		def:     draftListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftList },
	},
	"draft_fetch": {
		def:     draftFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftFetch },
	},
	"draft_delete": {
		def:     draftDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftDelete },
	},
	"draft_migrate": {
		def:     draftMigrateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftMigrate },
	},
	"case_fetch": {
		def:     caseFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaseFetch },
	},
	"case_list": {
		def:     caseListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaseList },
	},
	"case_create": {
		def:     caseCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaseCreate },
	},
	"case_update": {
		def:     caseUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaseUpdate },
	},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the note tools registered. Tools
// listed in the config's DisabledTools are skipped.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ptnote",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	if env.Config != nil {
		for _, name := range env.Config.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s := NewServer(env, version)
	return server.ServeStdio(s)
}
