package mcp

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"name", "round"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"name_create": {
		def:     createToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"name_create_many": {
		def:     createManyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreateMany },
	},
	"name_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"name_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"name_favorites": {
		def:     favoritesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFavorites },
	},
	"name_leaderboard": {
		def:     leaderboardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeaderboard },
	},
	"name_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"name_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"name_bulk_delete": {
		def:     bulkDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBulkDelete },
	},
	"name_rank": {
		def:     rankToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRank },
	},
	"name_seed": {
		def:     seedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSeed },
	},
	"name_reset": {
		def:     resetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
	"name_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"name_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"name_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"round_load": {
		def:     roundLoadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoundLoad },
	},
	"round_show": {
		def:     roundShowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoundShow },
	},
	"round_select": {
		def:     roundSelectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoundSelect },
	},
	"round_deselect": {
		def:     roundDeselectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoundDeselect },
	},
	"round_submit": {
		def:     roundSubmitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRoundSubmit },
	},
}

// AllToolNames returns every valid tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
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

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "round_submit" → "round").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// enabledTools returns the registry names not excluded by cfg, sorted.
func enabledTools(cfg *config.Config) []string {
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	enabled := make([]string, 0, len(toolRegistry))
	for _, name := range AllToolNames() {
		if !disabled[name] {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// NewServer creates a new MCP server with cradle tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string, logger zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"cradle",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, logger)
	for _, name := range enabledTools(cfg) {
		entry := toolRegistry[name]
		s.AddTool(entry.def, h.logged(name, entry.handler(h)))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string, logger zerolog.Logger) error {
	s := NewServer(db, cfg, version, logger)
	logger.Info().Int("tools", len(enabledTools(cfg))).Msg("serving MCP over stdio")
	return server.ServeStdio(s)
}

// logged attaches the handler logger to ctx and records each call.
func (h *Handlers) logged(tool string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx = h.log.WithContext(ctx)

		res, err := next(ctx, req)

		ev := h.log.Debug()
		if err != nil || (res != nil && res.IsError) {
			ev = h.log.Warn()
		}
		ev.Str("tool", tool).Dur("elapsed", time.Since(start)).Bool("error", res != nil && res.IsError).Msg("tool call")
		return res, err
	}
}
