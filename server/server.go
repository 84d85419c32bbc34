// Package server exposes the capture workflows over the Model Context
// Protocol on stdio.
//
// Stdout belongs to the MCP transport; all logging goes to stderr.
package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/seam-io/seam/capture"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/types"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capture_start": {
		def:     startToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStart },
	},
	"capture_continue": {
		def:     continueToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContinue },
	},
	"capture_finalize": {
		def:     finalizeToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFinalize },
	},
	"capture_save": {
		def:     saveToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"capture_stats": {
		def:     statsToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
}

// AllToolNames returns the registered tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns the unknown tool names from the list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the capture tools registered.
// Tools listed in disabledTools are excluded from registration.
func NewServer(wf *capture.Workflow, logger *log.Logger, disabledTools []string) *server.MCPServer {
	s := server.NewMCPServer(
		"seam",
		types.Version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool, len(disabledTools))
	for _, name := range disabledTools {
		disabled[name] = true
	}

	h := NewHandlers(wf, logger)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server on stdio and blocks until the transport closes.
func Run(wf *capture.Workflow, logger *log.Logger, disabledTools []string) error {
	return server.ServeStdio(NewServer(wf, logger, disabledTools))
}

func startToolDef() mcp.Tool {
	return mcp.NewTool("capture_start",
		mcp.WithDescription(
			"Start a multi-part capture session for content too large to send in one call. "+
				"Returns a session id; deliver the content with capture_continue.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title for the captured content"),
		),
		mcp.WithNumber("expected_parts",
			mcp.Required(),
			mcp.Description("Number of parts that will be sent (minimum 2)"),
		),
		mcp.WithNumber("estimated_size",
			mcp.Description("Estimated total size in characters"),
		),
		mcp.WithString("kind",
			mcp.Description("Content kind: conversation, artifact, code, or mixed. Inferred when omitted."),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Stable conversation identifier for living-document updates"),
		),
		mcp.WithString("platform",
			mcp.Description("Source platform, e.g. claude or chatgpt"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Extra metadata stamped onto every stored record"),
		),
	)
}

func continueToolDef() mcp.Tool {
	return mcp.NewTool("capture_continue",
		mcp.WithDescription(
			"Deliver one part of an active capture session. The session finalizes "+
				"automatically when the last part arrives.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id from capture_start"),
		),
		mcp.WithNumber("part_number",
			mcp.Required(),
			mcp.Description("1-based part number; resending a number replaces that part"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The part content"),
		),
		mcp.WithBoolean("is_last_part",
			mcp.Description("Mark this as the final part, finalizing the session now"),
		),
	)
}

func finalizeToolDef() mcp.Tool {
	return mcp.NewTool("capture_finalize",
		mcp.WithDescription(
			"Finalize an active capture session explicitly, persisting everything "+
				"received so far. Sessions normally finalize via capture_continue.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id from capture_start"),
		),
	)
}

func saveToolDef() mcp.Tool {
	return mcp.NewTool("capture_save",
		mcp.WithDescription(
			"Save content in one call. Oversized content is split into segments and "+
				"tied together with an index record. With a conversation_id, a repeat "+
				"save updates the existing record instead of creating a duplicate.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The content to save"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title for the stored record"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags for the stored record"),
		),
		mcp.WithString("kind",
			mcp.Description("Content kind: conversation, artifact, code, or mixed. Inferred when omitted."),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Stable conversation identifier for living-document updates"),
		),
		mcp.WithString("platform",
			mcp.Description("Source platform, e.g. claude or chatgpt"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Extra metadata stamped onto the stored record"),
		),
	)
}

func statsToolDef() mcp.Tool {
	return mcp.NewTool("capture_stats",
		mcp.WithDescription("Report session occupancy and workflow counters for this process."),
	)
}
