package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/seam-io/seam/capture"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/trove"
	"github.com/seam-io/seam/types"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	wf     *capture.Workflow
	logger *log.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(wf *capture.Workflow, logger *log.Logger) *Handlers {
	return &Handlers{wf: wf, logger: logger}
}

// Request types for each tool

// StartRequest represents the arguments for capture_start.
type StartRequest struct {
	Title          string         `json:"title"`
	ExpectedParts  int            `json:"expected_parts"`
	EstimatedSize  int            `json:"estimated_size,omitempty"`
	Kind           string         `json:"kind,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Platform       string         `json:"platform,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ContinueRequest represents the arguments for capture_continue.
type ContinueRequest struct {
	SessionID  string `json:"session_id"`
	PartNumber int    `json:"part_number"`
	Content    string `json:"content"`
	IsLastPart bool   `json:"is_last_part,omitempty"`
}

// FinalizeRequest represents the arguments for capture_finalize.
type FinalizeRequest struct {
	SessionID string `json:"session_id"`
}

// SaveRequest represents the arguments for capture_save.
type SaveRequest struct {
	Content        string         `json:"content"`
	Title          string         `json:"title"`
	Tags           []string       `json:"tags,omitempty"`
	Kind           string         `json:"kind,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Platform       string         `json:"platform,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Handler implementations

// HandleStart handles the capture_start tool call.
func (h *Handlers) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StartRequest](req)
	if err != nil {
		return errorResult(&capture.ValidationError{Field: "arguments", Reason: err.Error()}), nil
	}

	result, err := h.wf.StartSession(ctx, capture.StartInput{
		Title:          input.Title,
		ExpectedParts:  input.ExpectedParts,
		EstimatedSize:  input.EstimatedSize,
		Kind:           types.ContentKind(input.Kind),
		Metadata:       input.Metadata,
		ConversationID: input.ConversationID,
		Platform:       input.Platform,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContinue handles the capture_continue tool call.
func (h *Handlers) HandleContinue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContinueRequest](req)
	if err != nil {
		return errorResult(&capture.ValidationError{Field: "arguments", Reason: err.Error()}), nil
	}

	result, err := h.wf.ContinueSession(ctx, capture.ContinueInput{
		SessionID:  input.SessionID,
		PartNumber: input.PartNumber,
		Content:    input.Content,
		IsLastPart: input.IsLastPart,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFinalize handles the capture_finalize tool call.
func (h *Handlers) HandleFinalize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FinalizeRequest](req)
	if err != nil {
		return errorResult(&capture.ValidationError{Field: "arguments", Reason: err.Error()}), nil
	}

	result, err := h.wf.FinalizeSession(ctx, input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSave handles the capture_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(&capture.ValidationError{Field: "arguments", Reason: err.Error()}), nil
	}

	result, err := h.wf.Save(ctx, capture.SaveInput{
		Content:        input.Content,
		Title:          input.Title,
		Tags:           input.Tags,
		Kind:           types.ContentKind(input.Kind),
		Metadata:       input.Metadata,
		ConversationID: input.ConversationID,
		Platform:       input.Platform,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStats handles the capture_stats tool call.
func (h *Handlers) HandleStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{
		"sessions": h.wf.SessionStats(),
		"counters": h.wf.Metrics(),
	})
}

// Result helpers

// errorResult creates an MCP error result with a structured payload.
// Uses IsError: true so MCP clients recognize failures properly.
func errorResult(err error) *mcp.CallToolResult {
	payload := map[string]any{"error": errorObject(err)}
	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func errorObject(err error) map[string]any {
	var verr *capture.ValidationError
	if errors.As(err, &verr) {
		return map[string]any{
			"code":    "INVALID",
			"message": verr.Error(),
			"status":  400,
		}
	}
	if errors.Is(err, capture.ErrSessionNotFound) {
		return map[string]any{
			"code":    "NOT_FOUND",
			"message": err.Error(),
			"status":  404,
		}
	}
	if errors.Is(err, capture.ErrSessionCompleted) {
		return map[string]any{
			"code":    "CONFLICT",
			"message": err.Error(),
			"status":  409,
		}
	}
	var serr *trove.StorageError
	if errors.As(err, &serr) {
		return map[string]any{
			"code":    "STORAGE",
			"message": serr.Error(),
			"status":  502,
		}
	}
	return map[string]any{
		"code":    "INTERNAL",
		"message": "an internal error occurred",
		"status":  500,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
