package server

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seam-io/seam/capture"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/session"
	"github.com/seam-io/seam/trove"
)

func testHandlers(_ *testing.T) (*Handlers, *trove.StubClient) {
	stub := trove.NewStubClient()
	logger := log.NewLogger().WithOutput(io.Discard)
	wf := capture.New(stub, session.NewMemoryRepository(), logger, capture.Config{MaxChunkChars: 200})
	return NewHandlers(wf, logger), stub
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultText extracts the text payload of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not text")
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), v))
}

func errorCode(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeResult(t, res, &payload)
	return payload.Error.Code
}

func TestHandleSaveSingle(t *testing.T) {
	h, stub := testHandlers(t)

	res, err := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"title":   "note",
		"content": "a short payload",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out struct {
		CaptureType string `json:"capture_type"`
		RecordID    string `json:"record_id"`
	}
	decodeResult(t, res, &out)
	assert.Equal(t, "single", out.CaptureType)
	assert.NotNil(t, stub.Records[out.RecordID])
}

func TestHandleSaveChunked(t *testing.T) {
	h, _ := testHandlers(t)

	content := strings.Repeat("paragraph of filler text\n\n", 40)
	res, err := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"title":   "big",
		"content": content,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out struct {
		CaptureType string `json:"capture_type"`
		IndexID     string `json:"index_id"`
		Segments    []any  `json:"segments"`
	}
	decodeResult(t, res, &out)
	assert.Equal(t, "chunked", out.CaptureType)
	assert.NotEmpty(t, out.IndexID)
	assert.Greater(t, len(out.Segments), 1)
}

func TestHandleSaveValidation(t *testing.T) {
	h, stub := testHandlers(t)

	res, err := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"title":   "note",
		"content": "",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "INVALID", errorCode(t, res))
	assert.Empty(t, stub.Ops, "validation failures must not reach storage")
}

func TestSessionLifecycleOverTools(t *testing.T) {
	h, _ := testHandlers(t)
	ctx := context.Background()

	res, err := h.HandleStart(ctx, makeRequest(map[string]any{
		"title":          "chat log",
		"expected_parts": 2,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var started struct {
		SessionID string `json:"session_id"`
	}
	decodeResult(t, res, &started)
	require.NotEmpty(t, started.SessionID)

	res, err = h.HandleContinue(ctx, makeRequest(map[string]any{
		"session_id":  started.SessionID,
		"part_number": 1,
		"content":     "first half ",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = h.HandleContinue(ctx, makeRequest(map[string]any{
		"session_id":   started.SessionID,
		"part_number":  2,
		"content":      "second half",
		"is_last_part": true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var cont struct {
		Finalized bool `json:"finalized"`
		Finalize  struct {
			Segments []any `json:"segments"`
		} `json:"finalize"`
	}
	decodeResult(t, res, &cont)
	assert.True(t, cont.Finalized)
	assert.Len(t, cont.Finalize.Segments, 1)

	// The consumed session refuses further parts.
	res, err = h.HandleContinue(ctx, makeRequest(map[string]any{
		"session_id":  started.SessionID,
		"part_number": 3,
		"content":     "late",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "CONFLICT", errorCode(t, res))
}

func TestHandleContinueUnknownSession(t *testing.T) {
	h, _ := testHandlers(t)

	res, err := h.HandleContinue(context.Background(), makeRequest(map[string]any{
		"session_id":  "missing",
		"part_number": 1,
		"content":     "x",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "NOT_FOUND", errorCode(t, res))
}

func TestHandleStats(t *testing.T) {
	h, _ := testHandlers(t)

	res, err := h.HandleStats(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out struct {
		Sessions session.Stats `json:"sessions"`
	}
	decodeResult(t, res, &out)
	assert.Equal(t, 0, out.Sessions.Active)
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"capture_save", "bogus_tool"})
	assert.Equal(t, []string{"bogus_tool"}, unknown)
}
