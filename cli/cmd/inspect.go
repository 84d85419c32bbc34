package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/seam-io/seam/archive"
	"github.com/seam-io/seam/cli/render"
)

// InspectResponse is the non-TUI view of a capture archive. Segment
// content is deliberately omitted; use reassemble for the payload.
type InspectResponse struct {
	SessionID      string           `json:"session_id"`
	Title          string           `json:"title"`
	Kind           string           `json:"kind"`
	CaptureType    string           `json:"capture_type"`
	TotalParts     int              `json:"total_parts"`
	TotalSize      int              `json:"total_size"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Platform       string           `json:"platform,omitempty"`
	CreatedAt      string           `json:"created_at"`
	Outcome        string           `json:"outcome"`
	Segments       []InspectSegment `json:"segments"`
	IndexID        string           `json:"index_id,omitempty"`
	FailureReason  string           `json:"failure_reason,omitempty"`
}

// InspectSegment summarizes one archived segment.
type InspectSegment struct {
	PartNumber int    `json:"part_number"`
	RecordID   string `json:"record_id,omitempty"`
	SizeBytes  int    `json:"size_bytes"`
	Written    bool   `json:"written"`
}

// InspectCommand returns the inspect command for capture archives.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a capture archive file",
		ArgsUsage: "<archive-file>",
		Flags:     ReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("inspect requires exactly one archive file argument", 1)
	}

	summary, err := archive.ReadSummaryFile(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("read archive: %v", err), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_archive", summary)
	}
	return r.Render(inspectResponse(summary))
}

func inspectResponse(s *archive.Summary) InspectResponse {
	resp := InspectResponse{
		SessionID:      s.Header.SessionID,
		Title:          s.Header.Title,
		Kind:           s.Header.Kind,
		CaptureType:    s.Header.CaptureType,
		TotalParts:     s.Header.TotalParts,
		TotalSize:      s.Header.TotalSize,
		ConversationID: s.Header.ConversationID,
		Platform:       s.Header.Platform,
		CreatedAt:      s.Header.CreatedAt,
		Outcome:        "complete",
	}
	if s.Index != nil {
		resp.IndexID = s.Index.IndexID
		resp.FailureReason = s.Index.FailureReason
		if s.Index.Partial {
			resp.Outcome = "partial"
		}
	}
	if s.Truncated {
		resp.Outcome = "truncated"
	}
	for _, seg := range s.Segments {
		resp.Segments = append(resp.Segments, InspectSegment{
			PartNumber: seg.PartNumber,
			RecordID:   seg.RecordID,
			SizeBytes:  seg.SizeBytes,
			Written:    seg.RecordID != "",
		})
	}
	return resp
}
