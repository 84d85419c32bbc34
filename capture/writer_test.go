package capture

import (
	"strings"
	"testing"

	"github.com/seam-io/seam/trove"
	"github.com/seam-io/seam/types"
)

func TestSegmentRequestReservedKeys(t *testing.T) {
	meta := SegmentMeta{
		SessionID:  "sess-1",
		Title:      "capture",
		TotalParts: 3,
		Metadata: map[string]any{
			"partNumber": 99, // user metadata must not clobber segment linkage
			"source":     "test",
		},
	}
	seg := types.Segment{Content: "body", PartNumber: 2, SizeBytes: 4}

	req := segmentRequest(meta, seg)
	if req.Metadata[trove.MetaPartNumber] != 2 {
		t.Errorf("partNumber = %v, want 2", req.Metadata[trove.MetaPartNumber])
	}
	if req.Metadata["source"] != "test" {
		t.Errorf("source = %v, want passthrough", req.Metadata["source"])
	}
	if req.Title != "capture (part 2/3)" {
		t.Errorf("Title = %q", req.Title)
	}
	if req.Metadata[trove.MetaCaptureType] != string(types.CaptureChunked) {
		t.Errorf("captureType = %v", req.Metadata[trove.MetaCaptureType])
	}
}

func TestBuildManifest(t *testing.T) {
	meta := SegmentMeta{
		SessionID:      "sess-2",
		Title:          "capture",
		TotalParts:     2,
		TotalSize:      40,
		ConversationID: "conv-1",
		Platform:       "claude",
	}
	written := []types.WrittenSegment{
		{PartNumber: 1, RecordID: "rec-1", SizeBytes: 25},
		{PartNumber: 2, RecordID: "rec-2", SizeBytes: 15},
	}

	req := BuildManifest(meta, written)
	ids, ok := req.Metadata[trove.MetaSegmentIDs].([]string)
	if !ok || len(ids) != 2 || ids[0] != "rec-1" || ids[1] != "rec-2" {
		t.Errorf("segmentIds = %v", req.Metadata[trove.MetaSegmentIDs])
	}
	if req.Metadata[trove.MetaConversationID] != "conv-1" {
		t.Error("living-document key missing from manifest metadata")
	}
	if req.Metadata[trove.MetaCaptureType] != string(types.CaptureChunkedIndex) {
		t.Errorf("captureType = %v", req.Metadata[trove.MetaCaptureType])
	}
	for _, want := range []string{"rec-1", "rec-2", "2 parts"} {
		if !strings.Contains(req.Content, want) {
			t.Errorf("manifest body missing %q", want)
		}
	}
}
