package capture

import (
	"fmt"
	"strings"

	"github.com/seam-io/seam/trove"
	"github.com/seam-io/seam/types"
)

// BuildManifest assembles the index record request for a chunked capture.
//
// The manifest body is human-readable markdown listing every segment in
// part order; the machine-readable linkage lives in metadata under
// segmentIds. The living-document key, when present, is stamped on the
// manifest (not the segments) so later saves resolve to the index.
func BuildManifest(meta SegmentMeta, written []types.WrittenSegment) *trove.RecordRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	fmt.Fprintf(&b, "Chunked capture in %d parts, %d bytes total.\n\n", meta.TotalParts, meta.TotalSize)
	for _, w := range written {
		fmt.Fprintf(&b, "- Part %d/%d: record %s (%d bytes)\n", w.PartNumber, meta.TotalParts, w.RecordID, w.SizeBytes)
	}

	ids := make([]string, len(written))
	for i, w := range written {
		ids[i] = w.RecordID
	}

	md := map[string]any{
		trove.MetaSessionID:   meta.SessionID,
		trove.MetaTotalParts:  meta.TotalParts,
		trove.MetaTotalSize:   meta.TotalSize,
		trove.MetaCaptureType: string(types.CaptureChunkedIndex),
		trove.MetaSegmentIDs:  ids,
	}
	for k, v := range meta.Metadata {
		if _, reserved := md[k]; !reserved {
			md[k] = v
		}
	}
	if meta.ConversationID != "" {
		md[trove.MetaConversationID] = meta.ConversationID
		md[trove.MetaPlatform] = meta.Platform
	}

	tags := append([]string{}, meta.Tags...)
	tags = append(tags, "capture-index")

	return &trove.RecordRequest{
		Content:  b.String(),
		Title:    fmt.Sprintf("%s (index)", meta.Title),
		Tags:     tags,
		Metadata: md,
	}
}
