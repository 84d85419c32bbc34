package capture

import (
	"context"
	"fmt"

	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/trove"
	"github.com/seam-io/seam/types"
)

// SegmentMeta carries the capture-level fields stamped onto every segment
// record of one capture.
type SegmentMeta struct {
	SessionID      string
	Title          string
	Kind           types.ContentKind
	Tags           []string
	Metadata       map[string]any
	ConversationID string
	Platform       string
	TotalParts     int
	TotalSize      int
}

// WriteError reports the first segment write that failed. Segments before
// Index were written successfully; nothing after it was attempted (or, for
// parallel writers, nothing after it is reported).
type WriteError struct {
	// Index is the zero-based position of the failed segment.
	Index int
	// PartNumber is the 1-based part number of the failed segment.
	PartNumber int
	// Err is the underlying storage error.
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("segment %d write failed: %v", e.PartNumber, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer persists the segments of one capture. Implementations must return
// the successfully written segments in ascending part order even when a
// write fails partway through.
type Writer interface {
	// WriteSegments persists segments and returns one WrittenSegment per
	// success. On failure the returned error is a *WriteError and the
	// returned slice holds every segment confirmed written before the
	// failure.
	WriteSegments(ctx context.Context, meta SegmentMeta, segments []types.Segment) ([]types.WrittenSegment, error)
}

// SequentialWriter writes segments one at a time in ascending part order
// and stops at the first failure. This is the default strategy: it gives
// the strongest ordering guarantee and the simplest failure story.
type SequentialWriter struct {
	client trove.Client
	logger *log.Logger
}

// NewSequentialWriter creates the default segment writer.
func NewSequentialWriter(client trove.Client, logger *log.Logger) *SequentialWriter {
	return &SequentialWriter{client: client, logger: logger}
}

// WriteSegments implements Writer.
func (w *SequentialWriter) WriteSegments(ctx context.Context, meta SegmentMeta, segments []types.Segment) ([]types.WrittenSegment, error) {
	written := make([]types.WrittenSegment, 0, len(segments))
	for i, seg := range segments {
		id, err := w.client.CreateRecord(ctx, segmentRequest(meta, seg))
		if err != nil {
			w.logger.Error("segment write failed", map[string]any{
				"session_id":  meta.SessionID,
				"part_number": seg.PartNumber,
				"error":       err.Error(),
			})
			return written, &WriteError{Index: i, PartNumber: seg.PartNumber, Err: err}
		}
		w.logger.Debug("segment written", map[string]any{
			"session_id":  meta.SessionID,
			"part_number": seg.PartNumber,
			"record_id":   id,
			"size_bytes":  seg.SizeBytes,
		})
		written = append(written, types.WrittenSegment{
			PartNumber: seg.PartNumber,
			RecordID:   id,
			SizeBytes:  seg.SizeBytes,
		})
	}
	return written, nil
}

// segmentRequest builds the storage request for one segment of a chunked
// capture. Capture-level metadata is merged in without clobbering the
// reserved segment keys.
func segmentRequest(meta SegmentMeta, seg types.Segment) *trove.RecordRequest {
	md := map[string]any{
		trove.MetaSessionID:   meta.SessionID,
		trove.MetaPartNumber:  seg.PartNumber,
		trove.MetaTotalParts:  meta.TotalParts,
		trove.MetaCaptureType: string(types.CaptureChunked),
	}
	for k, v := range meta.Metadata {
		if _, reserved := md[k]; !reserved {
			md[k] = v
		}
	}

	tags := append([]string{}, meta.Tags...)
	tags = append(tags, "capture-segment")

	return &trove.RecordRequest{
		Content:  seg.Content,
		Title:    fmt.Sprintf("%s (part %d/%d)", meta.Title, seg.PartNumber, meta.TotalParts),
		Tags:     tags,
		Metadata: md,
	}
}

// singleRequest builds the storage request for a capture that fits in one
// record. The living-document key, when present, is stamped into metadata
// so later saves for the same conversation resolve to this record.
func singleRequest(meta SegmentMeta, content string) *trove.RecordRequest {
	md := map[string]any{
		trove.MetaCaptureType: string(types.CaptureSingle),
	}
	if meta.SessionID != "" {
		md[trove.MetaSessionID] = meta.SessionID
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

	return &trove.RecordRequest{
		Content:  content,
		Title:    meta.Title,
		Tags:     append([]string{}, meta.Tags...),
		Metadata: md,
	}
}

// Verify SequentialWriter implements Writer.
var _ Writer = (*SequentialWriter)(nil)
