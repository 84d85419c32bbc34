//nolint:revive // types is a common Go package naming convention
package types

// ContentKind classifies the payload being captured.
type ContentKind string

// Content kind constants.
const (
	KindConversation ContentKind = "conversation"
	KindArtifact     ContentKind = "artifact"
	KindCode         ContentKind = "code"
	KindMixed        ContentKind = "mixed"
)

// IsValid returns true if the kind is a known content kind.
func (k ContentKind) IsValid() bool {
	switch k {
	case KindConversation, KindArtifact, KindCode, KindMixed:
		return true
	}
	return false
}

// CaptureType discriminates stored records so downstream retrieval can
// reconstruct a session.
type CaptureType string

// Capture type constants.
const (
	// CaptureSingle marks a record that holds a complete payload on its own.
	CaptureSingle CaptureType = "single"
	// CaptureChunked marks a record that holds one segment of a larger payload.
	CaptureChunked CaptureType = "chunked"
	// CaptureChunkedIndex marks the manifest record tying segments together.
	CaptureChunkedIndex CaptureType = "chunked-index"
)

// Segment is one bounded slice of an original payload.
// Segments are immutable once produced and are never merged or reordered
// after creation.
type Segment struct {
	// Content is the slice text, at most the configured max segment size.
	Content string
	// PartNumber is the 1-based position within the session.
	PartNumber int
	// Kind classifies the content for tagging.
	Kind ContentKind
	// SizeBytes equals len(Content).
	SizeBytes int
}

// WrittenSegment pairs a persisted segment with its storage identifier.
type WrittenSegment struct {
	PartNumber int    `json:"part_number"`
	RecordID   string `json:"record_id"`
	SizeBytes  int    `json:"size_bytes"`
}

// StartResult is returned when a capture session is started.
type StartResult struct {
	SessionID     string `json:"session_id"`
	ExpectedParts int    `json:"expected_parts"`
}

// ContinueResult is returned when a part is added to a capture session.
// When the part completes the session, Finalized is true and Finalize
// carries the finalization summary.
type ContinueResult struct {
	SessionID     string          `json:"session_id"`
	PartsReceived int             `json:"parts_received"`
	ExpectedParts int             `json:"expected_parts"`
	Finalized     bool            `json:"finalized"`
	Finalize      *FinalizeResult `json:"finalize,omitempty"`
}

// FinalizeResult summarizes a finalized capture session.
//
// A partial failure (a segment or manifest write that errored mid-way) is
// reported here rather than as a hard error: Partial is true, FailedAt names
// the 1-based index of the write that failed, and Segments lists everything
// that was durably written before the failure. Prior writes are not rolled
// back and nothing is retried.
type FinalizeResult struct {
	SessionID     string           `json:"session_id"`
	PartsReceived int              `json:"parts_received"`
	TotalSize     int              `json:"total_size"`
	Segments      []WrittenSegment `json:"segments"`
	IndexID       string           `json:"index_id,omitempty"`
	Updated       bool             `json:"updated"`
	Partial       bool             `json:"partial"`
	FailedAt      int              `json:"failed_at,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// RecordIDs returns the storage ids of all written segments, in order.
func (r *FinalizeResult) RecordIDs() []string {
	ids := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		ids = append(ids, s.RecordID)
	}
	return ids
}

// SaveResult summarizes a direct (non-session) save.
//
// For a single-record save, RecordID is the created or updated record.
// For a chunked save, RecordID is the manifest record and Segments lists
// the individual segment records in order.
type SaveResult struct {
	Updated       bool             `json:"updated"`
	CaptureType   CaptureType      `json:"capture_type"`
	RecordID      string           `json:"record_id,omitempty"`
	Segments      []WrittenSegment `json:"segments,omitempty"`
	IndexID       string           `json:"index_id,omitempty"`
	TotalSize     int              `json:"total_size"`
	Partial       bool             `json:"partial"`
	FailedAt      int              `json:"failed_at,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
}
