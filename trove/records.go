package trove

// Metadata field names attached to capture records. Downstream retrieval
// relies on these to reconstruct a session from its segments.
const (
	MetaSessionID      = "sessionId"
	MetaPartNumber     = "partNumber"
	MetaTotalParts     = "totalParts"
	MetaTotalSize      = "totalSize"
	MetaCaptureType    = "captureType"
	MetaConversationID = "conversationId"
	MetaPlatform       = "platform"
	MetaSegmentIDs     = "segmentIds"
)

// RecordRequest is the payload for creating or updating a record.
// Update requests are partial: zero-valued fields are omitted on the wire
// and left untouched by the service.
type RecordRequest struct {
	Content  string         `json:"content,omitempty"`
	Title    string         `json:"title,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Record is a stored record as returned by lookups.
type Record struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Content  string         `json:"content,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// createResponse is the body returned by create and update calls.
type createResponse struct {
	ID string `json:"id"`
}

// lookupResponse is the body returned by lookup calls.
type lookupResponse struct {
	Records []Record `json:"records"`
}
