// Package adapter defines the notification boundary for finished captures.
//
// Adapters publish capture completion events to downstream systems
// (webhooks, message channels). The serve process owns adapter lifecycle;
// users provide configuration only. Delivery is best effort: a failed
// publish is logged, never surfaced to the caller of the capture.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CaptureCompletedEvent is the payload published when a capture finishes.
type CaptureCompletedEvent struct {
	EventID        string   `json:"event_id"`
	EventType      string   `json:"event_type"` // always "capture_completed"
	SessionID      string   `json:"session_id"`
	CaptureType    string   `json:"capture_type"`
	Platform       string   `json:"platform,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	RecordIDs      []string `json:"record_ids"`
	IndexID        string   `json:"index_id,omitempty"`
	TotalParts     int      `json:"total_parts"`
	TotalSize      int      `json:"total_size"`
	Partial        bool     `json:"partial"`
	Timestamp      string   `json:"timestamp"` // ISO 8601
}

// NewCaptureCompleted builds an event with a fresh id and timestamp.
func NewCaptureCompleted(sessionID, captureType string) *CaptureCompletedEvent {
	return &CaptureCompletedEvent{
		EventID:   uuid.NewString(),
		EventType: "capture_completed",
		SessionID: sessionID,
		CaptureType: captureType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Adapter publishes capture completion events to a downstream system.
type Adapter interface {
	// Publish sends a capture completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CaptureCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
