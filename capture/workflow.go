// Package capture implements the capture workflows: multi-part sessions
// (start, continue, finalize) and direct saves, both resolving against the
// living-document key before writing.
//
// The package owns the write-ordering guarantees: segments are persisted
// in ascending part order (or concurrently with an after-the-fact ordering
// for the parallel strategy) and the manifest is written only after every
// segment succeeded. A failure mid-write is reported as a partial result,
// never retried or rolled back here.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seam-io/seam/adapter"
	"github.com/seam-io/seam/analyze"
	"github.com/seam-io/seam/chunk"
	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/metrics"
	"github.com/seam-io/seam/session"
	"github.com/seam-io/seam/trove"
	"github.com/seam-io/seam/types"
)

// Archiver persists a local archive of a finished capture. Implementations
// must not fail the capture: archive errors are logged and dropped.
type Archiver interface {
	ArchiveCapture(ctx context.Context, meta SegmentMeta, segments []types.Segment, res *types.FinalizeResult) error
}

// Config holds the workflow sizing knobs.
type Config struct {
	// MaxChunkChars bounds segments planned from a direct save payload.
	MaxChunkChars int
	// MaxRecordChars bounds storage records when session parts are
	// re-bucketed at finalize. Parts are transport-sized; records can be
	// larger, so adjacent parts are combined up to this limit.
	MaxRecordChars int
	// MinContentChars rejects saves below this length. Zero means only
	// empty content is rejected.
	MinContentChars int
}

func (c Config) withDefaults() Config {
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = chunk.DefaultMaxChars
	}
	if c.MaxRecordChars <= 0 {
		c.MaxRecordChars = trove.DefaultMaxRecordChars
	}
	return c
}

// Workflow coordinates sessions, chunk planning, living-document
// resolution, and storage writes.
type Workflow struct {
	cfg         Config
	client      trove.Client
	sessions    session.Repository
	writer      Writer
	parallelism int
	resolver    *Resolver
	logger      *log.Logger
	metrics     *metrics.Collector
	archiver    Archiver
	notifier    adapter.Adapter
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithWriter overrides the segment write strategy. Intended for tests;
// production selects a strategy via WithParallelism.
func WithWriter(w Writer) Option {
	return func(wf *Workflow) { wf.writer = w }
}

// WithParallelism selects the bounded-parallel write strategy with the
// given worker count. Zero keeps the sequential default.
func WithParallelism(n int) Option {
	return func(wf *Workflow) { wf.parallelism = n }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(wf *Workflow) { wf.metrics = c }
}

// WithArchiver attaches a local archiver for finished captures.
func WithArchiver(a Archiver) Option {
	return func(wf *Workflow) { wf.archiver = a }
}

// WithNotifier attaches a completion event adapter.
func WithNotifier(n adapter.Adapter) Option {
	return func(wf *Workflow) { wf.notifier = n }
}

// New creates a Workflow over the given storage client and session
// repository. The default write strategy is sequential.
func New(client trove.Client, sessions session.Repository, logger *log.Logger, cfg Config, opts ...Option) *Workflow {
	wf := &Workflow{
		cfg:      cfg.withDefaults(),
		client:   client,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(wf)
	}
	if wf.metrics != nil {
		wf.client = NewInstrumentedClient(client, wf.metrics)
	}
	if wf.writer == nil {
		if wf.parallelism > 0 {
			wf.writer = NewBoundedParallelWriter(wf.client, logger, wf.parallelism)
		} else {
			wf.writer = NewSequentialWriter(wf.client, logger)
		}
	}
	wf.resolver = NewResolver(wf.client, logger, wf.metrics)
	return wf
}

// StartInput declares a new multi-part capture session.
type StartInput struct {
	Title          string
	ExpectedParts  int
	EstimatedSize  int
	Kind           types.ContentKind
	Metadata       map[string]any
	ConversationID string
	Platform       string
}

// ContinueInput delivers one part of an active session.
type ContinueInput struct {
	SessionID  string
	PartNumber int
	Content    string
	IsLastPart bool
}

// SaveInput is a direct, non-session save.
type SaveInput struct {
	Content        string
	Title          string
	Tags           []string
	Kind           types.ContentKind
	Metadata       map[string]any
	ConversationID string
	Platform       string
}

// StartSession registers a new capture session and returns its id. No
// storage calls are made until finalize.
func (wf *Workflow) StartSession(_ context.Context, in StartInput) (*types.StartResult, error) {
	if in.Title == "" {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.ExpectedParts < 2 {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "expected_parts", Reason: "must be at least 2; use save for single-part content"}
	}
	if in.Kind != "" && !in.Kind.IsValid() {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown content kind %q", in.Kind)}
	}

	now := time.Now()
	s := &session.Session{
		ID:             session.NewID(),
		Title:          in.Title,
		Kind:           in.Kind,
		ExpectedParts:  in.ExpectedParts,
		EstimatedSize:  in.EstimatedSize,
		Metadata:       in.Metadata,
		ConversationID: in.ConversationID,
		Platform:       in.Platform,
		Parts:          make(map[int]string),
		State:          session.StateActive,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	wf.sessions.Put(s)
	wf.metrics.IncCaptureStarted()

	wf.logger.Info("capture session started", map[string]any{
		"session_id":     s.ID,
		"expected_parts": s.ExpectedParts,
		"title":          s.Title,
	})
	return &types.StartResult{SessionID: s.ID, ExpectedParts: s.ExpectedParts}, nil
}

// ContinueSession adds one part to an active session. Replaying a part
// number overwrites the prior content. The session auto-finalizes when the
// part is marked last or the expected count is reached.
func (wf *Workflow) ContinueSession(ctx context.Context, in ContinueInput) (*types.ContinueResult, error) {
	if in.PartNumber < 1 {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "part_number", Reason: "must be 1 or greater"}
	}
	if in.Content == "" {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	s, ok := wf.sessions.Get(in.SessionID)
	if !ok {
		if wf.sessions.WasCompleted(in.SessionID) {
			return nil, ErrSessionCompleted
		}
		return nil, ErrSessionNotFound
	}

	if _, replay := s.Parts[in.PartNumber]; replay {
		wf.logger.Warn("part replayed, overwriting prior content", map[string]any{
			"session_id":  s.ID,
			"part_number": in.PartNumber,
		})
	}
	s.Parts[in.PartNumber] = in.Content
	s.UpdatedAt = time.Now()

	res := &types.ContinueResult{
		SessionID:     s.ID,
		PartsReceived: len(s.Parts),
		ExpectedParts: s.ExpectedParts,
	}

	if in.IsLastPart || len(s.Parts) >= s.ExpectedParts {
		fin, err := wf.FinalizeSession(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		res.Finalized = true
		res.Finalize = fin
	}
	return res, nil
}

// FinalizeSession re-buckets the received parts into storage-sized
// segments, persists them, and writes the manifest when more than one
// segment is needed. A session finalizes at most once; a partial write
// failure still consumes the session.
func (wf *Workflow) FinalizeSession(ctx context.Context, sessionID string) (*types.FinalizeResult, error) {
	s, ok := wf.sessions.Complete(sessionID)
	if !ok {
		if wf.sessions.WasCompleted(sessionID) {
			return nil, ErrSessionCompleted
		}
		return nil, ErrSessionNotFound
	}
	if len(s.Parts) == 0 {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "session", Reason: "has no parts to finalize"}
	}

	// Reassemble in part order, then re-bucket against the storage record
	// limit. Transport part size and record size differ, so several small
	// parts often collapse into one record.
	joined := joinParts(s)
	report := analyze.Analyze(joined)
	kind := s.Kind
	if !kind.IsValid() {
		kind = analyze.InferKind(report)
	}
	segments := planSegments(joined, wf.cfg.MaxRecordChars, kind)

	meta := SegmentMeta{
		SessionID:      s.ID,
		Title:          s.Title,
		Kind:           kind,
		Tags:           analyze.Tags(report),
		Metadata:       s.Metadata,
		ConversationID: s.ConversationID,
		Platform:       s.Platform,
		TotalParts:     len(segments),
		TotalSize:      len(joined),
	}

	decision := wf.resolver.Resolve(ctx, s.ConversationID, s.Platform)
	outcome := wf.writeCapture(ctx, meta, segments, decision)

	res := &types.FinalizeResult{
		SessionID:     s.ID,
		PartsReceived: len(s.Parts),
		TotalSize:     len(joined),
		Segments:      outcome.written,
		IndexID:       outcome.indexID,
		Updated:       outcome.updated,
		Partial:       outcome.partial,
		FailedAt:      outcome.failedAt,
		FailureReason: outcome.reason,
	}

	if outcome.partial {
		wf.metrics.IncCapturePartial()
		wf.logger.Warn("capture finalized partially", map[string]any{
			"session_id": s.ID,
			"failed_at":  outcome.failedAt,
			"written":    len(outcome.written),
			"reason":     outcome.reason,
		})
	} else {
		wf.metrics.IncCaptureCompleted()
		wf.logger.Info("capture finalized", map[string]any{
			"session_id": s.ID,
			"segments":   len(segments),
			"index_id":   outcome.indexID,
			"total_size": len(joined),
			"updated":    outcome.updated,
		})
	}

	wf.archive(ctx, meta, segments, res)
	wf.notify(ctx, meta, outcome)
	return res, nil
}

// Save persists a payload without a session. Small payloads become one
// record; oversized payloads are chunked and indexed like a finalized
// session.
func (wf *Workflow) Save(ctx context.Context, in SaveInput) (*types.SaveResult, error) {
	if in.Content == "" {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len(in.Content) < wf.cfg.MinContentChars {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "content", Reason: fmt.Sprintf("below minimum length of %d", wf.cfg.MinContentChars)}
	}
	if in.Title == "" {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.Kind != "" && !in.Kind.IsValid() {
		wf.metrics.IncValidationRejection()
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown content kind %q", in.Kind)}
	}

	report := analyze.Analyze(in.Content)
	kind := in.Kind
	if !kind.IsValid() {
		kind = analyze.InferKind(report)
	}
	segments := planSegments(in.Content, wf.cfg.MaxChunkChars, kind)

	meta := SegmentMeta{
		SessionID:      session.NewID(),
		Title:          in.Title,
		Kind:           kind,
		Tags:           mergeTags(in.Tags, analyze.Tags(report)),
		Metadata:       in.Metadata,
		ConversationID: in.ConversationID,
		Platform:       in.Platform,
		TotalParts:     len(segments),
		TotalSize:      len(in.Content),
	}

	decision := wf.resolver.Resolve(ctx, in.ConversationID, in.Platform)
	outcome := wf.writeCapture(ctx, meta, segments, decision)

	res := &types.SaveResult{
		Updated:       outcome.updated,
		CaptureType:   outcome.captureType,
		RecordID:      outcome.recordID,
		Segments:      outcome.written,
		IndexID:       outcome.indexID,
		TotalSize:     len(in.Content),
		Partial:       outcome.partial,
		FailedAt:      outcome.failedAt,
		FailureReason: outcome.reason,
	}

	switch {
	case outcome.partial:
		wf.metrics.IncCapturePartial()
	case outcome.captureType == types.CaptureSingle:
		wf.metrics.IncSaveSingle()
	default:
		wf.metrics.IncSaveChunked()
	}

	wf.logger.Info("save completed", map[string]any{
		"capture_type": string(outcome.captureType),
		"record_id":    outcome.recordID,
		"segments":     len(outcome.written),
		"updated":      outcome.updated,
		"partial":      outcome.partial,
	})

	if outcome.captureType != types.CaptureSingle {
		wf.notify(ctx, meta, outcome)
	}
	return res, nil
}

// writeOutcome is the shared result of the single/chunked write paths.
type writeOutcome struct {
	captureType types.CaptureType
	recordID    string
	written     []types.WrittenSegment
	indexID     string
	updated     bool
	partial     bool
	failedAt    int
	reason      string
}

// writeCapture persists the planned segments. One segment becomes a single
// record (updated in place when the living document resolved); multiple
// segments are written through the Writer and tied together by a manifest,
// which is only written after every segment succeeded.
func (wf *Workflow) writeCapture(ctx context.Context, meta SegmentMeta, segments []types.Segment, decision Decision) writeOutcome {
	if len(segments) == 1 {
		req := singleRequest(meta, segments[0].Content)
		var id string
		var err error
		if decision.Update {
			id, err = wf.client.UpdateRecord(ctx, decision.RecordID, req)
		} else {
			id, err = wf.client.CreateRecord(ctx, req)
		}
		if err != nil {
			return writeOutcome{
				captureType: types.CaptureSingle,
				partial:     true,
				failedAt:    1,
				reason:      err.Error(),
			}
		}
		return writeOutcome{
			captureType: types.CaptureSingle,
			recordID:    id,
			written: []types.WrittenSegment{{
				PartNumber: 1,
				RecordID:   id,
				SizeBytes:  segments[0].SizeBytes,
			}},
			updated: decision.Update,
		}
	}

	written, err := wf.writer.WriteSegments(ctx, meta, segments)
	if err != nil {
		out := writeOutcome{
			captureType: types.CaptureChunked,
			written:     written,
			partial:     true,
			reason:      err.Error(),
		}
		var we *WriteError
		if errors.As(err, &we) {
			out.failedAt = we.PartNumber
		}
		return out
	}

	manifest := BuildManifest(meta, written)
	var indexID string
	if decision.Update {
		indexID, err = wf.client.UpdateRecord(ctx, decision.RecordID, manifest)
	} else {
		indexID, err = wf.client.CreateRecord(ctx, manifest)
	}
	if err != nil {
		// Segments are durable; only the index is missing.
		return writeOutcome{
			captureType: types.CaptureChunked,
			written:     written,
			partial:     true,
			failedAt:    len(segments) + 1,
			reason:      fmt.Sprintf("manifest write failed: %v", err),
		}
	}
	wf.metrics.IncManifestWrite()

	return writeOutcome{
		captureType: types.CaptureChunked,
		recordID:    indexID,
		written:     written,
		indexID:     indexID,
		updated:     decision.Update,
	}
}

// archive writes the local archive, when configured. Never fails the capture.
func (wf *Workflow) archive(ctx context.Context, meta SegmentMeta, segments []types.Segment, res *types.FinalizeResult) {
	if wf.archiver == nil {
		return
	}
	if err := wf.archiver.ArchiveCapture(ctx, meta, segments, res); err != nil {
		wf.logger.Warn("archive write failed", map[string]any{
			"session_id": meta.SessionID,
			"error":      err.Error(),
		})
	}
}

// notify publishes the completion event, when configured. Never fails the
// capture.
func (wf *Workflow) notify(ctx context.Context, meta SegmentMeta, outcome writeOutcome) {
	if wf.notifier == nil {
		return
	}
	ev := adapter.NewCaptureCompleted(meta.SessionID, string(outcome.captureType))
	ev.Platform = meta.Platform
	ev.ConversationID = meta.ConversationID
	ev.IndexID = outcome.indexID
	ev.TotalParts = meta.TotalParts
	ev.TotalSize = meta.TotalSize
	ev.Partial = outcome.partial
	for _, w := range outcome.written {
		ev.RecordIDs = append(ev.RecordIDs, w.RecordID)
	}
	if err := wf.notifier.Publish(ctx, ev); err != nil {
		wf.logger.Warn("completion event publish failed", map[string]any{
			"session_id": meta.SessionID,
			"event_id":   ev.EventID,
			"error":      err.Error(),
		})
	}
}

// SessionStats exposes repository occupancy for the stats surface.
func (wf *Workflow) SessionStats() session.Stats {
	return wf.sessions.Stats()
}

// Metrics returns a snapshot of the workflow counters.
func (wf *Workflow) Metrics() metrics.Snapshot {
	return wf.metrics.Snapshot()
}

// joinParts concatenates the session parts in ascending part order.
// Concatenating the planned segments afterwards yields this exact string.
func joinParts(s *session.Session) string {
	var b []byte
	for _, n := range s.PartNumbers() {
		b = append(b, s.Parts[n]...)
	}
	return string(b)
}

// planSegments runs the chunk planner and lifts the slices into typed
// segments with 1-based part numbers.
func planSegments(content string, maxChars int, kind types.ContentKind) []types.Segment {
	plan := chunk.Plan(content, maxChars)
	segments := make([]types.Segment, len(plan))
	for i, slice := range plan {
		segments[i] = types.Segment{
			Content:    slice,
			PartNumber: i + 1,
			Kind:       kind,
			SizeBytes:  len(slice),
		}
	}
	return segments
}

// mergeTags appends derived tags to user tags, dropping duplicates.
func mergeTags(user, derived []string) []string {
	seen := make(map[string]bool, len(user)+len(derived))
	var out []string
	for _, t := range append(append([]string{}, user...), derived...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
