// Package metrics provides per-process metrics collection for the capture
// service.
//
// The Collector accumulates counters for the life of the process. It is a
// leaf package with no internal dependencies. All increment methods are
// nil-receiver safe so call sites never need to guard against a missing
// collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Capture lifecycle
	CapturesStarted   int64
	CapturesCompleted int64
	CapturesPartial   int64

	// Saves
	SavesSingle  int64
	SavesChunked int64

	// Storage
	SegmentWriteSuccess int64
	SegmentWriteFailure int64
	ManifestWrites      int64

	// Living-document resolution
	LivingDocUpdates int64
	LivingDocCreates int64
	LookupFailures   int64

	// Rejections and eviction
	ValidationRejections int64
	SessionsEvicted      int64

	// Dimensions (informational, set at construction)
	Strategy string
	Backend  string
}

// Collector accumulates counters. Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	capturesStarted   int64
	capturesCompleted int64
	capturesPartial   int64

	savesSingle  int64
	savesChunked int64

	segmentWriteSuccess int64
	segmentWriteFailure int64
	manifestWrites      int64

	livingDocUpdates int64
	livingDocCreates int64
	lookupFailures   int64

	validationRejections int64
	sessionsEvicted      int64

	strategy string
	backend  string
}

// NewCollector creates a Collector with dimension labels: the segment
// writer strategy and the storage backend in use.
func NewCollector(strategy, backend string) *Collector {
	return &Collector{strategy: strategy, backend: backend}
}

// --- Capture lifecycle ---

// IncCaptureStarted records a session start.
func (c *Collector) IncCaptureStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.capturesStarted++
	c.mu.Unlock()
}

// IncCaptureCompleted records a fully successful finalization.
func (c *Collector) IncCaptureCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.capturesCompleted++
	c.mu.Unlock()
}

// IncCapturePartial records a finalization that stopped on a write failure.
func (c *Collector) IncCapturePartial() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.capturesPartial++
	c.mu.Unlock()
}

// --- Saves ---

// IncSaveSingle records a direct save that fit in one record.
func (c *Collector) IncSaveSingle() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.savesSingle++
	c.mu.Unlock()
}

// IncSaveChunked records a direct save that required chunking.
func (c *Collector) IncSaveChunked() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.savesChunked++
	c.mu.Unlock()
}

// --- Storage ---
// Storage counters are per-call: one CreateRecord call counts once
// regardless of payload size.

// IncSegmentWriteSuccess records a successful segment write.
func (c *Collector) IncSegmentWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.segmentWriteSuccess++
	c.mu.Unlock()
}

// IncSegmentWriteFailure records a failed segment write.
func (c *Collector) IncSegmentWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.segmentWriteFailure++
	c.mu.Unlock()
}

// IncManifestWrite records a manifest record write.
func (c *Collector) IncManifestWrite() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.manifestWrites++
	c.mu.Unlock()
}

// --- Living-document resolution ---

// IncLivingDocUpdate records a save resolved to an in-place update.
func (c *Collector) IncLivingDocUpdate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.livingDocUpdates++
	c.mu.Unlock()
}

// IncLivingDocCreate records a save resolved to creating a new record.
func (c *Collector) IncLivingDocCreate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.livingDocCreates++
	c.mu.Unlock()
}

// IncLookupFailure records a lookup error that fell open to create-new.
func (c *Collector) IncLookupFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lookupFailures++
	c.mu.Unlock()
}

// --- Rejections and eviction ---

// IncValidationRejection records an input rejected before any network call.
func (c *Collector) IncValidationRejection() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.validationRejections++
	c.mu.Unlock()
}

// AddSessionsEvicted records sessions swept by TTL eviction.
func (c *Collector) AddSessionsEvicted(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsEvicted += n
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		CapturesStarted:   c.capturesStarted,
		CapturesCompleted: c.capturesCompleted,
		CapturesPartial:   c.capturesPartial,

		SavesSingle:  c.savesSingle,
		SavesChunked: c.savesChunked,

		SegmentWriteSuccess: c.segmentWriteSuccess,
		SegmentWriteFailure: c.segmentWriteFailure,
		ManifestWrites:      c.manifestWrites,

		LivingDocUpdates: c.livingDocUpdates,
		LivingDocCreates: c.livingDocCreates,
		LookupFailures:   c.lookupFailures,

		ValidationRejections: c.validationRejections,
		SessionsEvicted:      c.sessionsEvicted,

		Strategy: c.strategy,
		Backend:  c.backend,
	}
}
