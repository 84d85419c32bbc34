package metrics

import (
	"sync"
	"testing"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.IncCaptureStarted()
	c.IncCaptureCompleted()
	c.IncCapturePartial()
	c.IncSaveSingle()
	c.IncSaveChunked()
	c.IncSegmentWriteSuccess()
	c.IncSegmentWriteFailure()
	c.IncManifestWrite()
	c.IncLivingDocUpdate()
	c.IncLivingDocCreate()
	c.IncLookupFailure()
	c.IncValidationRejection()
	c.AddSessionsEvicted(5)

	if snap := c.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero value", snap)
	}
}

func TestSnapshotReflectsCounters(t *testing.T) {
	c := NewCollector("parallel", "trove")
	c.IncCaptureStarted()
	c.IncCaptureStarted()
	c.IncCaptureCompleted()
	c.IncSaveChunked()
	c.IncSegmentWriteSuccess()
	c.IncSegmentWriteFailure()
	c.IncManifestWrite()
	c.IncLivingDocUpdate()
	c.IncLookupFailure()
	c.AddSessionsEvicted(3)

	snap := c.Snapshot()
	if snap.CapturesStarted != 2 {
		t.Errorf("CapturesStarted = %d, want 2", snap.CapturesStarted)
	}
	if snap.CapturesCompleted != 1 {
		t.Errorf("CapturesCompleted = %d, want 1", snap.CapturesCompleted)
	}
	if snap.SavesChunked != 1 || snap.SavesSingle != 0 {
		t.Errorf("saves = %d/%d, want 1/0", snap.SavesChunked, snap.SavesSingle)
	}
	if snap.SegmentWriteSuccess != 1 || snap.SegmentWriteFailure != 1 {
		t.Errorf("segment writes = %d/%d, want 1/1", snap.SegmentWriteSuccess, snap.SegmentWriteFailure)
	}
	if snap.ManifestWrites != 1 {
		t.Errorf("ManifestWrites = %d, want 1", snap.ManifestWrites)
	}
	if snap.LivingDocUpdates != 1 || snap.LookupFailures != 1 {
		t.Errorf("living doc = %d updates / %d lookup failures, want 1/1",
			snap.LivingDocUpdates, snap.LookupFailures)
	}
	if snap.SessionsEvicted != 3 {
		t.Errorf("SessionsEvicted = %d, want 3", snap.SessionsEvicted)
	}
	if snap.Strategy != "parallel" || snap.Backend != "trove" {
		t.Errorf("dimensions = %s/%s, want parallel/trove", snap.Strategy, snap.Backend)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	c := NewCollector("sequential", "trove")
	c.IncCaptureStarted()
	snap := c.Snapshot()
	c.IncCaptureStarted()

	if snap.CapturesStarted != 1 {
		t.Errorf("snapshot mutated after capture: CapturesStarted = %d, want 1", snap.CapturesStarted)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	c := NewCollector("parallel", "trove")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncSegmentWriteSuccess()
		}()
	}
	wg.Wait()

	if got := c.Snapshot().SegmentWriteSuccess; got != 50 {
		t.Errorf("SegmentWriteSuccess = %d, want 50", got)
	}
}
