package session

import (
	"testing"
	"time"
)

func newSession(id string) *Session {
	return &Session{
		ID:            id,
		Title:         "capture",
		ExpectedParts: 2,
		Parts:         make(map[int]string),
		State:         StateActive,
		StartedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestCompleteMovesSession(t *testing.T) {
	r := NewMemoryRepository()
	r.Put(newSession("s1"))

	s, ok := r.Complete("s1")
	if !ok {
		t.Fatal("Complete returned false for active session")
	}
	if s.State != StateCompleted {
		t.Errorf("State = %q, want %q", s.State, StateCompleted)
	}
	if _, ok := r.Get("s1"); ok {
		t.Error("Get returned completed session as active")
	}
	if !r.WasCompleted("s1") {
		t.Error("WasCompleted = false after Complete")
	}
}

func TestCompleteTwiceFails(t *testing.T) {
	r := NewMemoryRepository()
	r.Put(newSession("s1"))

	if _, ok := r.Complete("s1"); !ok {
		t.Fatal("first Complete failed")
	}
	if _, ok := r.Complete("s1"); ok {
		t.Error("second Complete succeeded, want refusal")
	}
}

func TestWasCompletedDistinguishesUnknown(t *testing.T) {
	r := NewMemoryRepository()
	if r.WasCompleted("never-existed") {
		t.Error("WasCompleted = true for unknown id")
	}
}

func TestDeleteRemovesFromBothRegistries(t *testing.T) {
	r := NewMemoryRepository()
	r.Put(newSession("s1"))
	r.Complete("s1")
	r.Delete("s1")

	if r.WasCompleted("s1") {
		t.Error("WasCompleted = true after Delete")
	}
	if got := r.Stats(); got.Completed != 0 {
		t.Errorf("Stats.Completed = %d, want 0", got.Completed)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	r := NewMemoryRepositoryTTL(time.Minute, 0)
	defer r.Close()

	stale := newSession("stale")
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	fresh := newSession("fresh")
	r.Put(stale)
	r.Put(fresh)

	if n := r.Sweep(time.Now()); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, ok := r.Get("stale"); ok {
		t.Error("stale session survived sweep")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Error("fresh session was evicted")
	}
	if got := r.Stats(); got.Evicted != 1 {
		t.Errorf("Stats.Evicted = %d, want 1", got.Evicted)
	}
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	r := NewMemoryRepository()
	stale := newSession("stale")
	stale.UpdatedAt = time.Now().Add(-24 * time.Hour)
	r.Put(stale)

	if n := r.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep = %d, want 0 with eviction disabled", n)
	}
	if _, ok := r.Get("stale"); !ok {
		t.Error("session evicted with eviction disabled")
	}
}

func TestPartNumbersSorted(t *testing.T) {
	s := newSession("s1")
	s.Parts[3] = "c"
	s.Parts[1] = "a"
	s.Parts[2] = "b"

	nums := s.PartNumbers()
	want := []int{1, 2, 3}
	for i := range want {
		if nums[i] != want[i] {
			t.Fatalf("PartNumbers = %v, want %v", nums, want)
		}
	}
	if s.TotalSize() != 3 {
		t.Errorf("TotalSize = %d, want 3", s.TotalSize())
	}
}

func TestNewIDsAreOrderedAndUnique(t *testing.T) {
	a := NewID()
	time.Sleep(2 * time.Millisecond)
	b := NewID()
	if a == b {
		t.Fatal("consecutive ids are equal")
	}
	if !(a < b) {
		t.Errorf("ids not time-ordered: %s >= %s", a, b)
	}
}
