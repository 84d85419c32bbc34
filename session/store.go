// Package session tracks in-flight capture sessions from start to
// finalization.
//
// The registry is process-local: sessions do not survive a restart. The
// Repository interface keeps the registry injectable so tests can
// substitute fakes and production can enable TTL eviction without touching
// workflow call sites.
package session

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/seam-io/seam/types"
)

// State of a capture session.
type State string

// Session states. There is no abandoned state: an unfinished session stays
// active until finalized or, when TTL eviction is enabled, swept.
const (
	StateActive    State = "active"
	StateCompleted State = "completed"
)

// Session is the in-memory record of one in-progress multi-part capture.
type Session struct {
	ID             string
	Title          string
	Kind           types.ContentKind
	ExpectedParts  int
	EstimatedSize  int
	Metadata       map[string]any
	ConversationID string
	Platform       string

	// Parts maps partNumber to content. Gaps are allowed until finalize;
	// replaying a part number overwrites the prior value (last write wins).
	Parts map[int]string

	State     State
	StartedAt time.Time
	UpdatedAt time.Time
}

// TotalSize returns the summed size of all received parts.
func (s *Session) TotalSize() int {
	total := 0
	for _, content := range s.Parts {
		total += len(content)
	}
	return total
}

// PartNumbers returns the received part numbers in ascending order.
func (s *Session) PartNumbers() []int {
	nums := make([]int, 0, len(s.Parts))
	for n := range s.Parts {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// NewID generates a session identifier. ULIDs sort by creation time, which
// keeps log output and archive filenames naturally ordered.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Stats is a point-in-time view of repository occupancy.
type Stats struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Evicted   int `json:"evicted"`
}

// Repository is the injectable session registry.
type Repository interface {
	// Put registers or replaces an active session.
	Put(s *Session)

	// Get returns an active session by id.
	Get(id string) (*Session, bool)

	// Complete moves a session from active to completed, enforcing the
	// finalize-at-most-once invariant. Returns false if the session is not
	// active.
	Complete(id string) (*Session, bool)

	// WasCompleted reports whether the id belongs to an already-finalized
	// session, letting callers distinguish "never existed" from
	// "finalized twice".
	WasCompleted(id string) bool

	// Delete discards a session from either registry.
	Delete(id string)

	// Stats returns occupancy counters.
	Stats() Stats
}

// MemoryRepository is the in-process Repository implementation.
//
// When a TTL is configured, a janitor goroutine periodically evicts active
// sessions whose last update is older than the TTL. The default is no
// eviction, preserving the original behavior of keeping unfinished
// sessions for the life of the process.
type MemoryRepository struct {
	mu        sync.Mutex
	active    map[string]*Session
	completed map[string]*Session
	evicted   int

	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

// NewMemoryRepository creates a repository with eviction disabled.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		active:    make(map[string]*Session),
		completed: make(map[string]*Session),
		stop:      make(chan struct{}),
	}
}

// NewMemoryRepositoryTTL creates a repository that evicts active sessions
// idle for longer than ttl, sweeping every interval.
func NewMemoryRepositoryTTL(ttl, interval time.Duration) *MemoryRepository {
	r := NewMemoryRepository()
	r.ttl = ttl
	if ttl > 0 && interval > 0 {
		go r.janitor(interval)
	}
	return r
}

// Put implements Repository.
func (r *MemoryRepository) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[s.ID] = s
}

// Get implements Repository.
func (r *MemoryRepository) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.active[id]
	return s, ok
}

// Complete implements Repository.
func (r *MemoryRepository) Complete(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.active[id]
	if !ok {
		return nil, false
	}
	delete(r.active, id)
	s.State = StateCompleted
	r.completed[id] = s
	return s, true
}

// WasCompleted implements Repository.
func (r *MemoryRepository) WasCompleted(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.completed[id]
	return ok
}

// Delete implements Repository.
func (r *MemoryRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
	delete(r.completed, id)
}

// Stats implements Repository.
func (r *MemoryRepository) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Active:    len(r.active),
		Completed: len(r.completed),
		Evicted:   r.evicted,
	}
}

// Sweep evicts active sessions idle since before the cutoff and returns
// the number evicted. Exposed for tests and called by the janitor.
func (r *MemoryRepository) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.active {
		if s.UpdatedAt.Before(cutoff) {
			delete(r.active, id)
			n++
		}
	}
	r.evicted += n
	return n
}

// Close stops the janitor, if running.
func (r *MemoryRepository) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *MemoryRepository) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-r.stop:
			return
		}
	}
}

// Verify MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)
