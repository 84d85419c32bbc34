package trove

import (
	"context"
	"fmt"
	"sync"
)

// Op records one client call for ordering assertions in tests.
type Op struct {
	// Name is "create", "update", or "lookup".
	Name string
	// RecordID is the target record for updates, the returned id for creates.
	RecordID string
	// PartNumber is the segment part number when present in metadata.
	PartNumber int
}

// StubClient is a test client that stores records in memory.
//
// Lookups scan stored records by conversationId/platform metadata, so the
// living-document flow behaves end to end without a real service. Error
// hooks allow failure injection at each boundary.
type StubClient struct {
	mu sync.Mutex

	// Records maps id to the stored record, updated in place by UpdateRecord.
	Records map[string]*Record
	// Ops tracks every call in order.
	Ops []Op
	// Closed indicates whether Close was called.
	Closed bool

	// ErrOnCreate, if non-nil, is returned by CreateRecord.
	ErrOnCreate error
	// FailCreateAt, when > 0, makes only the Nth create call fail with
	// ErrOnCreate; earlier and later creates succeed.
	FailCreateAt int
	// ErrOnUpdate, if non-nil, is returned by UpdateRecord.
	ErrOnUpdate error
	// ErrOnLookup, if non-nil, is returned by LookupRecord.
	ErrOnLookup error

	createCalls int
	nextID      int
}

// NewStubClient creates an empty stub client.
func NewStubClient() *StubClient {
	return &StubClient{Records: make(map[string]*Record)}
}

// CreateRecord stores the record under a generated id.
func (c *StubClient) CreateRecord(_ context.Context, req *RecordRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.createCalls++
	if c.ErrOnCreate != nil && (c.FailCreateAt == 0 || c.createCalls == c.FailCreateAt) {
		return "", wrapError("create", "", c.ErrOnCreate)
	}

	c.nextID++
	id := fmt.Sprintf("rec-%d", c.nextID)
	c.Records[id] = &Record{
		ID:       id,
		Title:    req.Title,
		Content:  req.Content,
		Tags:     append([]string(nil), req.Tags...),
		Metadata: copyMetadata(req.Metadata),
	}
	c.Ops = append(c.Ops, Op{Name: "create", RecordID: id, PartNumber: partNumber(req.Metadata)})
	return id, nil
}

// UpdateRecord applies a partial update to a stored record.
func (c *StubClient) UpdateRecord(_ context.Context, id string, req *RecordRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ErrOnUpdate != nil {
		return "", wrapError("update", id, c.ErrOnUpdate)
	}
	rec, ok := c.Records[id]
	if !ok {
		return "", wrapError("update", id, &StatusError{Code: 404})
	}

	if req.Content != "" {
		rec.Content = req.Content
	}
	if req.Title != "" {
		rec.Title = req.Title
	}
	if req.Tags != nil {
		rec.Tags = append([]string(nil), req.Tags...)
	}
	for k, v := range req.Metadata {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any)
		}
		rec.Metadata[k] = v
	}
	c.Ops = append(c.Ops, Op{Name: "update", RecordID: id})
	return id, nil
}

// LookupRecord scans stored records for a conversationId/platform match.
func (c *StubClient) LookupRecord(_ context.Context, conversationID, platform string) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Ops = append(c.Ops, Op{Name: "lookup"})
	if c.ErrOnLookup != nil {
		return nil, wrapError("lookup", "", c.ErrOnLookup)
	}

	for _, rec := range c.Records {
		if rec.Metadata == nil {
			continue
		}
		if rec.Metadata[MetaConversationID] == conversationID && rec.Metadata[MetaPlatform] == platform {
			return rec, nil
		}
	}
	return nil, nil
}

// Close marks the client as closed.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// CreateCount returns the number of CreateRecord calls made.
func (c *StubClient) CreateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func partNumber(m map[string]any) int {
	if m == nil {
		return 0
	}
	if n, ok := m[MetaPartNumber].(int); ok {
		return n
	}
	return 0
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
