package capture

import (
	"context"

	"github.com/seam-io/seam/metrics"
	"github.com/seam-io/seam/trove"
)

// InstrumentedClient decorates a trove.Client with write metrics. Each
// record write counts once regardless of payload size; lookups are
// counted by the resolver, not here.
type InstrumentedClient struct {
	inner     trove.Client
	collector *metrics.Collector
}

// NewInstrumentedClient wraps client with metrics collection.
func NewInstrumentedClient(client trove.Client, collector *metrics.Collector) *InstrumentedClient {
	return &InstrumentedClient{inner: client, collector: collector}
}

// CreateRecord implements trove.Client.
func (c *InstrumentedClient) CreateRecord(ctx context.Context, req *trove.RecordRequest) (string, error) {
	id, err := c.inner.CreateRecord(ctx, req)
	if err != nil {
		c.collector.IncSegmentWriteFailure()
		return "", err
	}
	c.collector.IncSegmentWriteSuccess()
	return id, nil
}

// UpdateRecord implements trove.Client.
func (c *InstrumentedClient) UpdateRecord(ctx context.Context, id string, req *trove.RecordRequest) (string, error) {
	out, err := c.inner.UpdateRecord(ctx, id, req)
	if err != nil {
		c.collector.IncSegmentWriteFailure()
		return "", err
	}
	c.collector.IncSegmentWriteSuccess()
	return out, nil
}

// LookupRecord implements trove.Client.
func (c *InstrumentedClient) LookupRecord(ctx context.Context, conversationID, platform string) (*trove.Record, error) {
	return c.inner.LookupRecord(ctx, conversationID, platform)
}

// Close implements trove.Client.
func (c *InstrumentedClient) Close() error {
	return c.inner.Close()
}

// Verify InstrumentedClient implements trove.Client.
var _ trove.Client = (*InstrumentedClient)(nil)
