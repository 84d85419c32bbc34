package capture

import (
	"context"

	"github.com/seam-io/seam/log"
	"github.com/seam-io/seam/metrics"
	"github.com/seam-io/seam/trove"
)

// Decision is the outcome of living-document resolution: update an
// existing record in place or create a new one.
type Decision struct {
	Update   bool
	RecordID string
}

// Resolver maps a (conversationID, platform) pair to an existing record,
// if one exists. Resolution fails open: a lookup error degrades to
// create-new rather than blocking the save.
type Resolver struct {
	client  trove.Client
	logger  *log.Logger
	metrics *metrics.Collector
}

// NewResolver creates a resolver over the given storage client.
func NewResolver(client trove.Client, logger *log.Logger, collector *metrics.Collector) *Resolver {
	return &Resolver{client: client, logger: logger, metrics: collector}
}

// Resolve decides between update and create for one save. An empty
// conversationID always resolves to create-new without a lookup.
func (r *Resolver) Resolve(ctx context.Context, conversationID, platform string) Decision {
	if conversationID == "" {
		return Decision{}
	}

	rec, err := r.client.LookupRecord(ctx, conversationID, platform)
	if err != nil {
		r.logger.Warn("living-document lookup failed, creating new record", map[string]any{
			"conversation_id": conversationID,
			"platform":        platform,
			"error":           err.Error(),
		})
		r.metrics.IncLookupFailure()
		r.metrics.IncLivingDocCreate()
		return Decision{}
	}
	if rec == nil {
		r.metrics.IncLivingDocCreate()
		return Decision{}
	}

	r.logger.Debug("living-document resolved to existing record", map[string]any{
		"conversation_id": conversationID,
		"platform":        platform,
		"record_id":       rec.ID,
	})
	r.metrics.IncLivingDocUpdate()
	return Decision{Update: true, RecordID: rec.ID}
}
