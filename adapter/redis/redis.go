// Package redis publishes capture completion events to a Redis channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/seam-io/seam/adapter"
	"github.com/seam-io/seam/log"
)

// DefaultChannel is the pub/sub channel for completion events.
const DefaultChannel = "seam:capture_completed"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Channel overrides DefaultChannel when set.
	Channel string
}

// Adapter publishes events over Redis pub/sub. Subscribers that are not
// connected at publish time miss the event; durable delivery is out of
// scope for this adapter.
type Adapter struct {
	client  *goredis.Client
	channel string
	logger  *log.Logger
}

// New creates a Redis adapter. The connection is lazy: the first Publish
// dials.
func New(cfg Config, logger *log.Logger) *Adapter {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Adapter{
		client: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		channel: channel,
		logger:  logger,
	}
}

// Publish implements adapter.Adapter.
func (a *Adapter) Publish(ctx context.Context, event *adapter.CaptureCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := a.client.Publish(ctx, a.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", a.channel, err)
	}
	a.logger.Debug("event published", map[string]any{
		"event_id": event.EventID,
		"channel":  a.channel,
	})
	return nil
}

// Close implements adapter.Adapter.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements adapter.Adapter.
var _ adapter.Adapter = (*Adapter)(nil)
