package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"
)

// EventSink applies events. *Hub implements it.
type EventSink interface {
	Apply(ctx context.Context, e Event) (Result, error)
}

var _ EventSink = (*Hub)(nil)

// FeedOption configures a RedisFeed.
type FeedOption func(*RedisFeed)

// WithFeedLogger sets the feed's logger.
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(f *RedisFeed) {
		f.logger = logger
	}
}

// RedisFeed applies events published as JSON on a Redis channel.
type RedisFeed struct {
	client  *backend.Client
	channel string
	sink    EventSink
	logger  *slog.Logger
	ready   chan struct{}
}

// NewRedisFeed creates a feed from channel into sink.
func NewRedisFeed(client *backend.Client, channel string, sink EventSink, opts ...FeedOption) *RedisFeed {
	f := &RedisFeed{
		client:  client,
		channel: channel,
		sink:    sink,
		logger:  slog.New(slog.DiscardHandler),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ready is closed once Run's subscription is confirmed by the server.
// Events published before that are not seen.
func (f *RedisFeed) Ready() <-chan struct{} {
	return f.ready
}

// Run subscribes to the channel and applies every event until ctx is done.
// Malformed events and failed applications are logged and skipped.
func (f *RedisFeed) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}
	close(f.ready)
	f.logger.Info("remote: redis feed subscribed", "channel", f.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.handle(ctx, msg.Payload)
		}
	}
}

func (f *RedisFeed) handle(ctx context.Context, payload string) {
	e, err := DecodeEvent([]byte(payload))
	if err != nil {
		f.logger.Warn("remote: dropping malformed event", "channel", f.channel, "error", err)
		return
	}
	res, err := f.sink.Apply(ctx, e)
	if err != nil {
		f.logger.Warn("remote: event failed", "event", e.Name, "error", err)
		return
	}
	f.logger.Debug("remote: event applied",
		"event", e.Name,
		"applied", res.Applied,
		"skipped", res.Skipped)
}

// Publish encodes e and publishes it on the feed's channel.
func (f *RedisFeed) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}
