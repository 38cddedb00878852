package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/livestate/pkg/reactive"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Apply(_ context.Context, e Event) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return Result{Name: e.Name, Applied: len(e.Assignments)}, nil
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Name
	}
	return out
}

func startFeed(t *testing.T, sink EventSink) (*RedisFeed, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	feed := NewRedisFeed(client, "game:events", sink)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- feed.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
	})

	select {
	case <-feed.Ready():
	case err := <-errc:
		t.Fatalf("feed stopped before subscribing: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not subscribe")
	}
	return feed, mr
}

func TestRedisFeedAppliesPublishedEvents(t *testing.T) {
	sink := &recordingSink{}
	feed, mr := startFeed(t, sink)

	mr.Publish("game:events", `not json`)
	mr.Publish("game:events", `{"name":"bad","assignments":[{"op":"merge","path":"a"}]}`)
	require.NoError(t, feed.Publish(context.Background(), Event{
		Name:        "score",
		Assignments: []Assignment{set("scores.ann", 3)},
	}))

	assert.Eventually(t, func() bool {
		return len(sink.names()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"score"}, sink.names())
}

func TestRedisFeedIntoHub(t *testing.T) {
	b := newBoard()
	hub, err := NewHub(b)
	require.NoError(t, err)
	runHub(t, hub)

	feed, _ := startFeed(t, hub)
	require.NoError(t, feed.Publish(context.Background(), Event{
		Name:        "next",
		Assignments: []Assignment{set("round.number", 2)},
	}))

	assert.Eventually(t, func() bool {
		var n any
		_ = hub.Do(context.Background(), func(root *reactive.Node) {
			n = reactive.Get(root, "round.number")
		})
		return n == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRedisFeedSubscribeFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	feed := NewRedisFeed(client, "game:events", &recordingSink{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, feed.Run(ctx))
}
