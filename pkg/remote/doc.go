// Package remote connects a wrapped root to the outside world.
//
// Remote events are batches of assignments (set, delete, append) addressed
// by path. An Applier applies them to a root inside one reactive.Batch, so
// derived values and trackers see each event as a single change. A Hub owns
// a root on one goroutine, applies events from any goroutine, and streams
// path subscriptions to websocket clients. A RedisFeed applies events
// published on a Redis channel.
//
// Transport concerns such as reconnection and retry stay with the caller.
package remote
