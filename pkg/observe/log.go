package observe

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/livestate/pkg/reactive"
)

// Log writes one record per callback to a slog.Logger. It is meant for
// debugging replays, not production traffic.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

var _ reactive.Observer = (*Log)(nil)

// NewLog logs at level through logger. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger, level slog.Level) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, level: level}
}

func (l *Log) log(msg string, args ...any) {
	l.logger.Log(context.Background(), l.level, msg, args...)
}

func (l *Log) ChangePublished(n *reactive.Node, c reactive.Change, delivered int) {
	l.log("change published",
		"node", n.String(),
		"key", c.Key,
		"subscribers", delivered)
}

func (l *Log) PathRebound(p reactive.Path, depth int) {
	l.log("path rebound", "path", p.String(), "depth", depth)
}

func (l *Log) DerivedEmitted() {
	l.log("derived emitted")
}

func (l *Log) TrackerPass(name string, paths int, took time.Duration) {
	l.log("tracker pass", "tracker", name, "paths", paths, "took", took)
}

func (l *Log) TrackerInvalidated(name string, reason reactive.InvalidationReason) {
	l.log("tracker invalidated", "tracker", name, "reason", string(reason))
}
