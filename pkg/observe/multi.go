package observe

import (
	"time"

	"github.com/vango-dev/livestate/pkg/reactive"
)

// multi calls every observer in order.
type multi []reactive.Observer

// Multi fans callbacks out to every non-nil observer in order.
func Multi(observers ...reactive.Observer) reactive.Observer {
	out := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) ChangePublished(n *reactive.Node, c reactive.Change, delivered int) {
	for _, o := range m {
		o.ChangePublished(n, c, delivered)
	}
}

func (m multi) PathRebound(p reactive.Path, depth int) {
	for _, o := range m {
		o.PathRebound(p, depth)
	}
}

func (m multi) DerivedEmitted() {
	for _, o := range m {
		o.DerivedEmitted()
	}
}

func (m multi) TrackerPass(name string, paths int, took time.Duration) {
	for _, o := range m {
		o.TrackerPass(name, paths, took)
	}
}

func (m multi) TrackerInvalidated(name string, reason reactive.InvalidationReason) {
	for _, o := range m {
		o.TrackerInvalidated(name, reason)
	}
}
