package remote

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/livestate/internal/errors"
	"github.com/vango-dev/livestate/pkg/reactive"
)

// Applier applies events to one wrapped root.
// Like the root itself, an Applier must be used from one goroutine.
type Applier struct {
	root   *reactive.Node
	logger *slog.Logger
}

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithApplierLogger sets the logger for applied events.
func WithApplierLogger(logger *slog.Logger) ApplierOption {
	return func(a *Applier) {
		a.logger = logger
	}
}

// NewApplier creates an Applier for root, which must be wrappable.
func NewApplier(root any, opts ...ApplierOption) (*Applier, error) {
	n := reactive.Root(root)
	if n == nil {
		return nil, errors.New("E106").WithDetail(fmt.Sprintf("Remote root has type %T.", root))
	}
	a := &Applier{root: n, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Root returns the root the applier writes to.
func (a *Applier) Root() *reactive.Node {
	return a.root
}

// Apply validates e and applies its assignments in order inside one
// reactive.Batch. Assignments below an absent intermediate are skipped.
// The first failing assignment stops the event; assignments before it
// stay applied.
func (a *Applier) Apply(e Event) (Result, error) {
	res := Result{Name: e.Name}
	if err := e.Validate(); err != nil {
		return res, err
	}

	var err error
	reactive.Batch(func() {
		for _, as := range e.Assignments {
			var ok bool
			ok, err = a.assign(as)
			if err != nil {
				if ce, isCoded := err.(*errors.Error); isCoded {
					ce.WithPath(as.Path.String())
				}
				return
			}
			if ok {
				res.Applied++
			} else {
				res.Skipped++
			}
		}
	})

	a.logger.Debug("remote: event applied",
		"event", e.Name,
		"applied", res.Applied,
		"skipped", res.Skipped,
		"error", err)
	return res, err
}

func (a *Applier) assign(as Assignment) (bool, error) {
	if as.Op == "" || as.Op == OpSet {
		return reactive.Assign(a.root, as.Path, as.Value)
	}

	target := reactive.Get(a.root, as.Path.Parent())
	parent := reactive.Root(target)
	if parent == nil {
		if target == nil {
			return false, nil
		}
		return false, notAnObject(as.Op, target)
	}
	switch as.Op {
	case OpDelete:
		return true, parent.Delete(as.Path.Last())
	case OpAppend:
		return true, parent.Append(as.Path.Last(), as.Value)
	}
	return false, errors.New("E402").WithKey(string(as.Op))
}

// notAnObject reports a delete or append whose parent resolved to a value
// that has no keys of its own, such as a list or a scalar.
func notAnObject(op Op, target any) error {
	var code string
	switch op {
	case OpDelete:
		code = "E105"
	case OpAppend:
		code = "E107"
	default:
		return errors.New("E402").WithKey(string(op))
	}
	return errors.New(code).WithDetail(fmt.Sprintf("The parent is a %T, not an object.", reactive.Unwrap(target)))
}
