package reactive

import (
	"sync"
)

// Derived is a value computed from several path sources and re-emitted only
// when the computed result changes.
type Derived[U any] struct {
	inputs  []*PropSource
	combine func(values ...any) U
	equal   func(a, b U) bool
}

// DerivedOption configures a Derived.
type DerivedOption[U any] func(*Derived[U])

// WithDerivedEquals replaces the equality used to suppress repeated
// emissions. The default compares unwrapped identity (see Same).
func WithDerivedEquals[U any](fn func(a, b U) bool) DerivedOption[U] {
	return func(d *Derived[U]) {
		d.equal = fn
	}
}

// Props combines the values at paths below root with combine.
//
// Each subscriber receives combine(values...) once every input has delivered
// its first value, then again whenever an input changes and the result is not
// equal to the previous emission. Inside Batch, recomputation waits for the
// end of the outermost batch, so intermediate results that cancel out are
// never emitted.
//
// Example:
//
//	total := reactive.Props(state, reactive.Paths("a", "b"), func(v ...any) int {
//	    return v[0].(int) + v[1].(int)
//	})
func Props[U any](root any, paths []Path, combine func(values ...any) U, opts ...DerivedOption[U]) *Derived[U] {
	wrapped := Wrap(root)
	d := &Derived[U]{
		inputs:  make([]*PropSource, len(paths)),
		combine: combine,
	}
	for i, p := range paths {
		d.inputs[i] = &PropSource{root: wrapped, path: p}
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.equal == nil {
		d.equal = func(a, b U) bool { return Same(a, b) }
	}
	return d
}

// Paths parses each dotted string into a Path. It is a convenience for Props.
func Paths(paths ...string) []Path {
	out := make([]Path, len(paths))
	for i, p := range paths {
		out[i] = ParsePath(p)
	}
	return out
}

// Current computes the value from every input's live state. It never reads
// a subscriber's cached emission.
func (d *Derived[U]) Current() U {
	values := make([]any, len(d.inputs))
	for i, in := range d.inputs {
		values[i] = in.Current()
	}
	return d.combine(values...)
}

// Subscribe registers fn for distinct results.
func (d *Derived[U]) Subscribe(fn func(U), opts ...SubscribeOption) Unsubscribe {
	cfg := newSubscribeConfig(opts)
	sub := &derivedSub[U]{
		id:     nextID(),
		d:      d,
		fn:     fn,
		skip:   cfg.skipFirst,
		latest: make([]any, len(d.inputs)),
		have:   make([]bool, len(d.inputs)),
	}

	sub.offs = make([]Unsubscribe, 0, len(d.inputs))
	for i, in := range d.inputs {
		sub.offs = append(sub.offs, in.Subscribe(func(v any) {
			sub.input(i, v)
		}))
	}
	if len(d.inputs) == 0 {
		notify(sub)
	}

	var once sync.Once
	return func() {
		once.Do(sub.close)
	}
}

// derivedSub is the per-subscriber state of a Derived: the latest value of
// every input and the last emitted result.
type derivedSub[U any] struct {
	id     uint64
	d      *Derived[U]
	fn     func(U)
	skip   bool
	offs   []Unsubscribe
	latest []any
	have   []bool
	ready  int
	last   U
	sent   bool
	closed bool
}

func (s *derivedSub[U]) input(i int, v any) {
	if s.closed {
		return
	}
	s.latest[i] = v
	if !s.have[i] {
		s.have[i] = true
		s.ready++
	}
	if s.ready < len(s.latest) {
		return
	}
	notify(s)
}

// MarkDirty recomputes and emits if the result changed.
// Implements the Listener interface.
func (s *derivedSub[U]) MarkDirty() {
	if s.closed || s.ready < len(s.latest) {
		return
	}
	value := s.d.combine(s.latest...)
	if s.sent && s.d.equal(s.last, value) {
		return
	}
	s.last, s.sent = value, true
	if s.skip {
		s.skip = false
		return
	}
	observer().DerivedEmitted()
	s.fn(value)
}

// ID returns the unique identifier for this subscription.
// Implements the Listener interface.
func (s *derivedSub[U]) ID() uint64 {
	return s.id
}

func (s *derivedSub[U]) close() {
	s.closed = true
	for _, off := range s.offs {
		off()
	}
	s.offs = nil
}

var _ Listener = (*derivedSub[int])(nil)
