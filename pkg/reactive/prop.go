package reactive

import (
	"sync"

	"github.com/vango-dev/livestate/internal/errors"
)

// Source is a value that can be read now and watched for changes.
type Source interface {
	// Current resolves the value now, from live state.
	Current() any

	// Subscribe calls fn with the current value, then with every distinct
	// subsequent value, until the returned Unsubscribe is called.
	Subscribe(fn func(any), opts ...SubscribeOption) Unsubscribe
}

// SubscribeOption configures one subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	skipFirst bool
}

// SkipFirst suppresses the replay of the current value on subscribe, so fn
// only sees changes.
func SkipFirst() SubscribeOption {
	return func(c *subscribeConfig) {
		c.skipFirst = true
	}
}

func newSubscribeConfig(opts []SubscribeOption) subscribeConfig {
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// PropSource is a live value source for one path below a root.
type PropSource struct {
	root any
	path Path
}

var _ Source = (*PropSource)(nil)

// Prop returns a source for the value at path below root. The path parts are
// normalized as by PathOf, so Prop(root, "a.b") and Prop(root, "a", "b") are
// the same source.
//
// Subscribers follow the path through replacement of any intermediate
// object: when a segment's value changes identity, everything below it is
// re-resolved against the new value, the old subscriptions are dropped, and
// the new leaf value is emitted immediately. Absent intermediates resolve to
// nil and the subscription resumes once they appear.
//
// For the empty path the source is constant and equals the wrapped root.
func Prop(root any, path ...any) *PropSource {
	return &PropSource{root: Wrap(root), path: PathOf(path...)}
}

// Path returns the source's path.
func (s *PropSource) Path() Path {
	return s.path
}

// Current resolves the path now.
func (s *PropSource) Current() any {
	return resolvePath(s.root, s.path.keys)
}

// Subscribe calls fn with the current value and then once per distinct value.
// Consecutive values with the same unwrapped identity are delivered once.
func (s *PropSource) Subscribe(fn func(any), opts ...SubscribeOption) Unsubscribe {
	cfg := newSubscribeConfig(opts)

	var (
		last    any
		emitted bool
		skip    = cfg.skipFirst
		closed  bool
	)
	emit := func(v any) {
		if closed {
			return
		}
		if emitted && Same(last, v) {
			return
		}
		last, emitted = v, true
		if skip {
			skip = false
			return
		}
		fn(v)
	}

	b := bind(s.path, 0, s.root, emit)

	var once sync.Once
	return func() {
		once.Do(func() {
			closed = true
			b.close()
		})
	}
}

// binding watches one path segment: key at depth, read from target. It
// holds the binding for the rest of the path, rebuilt whenever the key's
// value changes.
type binding struct {
	path   Path
	depth  int
	target any
	key    string
	emit   func(any)

	off    Unsubscribe
	child  *binding
	gen    uint64
	closed bool
}

// bind subscribes to path.keys[depth:] below target. With no keys left it
// emits target and returns nil.
func bind(path Path, depth int, target any, emit func(any)) *binding {
	if depth >= path.Len() {
		emit(target)
		return nil
	}

	b := &binding{
		path:   path,
		depth:  depth,
		target: target,
		key:    path.keys[depth],
		emit:   emit,
	}
	if n := Root(target); n != nil {
		key := n.canonicalKey(b.key)
		b.off = n.Subscribe(func(c Change) {
			if c.Key == key {
				b.rebind(true)
			}
		})
	}
	b.rebind(false)
	return b
}

// rebind drops the suffix binding and builds a new one against the current
// value of the key. A rebind started from inside the suffix's own emission
// supersedes the outer one, which then discards what it built.
func (b *binding) rebind(changed bool) {
	if b.closed {
		return
	}
	b.gen++
	gen := b.gen

	if b.child != nil {
		b.child.close()
		b.child = nil
	}

	if changed {
		observer().PathRebound(b.path, b.depth)
		if debugEnabled() {
			logger().Debug("reactive: path rebound",
				"path", b.path.String(),
				"depth", b.depth)
		}
	}

	child := bind(b.path, b.depth+1, resolveKey(b.target, b.key), b.emit)
	if b.closed || gen != b.gen {
		child.close()
		return
	}
	b.child = child
}

// close releases the binding and everything below it. Safe on nil.
func (b *binding) close() {
	if b == nil || b.closed {
		return
	}
	b.closed = true
	if b.off != nil {
		b.off()
	}
	b.child.close()
	b.child = nil
}

// Assign writes value at path below root. The write goes through the Node
// that owns the last key, so it is observable like any other Set. When an
// intermediate is absent or not an object the write is a no-op and Assign
// returns false; missing structure is never materialized. A list element is
// written by replacing the list on the object that holds it.
func Assign(root any, path Path, value any) (bool, error) {
	if path.IsEmpty() {
		return false, errors.New("E202")
	}
	parent := resolvePath(Wrap(root), path.keys[:path.Len()-1])
	n := Root(parent)
	if n == nil {
		if !isList(parent) {
			return false, nil
		}
		if err := assignElement(root, path, value); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := n.Set(path.Last(), value); err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.WithPath(path.Parent().String())
		}
		return false, err
	}
	return true, nil
}

// assignElement writes one element of the list at path's parent through the
// object that holds the list.
func assignElement(root any, path Path, value any) error {
	if path.Len() < 2 {
		return errors.New("E109").WithPath(path.String())
	}
	listPath := path.Parent()
	owner := Root(resolvePath(Wrap(root), listPath.keys[:listPath.Len()-1]))
	if owner == nil {
		return errors.New("E109").WithPath(listPath.String())
	}
	if err := owner.SetAt(listPath.Last(), path.Last(), value); err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.WithPath(listPath.Parent().String())
		}
		return err
	}
	return nil
}
