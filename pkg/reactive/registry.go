package reactive

import (
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// identity keys an original object in the registry. The type is part of the
// key because a struct and its first field share an address.
type identity struct {
	ptr uintptr
	typ reflect.Type
}

// registry maps originals to their Node. Entries hold the Node weakly: the
// Node keeps its original alive, and once nothing holds the Node a runtime
// cleanup removes the entry. A later Wrap of the same original then builds a
// fresh Node, which is indistinguishable because nobody held the old one.
//
// A Node with live subscriptions is pinned, since its subscribers would
// otherwise be lost with it.
type registry struct {
	mu     sync.Mutex
	nodes  map[identity]weak.Pointer[Node]
	pinned map[*Node]int
}

var nodes = &registry{
	nodes:  make(map[identity]weak.Pointer[Node]),
	pinned: make(map[*Node]int),
}

type evictArg struct {
	id identity
	wp weak.Pointer[Node]
}

// load returns the live Node for id, or stores the one built by create.
func (r *registry) load(id identity, create func() *Node) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.nodes[id]; ok {
		if n := wp.Value(); n != nil {
			return n
		}
	}

	n := create()
	wp := weak.Make(n)
	r.nodes[id] = wp
	runtime.AddCleanup(n, r.evict, evictArg{id: id, wp: wp})
	return n
}

// evict runs on the runtime's cleanup goroutine after a Node is collected.
// The entry may already point at a newer Node for a reused address.
func (r *registry) evict(arg evictArg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.nodes[arg.id]; ok && cur == arg.wp {
		delete(r.nodes, arg.id)
	}
}

// pin holds n strongly until a matching unpin.
func (r *registry) pin(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[n]++
}

func (r *registry) unpin(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pinned[n] <= 1 {
		delete(r.pinned, n)
		return
	}
	r.pinned[n]--
}

// size returns the number of registry entries, live or awaiting eviction.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

var nodeType = reflect.TypeOf((*Node)(nil))

// identityOf returns the registry key for rv if rv is a wrappable object:
// a non-nil pointer to a struct or a non-nil map with string keys. A *Node
// is never an original.
func identityOf(rv reflect.Value) (identity, bool) {
	if !rv.IsValid() || !rv.CanInterface() || rv.Type() == nodeType {
		return identity{}, false
	}
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() || rv.Type().Elem().Kind() != reflect.Struct {
			return identity{}, false
		}
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return identity{}, false
		}
	default:
		return identity{}, false
	}
	return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
}
