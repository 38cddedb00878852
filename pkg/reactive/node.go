package reactive

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/vango-dev/livestate/internal/errors"
)

// Node is the observable view of one underlying object.
//
// A Node is bound 1:1 to its original: a pointer to a struct, a map with
// string keys, or an addressable struct value reached through another Node
// (a struct field or slice element, identified by its address). Reads through
// a Node return nested objects already wrapped; writes through a Node publish
// a Change when the unwrapped identity of the stored value changes.
//
// Nodes are created lazily by Wrap and never eagerly for a whole graph, so
// cyclic graphs are safe.
type Node struct {
	id   uint64
	orig reflect.Value
	bus  Bus
}

// Wrap returns the Node for v. Wrapping is idempotent: Wrap(Wrap(x)) == Wrap(x),
// and every path to the same original yields the same Node. Values that are
// not objects (nil, scalars, strings, slices, funcs) are returned unchanged.
func Wrap(v any) any {
	if n := Root(v); n != nil {
		return n
	}
	return v
}

// Root returns the Node for v, or nil if v is not a wrappable object.
func Root(v any) *Node {
	switch x := v.(type) {
	case nil:
		return nil
	case *Node:
		return x
	}
	return wrapValue(reflect.ValueOf(v))
}

// MustRoot is like Root but panics with ErrNotWrappable for non-objects.
func MustRoot(v any) *Node {
	n := Root(v)
	if n == nil {
		panic(errors.New("E106").WithDetail(fmt.Sprintf("cannot wrap %T", v)))
	}
	return n
}

// wrapValue returns the Node for an object value, or nil.
func wrapValue(rv reflect.Value) *Node {
	id, ok := identityOf(rv)
	if !ok {
		return nil
	}
	return nodes.load(id, func() *Node {
		// Detached from the field or slot rv was read from.
		return &Node{id: nextID(), orig: reflect.ValueOf(rv.Interface())}
	})
}

// wrapReflect converts a value read out of an object into what readers see:
// a Node for objects (including addressable struct values), nil for absent
// references, and the raw value otherwise.
func wrapReflect(rv reflect.Value) any {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if isNilValue(rv) {
		return nil
	}
	if rv.Type() == nodeType && rv.CanInterface() {
		return rv.Interface().(*Node)
	}
	if rv.Kind() == reflect.Struct && rv.CanAddr() {
		return wrapValue(rv.Addr())
	}
	if n := wrapValue(rv); n != nil {
		return n
	}
	if !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}

// MarshalJSON encodes the original object, so a Node stored inside another
// value serializes like the data it wraps.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Original())
}

// ID returns the unique identifier for this node.
func (n *Node) ID() uint64 {
	return n.id
}

// Original returns the unwrapped object this node observes.
func (n *Node) Original() any {
	return n.orig.Interface()
}

// IsMap reports whether the node observes a map.
func (n *Node) IsMap() bool {
	return n.orig.Kind() == reflect.Map
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("Node(%s#%d)", n.orig.Type(), n.id)
}

// Subscribe registers fn for every change published by this node. The node
// stays registered for its original while it has subscribers.
func (n *Node) Subscribe(fn func(Change)) Unsubscribe {
	off := n.bus.Subscribe(fn)
	nodes.pin(n)

	var once sync.Once
	return func() {
		once.Do(func() {
			off()
			nodes.unpin(n)
		})
	}
}

// Subscribers returns the number of live subscriptions on this node.
func (n *Node) Subscribers() int {
	return n.bus.Len()
}

// Get reads key. Nested objects come back wrapped. Unknown struct keys and
// missing map keys read as nil.
func (n *Node) Get(key string) any {
	fv, ok := n.lookup(key)
	if !ok {
		return nil
	}
	return wrapReflect(fv)
}

// Has reports whether key names a field or present map entry.
func (n *Node) Has(key string) bool {
	_, ok := n.lookup(key)
	return ok
}

// lookup returns the stored value for key.
func (n *Node) lookup(key string) (reflect.Value, bool) {
	if n.IsMap() {
		k, ok := mapKey(n.orig.Type(), key)
		if !ok {
			return reflect.Value{}, false
		}
		v := n.orig.MapIndex(k)
		return v, v.IsValid()
	}
	fv, _, ok := structInfoOf(n.orig.Type().Elem()).field(n.orig.Elem(), key)
	return fv, ok
}

// canonicalKey returns the key under which changes to key are published.
// Struct fields may be addressed by json name or Go name; events always
// carry the json name when the field has one.
func (n *Node) canonicalKey(key string) string {
	if n.IsMap() {
		return key
	}
	if _, canon, ok := structInfoOf(n.orig.Type().Elem()).field(n.orig.Elem(), key); ok {
		return canon
	}
	return key
}

// Keys returns the node's keys: struct fields in declaration order, map
// keys sorted.
func (n *Node) Keys() []string {
	if n.IsMap() {
		keys := make([]string, 0, n.orig.Len())
		iter := n.orig.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		sort.Strings(keys)
		return keys
	}
	info := structInfoOf(n.orig.Type().Elem())
	keys := make([]string, len(info.keys))
	copy(keys, info.keys)
	return keys
}

// Len returns the number of keys.
func (n *Node) Len() int {
	if n.IsMap() {
		return n.orig.Len()
	}
	return len(structInfoOf(n.orig.Type().Elem()).keys)
}

// Set writes value at key. If the unwrapped identity of the stored value
// changes, the change is published to subscribers before Set returns;
// otherwise nothing is published. Wrapped values are unwrapped before they
// are stored.
func (n *Node) Set(key string, value any) error {
	value = Unwrap(value)

	if n.IsMap() {
		return n.setMapEntry(key, value)
	}
	return n.setField(key, value)
}

func (n *Node) setField(key string, value any) error {
	fv, canon, ok := structInfoOf(n.orig.Type().Elem()).field(n.orig.Elem(), key)
	if !ok {
		return errors.New("E101").WithKey(key).WithDetail(
			fmt.Sprintf("%s has no field or json name %q.", n.orig.Type().Elem(), key))
	}
	if !fv.CanSet() {
		return errors.New("E103").WithKey(key)
	}

	nv, err := coerce(value, fv.Type())
	if err != nil {
		return errors.New("E102").WithKey(key).Wrap(err)
	}

	old := fv.Interface()
	if Same(old, nv.Interface()) {
		return nil
	}
	fv.Set(nv)
	n.publish(Change{Key: canon, Old: old, New: nv.Interface()})
	return nil
}

func (n *Node) setMapEntry(key string, value any) error {
	t := n.orig.Type()
	k, ok := mapKey(t, key)
	if !ok {
		return errors.New("E101").WithKey(key)
	}

	nv, err := coerce(value, t.Elem())
	if err != nil {
		return errors.New("E102").WithKey(key).Wrap(err)
	}

	var old any
	cur := n.orig.MapIndex(k)
	if cur.IsValid() {
		old = cur.Interface()
	}

	n.orig.SetMapIndex(k, nv)
	if Same(old, nv.Interface()) {
		return nil
	}
	n.publish(Change{Key: key, Old: old, New: nv.Interface()})
	return nil
}

// Delete removes key from a map node and publishes {key, old, nil} if the
// key was present. Struct nodes return ErrDeleteUnsupported.
func (n *Node) Delete(key string) error {
	if !n.IsMap() {
		return errors.New("E105").WithKey(key)
	}
	k, ok := mapKey(n.orig.Type(), key)
	if !ok {
		return errors.New("E101").WithKey(key)
	}
	cur := n.orig.MapIndex(k)
	if !cur.IsValid() {
		return nil
	}
	old := cur.Interface()
	n.orig.SetMapIndex(k, reflect.Value{})
	n.publish(Change{Key: key, Old: old, New: nil})
	return nil
}

// Append stores a copy of the list at key with values added to the end.
// The copy always has a new backing array, so the write is observed even
// when the old slice had spare capacity. An absent key in a map of any
// starts a new []any.
func (n *Node) Append(key string, values ...any) error {
	cur, _ := n.lookup(key)
	for cur.IsValid() && cur.Kind() == reflect.Interface {
		if cur.IsNil() {
			cur = reflect.Value{}
			break
		}
		cur = cur.Elem()
	}

	var st reflect.Type
	switch {
	case !cur.IsValid():
		st = reflect.TypeOf([]any(nil))
	case cur.Kind() == reflect.Slice:
		st = cur.Type()
	default:
		return errors.New("E107").WithKey(key).WithDetail(
			fmt.Sprintf("The value at %q is a %s.", key, cur.Type()))
	}

	size := 0
	if cur.IsValid() {
		size = cur.Len()
	}
	out := reflect.MakeSlice(st, size, size+len(values))
	if size > 0 {
		reflect.Copy(out, cur)
	}
	for i, v := range values {
		ev, err := coerce(Unwrap(v), st.Elem())
		if err != nil {
			return errors.New("E102").WithKey(key + "#" + strconv.Itoa(size+i)).Wrap(err)
		}
		out = reflect.Append(out, ev)
	}
	return n.Set(key, out.Interface())
}

// SetAt replaces element index of the list held at key. The list is copied
// and the copy stored with Set, so the change publishes under key and
// holders of the previous list keep their elements.
func (n *Node) SetAt(key, index string, value any) error {
	cur, ok := n.lookup(key)
	if !ok && !n.IsMap() {
		return errors.New("E101").WithKey(key)
	}
	for cur.IsValid() && cur.Kind() == reflect.Interface && !cur.IsNil() {
		cur = cur.Elem()
	}
	if !cur.IsValid() || (cur.Kind() != reflect.Slice && cur.Kind() != reflect.Array) {
		return errors.New("E107").WithKey(key)
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= cur.Len() {
		return errors.New("E108").WithKey(key + "#" + index).WithDetail(
			fmt.Sprintf("The list at %q has %d elements.", key, cur.Len()))
	}

	ev, err := coerce(Unwrap(value), cur.Type().Elem())
	if err != nil {
		return errors.New("E102").WithKey(key + "#" + index).Wrap(err)
	}
	if old := cur.Index(i); old.CanInterface() && Same(old.Interface(), ev.Interface()) {
		return nil
	}

	var out reflect.Value
	if cur.Kind() == reflect.Slice {
		out = reflect.MakeSlice(cur.Type(), cur.Len(), cur.Len())
		reflect.Copy(out, cur)
	} else {
		out = reflect.New(cur.Type()).Elem()
		out.Set(cur)
	}
	out.Index(i).Set(ev)
	return n.Set(key, out.Interface())
}

// Call invokes the exported method named method on the original object, so
// the method body never sees a Node. Wrapped arguments are unwrapped and
// converted like values passed to Set. Results are returned raw.
func (n *Node) Call(method string, args ...any) ([]any, error) {
	m := n.orig.MethodByName(method)
	if !m.IsValid() {
		return nil, errors.New("E104").WithKey(method)
	}

	mt := m.Type()
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return nil, errors.New("E102").WithKey(method).WithDetail(
				fmt.Sprintf("%s expects at least %d arguments, got %d.", method, mt.NumIn()-1, len(args)))
		}
	} else if len(args) != mt.NumIn() {
		return nil, errors.New("E102").WithKey(method).WithDetail(
			fmt.Sprintf("%s expects %d arguments, got %d.", method, mt.NumIn(), len(args)))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			want = mt.In(mt.NumIn() - 1).Elem()
		} else {
			want = mt.In(i)
		}
		v, err := coerce(Unwrap(arg), want)
		if err != nil {
			return nil, errors.New("E102").WithKey(method + "#" + strconv.Itoa(i)).Wrap(err)
		}
		in[i] = v
	}

	out := m.Call(in)
	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, nil
}

// publish emits c on the node's bus.
func (n *Node) publish(c Change) {
	delivered := n.bus.Publish(c)
	observer().ChangePublished(n, c, delivered)
	if debugEnabled() {
		logger().Debug("reactive: change published",
			"node", n.String(),
			"key", c.Key,
			"subscribers", delivered)
	}
}

// mapKey converts a string key to the key type of map type t.
func mapKey(t reflect.Type, key string) (reflect.Value, bool) {
	kt := t.Key()
	if kt.Kind() != reflect.String {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(key).Convert(kt), true
}
