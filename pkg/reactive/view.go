package reactive

import (
	"reflect"
	"strconv"
)

// View is the access-recording handle a tracked render reads state through.
// Every read made while the pass is running is recorded at the view's path;
// after the pass the same calls still read, but record nothing.
type View struct {
	pass   *trackerPass
	value  any
	record *accessRecord
}

// trackerPass identifies one tracking pass of one tracker.
type trackerPass struct {
	active bool
}

func (v *View) recording() bool {
	return v.pass != nil && v.pass.active
}

// read resolves key and records it.
func (v *View) read(key string) (any, *accessRecord) {
	var rec *accessRecord
	if v.recording() {
		rec = v.record.child(key)
	}
	return resolveKey(v.value, key), rec
}

// Get reads key. Objects and lists come back as *View so that reads through
// them are recorded too; scalars come back raw; absent values are nil.
func (v *View) Get(key string) any {
	val, rec := v.read(key)
	if val == nil {
		return nil
	}
	if Root(val) != nil || isList(val) {
		return &View{pass: v.pass, value: val, record: rec}
	}
	return val
}

// View reads key and always returns a *View, which is empty when the value
// is absent.
func (v *View) View(key string) *View {
	val, rec := v.read(key)
	return &View{pass: v.pass, value: val, record: rec}
}

// At reads list index i.
func (v *View) At(i int) any {
	return v.Get(strconv.Itoa(i))
}

// Path reads a nested path, recording every segment.
func (v *View) Path(path ...any) any {
	keys := PathOf(path...).keys
	if len(keys) == 0 {
		return v.Value()
	}
	cur := v
	for _, key := range keys[:len(keys)-1] {
		cur = cur.View(key)
	}
	return cur.Get(keys[len(keys)-1])
}

// Value returns the raw value behind the view.
func (v *View) Value() any {
	return Unwrap(v.value)
}

// Node returns the Node behind the view, or nil.
func (v *View) Node() *Node {
	return Root(v.value)
}

// IsNil reports whether the view's value is absent.
func (v *View) IsNil() bool {
	return isNil(v.value)
}

// Keys enumerates the value's keys (list indexes for lists) and records a
// dependency on the whole value.
func (v *View) Keys() []string {
	v.recordWhole()
	if n := Root(v.value); n != nil {
		return n.Keys()
	}
	if isList(v.value) {
		l := reflect.ValueOf(v.value).Len()
		keys := make([]string, l)
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// Len returns the number of keys or list elements and records a dependency
// on the whole value.
func (v *View) Len() int {
	v.recordWhole()
	if n := Root(v.value); n != nil {
		return n.Len()
	}
	if isList(v.value) {
		return reflect.ValueOf(v.value).Len()
	}
	return 0
}

func (v *View) recordWhole() {
	if v.recording() && v.record != nil {
		v.record.whole = true
	}
}

// isList reports whether v is a slice or array.
func isList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
