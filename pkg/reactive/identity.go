package reactive

import (
	"reflect"
)

// Unwrap strips every wrapper layer from v and returns the original object.
// Values that are not wrapped are returned unchanged.
func Unwrap(v any) any {
	for {
		n, ok := v.(*Node)
		if !ok {
			return v
		}
		if n == nil {
			return nil
		}
		v = n.Original()
	}
}

// Same reports whether a and b have the same unwrapped identity.
//
// Pointers, maps, channels and funcs are compared by address; slices by
// backing array and length; other comparable values with ==; anything else
// with reflect.DeepEqual. Nil interfaces and nil pointers, maps and slices are
// all the same "absent" value.
func Same(a, b any) bool {
	a, b = Unwrap(a), Unwrap(b)

	aNil, bNil := isNil(a), isNil(b)
	if aNil || bNil {
		return aNil && bNil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return reflect.DeepEqual(a, b)
}

// isNil reports whether v is a nil interface or a nil reference value.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	return isNilValue(reflect.ValueOf(v))
}

func isNilValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
