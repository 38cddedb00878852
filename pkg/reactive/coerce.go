package reactive

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// coerce converts value to type t for storage.
//
// Assignable values are used as is. On top of that coerce accepts:
//   - nil, stored as the zero value of t
//   - a pointer whose element is assignable, dereferenced
//   - a value whose pointer type is t, copied into a new allocation
//   - numeric conversions that do not lose information
//   - strings into named string types
//   - decoded JSON/YAML documents (maps and slices of any) into structs,
//     struct pointers, typed slices and typed maps, via mapstructure
func coerce(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(value)
	vt := rv.Type()

	if vt.AssignableTo(t) {
		if t.Kind() == reflect.Interface {
			out := reflect.New(t).Elem()
			out.Set(rv)
			return out, nil
		}
		return rv, nil
	}

	if vt.Kind() == reflect.Pointer && !rv.IsNil() && vt.Elem().AssignableTo(t) {
		return rv.Elem(), nil
	}

	if t.Kind() == reflect.Pointer && vt.AssignableTo(t.Elem()) {
		p := reflect.New(t.Elem())
		p.Elem().Set(rv)
		return p, nil
	}

	if isNumberKind(vt.Kind()) && isNumberKind(t.Kind()) {
		return convertNumber(rv, t)
	}

	if vt.Kind() == reflect.String && t.Kind() == reflect.String {
		return rv.Convert(t), nil
	}

	if isDocument(vt) {
		return decodeDocument(value, t)
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", vt, t)
}

// isDocument reports whether vt is a generic decoded document shape.
func isDocument(vt reflect.Type) bool {
	switch vt.Kind() {
	case reflect.Map:
		return vt.Key().Kind() == reflect.String && vt.Elem().Kind() == reflect.Interface
	case reflect.Slice:
		return vt.Elem().Kind() == reflect.Interface
	}
	return false
}

// decodeDocument decodes a generic document into a value of type t, honoring
// json tags the same way reads through a Node do.
func decodeDocument(doc any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(doc); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertNumber converts between numeric kinds, refusing conversions that
// would truncate or overflow.
func convertNumber(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	var f float64
	switch {
	case rv.CanInt():
		f = float64(rv.Int())
	case rv.CanUint():
		f = float64(rv.Uint())
	default:
		f = rv.Float()
	}

	out := reflect.New(t).Elem()
	switch {
	case out.CanInt():
		if f != math.Trunc(f) {
			return reflect.Value{}, fmt.Errorf("%v is not an integer", f)
		}
		if rv.CanInt() {
			if out.OverflowInt(rv.Int()) {
				return reflect.Value{}, fmt.Errorf("%v overflows %s", rv.Int(), t)
			}
			out.SetInt(rv.Int())
			return out, nil
		}
		if f > math.MaxInt64 || out.OverflowInt(int64(f)) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", f, t)
		}
		out.SetInt(int64(f))
	case out.CanUint():
		if f < 0 || f != math.Trunc(f) {
			return reflect.Value{}, fmt.Errorf("%v is not a non-negative integer", f)
		}
		if rv.CanUint() {
			if out.OverflowUint(rv.Uint()) {
				return reflect.Value{}, fmt.Errorf("%v overflows %s", rv.Uint(), t)
			}
			out.SetUint(rv.Uint())
			return out, nil
		}
		if f > math.MaxUint64 || out.OverflowUint(uint64(f)) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", f, t)
		}
		out.SetUint(uint64(f))
	default:
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", f, t)
		}
		out.SetFloat(f)
	}
	return out, nil
}
