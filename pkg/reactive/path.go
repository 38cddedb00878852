package reactive

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/livestate/internal/errors"
)

// Path is an immutable ordered list of property keys.
// The textual form "a.b.c" and the key list "a", "b", "c" produce equal
// paths. The zero Path is the empty path, which names the root itself.
type Path struct {
	keys []string
}

// ParsePath splits a dotted path. The empty string is the empty path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path{keys: strings.Split(s, ".")}
}

// NewPath normalizes parts into a Path.
//
// A single string part is parsed as a dotted path. Otherwise each part is one
// key: strings are used verbatim, integers become their decimal form, and
// Path and []string parts are spliced in.
func NewPath(parts ...any) (Path, error) {
	if len(parts) == 1 {
		switch p := parts[0].(type) {
		case string:
			return ParsePath(p), nil
		case Path:
			return p, nil
		}
	}

	var keys []string
	for i, part := range parts {
		switch p := part.(type) {
		case string:
			keys = append(keys, p)
		case Path:
			keys = append(keys, p.keys...)
		case []string:
			keys = append(keys, p...)
		default:
			rv := reflect.ValueOf(part)
			switch {
			case rv.CanInt():
				keys = append(keys, strconv.FormatInt(rv.Int(), 10))
			case rv.CanUint():
				keys = append(keys, strconv.FormatUint(rv.Uint(), 10))
			default:
				return Path{}, errors.New("E201").WithKey(fmt.Sprintf("%v", part)).WithDetail(
					fmt.Sprintf("Path part %d has type %T; keys must be strings or integers.", i, part))
			}
		}
	}
	return Path{keys: keys}, nil
}

// PathOf is like NewPath but panics on invalid parts. Paths are normally
// literals in code, so a bad key is a programming error.
func PathOf(parts ...any) Path {
	p, err := NewPath(parts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of keys.
func (p Path) Len() int { return len(p.keys) }

// IsEmpty reports whether p names the root.
func (p Path) IsEmpty() bool { return len(p.keys) == 0 }

// At returns the i'th key.
func (p Path) At(i int) string { return p.keys[i] }

// Keys returns a copy of the keys.
func (p Path) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Append returns p extended by keys. p is not modified.
func (p Path) Append(keys ...string) Path {
	out := make([]string, 0, len(p.keys)+len(keys))
	out = append(out, p.keys...)
	out = append(out, keys...)
	return Path{keys: out}
}

// Parent returns p without its last key. The parent of the empty path is empty.
func (p Path) Parent() Path {
	if len(p.keys) == 0 {
		return p
	}
	return Path{keys: p.keys[:len(p.keys)-1]}
}

// Last returns the last key, or "" for the empty path.
func (p Path) Last() string {
	if len(p.keys) == 0 {
		return ""
	}
	return p.keys[len(p.keys)-1]
}

// Equal reports whether p and o have the same keys.
func (p Path) Equal(o Path) bool {
	if len(p.keys) != len(o.keys) {
		return false
	}
	for i := range p.keys {
		if p.keys[i] != o.keys[i] {
			return false
		}
	}
	return true
}

// String returns the dotted form.
func (p Path) String() string {
	return strings.Join(p.keys, ".")
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(b []byte) error {
	*p = ParsePath(string(b))
	return nil
}

// dotted reports whether a key contains the separator, so the path has no
// faithful dotted form.
func (p Path) dotted() bool {
	for _, k := range p.keys {
		if strings.Contains(k, ".") {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the dotted string, or an array of keys when a key
// contains a dot.
func (p Path) MarshalJSON() ([]byte, error) {
	if p.dotted() {
		return json.Marshal(p.Keys())
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts a dotted string or an array of string and integer
// keys.
func (p *Path) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = ParsePath(s)
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.New("E201").WithDetail("A path is a dotted string or an array of keys.").Wrap(err)
	}
	keys := make([]string, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &keys[i]); err == nil {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return errors.New("E201").WithKey(string(r))
		}
		if _, err := n.Int64(); err != nil {
			return errors.New("E201").WithKey(string(r))
		}
		keys[i] = n.String()
	}
	*p = Path{keys: keys}
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (p Path) MarshalYAML() (any, error) {
	if p.dotted() {
		return p.Keys(), nil
	}
	return p.String(), nil
}

// UnmarshalYAML accepts a dotted scalar or a sequence of scalar keys.
func (p *Path) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*p = ParsePath(value.Value)
		return nil
	case yaml.SequenceNode:
		keys := make([]string, len(value.Content))
		for i, k := range value.Content {
			if k.Kind != yaml.ScalarNode {
				return errors.New("E201").WithDetail(fmt.Sprintf("Path key %d at line %d is not a scalar.", i, k.Line))
			}
			keys[i] = k.Value
		}
		*p = Path{keys: keys}
		return nil
	}
	return errors.New("E201").WithDetail(fmt.Sprintf("A path at line %d is a dotted string or a list of keys.", value.Line))
}

// resolveKey reads key from v, which may be a Node, a slice or array
// (integer keys), or a plain struct value. Anything else reads as nil.
func resolveKey(v any, key string) any {
	if v == nil {
		return nil
	}
	if n := Root(v); n != nil {
		return n.Get(key)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil
		}
		return wrapReflect(rv.Index(i))
	case reflect.Struct:
		fv, _, ok := structInfoOf(rv.Type()).field(rv, key)
		if !ok {
			return nil
		}
		return wrapReflect(fv)
	}
	return nil
}

// resolvePath walks keys from v. Absent intermediates resolve to nil.
func resolvePath(v any, keys []string) any {
	for _, key := range keys {
		if v == nil {
			return nil
		}
		v = resolveKey(v, key)
	}
	return v
}

// Get resolves path against root without subscribing.
func Get(root any, path ...any) any {
	return resolvePath(Wrap(root), PathOf(path...).keys)
}
