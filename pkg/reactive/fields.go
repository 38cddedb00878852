package reactive

import (
	"reflect"
	"strings"
	"sync"
)

// structInfo is the key table for one struct type. Keys are the json tag
// name when present and the Go field name otherwise; both resolve.
type structInfo struct {
	keys  []string
	byKey map[string][]int
	canon map[string]string
}

var structInfos sync.Map // map[reflect.Type]*structInfo

// structInfoOf returns the cached key table for t, which must be a struct type.
func structInfoOf(t reflect.Type) *structInfo {
	if v, ok := structInfos.Load(t); ok {
		return v.(*structInfo)
	}

	info := &structInfo{
		byKey: make(map[string][]int),
		canon: make(map[string]string),
	}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		key := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}
		if _, dup := info.byKey[key]; dup {
			continue
		}
		info.keys = append(info.keys, key)
		info.byKey[key] = f.Index
		info.canon[key] = key
		if _, taken := info.byKey[f.Name]; !taken {
			info.byKey[f.Name] = f.Index
			info.canon[f.Name] = key
		}
	}

	actual, _ := structInfos.LoadOrStore(t, info)
	return actual.(*structInfo)
}

// field returns the field of struct value sv named by key, and the key's
// canonical spelling. Fields behind nil embedded pointers are reported missing.
func (s *structInfo) field(sv reflect.Value, key string) (reflect.Value, string, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return reflect.Value{}, "", false
	}
	fv, err := sv.FieldByIndexErr(idx)
	if err != nil {
		return reflect.Value{}, "", false
	}
	return fv, s.canon[key], true
}
