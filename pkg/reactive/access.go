package reactive

// accessRecord is the tree of keys read during one tracking pass.
type accessRecord struct {
	children map[string]*accessRecord
	order    []string

	// whole is set when the pass enumerated the value (Keys, Len), which
	// depends on every key and not just the ones read.
	whole bool
}

func newAccessRecord() *accessRecord {
	return &accessRecord{}
}

// child returns the entry for key, creating it on first read.
func (a *accessRecord) child(key string) *accessRecord {
	if c, ok := a.children[key]; ok {
		return c
	}
	if a.children == nil {
		a.children = make(map[string]*accessRecord)
	}
	c := newAccessRecord()
	a.children[key] = c
	a.order = append(a.order, key)
	return c
}

// dependency is one subscription a pass needs.
type dependency struct {
	path  Path
	whole bool
}

// dependencies returns the leaf paths of the tree in first-read order, plus
// every enumerated path. The root itself is never a leaf: a pass that read
// nothing depends on nothing.
func (a *accessRecord) dependencies() []dependency {
	var out []dependency
	var walk func(r *accessRecord, p Path)
	walk = func(r *accessRecord, p Path) {
		if r.whole {
			out = append(out, dependency{path: p, whole: true})
		} else if len(r.order) == 0 && !p.IsEmpty() {
			out = append(out, dependency{path: p})
		}
		for _, key := range r.order {
			walk(r.children[key], p.Append(key))
		}
	}
	walk(a, Path{})
	return out
}
