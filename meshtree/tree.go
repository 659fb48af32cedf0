// Package meshtree implements the minimal slice of the hierarchical data
// container (a tagged tree of named children holding typed arrays) that the
// CORE needs to compile, run, and be tested against. The full container,
// its serialization layer, and file I/O plugins are external collaborators
// out of scope for this module (see SPEC_FULL.md); this package only
// implements path-based child lookup, typed leaf values, and a
// length-prefixed wire encoding, the same surface
// `conduit::Node`/`fetch_existing`/`send_using_schema` expose in the
// original implementation this spec was distilled from.
package meshtree

import "strings"

// Kind identifies what a leaf Tree node holds.
type Kind int

const (
	KindInterior Kind = iota
	KindString
	KindInt
	KindFloat64Array
	KindInt32Array
	KindInt64Array
	KindUint64Array
)

// Tree is a named node that is either interior (has Children) or a leaf
// holding one typed value.
type Tree struct {
	Name     string
	Children []*Tree

	kind Kind
	str  string
	i    int
	f64  []float64
	i32  []int32
	i64  []int64
	u64  []uint64
}

// New returns an empty interior node named name.
func New(name string) *Tree {
	return &Tree{Name: name, kind: KindInterior}
}

// Child returns the existing child named name, creating it if absent.
func (t *Tree) Child(name string) *Tree {
	for _, c := range t.Children {
		if c.Name == name {
			return c
		}
	}
	c := New(name)
	t.Children = append(t.Children, c)
	return c
}

// HasChild reports whether a direct child named name exists.
func (t *Tree) HasChild(name string) bool {
	for _, c := range t.Children {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Fetch resolves a "/"-separated path, returning (nil, false) if any
// component is missing.
func (t *Tree) Fetch(path string) (*Tree, bool) {
	cur := t
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		var next *Tree
		for _, c := range cur.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// HasPath reports whether path resolves to an existing node.
func (t *Tree) HasPath(path string) bool {
	_, ok := t.Fetch(path)
	return ok
}

// FetchExisting resolves path or panics, mirroring conduit's
// fetch_existing: a caller asking for a path it guarantees exists should
// not have to handle an error it considers impossible.
func (t *Tree) FetchExisting(path string) *Tree {
	n, ok := t.Fetch(path)
	if !ok {
		panic("meshtree: no such path: " + path)
	}
	return n
}

// ChildAt returns the i-th direct child.
func (t *Tree) ChildAt(i int) *Tree { return t.Children[i] }

// NumberOfChildren returns the number of direct children.
func (t *Tree) NumberOfChildren() int { return len(t.Children) }

// Kind reports what this leaf node holds (KindInterior for non-leaves).
func (t *Tree) Kind() Kind { return t.kind }

// SetString stores a scalar string leaf value (e.g. a "type" or "shape"
// field).
func (t *Tree) SetString(s string) {
	t.kind = KindString
	t.str = s
}

// SetInt stores a scalar int leaf value (e.g. "state/domain_id").
func (t *Tree) SetInt(v int) {
	t.kind = KindInt
	t.i = v
}

// SetFloat64Array stores a float64 array leaf value.
func (t *Tree) SetFloat64Array(v []float64) {
	t.kind = KindFloat64Array
	t.f64 = v
}

// SetInt32Array stores an int32 array leaf value.
func (t *Tree) SetInt32Array(v []int32) {
	t.kind = KindInt32Array
	t.i32 = v
}

// SetInt64Array stores an int64 ("index_t") array leaf value.
func (t *Tree) SetInt64Array(v []int64) {
	t.kind = KindInt64Array
	t.i64 = v
}

// SetUint64Array stores a uint64 array leaf value.
func (t *Tree) SetUint64Array(v []uint64) {
	t.kind = KindUint64Array
	t.u64 = v
}

// AsString returns the scalar string value, if this is a string leaf.
func (t *Tree) AsString() (string, bool) {
	if t.kind != KindString {
		return "", false
	}
	return t.str, true
}

// AsInt returns the scalar int value, if this is an int leaf.
func (t *Tree) AsInt() (int, bool) {
	if t.kind != KindInt {
		return 0, false
	}
	return t.i, true
}

// AsFloat64Array returns the float64 array, if this is a float64 array leaf.
func (t *Tree) AsFloat64Array() ([]float64, bool) {
	if t.kind != KindFloat64Array {
		return nil, false
	}
	return t.f64, true
}

// AsInt32Array returns the int32 array, if this is an int32 array leaf.
func (t *Tree) AsInt32Array() ([]int32, bool) {
	if t.kind != KindInt32Array {
		return nil, false
	}
	return t.i32, true
}

// AsInt64Array returns the int64 array, if this is an int64 array leaf.
func (t *Tree) AsInt64Array() ([]int64, bool) {
	if t.kind != KindInt64Array {
		return nil, false
	}
	return t.i64, true
}

// AsUint64Array returns the uint64 array, if this is a uint64 array leaf.
func (t *Tree) AsUint64Array() ([]uint64, bool) {
	if t.kind != KindUint64Array {
		return nil, false
	}
	return t.u64, true
}

// IndexLen returns the length of whichever index-typed array (int32 or
// int64) this leaf holds, or 0 if neither.
func (t *Tree) IndexLen() int {
	switch t.kind {
	case KindInt32Array:
		return len(t.i32)
	case KindInt64Array:
		return len(t.i64)
	}
	return 0
}

// IndexAt returns element i of whichever index-typed array this leaf
// holds, widened to int64.
func (t *Tree) IndexAt(i int) int64 {
	switch t.kind {
	case KindInt32Array:
		return int64(t.i32[i])
	case KindInt64Array:
		return t.i64[i]
	}
	panic("meshtree: not an index array")
}

// DeepCopy returns a fully independent copy of t and its subtree.
func (t *Tree) DeepCopy() *Tree {
	c := &Tree{Name: t.Name, kind: t.kind, str: t.str, i: t.i}
	if t.f64 != nil {
		c.f64 = append([]float64(nil), t.f64...)
	}
	if t.i32 != nil {
		c.i32 = append([]int32(nil), t.i32...)
	}
	if t.i64 != nil {
		c.i64 = append([]int64(nil), t.i64...)
	}
	if t.u64 != nil {
		c.u64 = append([]uint64(nil), t.u64...)
	}
	for _, ch := range t.Children {
		c.Children = append(c.Children, ch.DeepCopy())
	}
	return c
}

// ShallowViewExcept returns a new interior node named t.Name whose children
// are the same *Tree pointers as t's, excluding any child named
// skipChildName. The returned view shares storage with t: mutating a
// shared child's arrays mutates both. This mirrors the non-owning view
// communicate_chunks builds for a chunk that stays on its rank (the
// "state" subtree is excluded because it gets its own, independently
// owned replacement; see partition.chunkView).
func (t *Tree) ShallowViewExcept(skipChildName string) *Tree {
	v := New(t.Name)
	for _, c := range t.Children {
		if c.Name == skipChildName {
			continue
		}
		v.Children = append(v.Children, c)
	}
	return v
}
