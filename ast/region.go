package ast

import "fmt"

// Region is a span of source text attached to nodes for diagnostics.
type Region struct {
	// Start is the byte offset of the first character.
	Start int
	// Length in bytes.
	Length int
	// Line is 1-based.
	Line int
	// Column is 1-based, counted in bytes.
	Column int
}

// End returns the byte offset just past the region.
func (r Region) End() int {
	return r.Start + r.Length
}

// IsZero reports whether the region carries no position.
func (r Region) IsZero() bool {
	return r.Line == 0
}

// Cover returns the smallest region spanning both r and o.
func (r Region) Cover(o Region) Region {
	if r.IsZero() {
		return o
	}
	if o.IsZero() {
		return r
	}
	first, last := r, o
	if o.Start < r.Start {
		first, last = o, r
	}
	end := max(first.End(), last.End())
	first.Length = end - first.Start
	return first
}

func (r Region) String() string {
	return fmt.Sprintf("%d:%d", r.Line, r.Column)
}
