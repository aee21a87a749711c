package symbols

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Urethramancer/avr/ast"
)

// ErrUnknownSymbol is returned by Get for names bound nowhere in the chain.
var ErrUnknownSymbol = errors.New("unknown symbol")

// DuplicateError reports a second definition of a name in one table.
type DuplicateError struct {
	Existing *Symbol
	New      *Symbol
}

func (e *DuplicateError) Error() string {
	where := ""
	if e.Existing.Unit != nil {
		where = " in " + e.Existing.Unit.Name()
	}
	return fmt.Sprintf("duplicate symbol %s (already defined as %s%s)", e.New.Name, e.Existing.Kind, where)
}

// Table maps identifiers to symbols. Lookups continue in the parent chain;
// uniqueness is only enforced per table.
type Table struct {
	parent  *Table
	entries map[string]*Symbol
}

// NewTable returns an empty table below parent, which may be nil.
func NewTable(parent *Table) *Table {
	return &Table{parent: parent, entries: make(map[string]*Symbol)}
}

// Parent returns the enclosing table.
func (t *Table) Parent() *Table {
	return t.parent
}

// Get returns the symbol bound to id here or in an ancestor.
func (t *Table) Get(id ast.Identifier) (*Symbol, error) {
	if s, ok := t.MaybeGet(id); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, id)
}

// MaybeGet is Get without the error.
func (t *Table) MaybeGet(id ast.Identifier) (*Symbol, bool) {
	key := id.Key()
	for tt := t; tt != nil; tt = tt.parent {
		if s, ok := tt.entries[key]; ok {
			return s, true
		}
	}
	return nil, false
}

// Lookup checks only this table.
func (t *Table) Lookup(id ast.Identifier) (*Symbol, bool) {
	s, ok := t.entries[id.Key()]
	return s, ok
}

// Define binds sym in this table. A placeholder of the same name left by
// Declare is replaced; any other existing binding is a DuplicateError.
func (t *Table) Define(sym *Symbol) error {
	key := sym.Name.Key()
	if old, ok := t.entries[key]; ok {
		if old.Kind != KindUndefined {
			return &DuplicateError{Existing: old, New: sym}
		}
		sym.Referenced = sym.Referenced || old.Referenced
	}
	t.entries[key] = sym
	return nil
}

// Declare reserves a placeholder for id unless it is bound anywhere in the
// chain, and returns the symbol now bound to id.
func (t *Table) Declare(id ast.Identifier, unit Owner, node ast.NodeID) *Symbol {
	if s, ok := t.MaybeGet(id); ok {
		return s
	}
	s := New(id, KindUndefined, unit, node)
	t.entries[id.Key()] = s
	return s
}

// Symbols returns the symbols of this table sorted by name.
func (t *Table) Symbols() []*Symbol {
	out := slices.Collect(maps.Values(t.entries))
	slices.SortFunc(out, func(a, b *Symbol) int {
		return cmp.Compare(a.Name.Key(), b.Name.Key())
	})
	return out
}

// Len returns the number of symbols bound in this table.
func (t *Table) Len() int {
	return len(t.entries)
}
