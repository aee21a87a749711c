package compiler

import (
	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/parser"
	"github.com/Urethramancer/avr/resource"
	"github.com/Urethramancer/avr/symbols"
)

// Unit is one parsed source with its own symbol scope. Every include site
// gets a unit of its own, even when the same file is included elsewhere.
type Unit struct {
	res    resource.Resource
	hash   string
	tree   *ast.Tree
	syntax []*diag.Error
	table  *symbols.Table
	// deps are the units included during the current phase, in order.
	deps []*Unit
	// sites maps include nodes to the unit created for them.
	sites map[ast.NodeID]*Unit
	diags diag.List

	// Traversal state, reset at the start of every phase.
	aliases map[string]int
	global  string
	exited  bool
}

// NewUnit returns the root unit for a compilation of r.
func NewUnit(r resource.Resource) *Unit {
	return newUnit(r, nil)
}

func newUnit(r resource.Resource, parent *symbols.Table) *Unit {
	return &Unit{
		res:     r,
		table:   symbols.NewTable(parent),
		sites:   make(map[ast.NodeID]*Unit),
		aliases: make(map[string]int),
	}
}

// Name is the resource name used in diagnostics.
func (u *Unit) Name() string {
	return u.res.Name()
}

// Resource returns the source the unit was parsed from.
func (u *Unit) Resource() resource.Resource {
	return u.res
}

// Tree returns the parsed source, or nil before the first compilation.
func (u *Unit) Tree() *ast.Tree {
	return u.tree
}

// Symbols returns the unit's own symbol table.
func (u *Unit) Symbols() *symbols.Table {
	return u.table
}

// Dependencies lists the units included by u in the last phase that ran.
func (u *Unit) Dependencies() []*Unit {
	return u.deps
}

// Diagnostics returns what was reported against this unit.
func (u *Unit) Diagnostics() []diag.Diagnostic {
	return u.diags.Items()
}

// Dirty reports whether the resource changed since it was parsed. It is
// advisory; every compilation reparses.
func (u *Unit) Dirty() bool {
	if u.tree == nil {
		return true
	}
	h, err := u.res.Hash()
	return err != nil || h != u.hash
}

// load reads and parses the resource. Syntax errors are kept until the unit
// is first visited.
func (u *Unit) load() error {
	src, err := u.res.Read()
	if err != nil {
		return err
	}
	h, err := u.res.Hash()
	if err != nil {
		return err
	}
	u.tree, u.syntax = parser.Parse(src)
	u.hash = h
	return nil
}

// reset prepares a root unit for a fresh run.
func (u *Unit) reset() error {
	u.table = symbols.NewTable(nil)
	u.sites = make(map[ast.NodeID]*Unit)
	u.deps = nil
	u.diags.Reset()
	return u.load()
}

func (u *Unit) beginPhase() {
	u.deps = u.deps[:0]
	clear(u.aliases)
	u.global = ""
	u.exited = false
}
