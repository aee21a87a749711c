package compiler

import (
	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/symbols"
)

// resolver binds the identifiers of one unit's expressions.
type resolver struct {
	c *Compilation
	u *Unit
}

func (c *Compilation) resolver(u *Unit) *resolver {
	return &resolver{c: c, u: u}
}

// Lookup returns the symbol an identifier refers to. A name bound nowhere
// gets a placeholder in the unit's table, so using it reports it as
// undefined.
func (r *resolver) Lookup(id ast.NodeID) (*symbols.Symbol, error) {
	key := nodeKey{r.u, id}
	if sym, ok := r.c.bindings[key]; ok && sym.Kind != symbols.KindUndefined {
		return sym, nil
	}
	n := r.u.tree.Node(id)
	name, err := r.c.qualify(r.u, n)
	if err != nil {
		return nil, err
	}
	sym := r.c.find(r.u, name)
	if sym == nil {
		sym = r.u.table.Declare(name, r.u, id)
	}
	sym.Referenced = true
	r.c.bindings[key] = sym
	return sym, nil
}

// PC is the value a label at the current location would have. It fails at
// an odd program memory offset, which has no word address.
func (r *resolver) PC() (int32, error) {
	return r.c.arch.AddressValue(r.c.writer.CurrentByteAddress())
}

func (r *resolver) PCOffset() int32 {
	return r.c.writer.CurrentByteAddress().Offset()
}

// qualify parses an identifier node, attaching local names to the current
// global label.
func (c *Compilation) qualify(u *Unit, n *ast.Node) (ast.Identifier, error) {
	name, err := ast.ParseIdentifier(n.Text)
	if err != nil {
		return ast.Identifier{}, diag.Errorf(n.Region, "invalid symbol name %s", n.Text)
	}
	if name.IsLocal() {
		if u.global == "" {
			return ast.Identifier{}, diag.Errorf(n.Region, "local label %s used before any global label", n.Text)
		}
		name = name.Qualify(u.global)
	}
	return name, nil
}

// find looks for name from u's point of view: its own scope chain, what it
// includes, the units that include it, then every other unit. A definition
// wins over a placeholder left by an earlier reference.
func (c *Compilation) find(u *Unit, name ast.Identifier) *symbols.Symbol {
	var placeholder *symbols.Symbol
	try := func(sym *symbols.Symbol, ok bool) bool {
		if !ok {
			return false
		}
		if sym.Kind != symbols.KindUndefined {
			return true
		}
		if placeholder == nil {
			placeholder = sym
		}
		return false
	}

	if sym, ok := u.table.MaybeGet(name); try(sym, ok) {
		return sym
	}
	seen := map[*Unit]bool{u: true}
	if sym := c.findInDeps(u, name, seen, try); sym != nil {
		return sym
	}
	for i := len(c.stack) - 1; i >= 0; i-- {
		s := c.stack[i]
		if !seen[s] {
			seen[s] = true
			if sym, ok := s.table.Lookup(name); try(sym, ok) {
				return sym
			}
		}
		if sym := c.findInDeps(s, name, seen, try); sym != nil {
			return sym
		}
	}
	for _, x := range c.units {
		if seen[x] {
			continue
		}
		if sym, ok := x.table.Lookup(name); try(sym, ok) {
			return sym
		}
	}
	return placeholder
}

func (c *Compilation) findInDeps(u *Unit, name ast.Identifier, seen map[*Unit]bool, try func(*symbols.Symbol, bool) bool) *symbols.Symbol {
	for _, d := range u.deps {
		if seen[d] {
			continue
		}
		seen[d] = true
		if sym, ok := d.table.Lookup(name); try(sym, ok) {
			return sym
		}
		if sym := c.findInDeps(d, name, seen, try); sym != nil {
			return sym
		}
	}
	return nil
}
