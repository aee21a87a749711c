// Package compiler assembles a root source and everything it includes in
// three phases: gather symbols, resolve symbols, generate code.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Urethramancer/avr/arch"
	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/expr"
	"github.com/Urethramancer/avr/objcode"
	"github.com/Urethramancer/avr/resource"
	"github.com/Urethramancer/avr/symbols"
)

// Phase is one pass over the unit graph.
type Phase int

const (
	// GatherSymbols defines every symbol without reading any value.
	GatherSymbols Phase = iota
	// ResolveSymbols assigns values and locations.
	ResolveSymbols
	// GenerateCode writes bytes.
	GenerateCode
	numPhases
)

func (p Phase) String() string {
	switch p {
	case GatherSymbols:
		return "gather"
	case ResolveSymbols:
		return "resolve"
	case GenerateCode:
		return "generate"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Compiler assembles for one target device.
type Compiler struct {
	arch arch.Descriptor
	log  *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sends phase and include tracing to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.log = l
	}
}

// New returns a compiler for the given architecture.
func New(a arch.Descriptor, opts ...Option) *Compiler {
	c := &Compiler{arch: a, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile runs all phases over root. ok is false when any error was
// reported; err is only set when the run was aborted by an internal error.
func (c *Compiler) Compile(root *Unit, w *objcode.Writer, s Settings, f resource.Factory) (bool, error) {
	return c.NewCompilation(root, w, s, f).Compile()
}

// NewCompilation prepares a run without starting it.
func (c *Compiler) NewCompilation(root *Unit, w *objcode.Writer, s Settings, f resource.Factory) *Compilation {
	return &Compilation{
		arch:     c.arch,
		log:      c.log,
		settings: s,
		factory:  f,
		writer:   w,
		root:     root,
	}
}

// nodeKey identifies a node across units.
type nodeKey struct {
	unit *Unit
	node ast.NodeID
}

// Compilation is the state of one run.
type Compilation struct {
	arch     arch.Descriptor
	log      *slog.Logger
	settings Settings
	factory  resource.Factory
	writer   *objcode.Writer

	root  *Unit
	units []*Unit
	stack []*Unit
	phase Phase

	budget      *diag.Budget
	noted       bool
	phaseErrors int
	internal    error

	// conds keeps the branch chosen for each conditional during gathering.
	conds map[nodeKey]bool
	// bindings caches the symbol each identifier node resolved to.
	bindings map[nodeKey]*symbols.Symbol
	// locations holds the address assigned to each instruction.
	locations map[nodeKey]objcode.Address
	// redefinable marks symbols created by .set or #define.
	redefinable map[*symbols.Symbol]bool
}

// Compile runs the phases in order and stops after the first phase that
// reported an error.
func (c *Compilation) Compile() (bool, error) {
	c.units = []*Unit{c.root}
	c.stack = nil
	c.budget = diag.NewBudget(c.settings.MaxErrors)
	c.noted = false
	c.internal = nil
	c.conds = make(map[nodeKey]bool)
	c.bindings = make(map[nodeKey]*symbols.Symbol)
	c.locations = make(map[nodeKey]objcode.Address)
	c.redefinable = make(map[*symbols.Symbol]bool)

	c.log.Debug("compile", "root", c.root.Name(), "device", c.arch.Name())
	if err := c.root.reset(); err != nil {
		c.report(c.root, diag.SeverityError, ast.Region{}, err.Error())
		return false, nil
	}

	for p := GatherSymbols; p < numPhases; p++ {
		c.runPhase(p)
		if c.internal != nil {
			return false, c.internal
		}
		if c.phaseErrors > 0 || c.HasReachedMaxErrors() {
			c.log.Debug("stopping", "phase", p, "errors", c.phaseErrors)
			break
		}
	}
	return !c.hasErrors(), nil
}

func (c *Compilation) runPhase(p Phase) {
	c.phase = p
	c.phaseErrors = 0
	c.writer.Reset()
	for _, u := range c.units {
		u.beginPhase()
	}
	for s := range c.redefinable {
		s.ClearValue()
	}
	if p == ResolveSymbols {
		clear(c.bindings)
		clear(c.locations)
	}
	c.log.Debug("phase", "name", p, "units", len(c.units))

	c.stack = append(c.stack[:0], c.root)
	if p == GatherSymbols {
		c.reportSyntax(c.root)
	}
	c.visit(c.root, c.root.tree.Root())
	c.popCompilationUnit()
}

// Phase returns the phase that ran last.
func (c *Compilation) Phase() Phase {
	return c.phase
}

// Root returns the root unit.
func (c *Compilation) Root() *Unit {
	return c.root
}

// Units lists every unit of the run in creation order, the root first.
func (c *Compilation) Units() []*Unit {
	return c.units
}

// HasReachedMaxErrors reports whether the error budget is used up.
func (c *Compilation) HasReachedMaxErrors() bool {
	return c.budget != nil && c.budget.Exhausted()
}

// Diagnostics collects the diagnostics of all units, sorted by resource and position.
func (c *Compilation) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, u := range c.units {
		out = append(out, u.diags.Items()...)
	}
	diag.Sort(out)
	return out
}

// Symbols lists the symbols of every unit, unit by unit.
func (c *Compilation) Symbols() []*symbols.Symbol {
	var out []*symbols.Symbol
	for _, u := range c.units {
		out = append(out, u.table.Symbols()...)
	}
	return out
}

// Finish hands the generated segments to e and reports how full each one is.
// It returns false when a segment does not fit the device and the settings
// make that an error.
func (c *Compilation) Finish(e objcode.Emitter) (bool, error) {
	err := c.writer.Finish(objcode.FinishOptions{
		Emitter:                 e,
		Capacity:                c.arch,
		FailOnAddressOutOfRange: c.settings.FailOnAddressOutOfRange,
		Sink:                    &c.root.diags,
		Resource:                c.root.Name(),
	})
	if errors.Is(err, objcode.ErrOutOfRange) {
		return false, nil
	}
	return err == nil, err
}

func (c *Compilation) hasErrors() bool {
	for _, u := range c.units {
		if u.diags.HasErrors() {
			return true
		}
	}
	return false
}

// report records a diagnostic against u. Errors are charged to the budget;
// once it runs out further errors are dropped.
func (c *Compilation) report(u *Unit, sev diag.Severity, r ast.Region, msg string) {
	if sev == diag.SeverityError {
		if !c.budget.Charge() {
			return
		}
		c.phaseErrors++
	}
	u.diags.Report(diag.Diagnostic{Severity: sev, Message: msg, Region: r, Resource: u.Name()})
	if sev == diag.SeverityError && c.budget.Exhausted() && !c.noted {
		c.noted = true
		u.diags.Report(diag.Diagnostic{
			Severity: diag.SeverityInfo,
			Message:  fmt.Sprintf("too many errors (%d), stopping", c.budget.Count()),
			Resource: u.Name(),
		})
	}
}

func (c *Compilation) reportSyntax(u *Unit) {
	for _, e := range u.syntax {
		c.report(u, e.Severity, e.Region, e.Message)
	}
	u.syntax = nil
}

// fail turns a handler error into a diagnostic, or aborts the run for an
// internal error.
func (c *Compilation) fail(u *Unit, id ast.NodeID, err error) {
	region := u.tree.Node(id).Region
	var (
		internal   *diag.InternalError
		semantic   *diag.Error
		unresolved *expr.UnresolvedError
	)
	switch {
	case errors.As(err, &internal):
		if internal.Region.IsZero() {
			internal.Region = region
		}
		c.internal = fmt.Errorf("%s: %w", u.Name(), internal)
	case errors.As(err, &semantic):
		if !semantic.Region.IsZero() {
			region = semantic.Region
		}
		c.report(u, semantic.Severity, region, semantic.Message)
	case errors.As(err, &unresolved):
		if !unresolved.Region.IsZero() {
			region = unresolved.Region
		}
		c.report(u, diag.SeverityError, region, unresolved.Error())
	default:
		c.report(u, diag.SeverityError, region, err.Error())
	}
}

// currentCompilationUnit returns the top of the unit stack, or nil between phases.
func (c *Compilation) currentCompilationUnit() *Unit {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// pushCompilationUnit makes u current. A unit whose resource is already on
// the stack would include itself; the push is refused and reported against u.
// The same resource may still be included again from a sibling, each time as
// a unit of its own.
func (c *Compilation) pushCompilationUnit(u *Unit) bool {
	id := u.res.Identity()
	for _, s := range c.stack {
		if s.res.Identity() != id {
			continue
		}
		msg := "circular include of " + u.Name()
		if top := c.currentCompilationUnit(); top != nil {
			msg += " from " + top.Name()
		}
		c.report(u, diag.SeverityError, ast.Region{}, msg)
		return false
	}

	if top := c.currentCompilationUnit(); top != nil {
		top.deps = append(top.deps, u)
	}
	c.stack = append(c.stack, u)
	c.log.Debug("push", "unit", u.Name(), "depth", len(c.stack))
	return true
}

// popCompilationUnit drops the current unit. Popping the root leaves no
// current unit.
func (c *Compilation) popCompilationUnit() {
	if len(c.stack) == 0 {
		return
	}
	c.log.Debug("pop", "unit", c.currentCompilationUnit().Name())
	c.stack = c.stack[:len(c.stack)-1]
}

// getOrCreateCompilationUnit returns the unit for r among the current unit
// and what it transitively includes when that unit is still on the stack, so
// the push that follows reports the cycle. Otherwise it parses r into a new
// unit: conditionals may take other branches at another include site.
func (c *Compilation) getOrCreateCompilationUnit(r resource.Resource) (*Unit, error) {
	cur := c.currentCompilationUnit()
	if found := findUnit(cur, r.Identity(), make(map[*Unit]bool)); found != nil && c.onStack(found) {
		return found, nil
	}
	var parent *symbols.Table
	if cur != nil {
		parent = cur.table
	}
	u := newUnit(r, parent)
	if err := u.load(); err != nil {
		return nil, err
	}
	c.units = append(c.units, u)
	return u, nil
}

func (c *Compilation) onStack(u *Unit) bool {
	for _, s := range c.stack {
		if s == u {
			return true
		}
	}
	return false
}

func findUnit(u *Unit, identity string, seen map[*Unit]bool) *Unit {
	if u == nil || seen[u] {
		return nil
	}
	seen[u] = true
	if u.res.Identity() == identity {
		return u
	}
	for _, d := range u.deps {
		if f := findUnit(d, identity, seen); f != nil {
			return f
		}
	}
	return nil
}
