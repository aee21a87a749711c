package compiler

import (
	"errors"
	"strings"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/expr"
	"github.com/Urethramancer/avr/objcode"
	"github.com/Urethramancer/avr/symbols"
)

func (c *Compilation) define(u *Unit, n *ast.Node, sym *symbols.Symbol) error {
	err := u.table.Define(sym)
	var dup *symbols.DuplicateError
	if errors.As(err, &dup) {
		return diag.Errorf(n.Region, "%s", dup.Error())
	}
	return err
}

// labelName qualifies a local label with the latest global one. A global
// label becomes the new qualifier.
func (c *Compilation) labelName(u *Unit, n *ast.Node) (ast.Identifier, error) {
	name, err := ast.ParseIdentifier(n.Text)
	if err != nil {
		return ast.Identifier{}, diag.Errorf(n.Region, "invalid label %s", n.Text)
	}
	if !name.IsLocal() {
		if name.Local == "" {
			u.global = name.Global
		}
		return name, nil
	}
	if u.global == "" {
		return ast.Identifier{}, diag.Errorf(n.Region, "local label %s has no preceding global label", n.Text)
	}
	return name.Qualify(u.global), nil
}

func gatherLabel(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	name, err := c.labelName(u, n)
	if err != nil {
		return err
	}
	return c.define(u, n, symbols.New(name, symbols.KindAddress, u, id))
}

// placeLabel binds a label to the current address. Code generation must find
// every label where resolution put it.
func placeLabel(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	name, err := c.labelName(u, n)
	if err != nil {
		return err
	}
	sym, ok := u.table.Lookup(name)
	if !ok || sym.Node != id {
		return diag.Internalf(n.Region, "label %s was not gathered", name)
	}

	c.alignCode()
	addr := c.writer.CurrentByteAddress()
	if c.phase == GenerateCode {
		if old, ok := sym.Address(); !ok || old != addr {
			return diag.Internalf(n.Region, "label %s moved from %s to %s", name, old, addr)
		}
		return nil
	}
	v, err := c.arch.AddressValue(addr)
	if err != nil {
		return diag.Errorf(n.Region, "label %s: %v", name, err)
	}
	return sym.SetAddress(addr, v)
}

// alignCode moves the program memory pointer to an even address so labels
// and instructions following an odd number of .db bytes stay addressable.
func (c *Compilation) alignCode() {
	if c.writer.Segment() != objcode.Code || c.writer.CurrentByteAddress().Offset()%2 == 0 {
		return
	}
	if c.phase == GenerateCode {
		c.writer.WriteByte(0)
		return
	}
	c.writer.AllocateBytes(1)
}

func constantName(n *ast.Node) (ast.Identifier, error) {
	name, err := ast.ParseIdentifier(n.Text)
	if err != nil || name.IsLocal() {
		return ast.Identifier{}, diag.Errorf(n.Region, "invalid symbol name %s", n.Text)
	}
	return name, nil
}

// gatherConstant defines .equ, .set and #define symbols. Repeating a .set
// reuses the symbol of the first one.
func gatherConstant(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	name, err := constantName(n)
	if err != nil {
		return err
	}
	if n.Kind == ast.KindSet {
		if sym, ok := u.table.Lookup(name); ok && c.redefinable[sym] {
			return nil
		}
	}
	sym := symbols.New(name, symbols.KindConstant, u, id)
	if err := c.define(u, n, sym); err != nil {
		return err
	}
	if n.Kind == ast.KindSet {
		c.redefinable[sym] = true
	}
	return nil
}

// assignConstant evaluates the value of a constant. Every operand must be
// known at this point in the source.
func assignConstant(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	name, err := constantName(n)
	if err != nil {
		return err
	}
	sym, ok := u.table.Lookup(name)
	if !ok {
		return diag.Internalf(n.Region, "constant %s was not gathered", name)
	}
	v, err := expr.Eval(u.tree, u.tree.Child(id, 0), c.resolver(u))
	if err != nil {
		return err
	}
	return sym.SetValue(v)
}

// defineAlias handles .def, which names a register. Aliases may be redefined.
func defineAlias(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	target := u.tree.Node(u.tree.Child(id, 0))
	r, ok := c.arch.IsRegister(target.Text)
	if !ok {
		return diag.Errorf(target.Region, "%s is not a register", target.Text)
	}
	if _, ok := c.arch.IsRegister(n.Text); ok {
		return diag.Errorf(n.Region, "register %s cannot be used as an alias", n.Text)
	}
	u.aliases[strings.ToLower(n.Text)] = r
	return nil
}

// register resolves a register name or an alias visible from u.
func (c *Compilation) register(u *Unit, name string) (int, bool) {
	if r, ok := c.arch.IsRegister(name); ok {
		return r, true
	}
	key := strings.ToLower(name)
	if r, ok := u.aliases[key]; ok {
		return r, true
	}
	for i := len(c.stack) - 1; i >= 0; i-- {
		if r, ok := c.stack[i].aliases[key]; ok {
			return r, true
		}
	}
	for _, x := range c.units {
		if r, ok := x.aliases[key]; ok {
			return r, true
		}
	}
	return 0, false
}

func selectSegment(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	s, ok := objcode.ParseSegment(n.Text)
	if !ok {
		return diag.Internalf(n.Region, "unknown segment %s", n.Text)
	}
	c.writer.SetSegment(s)
	return nil
}

// moveOrigin handles .org. Before anything was placed in the segment it sets
// the start address, afterwards it moves the write pointer.
func moveOrigin(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	v, err := expr.Eval(u.tree, u.tree.Child(id, 0), c.resolver(u))
	if err != nil {
		return err
	}
	addr, err := c.arch.ValueAddress(c.writer.Segment(), v)
	if err != nil {
		return diag.Errorf(n.Region, ".org %#x: %v", v, err)
	}
	b := c.writer.Current()
	err = b.SetStartAddress(addr.Offset())
	if errors.Is(err, objcode.ErrStartLocked) {
		err = b.Seek(addr.Offset())
	}
	if err != nil {
		return diag.Errorf(n.Region, ".org %#x: %v", v, err)
	}
	return nil
}

func dataWidth(n *ast.Node) int {
	switch n.Text {
	case "dw":
		return 2
	case "dd":
		return 4
	}
	return 1
}

// dataSize is the number of bytes a .db, .dw or .dd occupies. Strings in .db
// store one byte per character.
func dataSize(u *Unit, id ast.NodeID) (int, error) {
	n := u.tree.Node(id)
	width := dataWidth(n)
	size := 0
	for _, child := range u.tree.Children(id) {
		cn := u.tree.Node(child)
		if cn.Kind == ast.KindString && len(cn.Text) != 1 {
			if width != 1 {
				return 0, diag.Errorf(cn.Region, "strings are only allowed in .db")
			}
			size += len(cn.Text)
			continue
		}
		size += width
	}
	return size, nil
}

func (c *Compilation) checkInitialized(n *ast.Node) error {
	if c.writer.Segment() == objcode.Data {
		return diag.Errorf(n.Region, ".%s is not allowed in dseg, use .byte to reserve space", n.Text)
	}
	return nil
}

func allocateData(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	if err := c.checkInitialized(n); err != nil {
		return err
	}
	size, err := dataSize(u, id)
	if err != nil {
		return err
	}
	c.writer.AllocateBytes(size)
	return nil
}

var dataRange = map[int][2]int64{
	1: {-128, 255},
	2: {-32768, 65535},
	4: {-1 << 31, 1<<32 - 1},
}

// writeData stores the values of .db, .dw and .dd little-endian. Values that
// depend on label placement are recorded as relocations.
func writeData(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	if err := c.checkInitialized(n); err != nil {
		return err
	}
	width := dataWidth(n)
	res := c.resolver(u)
	for _, child := range u.tree.Children(id) {
		cn := u.tree.Node(child)
		if cn.Kind == ast.KindString && len(cn.Text) != 1 {
			c.writer.Write([]byte(cn.Text))
			continue
		}

		a, err := expr.Analyze(u.tree, child, res)
		if err != nil {
			return err
		}
		v := a.Value
		if a.NeedsRelocation() {
			if v, err = expr.Eval(u.tree, child, res); err != nil {
				return err
			}
			c.writer.AddRelocation(objcode.Relocation{
				Address:     c.writer.CurrentByteAddress(),
				Size:        width,
				Symbols:     a.Symbols(),
				Coefficient: a.Coefficient,
				Addend:      a.Addend,
			})
		}
		if r := dataRange[width]; int64(v) < r[0] || int64(v) > r[1] {
			return diag.Errorf(cn.Region, "value %d out of range for .%s", v, n.Text)
		}
		for i := 0; i < width; i++ {
			c.writer.WriteByte(byte(v >> (8 * i)))
		}
	}
	return nil
}

// reserve handles .byte, which only makes sense in data memory.
func reserve(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	if s := c.writer.Segment(); s != objcode.Data {
		return diag.Errorf(n.Region, "cannot reserve bytes in %s, .byte is only allowed in dseg", s)
	}
	v, err := expr.Eval(u.tree, u.tree.Child(id, 0), c.resolver(u))
	if err != nil {
		return err
	}
	if v < 0 {
		return diag.Errorf(n.Region, "cannot reserve %d bytes", v)
	}
	c.writer.AllocateBytes(int(v))
	return nil
}

// include visits the unit of an include site. The unit is created while
// gathering and reused by the later phases.
func include(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	inc, ok := u.sites[id]
	if !ok {
		if c.phase != GatherSymbols {
			return nil
		}
		if c.factory == nil {
			return diag.Errorf(n.Region, "cannot include %q without a resource factory", n.Text)
		}
		res, err := c.factory.Resolve(n.Text, u.res)
		if err != nil {
			return diag.Errorf(n.Region, "include %q: %v", n.Text, err)
		}
		if !res.Exists() {
			return diag.Errorf(n.Region, "cannot find include file %q", n.Text)
		}
		if inc, err = c.getOrCreateCompilationUnit(res); err != nil {
			return diag.Errorf(n.Region, "include %q: %v", n.Text, err)
		}
	}
	if !c.pushCompilationUnit(inc) {
		return nil
	}
	u.sites[id] = inc
	if c.phase == GatherSymbols {
		c.reportSyntax(inc)
	}
	c.visit(inc, inc.tree.Root())
	c.popCompilationUnit()
	return nil
}

// decideConditional picks the branch of .ifdef or .ifndef. Only the
// existence of a definition matters, so the choice is made once while
// gathering.
func decideConditional(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	cond := u.tree.Node(u.tree.Child(id, 0))
	defined, err := c.isDefined(u, cond)
	if err != nil {
		return err
	}
	taken := defined == (n.Text == "ifdef")
	c.conds[nodeKey{u, id}] = taken
	c.visitBranch(u, id, taken)
	return nil
}

func replayConditional(c *Compilation, u *Unit, id ast.NodeID) error {
	taken, ok := c.conds[nodeKey{u, id}]
	if !ok {
		return diag.Internalf(u.tree.Node(id).Region, "conditional was not decided while gathering")
	}
	c.visitBranch(u, id, taken)
	return nil
}

func (c *Compilation) visitBranch(u *Unit, id ast.NodeID, taken bool) {
	branch := u.tree.Child(id, 2)
	if taken {
		branch = u.tree.Child(id, 1)
	}
	c.visit(u, branch)
}

func (c *Compilation) isDefined(u *Unit, n *ast.Node) (bool, error) {
	if _, ok := c.register(u, n.Text); ok {
		return true, nil
	}
	name, err := c.qualify(u, n)
	if err != nil {
		return false, err
	}
	sym := c.find(u, name)
	return sym != nil && sym.Kind != symbols.KindUndefined, nil
}

func gatherMacro(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	name, err := constantName(n)
	if err != nil {
		return err
	}
	return c.define(u, n, symbols.New(name, symbols.KindMacro, u, id))
}

// message reports .message, .warning and .error while gathering, so an
// .error stops the run before any code is resolved.
func message(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	text := u.tree.Node(u.tree.Child(id, 0)).Text
	sev := diag.SeverityInfo
	switch n.Text {
	case "warning":
		sev = diag.SeverityWarning
	case "error":
		sev = diag.SeverityError
	}
	return &diag.Error{Region: n.Region, Severity: sev, Message: text}
}

func checkDevice(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	if !strings.EqualFold(n.Text, c.arch.Name()) {
		return diag.Errorf(n.Region, "source is written for %s but the target is %s", n.Text, c.arch.Name())
	}
	return nil
}

func exit(c *Compilation, u *Unit, id ast.NodeID) error {
	u.exited = true
	return nil
}
