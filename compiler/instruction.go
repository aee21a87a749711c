package compiler

import (
	"errors"

	"github.com/Urethramancer/avr/arch"
	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/expr"
	"github.com/Urethramancer/avr/objcode"
	"github.com/Urethramancer/avr/symbols"
)

// checkMnemonic explains why an instruction cannot be assembled: it names a
// macro, is missing on the device or is not an instruction at all.
func (c *Compilation) checkMnemonic(u *Unit, n *ast.Node) error {
	if c.arch.IsMnemonic(n.Text) {
		return nil
	}
	if name, err := ast.ParseIdentifier(n.Text); err == nil {
		if sym := c.find(u, name); sym != nil && sym.Kind == symbols.KindMacro {
			return diag.Errorf(n.Region, "macro expansion is not supported (%s)", n.Text)
		}
	}
	if _, err := c.arch.InstructionSize(n.Text, nil); err != nil {
		return diag.Errorf(n.Region, "%v", err)
	}
	return diag.Errorf(n.Region, "%s: %v", n.Text, arch.ErrUnknownMnemonic)
}

var pointerModes = map[ast.Op]arch.PointerMode{
	ast.OpNone:     arch.PointerPlain,
	ast.OpPostInc:  arch.PointerPostIncrement,
	ast.OpPreDec:   arch.PointerPreDecrement,
	ast.OpDisplace: arch.PointerDisplacement,
}

// operands converts the operand nodes of an instruction. When strict is
// false a value that is not known yet is passed on with Known unset.
func (c *Compilation) operands(u *Unit, id ast.NodeID, strict bool) ([]arch.Operand, error) {
	children := u.tree.Children(id)
	ops := make([]arch.Operand, 0, len(children))
	res := c.resolver(u)
	for _, child := range children {
		n := u.tree.Node(child)
		op := arch.Operand{Kind: arch.OperandValue, Known: true, Region: n.Region}
		switch {
		case n.Kind == ast.KindPointer:
			op.Kind = arch.OperandPointer
			op.Pointer = n.Text[0]
			op.Mode = pointerModes[n.Op]
			if op.Mode == arch.PointerDisplacement {
				v, known, err := c.value(u, u.tree.Child(child, 0), res, strict)
				if err != nil {
					return nil, err
				}
				op.Value, op.Known = v, known
			}
		case n.Kind == ast.KindIdent:
			if r, ok := c.register(u, n.Text); ok {
				op.Kind = arch.OperandRegister
				op.Reg = r
				break
			}
			fallthrough
		default:
			v, known, err := c.value(u, child, res, strict)
			if err != nil {
				return nil, err
			}
			op.Value, op.Known = v, known
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (c *Compilation) value(u *Unit, id ast.NodeID, res expr.Resolver, strict bool) (int32, bool, error) {
	v, err := expr.Eval(u.tree, id, res)
	var unresolved *expr.UnresolvedError
	if !strict && errors.As(err, &unresolved) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (c *Compilation) checkCode(n *ast.Node) error {
	if s := c.writer.Segment(); s != objcode.Code {
		return diag.Errorf(n.Region, "instruction %s in %s, instructions belong in cseg", n.Text, s)
	}
	return nil
}

// resolveInstruction reserves room for an instruction and remembers where it
// goes. Operands may still refer to labels further down.
func resolveInstruction(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	if err := c.checkMnemonic(u, n); err != nil {
		return err
	}
	if err := c.checkCode(n); err != nil {
		return err
	}
	c.alignCode()
	ops, err := c.operands(u, id, false)
	if err != nil {
		return err
	}
	size, err := c.arch.InstructionSize(n.Text, ops)
	if err != nil {
		return diag.Errorf(n.Region, "%v", err)
	}
	key := nodeKey{u, id}
	if _, ok := c.locations[key]; ok {
		return diag.Internalf(n.Region, "instruction %s placed twice", n.Text)
	}
	c.locations[key] = c.writer.CurrentByteAddress()
	c.writer.AllocateBytes(size)
	return nil
}

// generateInstruction encodes an instruction at the location found while
// resolving.
func generateInstruction(c *Compilation, u *Unit, id ast.NodeID) error {
	n := u.tree.Node(id)
	if err := c.checkCode(n); err != nil {
		return err
	}
	c.alignCode()
	pc := c.writer.CurrentByteAddress()
	if want, ok := c.locations[nodeKey{u, id}]; !ok || want != pc {
		return diag.Internalf(n.Region, "instruction %s moved from %s to %s", n.Text, want, pc)
	}
	ops, err := c.operands(u, id, true)
	if err != nil {
		return err
	}
	code, err := c.arch.Encode(n.Text, ops, pc)
	if err != nil {
		return diag.Errorf(n.Region, "%v", err)
	}
	c.writer.Write(code)

	if !c.settings.WarnIfInOutCanBeUsed {
		return nil
	}
	if adv, ok := c.arch.(arch.InOutAdvisor); ok {
		if alt, ok := adv.InOutEquivalent(n.Text, ops); ok {
			return diag.Warningf(n.Region, "%s on an I/O address, consider %s", n.Text, alt)
		}
	}
	return nil
}

