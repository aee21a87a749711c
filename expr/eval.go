// Package expr evaluates assembler expressions and decides which of them
// depend on final symbol placement.
//
// Arithmetic is signed 32-bit with silent wraparound; overflow is not
// detected. Shift counts use their low five bits.
package expr

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/symbols"
)

// Resolver binds identifier nodes to symbols.
type Resolver interface {
	// Lookup returns the symbol the identifier node id refers to.
	Lookup(id ast.NodeID) (*symbols.Symbol, error)
	// PC returns the value of the current address pseudo symbol, as a
	// label placed there would see it.
	PC() (int32, error)
	// PCOffset returns the current address as a byte offset.
	PCOffset() int32
}

// UnresolvedError is returned when a symbol exists but has no value yet,
// typically a label referenced before its definition during symbol resolution.
type UnresolvedError struct {
	Name   string
	Region ast.Region
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("value of %s is not known at this point", e.Name)
}

// IsPC reports whether name spells the current address pseudo symbol.
func IsPC(name string) bool {
	return strings.EqualFold(name, "pc")
}

// Eval computes the value of the expression rooted at id.
//
// Inside the argument of a built-in function, labels and PC stand for their
// byte offset, so HIGH and LOW of a program memory label split its byte
// address.
func Eval(t *ast.Tree, id ast.NodeID, r Resolver) (int32, error) {
	return eval(t, id, r, false)
}

func eval(t *ast.Tree, id ast.NodeID, r Resolver, bytes bool) (int32, error) {
	n := t.Node(id)
	switch n.Kind {
	case ast.KindNumber:
		return n.Value, nil

	case ast.KindParen:
		return eval(t, t.Child(id, 0), r, bytes)

	case ast.KindString:
		if len(n.Text) != 1 {
			return 0, diag.Errorf(n.Region, "string %q used as a number", n.Text)
		}
		return int32(n.Text[0]), nil

	case ast.KindIdent:
		if IsPC(n.Text) {
			if bytes {
				return r.PCOffset(), nil
			}
			v, err := r.PC()
			if err != nil {
				return 0, diag.Errorf(n.Region, "PC: %v", err)
			}
			return v, nil
		}
		sym, err := r.Lookup(id)
		if err != nil {
			return 0, err
		}
		if bytes && sym.Kind == symbols.KindAddress {
			a, ok := sym.Address()
			if !ok {
				return 0, &UnresolvedError{Name: sym.Name.String(), Region: n.Region}
			}
			return a.Offset(), nil
		}
		return symbolValue(sym, n)

	case ast.KindUnary:
		v, err := eval(t, t.Child(id, 0), r, bytes)
		if err != nil {
			return 0, err
		}
		return unary(n, v)

	case ast.KindBinary:
		a, err := eval(t, t.Child(id, 0), r, bytes)
		if err != nil {
			return 0, err
		}
		b, err := eval(t, t.Child(id, 1), r, bytes)
		if err != nil {
			return 0, err
		}
		return binary(n, a, b)

	case ast.KindCall:
		v, err := eval(t, t.Child(id, 0), r, true)
		if err != nil {
			return 0, err
		}
		return call(n, v)
	}
	return 0, diag.Internalf(n.Region, "cannot evaluate %s node", n.Kind)
}

func symbolValue(sym *symbols.Symbol, n *ast.Node) (int32, error) {
	switch sym.Kind {
	case symbols.KindMacro:
		return 0, diag.Errorf(n.Region, "macro %s used as a value", sym.Name)
	case symbols.KindUndefined:
		return 0, diag.Errorf(n.Region, "undefined symbol %s", n.Text)
	}
	v, ok := sym.Value()
	if !ok {
		return 0, &UnresolvedError{Name: sym.Name.String(), Region: n.Region}
	}
	return v, nil
}

func unary(n *ast.Node, v int32) (int32, error) {
	switch n.Op {
	case ast.OpNeg:
		return -v, nil
	case ast.OpNot:
		return ^v, nil
	case ast.OpLogNot:
		return boolValue(v == 0), nil
	}
	return 0, diag.Internalf(n.Region, "unknown unary operator %q", n.Op)
}

func binary(n *ast.Node, a, b int32) (int32, error) {
	switch n.Op {
	case ast.OpAdd:
		return a + b, nil
	case ast.OpSub:
		return a - b, nil
	case ast.OpMul:
		return a * b, nil
	case ast.OpDiv, ast.OpMod:
		if b == 0 {
			return 0, diag.Errorf(n.Region, "division by zero")
		}
		if n.Op == ast.OpDiv {
			return a / b, nil
		}
		return a % b, nil
	case ast.OpShl:
		return a << (uint32(b) & 31), nil
	case ast.OpShr:
		return a >> (uint32(b) & 31), nil
	case ast.OpAnd:
		return a & b, nil
	case ast.OpOr:
		return a | b, nil
	case ast.OpXor:
		return a ^ b, nil
	case ast.OpLogAnd:
		return boolValue(a != 0 && b != 0), nil
	case ast.OpLogOr:
		return boolValue(a != 0 || b != 0), nil
	case ast.OpEq:
		return boolValue(a == b), nil
	case ast.OpNe:
		return boolValue(a != b), nil
	case ast.OpLt:
		return boolValue(a < b), nil
	case ast.OpLe:
		return boolValue(a <= b), nil
	case ast.OpGt:
		return boolValue(a > b), nil
	case ast.OpGe:
		return boolValue(a >= b), nil
	}
	return 0, diag.Internalf(n.Region, "unknown binary operator %q", n.Op)
}

// call applies a built-in function to an evaluated argument.
func call(n *ast.Node, v int32) (int32, error) {
	switch n.Text {
	case "low", "byte1":
		return v & 0xFF, nil
	case "high", "byte2":
		return (v >> 8) & 0xFF, nil
	case "byte3":
		return (v >> 16) & 0xFF, nil
	case "byte4":
		return (v >> 24) & 0xFF, nil
	case "lwrd":
		return v & 0xFFFF, nil
	case "hwrd":
		return (v >> 16) & 0xFFFF, nil
	case "exp2":
		return 1 << (uint32(v) & 31), nil
	case "log2":
		if v <= 0 {
			return 0, diag.Errorf(n.Region, "log2 of non-positive value %d", v)
		}
		return int32(bits.Len32(uint32(v)) - 1), nil
	}
	return 0, diag.Errorf(n.Region, "unknown function %s", n.Text)
}

// IsFunction reports whether name is a built-in expression function.
func IsFunction(name string) bool {
	switch strings.ToLower(name) {
	case "low", "byte1", "high", "byte2", "byte3", "byte4", "lwrd", "hwrd", "exp2", "log2":
		return true
	}
	return false
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
