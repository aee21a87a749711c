// Package symbols implements scoped symbol tables.
package symbols

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/objcode"
)

// Kind classifies a symbol.
type Kind uint8

const (
	// KindUndefined is a placeholder reserved by a reference before its definition.
	KindUndefined Kind = iota
	// KindAddress is a label; its value is a location in some segment.
	KindAddress
	// KindConstant is defined by .equ, .set or #define.
	KindConstant
	// KindMacro names a macro definition.
	KindMacro
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindConstant:
		return "constant"
	case KindMacro:
		return "macro"
	}
	return "undefined"
}

var (
	// ErrKindFixed is returned when changing the kind of a defined symbol.
	ErrKindFixed = errors.New("symbol kind is already fixed")
	// ErrNoKind is returned when assigning a value to an undefined symbol.
	ErrNoKind = errors.New("symbol has no kind yet")
)

// Owner is the compilation unit a symbol belongs to.
type Owner interface {
	Name() string
}

// Symbol binds a name to a value. The value is set lazily, once the kind is known.
type Symbol struct {
	Name ast.Identifier
	Kind Kind
	// Unit is the compilation unit that defines the symbol.
	Unit Owner
	// Node is the defining node in Unit's tree.
	Node       ast.NodeID
	Referenced bool

	value    int32
	address  objcode.Address
	hasValue bool
}

// New returns a symbol of the given kind.
func New(name ast.Identifier, kind Kind, unit Owner, node ast.NodeID) *Symbol {
	return &Symbol{Name: name, Kind: kind, Unit: unit, Node: node}
}

// SetKind fixes the kind of a placeholder.
func (s *Symbol) SetKind(k Kind) error {
	if s.Kind != KindUndefined && s.Kind != k {
		return fmt.Errorf("%s: %w as %s", s.Name, ErrKindFixed, s.Kind)
	}
	s.Kind = k
	return nil
}

// SetValue assigns the numeric value. For address symbols use SetAddress.
func (s *Symbol) SetValue(v int32) error {
	if s.Kind == KindUndefined {
		return fmt.Errorf("%s: %w", s.Name, ErrNoKind)
	}
	s.value = v
	s.hasValue = true
	return nil
}

// SetAddress assigns the location of a label along with the value expressions see.
func (s *Symbol) SetAddress(a objcode.Address, v int32) error {
	if s.Kind != KindAddress {
		return fmt.Errorf("%s: not an address symbol (%s)", s.Name, s.Kind)
	}
	s.address = a
	return s.SetValue(v)
}

// Value returns the value and whether it has been assigned.
func (s *Symbol) Value() (int32, bool) {
	return s.value, s.hasValue
}

// Address returns the location of an address symbol.
func (s *Symbol) Address() (objcode.Address, bool) {
	return s.address, s.Kind == KindAddress && s.hasValue
}

// ClearValue forgets the value so a new resolve cycle can assign it again.
func (s *Symbol) ClearValue() {
	s.value = 0
	s.address = objcode.Address{}
	s.hasValue = false
}

func (s *Symbol) String() string {
	if v, ok := s.Value(); ok {
		return fmt.Sprintf("%s %s = %#x", s.Kind, s.Name, v)
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Name)
}
