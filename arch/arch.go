// Package arch defines what the compiler needs to know about a target chip.
// The pipeline itself never encodes instructions; a Descriptor does.
package arch

import (
	"errors"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/objcode"
)

// OperandKind tells which fields of an Operand are meaningful.
type OperandKind int

const (
	// OperandValue is an expression result, possibly not yet known.
	OperandValue OperandKind = iota
	// OperandRegister names a general purpose register.
	OperandRegister
	// OperandPointer is one of the X, Y or Z pointer forms.
	OperandPointer
)

// PointerMode is the addressing variant of a pointer operand.
type PointerMode int

const (
	PointerPlain PointerMode = iota
	PointerPostIncrement
	PointerPreDecrement
	PointerDisplacement
)

// Operand is an instruction operand after symbol resolution.
type Operand struct {
	Kind OperandKind
	// Reg is the register number for OperandRegister.
	Reg int
	// Value is the evaluated expression, or the displacement of a pointer.
	Value int32
	// Known is false while a value still depends on a later definition.
	// Descriptors must still size such an instruction correctly.
	Known bool
	// Pointer is 'X', 'Y' or 'Z'.
	Pointer byte
	Mode    PointerMode
	Region  ast.Region
}

// Reg returns a register operand.
func Reg(n int) Operand {
	return Operand{Kind: OperandRegister, Reg: n, Known: true}
}

// Value returns a known value operand.
func Value(v int32) Operand {
	return Operand{Kind: OperandValue, Value: v, Known: true}
}

// Pointer returns a pointer operand.
func Pointer(p byte, mode PointerMode, displacement int32) Operand {
	return Operand{Kind: OperandPointer, Pointer: p, Mode: mode, Value: displacement, Known: true}
}

var (
	// ErrUnknownMnemonic is returned for a mnemonic the chip does not implement.
	ErrUnknownMnemonic = errors.New("unknown instruction")
	// ErrUnknownDevice is returned when a device name has no descriptor.
	ErrUnknownDevice = errors.New("unknown device")
)

// Descriptor describes one target chip.
type Descriptor interface {
	Name() string
	// IsMnemonic reports whether the chip implements the lowercase mnemonic.
	IsMnemonic(mnemonic string) bool
	// IsRegister returns the register number a name refers to.
	IsRegister(name string) (int, bool)
	// InstructionSize returns the encoded length in bytes.
	InstructionSize(mnemonic string, ops []Operand) (int, error)
	// Encode returns the instruction bytes as stored in program memory.
	// pc is the byte address of the instruction itself.
	Encode(mnemonic string, ops []Operand, pc objcode.Address) ([]byte, error)
	// Capacity returns the size of a segment's memory in bytes.
	Capacity(s objcode.Segment) int
	// AddressValue converts a location into the numeric value a label bound
	// to it evaluates to.
	AddressValue(a objcode.Address) (int32, error)
	// ValueAddress is the inverse of AddressValue, used by .org.
	ValueAddress(s objcode.Segment, v int32) (objcode.Address, error)
}

// InOutAdvisor is implemented by descriptors that can tell when a data
// memory access could use a shorter I/O instruction instead.
type InOutAdvisor interface {
	InOutEquivalent(mnemonic string, ops []Operand) (string, bool)
}
