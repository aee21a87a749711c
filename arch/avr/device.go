// Package avr describes the classic AVR core and the chips the assembler
// can target.
package avr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Urethramancer/avr/arch"
	"github.com/Urethramancer/avr/objcode"
)

// Device is one AVR chip. It implements arch.Descriptor.
type Device struct {
	name string
	// Flash is the program memory size in bytes.
	Flash int
	// SRAMStart is the first data space address backed by SRAM.
	SRAMStart int
	SRAMSize  int
	EEPROM    int
	// missing lists mnemonics of the core set this chip lacks.
	missing map[string]bool
}

var devices = map[string]*Device{
	"atmega328p": {
		name:      "ATmega328P",
		Flash:     32 * 1024,
		SRAMStart: 0x100,
		SRAMSize:  2 * 1024,
		EEPROM:    1024,
		missing:   set("elpm", "eijmp", "eicall"),
	},
	"atmega2560": {
		name:      "ATmega2560",
		Flash:     256 * 1024,
		SRAMStart: 0x200,
		SRAMSize:  8 * 1024,
		EEPROM:    4 * 1024,
	},
	"attiny85": {
		name:      "ATtiny85",
		Flash:     8 * 1024,
		SRAMStart: 0x60,
		SRAMSize:  512,
		EEPROM:    512,
		missing:   set("jmp", "call", "mul", "muls", "elpm", "eijmp", "eicall"),
	},
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Lookup finds a device by name, ignoring case.
func Lookup(name string) (*Device, error) {
	d, ok := devices[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", arch.ErrUnknownDevice, name)
	}
	return d, nil
}

// Names lists the supported devices.
func Names() []string {
	var out []string
	for _, d := range devices {
		out = append(out, d.name)
	}
	sort.Strings(out)
	return out
}

// Default is the device used when none is selected.
func Default() *Device {
	return devices["atmega328p"]
}

// Name is the chip name as the vendor spells it.
func (d *Device) Name() string {
	return d.name
}

func (d *Device) IsMnemonic(mnemonic string) bool {
	_, ok := instructions[mnemonic]
	return ok && !d.missing[mnemonic]
}

var namedRegisters = map[string]int{
	"xl": 26, "xh": 27,
	"yl": 28, "yh": 29,
	"zl": 30, "zh": 31,
}

// IsRegister accepts r0 to r31 and the pointer halves XL to ZH.
func (d *Device) IsRegister(name string) (int, bool) {
	name = strings.ToLower(name)
	if n, ok := namedRegisters[name]; ok {
		return n, true
	}
	if len(name) < 2 || len(name) > 3 || name[0] != 'r' {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 31 || (len(name) == 3 && name[1] == '0') {
		return 0, false
	}
	return n, true
}

func (d *Device) InstructionSize(mnemonic string, ops []arch.Operand) (int, error) {
	in, err := d.lookup(mnemonic)
	if err != nil {
		return 0, err
	}
	switch in.format {
	case fmtAbs22, fmtLds, fmtSts:
		return 4, nil
	}
	return 2, nil
}

func (d *Device) lookup(mnemonic string) (instruction, error) {
	in, ok := instructions[mnemonic]
	if !ok {
		return instruction{}, fmt.Errorf("%w %s", arch.ErrUnknownMnemonic, mnemonic)
	}
	if d.missing[mnemonic] {
		return instruction{}, fmt.Errorf("%s is not available on %s", mnemonic, d.name)
	}
	return in, nil
}

// Capacity is the size of each address space in bytes. Data memory
// includes the register file and I/O space below SRAMStart.
func (d *Device) Capacity(s objcode.Segment) int {
	switch s {
	case objcode.Code:
		return d.Flash
	case objcode.Data:
		return d.SRAMStart + d.SRAMSize
	case objcode.EEPROM:
		return d.EEPROM
	}
	return 0
}

// AddressValue makes program memory labels word addresses, as the jump and
// branch instructions expect. Data and EEPROM labels are byte addresses.
func (d *Device) AddressValue(a objcode.Address) (int32, error) {
	if a.Segment() == objcode.Code {
		return a.WordAddress()
	}
	return a.Offset(), nil
}

// ValueAddress reads v as a word address in program memory and a byte
// address elsewhere.
func (d *Device) ValueAddress(s objcode.Segment, v int32) (objcode.Address, error) {
	if s == objcode.Code {
		return objcode.WordAddressOf(s, v)
	}
	return objcode.ByteAddress(s, v)
}

const (
	ioOffset = 0x20
	ioSize   = 0x40
)

// InOutEquivalent suggests in/out for lds/sts on an address in the I/O range.
func (d *Device) InOutEquivalent(mnemonic string, ops []arch.Operand) (string, bool) {
	if len(ops) != 2 {
		return "", false
	}
	var reg, addr arch.Operand
	var alt string
	switch mnemonic {
	case "lds":
		reg, addr, alt = ops[0], ops[1], "in"
	case "sts":
		addr, reg, alt = ops[0], ops[1], "out"
	default:
		return "", false
	}
	if !addr.Known || addr.Kind != arch.OperandValue || reg.Kind != arch.OperandRegister {
		return "", false
	}
	if addr.Value < ioOffset || addr.Value >= ioOffset+ioSize {
		return "", false
	}
	io := addr.Value - ioOffset
	if alt == "in" {
		return fmt.Sprintf("in r%d, 0x%02x", reg.Reg, io), true
	}
	return fmt.Sprintf("out 0x%02x, r%d", io, reg.Reg), true
}

var (
	_ arch.Descriptor   = (*Device)(nil)
	_ arch.InOutAdvisor = (*Device)(nil)
)
