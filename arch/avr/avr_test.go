package avr

import (
	"testing"

	"github.com/Urethramancer/avr/arch"
	"github.com/Urethramancer/avr/objcode"
	"github.com/stretchr/testify/require"
)

func pcAt(t *testing.T, offset int32) objcode.Address {
	t.Helper()
	a, err := objcode.ByteAddress(objcode.Code, offset)
	require.NoError(t, err)
	return a
}

func TestEncode(t *testing.T) {
	r := arch.Reg
	v := arch.Value
	tests := []struct {
		name     string
		mnemonic string
		ops      []arch.Operand
		pc       int32
		want     []uint16
	}{
		{"nop", "nop", nil, 0, []uint16{0x0000}},
		{"ret", "ret", nil, 0, []uint16{0x9508}},
		{"ldi", "ldi", []arch.Operand{r(16), v(0xFF)}, 0, []uint16{0xEF0F}},
		{"ldi negative", "ldi", []arch.Operand{r(16), v(-1)}, 0, []uint16{0xEF0F}},
		{"add low", "add", []arch.Operand{r(1), r(2)}, 0, []uint16{0x0C12}},
		{"add high", "add", []arch.Operand{r(31), r(31)}, 0, []uint16{0x0FFF}},
		{"clr", "clr", []arch.Operand{r(24)}, 0, []uint16{0x2788}},
		{"cbr", "cbr", []arch.Operand{r(16), v(0x0F)}, 0, []uint16{0x7F00}},
		{"ser", "ser", []arch.Operand{r(17)}, 0, []uint16{0xEF1F}},
		{"muls", "muls", []arch.Operand{r(16), r(17)}, 0, []uint16{0x0201}},
		{"push", "push", []arch.Operand{r(16)}, 0, []uint16{0x930F}},
		{"rjmp self", "rjmp", []arch.Operand{v(0)}, 0, []uint16{0xCFFF}},
		{"rcall forward", "rcall", []arch.Operand{v(0x10)}, 0x10, []uint16{0xD007}},
		{"breq back", "breq", []arch.Operand{v(0)}, 2, []uint16{0xF3F1}},
		{"brne forward", "brne", []arch.Operand{v(3)}, 0, []uint16{0xF411}},
		{"brbs", "brbs", []arch.Operand{v(1), v(0)}, 2, []uint16{0xF3F1}},
		{"jmp", "jmp", []arch.Operand{v(0x1234)}, 0, []uint16{0x940C, 0x1234}},
		{"call high", "call", []arch.Operand{v(0x3FFFF)}, 0, []uint16{0x941F, 0xFFFF}},
		{"in", "in", []arch.Operand{r(16), v(0x3F)}, 0, []uint16{0xB70F}},
		{"out", "out", []arch.Operand{v(0x3E), r(29)}, 0, []uint16{0xBFDE}},
		{"lds", "lds", []arch.Operand{r(24), v(0x100)}, 0, []uint16{0x9180, 0x0100}},
		{"sts", "sts", []arch.Operand{v(0x100), r(24)}, 0, []uint16{0x9380, 0x0100}},
		{"sbi", "sbi", []arch.Operand{v(0x05), v(5)}, 0, []uint16{0x9A2D}},
		{"sbrc", "sbrc", []arch.Operand{r(16), v(7)}, 0, []uint16{0xFD07}},
		{"adiw", "adiw", []arch.Operand{r(24), v(1)}, 0, []uint16{0x9601}},
		{"sbiw max", "sbiw", []arch.Operand{r(30), v(63)}, 0, []uint16{0x97FF}},
		{"movw", "movw", []arch.Operand{r(24), r(30)}, 0, []uint16{0x01CF}},
		{"ld Z+", "ld", []arch.Operand{r(24), arch.Pointer('Z', arch.PointerPostIncrement, 0)}, 0, []uint16{0x9181}},
		{"ld X", "ld", []arch.Operand{r(0), arch.Pointer('X', arch.PointerPlain, 0)}, 0, []uint16{0x900C}},
		{"st X+", "st", []arch.Operand{arch.Pointer('X', arch.PointerPostIncrement, 0), r(0)}, 0, []uint16{0x920D}},
		{"st -Y", "st", []arch.Operand{arch.Pointer('Y', arch.PointerPreDecrement, 0), r(1)}, 0, []uint16{0x921A}},
		{"ldd", "ldd", []arch.Operand{r(24), arch.Pointer('Y', arch.PointerDisplacement, 1)}, 0, []uint16{0x8189}},
		{"std max", "std", []arch.Operand{arch.Pointer('Z', arch.PointerDisplacement, 63), r(0)}, 0, []uint16{0xAE07}},
		{"lpm implied", "lpm", nil, 0, []uint16{0x95C8}},
		{"lpm Z+", "lpm", []arch.Operand{r(0), arch.Pointer('Z', arch.PointerPostIncrement, 0)}, 0, []uint16{0x9005}},
	}
	d, err := Lookup("atmega2560")
	require.NoError(t, err)
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.Encode(tc.mnemonic, tc.ops, pcAt(t, tc.pc))
			require.NoError(t, err)
			require.Equal(t, WordsToBytes(tc.want), got)

			size, err := d.InstructionSize(tc.mnemonic, tc.ops)
			require.NoError(t, err)
			require.Len(t, got, size)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	r := arch.Reg
	v := arch.Value
	tests := []struct {
		mnemonic string
		ops      []arch.Operand
		want     string
	}{
		{"ldi", []arch.Operand{r(1), v(1)}, "ldi: register r1 out of range r16-r31"},
		{"ldi", []arch.Operand{r(16), v(256)}, "ldi: value 256 out of range -128..255"},
		{"mov", []arch.Operand{r(1)}, "mov: requires 2 operand(s), got 1"},
		{"mov", []arch.Operand{r(1), v(2)}, "mov: expected a register"},
		{"adiw", []arch.Operand{r(25), v(1)}, "adiw: register r25 is not one of r24, r26, r28, r30"},
		{"movw", []arch.Operand{r(1), r(2)}, "movw: register pair must start at an even register, got r1"},
		{"breq", []arch.Operand{v(100)}, "breq: branch target 0x64 out of reach (offset 99, range -64..63)"},
		{"ld", []arch.Operand{r(0), arch.Pointer('Y', arch.PointerDisplacement, 2)}, "ld: pointer form not allowed here, use ldd or std for a displacement"},
		{"ldd", []arch.Operand{r(0), arch.Pointer('X', arch.PointerDisplacement, 2)}, "ldd: displacement is only available with Y and Z"},
		{"lpm", []arch.Operand{r(0), arch.Pointer('Y', arch.PointerPlain, 0)}, "lpm: expected Z or Z+"},
		{"frob", nil, "unknown instruction frob"},
	}
	d := Default()
	for _, tc := range tests {
		_, err := d.Encode(tc.mnemonic, tc.ops, pcAt(t, 0))
		require.EqualError(t, err, tc.want)
	}

	_, err := d.Encode("rjmp", []arch.Operand{{Kind: arch.OperandValue}}, pcAt(t, 0))
	require.ErrorIs(t, err, ErrUnknownValue)

	_, err = d.Encode("rjmp", []arch.Operand{v(0)}, pcAt(t, 1))
	require.ErrorIs(t, err, objcode.ErrOddAddress)
}

func TestRelativeJumpWrapsOnSmallFlash(t *testing.T) {
	tiny, err := Lookup("ATtiny85")
	require.NoError(t, err)
	got, err := tiny.Encode("rjmp", []arch.Operand{arch.Value(4095)}, pcAt(t, 0))
	require.NoError(t, err)
	require.Equal(t, WordsToBytes([]uint16{0xCFFE}), got)

	_, err = Default().Encode("rjmp", []arch.Operand{arch.Value(4095)}, pcAt(t, 0))
	require.Error(t, err)
}

func TestDeviceFeatures(t *testing.T) {
	tiny, err := Lookup("attiny85")
	require.NoError(t, err)
	require.False(t, tiny.IsMnemonic("jmp"))
	require.False(t, tiny.IsMnemonic("call"))
	require.True(t, tiny.IsMnemonic("rjmp"))
	_, err = tiny.InstructionSize("call", nil)
	require.EqualError(t, err, "call is not available on ATtiny85")

	mega := Default()
	require.True(t, mega.IsMnemonic("jmp"))
	require.False(t, mega.IsMnemonic("elpm"))
	require.False(t, mega.IsMnemonic("mnemonic"))

	_, err = Lookup("pic16")
	require.ErrorIs(t, err, arch.ErrUnknownDevice)
	require.Equal(t, []string{"ATmega2560", "ATmega328P", "ATtiny85"}, Names())
}

func TestRegisters(t *testing.T) {
	d := Default()
	for name, want := range map[string]int{"r0": 0, "R31": 31, "r16": 16, "ZL": 30, "xh": 27} {
		n, ok := d.IsRegister(name)
		require.True(t, ok, name)
		require.Equal(t, want, n, name)
	}
	for _, name := range []string{"r32", "r01", "r", "x", "foo", "r-1"} {
		_, ok := d.IsRegister(name)
		require.False(t, ok, name)
	}
}

func TestCapacityAndAddressValue(t *testing.T) {
	d := Default()
	require.Equal(t, 32768, d.Capacity(objcode.Code))
	require.Equal(t, 0x900, d.Capacity(objcode.Data))
	require.Equal(t, 1024, d.Capacity(objcode.EEPROM))

	v, err := d.AddressValue(pcAt(t, 0x10))
	require.NoError(t, err)
	require.Equal(t, int32(8), v)

	_, err = d.AddressValue(pcAt(t, 3))
	require.ErrorIs(t, err, objcode.ErrOddAddress)

	data, err := objcode.ByteAddress(objcode.Data, 0x101)
	require.NoError(t, err)
	v, err = d.AddressValue(data)
	require.NoError(t, err)
	require.Equal(t, int32(0x101), v)

	a, err := d.ValueAddress(objcode.Code, 0x34)
	require.NoError(t, err)
	require.Equal(t, int32(0x68), a.Offset())
	a, err = d.ValueAddress(objcode.EEPROM, 0x34)
	require.NoError(t, err)
	require.Equal(t, int32(0x34), a.Offset())
	_, err = d.ValueAddress(objcode.Data, -1)
	require.ErrorIs(t, err, objcode.ErrNegativeOffset)
}

func TestInOutEquivalent(t *testing.T) {
	d := Default()
	alt, ok := d.InOutEquivalent("lds", []arch.Operand{arch.Reg(16), arch.Value(0x25)})
	require.True(t, ok)
	require.Equal(t, "in r16, 0x05", alt)

	alt, ok = d.InOutEquivalent("sts", []arch.Operand{arch.Value(0x5F), arch.Reg(1)})
	require.True(t, ok)
	require.Equal(t, "out 0x3f, r1", alt)

	_, ok = d.InOutEquivalent("lds", []arch.Operand{arch.Reg(16), arch.Value(0x100)})
	require.False(t, ok)
	_, ok = d.InOutEquivalent("mov", []arch.Operand{arch.Reg(16), arch.Reg(1)})
	require.False(t, ok)
}

func TestWordsToBytes(t *testing.T) {
	require.Equal(t, []byte{0x0F, 0xEF, 0x0C, 0x94}, WordsToBytes([]uint16{0xEF0F, 0x940C}))
	require.Empty(t, WordsToBytes(nil))
}
