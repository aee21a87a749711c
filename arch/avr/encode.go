package avr

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/avr/arch"
	"github.com/Urethramancer/avr/objcode"
)

// format is the operand layout of an instruction.
type format int

const (
	fmtNone      format = iota
	fmtRdRr             // Rd, Rr
	fmtRdRrHigh         // Rd, Rr with both in r16-r31
	fmtRdDouble         // Rd, encoded as Rd, Rd
	fmtRd               // Rd
	fmtRdK              // Rd, K with Rd in r16-r31
	fmtRdKInverted      // Rd, K encoded with ~K
	fmtSer              // Rd, encoded with K = 0xFF
	fmtMovw             // Rd+1:Rd, Rr+1:Rr
	fmtWordK            // Rd, K with Rd in r24, r26, r28, r30
	fmtRel12            // k, 12-bit word displacement
	fmtAbs22            // k, 22-bit word address in a second word
	fmtBranch           // k, 7-bit word displacement
	fmtBranchBit        // s, k
	fmtIn               // Rd, A
	fmtOut              // A, Rr
	fmtIOBit            // A, b
	fmtRegBit           // Rr, b
	fmtLds              // Rd, k
	fmtSts              // k, Rr
	fmtLd               // Rd, X|Y|Z with optional + or -
	fmtSt               // X|Y|Z with optional + or -, Rr
	fmtLdd              // Rd, Y+q|Z+q
	fmtStd              // Y+q|Z+q, Rr
	fmtLpm              // nothing, or Rd, Z|Z+
)

type instruction struct {
	format format
	opcode uint16
}

var instructions = map[string]instruction{
	"add":  {fmtRdRr, OPADD},
	"adc":  {fmtRdRr, OPADC},
	"sub":  {fmtRdRr, OPSUB},
	"sbc":  {fmtRdRr, OPSBC},
	"and":  {fmtRdRr, OPAND},
	"or":   {fmtRdRr, OPOR},
	"eor":  {fmtRdRr, OPEOR},
	"cp":   {fmtRdRr, OPCP},
	"cpc":  {fmtRdRr, OPCPC},
	"cpse": {fmtRdRr, OPCPSE},
	"mov":  {fmtRdRr, OPMOV},
	"mul":  {fmtRdRr, OPMUL},
	"muls": {fmtRdRrHigh, OPMULS},
	"movw": {fmtMovw, OPMOVW},

	"clr": {fmtRdDouble, OPEOR},
	"tst": {fmtRdDouble, OPAND},
	"lsl": {fmtRdDouble, OPADD},
	"rol": {fmtRdDouble, OPADC},

	"ldi":  {fmtRdK, OPLDI},
	"cpi":  {fmtRdK, OPCPI},
	"subi": {fmtRdK, OPSUBI},
	"sbci": {fmtRdK, OPSBCI},
	"andi": {fmtRdK, OPANDI},
	"ori":  {fmtRdK, OPORI},
	"sbr":  {fmtRdK, OPORI},
	"cbr":  {fmtRdKInverted, OPANDI},
	"ser":  {fmtSer, OPLDI},

	"com":  {fmtRd, OPCOM},
	"neg":  {fmtRd, OPNEG},
	"swap": {fmtRd, OPSWAP},
	"inc":  {fmtRd, OPINC},
	"dec":  {fmtRd, OPDEC},
	"asr":  {fmtRd, OPASR},
	"lsr":  {fmtRd, OPLSR},
	"ror":  {fmtRd, OPROR},
	"push": {fmtRd, OPPUSH},
	"pop":  {fmtRd, OPPOP},

	"adiw": {fmtWordK, OPADIW},
	"sbiw": {fmtWordK, OPSBIW},

	"rjmp":  {fmtRel12, OPRJMP},
	"rcall": {fmtRel12, OPRCALL},
	"jmp":   {fmtAbs22, OPJMP},
	"call":  {fmtAbs22, OPCALL},

	"brbs": {fmtBranchBit, OPBRBS},
	"brbc": {fmtBranchBit, OPBRBC},
	"breq": {fmtBranch, OPBRBS | flagZ},
	"brne": {fmtBranch, OPBRBC | flagZ},
	"brcs": {fmtBranch, OPBRBS | flagC},
	"brlo": {fmtBranch, OPBRBS | flagC},
	"brcc": {fmtBranch, OPBRBC | flagC},
	"brsh": {fmtBranch, OPBRBC | flagC},
	"brmi": {fmtBranch, OPBRBS | flagN},
	"brpl": {fmtBranch, OPBRBC | flagN},
	"brvs": {fmtBranch, OPBRBS | flagV},
	"brvc": {fmtBranch, OPBRBC | flagV},
	"brlt": {fmtBranch, OPBRBS | flagS},
	"brge": {fmtBranch, OPBRBC | flagS},
	"brhs": {fmtBranch, OPBRBS | flagH},
	"brhc": {fmtBranch, OPBRBC | flagH},
	"brts": {fmtBranch, OPBRBS | flagT},
	"brtc": {fmtBranch, OPBRBC | flagT},
	"brie": {fmtBranch, OPBRBS | flagI},
	"brid": {fmtBranch, OPBRBC | flagI},

	"sbrc": {fmtRegBit, OPSBRC},
	"sbrs": {fmtRegBit, OPSBRS},
	"bst":  {fmtRegBit, OPBST},
	"bld":  {fmtRegBit, OPBLD},

	"in":   {fmtIn, OPIN},
	"out":  {fmtOut, OPOUT},
	"cbi":  {fmtIOBit, OPCBI},
	"sbi":  {fmtIOBit, OPSBI},
	"sbic": {fmtIOBit, OPSBIC},
	"sbis": {fmtIOBit, OPSBIS},

	"lds": {fmtLds, OPLDS},
	"sts": {fmtSts, OPSTS},
	"ld":  {fmtLd, 0},
	"st":  {fmtSt, opStore},
	"ldd": {fmtLdd, 0},
	"std": {fmtStd, opStore},

	"lpm":  {fmtLpm, OPLPM},
	"elpm": {fmtLpm, OPELPM},

	"nop":    {fmtNone, OPNOP},
	"ret":    {fmtNone, OPRET},
	"reti":   {fmtNone, OPRETI},
	"ijmp":   {fmtNone, OPIJMP},
	"icall":  {fmtNone, OPICALL},
	"eijmp":  {fmtNone, OPEIJMP},
	"eicall": {fmtNone, OPEICALL},
	"sleep":  {fmtNone, OPSLEEP},
	"break":  {fmtNone, OPBREAK},
	"wdr":    {fmtNone, OPWDR},
	"spm":    {fmtNone, OPSPM},
	"sec":    {fmtNone, OPSEC},
	"sez":    {fmtNone, OPSEZ},
	"sen":    {fmtNone, OPSEN},
	"sev":    {fmtNone, OPSEV},
	"ses":    {fmtNone, OPSES},
	"seh":    {fmtNone, OPSEH},
	"set":    {fmtNone, OPSET},
	"sei":    {fmtNone, OPSEI},
	"clc":    {fmtNone, OPCLC},
	"clz":    {fmtNone, OPCLZ},
	"cln":    {fmtNone, OPCLN},
	"clv":    {fmtNone, OPCLV},
	"cls":    {fmtNone, OPCLS},
	"clh":    {fmtNone, OPCLH},
	"clt":    {fmtNone, OPCLT},
	"cli":    {fmtNone, OPCLI},
}

// operandCount is the number of operands each format takes.
var operandCount = map[format]int{
	fmtNone:        0,
	fmtRd:          1,
	fmtRdDouble:    1,
	fmtSer:         1,
	fmtRel12:       1,
	fmtAbs22:       1,
	fmtBranch:      1,
	fmtRdRr:        2,
	fmtRdRrHigh:    2,
	fmtRdK:         2,
	fmtRdKInverted: 2,
	fmtMovw:        2,
	fmtWordK:       2,
	fmtBranchBit:   2,
	fmtIn:          2,
	fmtOut:         2,
	fmtIOBit:       2,
	fmtRegBit:      2,
	fmtLds:         2,
	fmtSts:         2,
	fmtLd:          2,
	fmtSt:          2,
	fmtLdd:         2,
	fmtStd:         2,
}

// ErrUnknownValue is returned when an operand value is still unresolved.
var ErrUnknownValue = errors.New("operand value is not known")

// Encode implements arch.Descriptor.
func (d *Device) Encode(mnemonic string, ops []arch.Operand, pc objcode.Address) ([]byte, error) {
	in, err := d.lookup(mnemonic)
	if err != nil {
		return nil, err
	}
	words, err := d.encode(in, ops, pc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mnemonic, err)
	}
	return WordsToBytes(words), nil
}

func (d *Device) encode(in instruction, ops []arch.Operand, pc objcode.Address) ([]uint16, error) {
	if in.format == fmtLpm {
		return encodeLpm(in, ops)
	}
	if n := operandCount[in.format]; len(ops) != n {
		return nil, fmt.Errorf("requires %d operand(s), got %d", n, len(ops))
	}
	op := in.opcode

	switch in.format {
	case fmtNone:
		return []uint16{op}, nil

	case fmtRdRr, fmtRdRrHigh:
		lo := 0
		if in.format == fmtRdRrHigh {
			lo = 16
		}
		rd, err := register(ops[0], lo, 31)
		if err != nil {
			return nil, err
		}
		rr, err := register(ops[1], lo, 31)
		if err != nil {
			return nil, err
		}
		if in.format == fmtRdRrHigh {
			return []uint16{op | (rd-16)<<4 | (rr - 16)}, nil
		}
		return []uint16{twoRegisters(op, rd, rr)}, nil

	case fmtRdDouble:
		rd, err := register(ops[0], 0, 31)
		if err != nil {
			return nil, err
		}
		return []uint16{twoRegisters(op, rd, rd)}, nil

	case fmtRd:
		rd, err := register(ops[0], 0, 31)
		if err != nil {
			return nil, err
		}
		return []uint16{op | rd<<4}, nil

	case fmtRdK, fmtRdKInverted, fmtSer:
		rd, err := register(ops[0], 16, 31)
		if err != nil {
			return nil, err
		}
		k := int32(0xFF)
		if in.format != fmtSer {
			if k, err = constant(ops[1], -128, 255); err != nil {
				return nil, err
			}
		}
		if in.format == fmtRdKInverted {
			k = ^k
		}
		kb := uint16(k) & 0xFF
		return []uint16{op | (kb&0xF0)<<4 | (rd-16)<<4 | kb&0x0F}, nil

	case fmtMovw:
		rd, err := registerPair(ops[0])
		if err != nil {
			return nil, err
		}
		rr, err := registerPair(ops[1])
		if err != nil {
			return nil, err
		}
		return []uint16{op | (rd/2)<<4 | rr/2}, nil

	case fmtWordK:
		rd, err := register(ops[0], 24, 30)
		if err != nil {
			return nil, err
		}
		if rd%2 != 0 {
			return nil, fmt.Errorf("register r%d is not one of r24, r26, r28, r30", rd)
		}
		k, err := constant(ops[1], 0, 63)
		if err != nil {
			return nil, err
		}
		kb := uint16(k)
		return []uint16{op | (kb&0x30)<<2 | ((rd-24)/2)<<4 | kb&0x0F}, nil

	case fmtRel12:
		k, err := d.displacement(ops[0], pc, 12)
		if err != nil {
			return nil, err
		}
		return []uint16{op | uint16(k)&0x0FFF}, nil

	case fmtAbs22:
		k, err := constant(ops[0], 0, 1<<22-1)
		if err != nil {
			return nil, err
		}
		hi := uint16((k>>17)&0x1F)<<4 | uint16((k>>16)&1)
		return []uint16{op | hi, uint16(k)}, nil

	case fmtBranch:
		k, err := d.displacement(ops[0], pc, 7)
		if err != nil {
			return nil, err
		}
		return []uint16{op | (uint16(k)&0x7F)<<3}, nil

	case fmtBranchBit:
		s, err := constant(ops[0], 0, 7)
		if err != nil {
			return nil, err
		}
		k, err := d.displacement(ops[1], pc, 7)
		if err != nil {
			return nil, err
		}
		return []uint16{op | (uint16(k)&0x7F)<<3 | uint16(s)}, nil

	case fmtIn, fmtOut:
		regOp, ioOp := ops[0], ops[1]
		if in.format == fmtOut {
			regOp, ioOp = ops[1], ops[0]
		}
		r, err := register(regOp, 0, 31)
		if err != nil {
			return nil, err
		}
		a, err := constant(ioOp, 0, 63)
		if err != nil {
			return nil, err
		}
		ab := uint16(a)
		return []uint16{op | (ab&0x30)<<5 | r<<4 | ab&0x0F}, nil

	case fmtIOBit:
		a, err := constant(ops[0], 0, 31)
		if err != nil {
			return nil, err
		}
		b, err := constant(ops[1], 0, 7)
		if err != nil {
			return nil, err
		}
		return []uint16{op | uint16(a)<<3 | uint16(b)}, nil

	case fmtRegBit:
		r, err := register(ops[0], 0, 31)
		if err != nil {
			return nil, err
		}
		b, err := constant(ops[1], 0, 7)
		if err != nil {
			return nil, err
		}
		return []uint16{op | r<<4 | uint16(b)}, nil

	case fmtLds, fmtSts:
		regOp, addrOp := ops[0], ops[1]
		if in.format == fmtSts {
			regOp, addrOp = ops[1], ops[0]
		}
		r, err := register(regOp, 0, 31)
		if err != nil {
			return nil, err
		}
		k, err := constant(addrOp, 0, 0xFFFF)
		if err != nil {
			return nil, err
		}
		return []uint16{op | r<<4, uint16(k)}, nil

	case fmtLd, fmtSt:
		regOp, ptrOp := ops[0], ops[1]
		if in.format == fmtSt {
			regOp, ptrOp = ops[1], ops[0]
		}
		r, err := register(regOp, 0, 31)
		if err != nil {
			return nil, err
		}
		base, err := indirect(ptrOp)
		if err != nil {
			return nil, err
		}
		return []uint16{base | op | r<<4}, nil

	case fmtLdd, fmtStd:
		regOp, ptrOp := ops[0], ops[1]
		if in.format == fmtStd {
			regOp, ptrOp = ops[1], ops[0]
		}
		r, err := register(regOp, 0, 31)
		if err != nil {
			return nil, err
		}
		base, q, err := displaced(ptrOp)
		if err != nil {
			return nil, err
		}
		return []uint16{base | op | (q&0x20)<<8 | (q&0x18)<<7 | r<<4 | q&0x07}, nil
	}
	return nil, fmt.Errorf("unhandled operand format %d", in.format)
}

func twoRegisters(op, rd, rr uint16) uint16 {
	return op | (rr&0x10)<<5 | rd<<4 | rr&0x0F
}

// displacement turns a word address target into a signed field of the given
// width relative to the instruction after pc. Chips whose program memory
// fits the 12-bit range wrap around its end, as the hardware does.
func (d *Device) displacement(target arch.Operand, pc objcode.Address, width uint) (int32, error) {
	t, err := constant(target, -1<<31, 1<<31-1)
	if err != nil {
		return 0, err
	}
	w, err := pc.WordAddress()
	if err != nil {
		return 0, err
	}
	k := t - (w + 1)
	lo, hi := int32(-1)<<(width-1), int32(1)<<(width-1)-1
	if k >= lo && k <= hi {
		return k, nil
	}
	if words := int32(d.Flash / 2); width == 12 && words <= 1<<12 {
		k = ((k % words) + words) % words
		if k > hi {
			k -= words
		}
		return k, nil
	}
	return 0, fmt.Errorf("branch target %#x out of reach (offset %d, range %d..%d)", t, k, lo, hi)
}

func register(op arch.Operand, lo, hi int) (uint16, error) {
	if op.Kind != arch.OperandRegister {
		return 0, fmt.Errorf("expected a register")
	}
	if op.Reg < lo || op.Reg > hi {
		return 0, fmt.Errorf("register r%d out of range r%d-r%d", op.Reg, lo, hi)
	}
	return uint16(op.Reg), nil
}

func registerPair(op arch.Operand) (uint16, error) {
	r, err := register(op, 0, 30)
	if err != nil {
		return 0, err
	}
	if r%2 != 0 {
		return 0, fmt.Errorf("register pair must start at an even register, got r%d", r)
	}
	return r, nil
}

func constant(op arch.Operand, lo, hi int32) (int32, error) {
	if op.Kind != arch.OperandValue {
		return 0, fmt.Errorf("expected a constant")
	}
	if !op.Known {
		return 0, ErrUnknownValue
	}
	if op.Value < lo || op.Value > hi {
		return 0, fmt.Errorf("value %d out of range %d..%d", op.Value, lo, hi)
	}
	return op.Value, nil
}

// indirect returns the ld opcode for a pointer operand.
func indirect(op arch.Operand) (uint16, error) {
	if op.Kind != arch.OperandPointer {
		return 0, fmt.Errorf("expected X, Y or Z")
	}
	type key struct {
		p    byte
		mode arch.PointerMode
	}
	codes := map[key]uint16{
		{'X', arch.PointerPlain}:         OPLDX,
		{'X', arch.PointerPostIncrement}: OPLDXInc,
		{'X', arch.PointerPreDecrement}:  OPLDXDec,
		{'Y', arch.PointerPlain}:         OPLDDY,
		{'Y', arch.PointerPostIncrement}: OPLDYInc,
		{'Y', arch.PointerPreDecrement}:  OPLDYDec,
		{'Z', arch.PointerPlain}:         OPLDDZ,
		{'Z', arch.PointerPostIncrement}: OPLDZInc,
		{'Z', arch.PointerPreDecrement}:  OPLDZDec,
	}
	c, ok := codes[key{op.Pointer, op.Mode}]
	if !ok {
		return 0, fmt.Errorf("pointer form not allowed here, use ldd or std for a displacement")
	}
	return c, nil
}

// displaced returns the ldd base opcode and displacement for Y+q or Z+q.
func displaced(op arch.Operand) (uint16, uint16, error) {
	if op.Kind != arch.OperandPointer || (op.Mode != arch.PointerPlain && op.Mode != arch.PointerDisplacement) {
		return 0, 0, fmt.Errorf("expected Y+q or Z+q")
	}
	var base uint16
	switch op.Pointer {
	case 'Y':
		base = OPLDDY
	case 'Z':
		base = OPLDDZ
	default:
		return 0, 0, fmt.Errorf("displacement is only available with Y and Z")
	}
	q := op.Value
	if op.Mode == arch.PointerPlain {
		q = 0
	}
	if q < 0 || q > 63 {
		return 0, 0, fmt.Errorf("displacement %d out of range 0..63", q)
	}
	return base, uint16(q), nil
}

func encodeLpm(in instruction, ops []arch.Operand) ([]uint16, error) {
	if len(ops) == 0 {
		return []uint16{in.opcode}, nil
	}
	if len(ops) != 2 {
		return nil, fmt.Errorf("requires 0 or 2 operands, got %d", len(ops))
	}
	r, err := register(ops[0], 0, 31)
	if err != nil {
		return nil, err
	}
	p := ops[1]
	if p.Kind != arch.OperandPointer || p.Pointer != 'Z' {
		return nil, fmt.Errorf("expected Z or Z+")
	}
	base := uint16(OPLPMZ)
	if in.opcode == OPELPM {
		base = OPELPMZ
	}
	switch p.Mode {
	case arch.PointerPlain:
	case arch.PointerPostIncrement:
		base |= 1
	default:
		return nil, fmt.Errorf("expected Z or Z+")
	}
	return []uint16{base | r<<4}, nil
}
