package avr

// Opcodes with all operand fields cleared.
const (
	// Two register ALU instructions: 0000 11rd dddd rrrr and friends.
	OPADD  = 0x0C00 // ADD
	OPADC  = 0x1C00 // ADC
	OPSUB  = 0x1800 // SUB
	OPSBC  = 0x0800 // SBC
	OPAND  = 0x2000 // AND
	OPOR   = 0x2800 // OR
	OPEOR  = 0x2400 // EOR
	OPCP   = 0x1400 // CP
	OPCPC  = 0x0400 // CPC
	OPCPSE = 0x1000 // CPSE
	OPMOV  = 0x2C00 // MOV
	OPMUL  = 0x9C00 // MUL
	OPMULS = 0x0200 // MULS (r16-r31 only)
	OPMOVW = 0x0100 // MOVW (register pairs)

	// Register and 8-bit constant: KKKK dddd KKKK, r16-r31 only.
	OPLDI  = 0xE000 // LDI
	OPCPI  = 0x3000 // CPI
	OPSUBI = 0x5000 // SUBI
	OPSBCI = 0x4000 // SBCI
	OPANDI = 0x7000 // ANDI
	OPORI  = 0x6000 // ORI

	// Single register: 1001 010d dddd xxxx.
	OPCOM  = 0x9400 // COM
	OPNEG  = 0x9401 // NEG
	OPSWAP = 0x9402 // SWAP
	OPINC  = 0x9403 // INC
	OPASR  = 0x9405 // ASR
	OPLSR  = 0x9406 // LSR
	OPROR  = 0x9407 // ROR
	OPDEC  = 0x940A // DEC
	OPPUSH = 0x920F // PUSH
	OPPOP  = 0x900F // POP

	// Word immediate on r24, r26, r28, r30.
	OPADIW = 0x9600 // ADIW
	OPSBIW = 0x9700 // SBIW

	// Flow control.
	OPRJMP  = 0xC000 // RJMP
	OPRCALL = 0xD000 // RCALL
	OPJMP   = 0x940C // JMP (two words)
	OPCALL  = 0x940E // CALL (two words)
	OPBRBS  = 0xF000 // BRBS, ORed with the status bit
	OPBRBC  = 0xF400 // BRBC, ORed with the status bit
	OPSBRC  = 0xFC00 // SBRC
	OPSBRS  = 0xFE00 // SBRS
	OPBST   = 0xFA00 // BST
	OPBLD   = 0xF800 // BLD

	// I/O space.
	OPIN   = 0xB000 // IN
	OPOUT  = 0xB800 // OUT
	OPCBI  = 0x9800 // CBI
	OPSBIC = 0x9900 // SBIC
	OPSBI  = 0x9A00 // SBI
	OPSBIS = 0x9B00 // SBIS

	// Data space.
	OPLDS = 0x9000 // LDS (two words)
	OPSTS = 0x9200 // STS (two words)

	// Indirect loads. OR in opStore for the matching store.
	OPLDX    = 0x900C // LD Rd, X
	OPLDXInc = 0x900D // LD Rd, X+
	OPLDXDec = 0x900E // LD Rd, -X
	OPLDYInc = 0x9009 // LD Rd, Y+
	OPLDYDec = 0x900A // LD Rd, -Y
	OPLDZInc = 0x9001 // LD Rd, Z+
	OPLDZDec = 0x9002 // LD Rd, -Z
	OPLDDY   = 0x8008 // LDD Rd, Y+q
	OPLDDZ   = 0x8000 // LDD Rd, Z+q
	opStore  = 0x0200

	// Program memory.
	OPLPM     = 0x95C8 // LPM (implied r0, Z)
	OPLPMZ    = 0x9004 // LPM Rd, Z
	OPLPMZInc = 0x9005 // LPM Rd, Z+
	OPELPM    = 0x95D8 // ELPM
	OPELPMZ   = 0x9006 // ELPM Rd, Z
	OPELPMInc = 0x9007 // ELPM Rd, Z+
	OPSPM     = 0x95E8 // SPM

	// No operands.
	OPNOP    = 0x0000 // NOP
	OPRET    = 0x9508 // RET
	OPRETI   = 0x9518 // RETI
	OPIJMP   = 0x9409 // IJMP
	OPICALL  = 0x9509 // ICALL
	OPEIJMP  = 0x9419 // EIJMP
	OPEICALL = 0x9519 // EICALL
	OPSLEEP  = 0x9588 // SLEEP
	OPBREAK  = 0x9598 // BREAK
	OPWDR    = 0x95A8 // WDR
	OPSEC    = 0x9408 // SEC
	OPSEZ    = 0x9418 // SEZ
	OPSEN    = 0x9428 // SEN
	OPSEV    = 0x9438 // SEV
	OPSES    = 0x9448 // SES
	OPSEH    = 0x9458 // SEH
	OPSET    = 0x9468 // SET
	OPSEI    = 0x9478 // SEI
	OPCLC    = 0x9488 // CLC
	OPCLZ    = 0x9498 // CLZ
	OPCLN    = 0x94A8 // CLN
	OPCLV    = 0x94B8 // CLV
	OPCLS    = 0x94C8 // CLS
	OPCLH    = 0x94D8 // CLH
	OPCLT    = 0x94E8 // CLT
	OPCLI    = 0x94F8 // CLI
)

// Status register bits used by the conditional branch aliases.
const (
	flagC = iota
	flagZ
	flagN
	flagV
	flagS
	flagH
	flagT
	flagI
)
