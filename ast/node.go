package ast

// Kind identifies what a Node represents.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnit is the root of one source file.
	KindUnit
	// KindBlock groups statements, e.g. the branches of a conditional.
	KindBlock
	KindLabel
	KindEqu
	KindSet
	KindDef
	KindOrg
	KindSegment
	// KindData is .db/.dw/.dd; Text holds the directive name.
	KindData
	// KindReserve is .byte.
	KindReserve
	KindInclude
	// KindConditional is .ifdef/.ifndef with children [name, then, else].
	KindConditional
	KindMacro
	KindMessage
	KindDevice
	KindExit
	KindInstruction
	// KindPointer is an X/Y/Z operand with an optional displacement child.
	KindPointer
	KindNumber
	KindString
	KindIdent
	KindBinary
	KindUnary
	KindParen
	KindCall
	// KindError stands in for a statement that failed to parse.
	KindError
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindUnit:        "unit",
	KindBlock:       "block",
	KindLabel:       "label",
	KindEqu:         "equ",
	KindSet:         "set",
	KindDef:         "def",
	KindOrg:         "org",
	KindSegment:     "segment",
	KindData:        "data",
	KindReserve:     "reserve",
	KindInclude:     "include",
	KindConditional: "conditional",
	KindMacro:       "macro",
	KindMessage:     "message",
	KindDevice:      "device",
	KindExit:        "exit",
	KindInstruction: "instruction",
	KindPointer:     "pointer",
	KindNumber:      "number",
	KindString:      "string",
	KindIdent:       "identifier",
	KindBinary:      "binary",
	KindUnary:       "unary",
	KindParen:       "paren",
	KindCall:        "call",
	KindError:       "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsExpression reports whether nodes of this kind can appear inside an expression.
func (k Kind) IsExpression() bool {
	switch k {
	case KindNumber, KindString, KindIdent, KindBinary, KindUnary, KindParen, KindCall:
		return true
	}
	return false
}

// Op is an operator carried by binary, unary and pointer nodes.
type Op uint8

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpLogAnd
	OpLogOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	// OpNeg is unary minus.
	OpNeg
	// OpNot is bitwise complement (~).
	OpNot
	// OpLogNot is logical negation (!).
	OpLogNot
	// Pointer addressing modes.
	OpPostInc
	OpPreDec
	OpDisplace
)

var opNames = [...]string{
	OpNone:     "",
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpMod:      "%",
	OpShl:      "<<",
	OpShr:      ">>",
	OpAnd:      "&",
	OpOr:       "|",
	OpXor:      "^",
	OpLogAnd:   "&&",
	OpLogOr:    "||",
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpNeg:      "-",
	OpNot:      "~",
	OpLogNot:   "!",
	OpPostInc:  "+",
	OpPreDec:   "-",
	OpDisplace: "+q",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "?"
}

// Node is one element of a Tree. Nodes reference each other by NodeID.
type Node struct {
	Kind     Kind
	Region   Region
	Parent   NodeID
	Children []NodeID
	// Text is the name, mnemonic, directive word or literal text, depending on Kind.
	Text  string
	Op    Op
	Value int32
}
