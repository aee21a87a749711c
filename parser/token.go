package parser

import "github.com/Urethramancer/avr/ast"

// tokenKind classifies lexer output.
type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokEOL
	tokIdent
	tokNumber
	tokString
	// tokDirective is a word introduced by '.', e.g. ".equ" or a local label ".loop".
	tokDirective
	// tokHash is a word introduced by '#', e.g. "#include".
	tokHash
	tokColon
	tokComma
	tokLParen
	tokRParen
	tokAssign
	tokOp
	tokIllegal
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokEOL:
		return "end of line"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokDirective:
		return "directive"
	case tokHash:
		return "preprocessor directive"
	case tokColon:
		return "':'"
	case tokComma:
		return "','"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokAssign:
		return "'='"
	case tokOp:
		return "operator"
	}
	return "illegal character"
}

type token struct {
	kind tokenKind
	// text is the identifier or directive name without its prefix, the decoded
	// string literal, or the operator spelling.
	text   string
	value  int32
	op     ast.Op
	region ast.Region
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent, tokOp:
		return "'" + t.text + "'"
	case tokDirective:
		return "'." + t.text + "'"
	case tokHash:
		return "'#" + t.text + "'"
	}
	return t.kind.String()
}
