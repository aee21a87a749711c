package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
)

type lexer struct {
	src  string
	pos  int
	line int
	col  int
	errs []*diag.Error
}

func newLexer(src string) *lexer {
	return &lexer{src: strings.ReplaceAll(src, "\r\n", "\n"), line: 1, col: 1}
}

func (lx *lexer) peekByte(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) mark() ast.Region {
	return ast.Region{Start: lx.pos, Line: lx.line, Column: lx.col}
}

func (lx *lexer) finish(r ast.Region) ast.Region {
	r.Length = lx.pos - r.Start
	return r
}

// skip consumes blanks and comments, but not newlines.
func (lx *lexer) skip() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			lx.advance(1)
		case c == ';' || (c == '/' && lx.peekByte(1) == '/'):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.peekByte(1) == '*':
			start := lx.mark()
			lx.advance(2)
			for lx.pos < len(lx.src) && !(lx.src[lx.pos] == '*' && lx.peekByte(1) == '/') {
				lx.advance(1)
			}
			if lx.pos >= len(lx.src) {
				lx.errorf(lx.finish(start), "unterminated block comment")
				return
			}
			lx.advance(2)
		default:
			return
		}
	}
}

func (lx *lexer) errorf(r ast.Region, format string, args ...any) {
	lx.errs = append(lx.errs, diag.Errorf(r, format, args...))
}

// next returns the following token.
func (lx *lexer) next() token {
	lx.skip()
	r := lx.mark()
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, region: r}
	}

	c := lx.src[lx.pos]
	switch {
	case c == '\n':
		lx.advance(1)
		return token{kind: tokEOL, region: lx.finish(r)}
	case isIdentStart(c):
		word := lx.word()
		return token{kind: tokIdent, text: word, region: lx.finish(r)}
	case (c == '.' || c == '#') && isIdentStart(lx.peekByte(1)):
		lx.advance(1)
		word := lx.word()
		kind := tokDirective
		if c == '#' {
			kind = tokHash
		}
		return token{kind: kind, text: word, region: lx.finish(r)}
	case c == '$' || isDigit(c):
		return lx.number(r)
	case c == '\'':
		return lx.char(r)
	case c == '"':
		return lx.str(r)
	}

	if op, n, ok := lexOperator(lx.src[lx.pos:]); ok {
		text := lx.src[lx.pos : lx.pos+n]
		lx.advance(n)
		return token{kind: tokOp, op: op, text: text, region: lx.finish(r)}
	}

	lx.advance(1)
	switch c {
	case ':':
		return token{kind: tokColon, text: ":", region: lx.finish(r)}
	case ',':
		return token{kind: tokComma, text: ",", region: lx.finish(r)}
	case '(':
		return token{kind: tokLParen, text: "(", region: lx.finish(r)}
	case ')':
		return token{kind: tokRParen, text: ")", region: lx.finish(r)}
	case '=':
		return token{kind: tokAssign, text: "=", region: lx.finish(r)}
	}
	return token{kind: tokIllegal, text: string(c), region: lx.finish(r)}
}

// word consumes an identifier. Dots are allowed after the first character to
// spell qualified local labels such as main.loop.
func (lx *lexer) word() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if !isIdentStart(c) && !isDigit(c) && c != '.' {
			break
		}
		lx.advance(1)
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) number(r ast.Region) token {
	start := lx.pos
	for lx.pos < len(lx.src) && (isIdentStart(lx.src[lx.pos]) || isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '$') {
		lx.advance(1)
	}
	text := lx.src[start:lx.pos]
	r = lx.finish(r)
	v, err := parseNumber(text)
	if err != nil {
		lx.errorf(r, "%v", err)
	}
	return token{kind: tokNumber, text: text, value: v, region: r}
}

// parseNumber accepts decimal, $hex, 0xhex and 0bbinary. Values wrap to 32 bits.
func parseNumber(s string) (int32, error) {
	digits := s
	base := 10
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "$"):
		digits, base = s[1:], 16
	case strings.HasPrefix(lower, "0x"):
		digits, base = s[2:], 16
	case strings.HasPrefix(lower, "0b"):
		digits, base = s[2:], 2
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil || digits == "" {
		return 0, fmt.Errorf("invalid number format: %s", s)
	}
	if v > 0xFFFFFFFF {
		return 0, fmt.Errorf("number %s does not fit in 32 bits", s)
	}
	return int32(uint32(v)), nil
}

func (lx *lexer) char(r ast.Region) token {
	lx.advance(1)
	b, ok := lx.escaped('\'')
	if !ok || lx.peekByte(0) != '\'' {
		for lx.pos < len(lx.src) && lx.src[lx.pos] != '\'' && lx.src[lx.pos] != '\n' {
			lx.advance(1)
		}
		if lx.peekByte(0) == '\'' {
			lx.advance(1)
		}
		r = lx.finish(r)
		lx.errorf(r, "invalid character literal")
		return token{kind: tokNumber, region: r}
	}
	lx.advance(1)
	return token{kind: tokNumber, text: lx.src[r.Start:lx.pos], value: int32(b), region: lx.finish(r)}
}

func (lx *lexer) str(r ast.Region) token {
	lx.advance(1)
	var sb strings.Builder
	for {
		if lx.pos >= len(lx.src) || lx.src[lx.pos] == '\n' {
			r = lx.finish(r)
			lx.errorf(r, "unterminated string")
			return token{kind: tokString, text: sb.String(), region: r}
		}
		if lx.src[lx.pos] == '"' {
			lx.advance(1)
			return token{kind: tokString, text: sb.String(), region: lx.finish(r)}
		}
		b, ok := lx.escaped('"')
		if !ok {
			lx.errorf(lx.finish(r), "invalid escape sequence")
		}
		sb.WriteByte(b)
	}
}

// escaped decodes one possibly escaped byte of a quoted literal.
func (lx *lexer) escaped(quote byte) (byte, bool) {
	c := lx.peekByte(0)
	if c == 0 || c == '\n' || c == quote {
		return 0, false
	}
	lx.advance(1)
	if c != '\\' {
		return c, true
	}
	e := lx.peekByte(0)
	lx.advance(1)
	switch e {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return e, true
	}
	return e, false
}

var operators = []struct {
	text string
	op   ast.Op
}{
	{"<<", ast.OpShl}, {">>", ast.OpShr}, {"&&", ast.OpLogAnd}, {"||", ast.OpLogOr},
	{"==", ast.OpEq}, {"!=", ast.OpNe}, {"<=", ast.OpLe}, {">=", ast.OpGe},
	{"+", ast.OpAdd}, {"-", ast.OpSub}, {"*", ast.OpMul}, {"/", ast.OpDiv}, {"%", ast.OpMod},
	{"&", ast.OpAnd}, {"|", ast.OpOr}, {"^", ast.OpXor}, {"<", ast.OpLt}, {">", ast.OpGt},
	{"~", ast.OpNot}, {"!", ast.OpLogNot},
}

func lexOperator(s string) (ast.Op, int, bool) {
	for _, o := range operators {
		if strings.HasPrefix(s, o.text) {
			return o.op, len(o.text), true
		}
	}
	return ast.OpNone, 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
