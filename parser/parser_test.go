package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Urethramancer/avr/ast"
	"github.com/stretchr/testify/require"
)

// sexpr renders a subtree compactly for comparisons.
func sexpr(t *ast.Tree, id ast.NodeID) string {
	n := t.Node(id)
	var head string
	switch n.Kind {
	case ast.KindNumber:
		return fmt.Sprint(n.Value)
	case ast.KindIdent:
		return n.Text
	case ast.KindString:
		return fmt.Sprintf("%q", n.Text)
	case ast.KindBinary, ast.KindUnary:
		head = n.Op.String()
	case ast.KindPointer:
		head = "ptr " + n.Text + n.Op.String()
	default:
		head = n.Kind.String()
		if n.Text != "" {
			head += " " + n.Text
		}
	}
	var b strings.Builder
	b.WriteString("(" + head)
	for _, c := range n.Children {
		b.WriteString(" " + sexpr(t, c))
	}
	b.WriteString(")")
	return b.String()
}

func parseOK(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, errs := Parse(src)
	require.Empty(t, errs)
	return tree
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"equ", ".equ X = 1+2", `(unit (equ X (+ 1 2)))`},
		{"label and instruction", "loop: rjmp loop", `(unit (label loop) (instruction rjmp loop))`},
		{"local label", ".inner: nop", `(unit (label .inner) (instruction nop))`},
		{"two operands", "LDI r16, low(RAMEND)", `(unit (instruction ldi r16 (call low RAMEND)))`},
		{"precedence", ".db 1+2*3, (4-1)<<2", `(unit (data db (+ 1 (* 2 3)) (<< (paren (- 4 1)) 2)))`},
		{"unary", ".dw -1, ~$0F, !0", `(unit (data dw (- 1) (~ 15) (! 0)))`},
		{"strings", `.db "hi", 'A', 0`, `(unit (data db "hi" 65 0))`},
		{"pointers", "ld r0, X+\nst -Y, r1\nldd r2, Z+3\nlpm r0, Z", `(unit (instruction ld r0 (ptr X+)) (instruction st (ptr Y-) r1) (instruction ldd r2 (ptr Z+q 3)) (instruction lpm r0 (ptr Z)))`},
		{"segments", ".dseg\nbuf: .byte 16\n.cseg", `(unit (segment dseg) (label buf) (reserve byte 16) (segment cseg))`},
		{"def", ".def temp = r16", `(unit (def temp r16))`},
		{"include", `.include "m328Pdef.inc"`, `(unit (include m328Pdef.inc))`},
		{"hash include", `#include "x.inc"`, `(unit (include x.inc))`},
		{"define", "#define F_CPU 16000000\n#define DEBUG", `(unit (set F_CPU 16000000) (set DEBUG 1))`},
		{"org", ".org 0x0034", `(unit (org org 52))`},
		{"message", `.warning "careful"`, `(unit (message warning "careful"))`},
		{"device", ".device ATmega328P", `(unit (device ATmega328P))`},
		{"comments", "nop ; one\n// two\n/* three\nlines */ nop", `(unit (instruction nop) (instruction nop))`},
		{"ignored", ".list\n.nolist", `(unit)`},
		{"ifdef", ".ifdef A\nnop\n.else\nret\n.endif", `(unit (conditional ifdef A (block (instruction nop)) (block (instruction ret))))`},
		{"ifndef without else", "#ifndef A\n.equ A = 1\n#endif", `(unit (conditional ifndef A (block (equ A 1)) (block)))`},
		{"macro", ".macro M\nldi r16, @0\n.endm\nnop", `(unit (macro M) (instruction nop))`},
		{"qualified reference", "rjmp main.loop", `(unit (instruction rjmp main.loop))`},
		{"local reference", "rjmp .loop", `(unit (instruction rjmp .loop))`},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			tree := parseOK(t, tc.src)
			require.Equal(t, tc.want, sexpr(tree, tree.Root()))
		})
	}
}

func TestParseNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want int32
	}{
		{"10", 10},
		{"$1F", 0x1f},
		{"0x1f", 0x1f},
		{"0b101", 5},
		{"0xFFFFFFFF", -1},
	}
	for _, tc := range tests {
		got, err := parseNumber(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
	_, err := parseNumber("0x1_0000_0000")
	require.Error(t, err)
	_, err = parseNumber("0x100000000")
	require.EqualError(t, err, "number 0x100000000 does not fit in 32 bits")
}

func TestParseRegions(t *testing.T) {
	tree := parseOK(t, "nop\n  ldi r16, 1+2")
	ins := tree.Child(tree.Root(), 1)
	r := tree.Node(ins).Region
	require.Equal(t, 2, r.Line)
	require.Equal(t, 3, r.Column)
	require.Equal(t, "ldi r16, 1+2", "nop\n  ldi r16, 1+2"[r.Start:r.End()])

	sum := tree.Child(ins, 1)
	require.Equal(t, ast.KindBinary, tree.Kind(sum))
	require.Equal(t, 12, tree.Node(sum).Region.Column)
}

func TestParseErrorRecovery(t *testing.T) {
	src := strings.Join([]string{
		"nop",
		".equ = 3",
		"ldi r16, (1+",
		"ret",
		".bogus 1",
		"rjmp 1 2",
		"reti",
	}, "\n")
	tree, errs := Parse(src)
	require.Len(t, errs, 4)
	require.Equal(t, 2, errs[0].Region.Line)
	require.Equal(t, "expected symbol name, found '='", errs[0].Message)
	require.Equal(t, 3, errs[1].Region.Line)
	require.Equal(t, 5, errs[2].Region.Line)
	require.Equal(t, "unknown directive '.bogus'", errs[2].Message)
	require.Equal(t, 6, errs[3].Region.Line)

	// The good lines survive, plus the instruction whose operand failed.
	var kept []string
	for _, c := range tree.Children(tree.Root()) {
		kept = append(kept, tree.Node(c).Text)
	}
	require.Equal(t, []string{"nop", "ldi", "ret", "rjmp", "reti"}, kept)
}

func TestParseUnbalancedConditionals(t *testing.T) {
	_, errs := Parse(".endif\nnop")
	require.Len(t, errs, 1)
	require.Equal(t, "'.endif' without matching .ifdef", errs[0].Message)

	_, errs = Parse(".ifdef X\nnop\n")
	require.Len(t, errs, 1)
	require.Equal(t, "missing .endif for '.ifdef'", errs[0].Message)
}

func TestParseLexerErrors(t *testing.T) {
	_, errs := Parse(".db \"open\n.db 'ab'\nldi r16, 0xZZ")
	require.Len(t, errs, 3)
	require.Equal(t, "unterminated string", errs[0].Message)
	require.Equal(t, "invalid character literal", errs[1].Message)
	require.Equal(t, "invalid number format: 0xZZ", errs[2].Message)
}
