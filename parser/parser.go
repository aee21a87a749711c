// Package parser turns AVR assembly source into an ast.Tree.
//
// Parsing never stops at the first problem: a syntax error is recorded with
// its region and the parser skips to the end of the line.
package parser

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
)

type parser struct {
	lx     *lexer
	tok    token
	peeked *token
	tree   *ast.Tree
	errs   []*diag.Error
	// failed is set once the current line produced an error, so recovery stays quiet.
	failed bool
}

// Parse parses a complete source file. The returned tree is usable even when
// errors were reported; broken lines are simply missing from it.
func Parse(src string) (*ast.Tree, []*diag.Error) {
	p := &parser{lx: newLexer(src), tree: ast.NewTree()}
	p.next()

	root := p.tree.New(ast.Node{Kind: ast.KindUnit, Region: ast.Region{Line: 1, Column: 1, Length: len(src)}})
	p.tree.SetRoot(root)
	for p.tok.kind != tokEOF {
		if term, ok := p.block(root, nil); ok {
			p.errorf(term.region, "%s without matching .ifdef", term.describe())
			p.recover()
		}
	}

	errs := append(p.lx.errs, p.errs...)
	slices.SortStableFunc(errs, func(a, b *diag.Error) int {
		return cmp.Compare(a.Region.Start, b.Region.Start)
	})
	return p.tree, errs
}

func (p *parser) next() {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return
	}
	p.tok = p.lx.next()
}

func (p *parser) peek() token {
	if p.peeked == nil {
		t := p.lx.next()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *parser) errorf(r ast.Region, format string, args ...any) {
	if p.failed {
		return
	}
	p.failed = true
	p.errs = append(p.errs, diag.Errorf(r, format, args...))
}

// recover skips the rest of the line, including the end-of-line token.
func (p *parser) recover() {
	for p.tok.kind != tokEOL && p.tok.kind != tokEOF {
		p.next()
	}
	if p.tok.kind == tokEOL {
		p.next()
	}
	p.failed = false
}

func (p *parser) atEnd() bool {
	return p.tok.kind == tokEOL || p.tok.kind == tokEOF
}

// endLine expects the end of a statement.
func (p *parser) endLine() {
	if !p.atEnd() {
		p.errorf(p.tok.region, "unexpected %s at end of statement", p.tok.describe())
	}
	p.recover()
}

func (p *parser) expect(kind tokenKind, what string) (token, bool) {
	t := p.tok
	if t.kind != kind {
		p.errorf(t.region, "expected %s, found %s", what, t.describe())
		return t, false
	}
	p.next()
	return t, true
}

func (p *parser) add(parent ast.NodeID, n ast.Node) ast.NodeID {
	id := p.tree.New(n)
	p.tree.AppendChild(parent, id)
	return id
}

// block parses lines into parent until end of file or one of the terminating
// directives, which is returned without being consumed.
func (p *parser) block(parent ast.NodeID, terminators []string) (token, bool) {
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokEOL {
			p.next()
			continue
		}
		if (p.tok.kind == tokDirective || p.tok.kind == tokHash) && isTerminator(p.tok.text) {
			if terminators == nil || slices.Contains(terminators, strings.ToLower(p.tok.text)) {
				return p.tok, true
			}
		}
		p.line(parent)
	}
	return p.tok, false
}

func isTerminator(word string) bool {
	switch strings.ToLower(word) {
	case "else", "endif":
		return true
	}
	return false
}

func (p *parser) line(parent ast.NodeID) {
	if (p.tok.kind == tokIdent || p.tok.kind == tokDirective) && p.peek().kind == tokColon {
		p.label(parent)
		if p.atEnd() {
			p.recover()
			return
		}
	}

	switch p.tok.kind {
	case tokDirective, tokHash:
		p.directive(parent)
	case tokIdent:
		p.instruction(parent)
		p.endLine()
	default:
		p.errorf(p.tok.region, "unexpected %s at start of statement", p.tok.describe())
		p.recover()
	}
}

func (p *parser) label(parent ast.NodeID) {
	name := p.tok.text
	if p.tok.kind == tokDirective {
		name = "." + name
	}
	r := p.tok.region
	p.next()
	r = r.Cover(p.tok.region)
	p.next()
	if _, err := ast.ParseIdentifier(name); err != nil {
		p.errorf(r, "invalid label name %q", name)
		return
	}
	p.add(parent, ast.Node{Kind: ast.KindLabel, Text: name, Region: r})
}

func (p *parser) instruction(parent ast.NodeID) {
	mn := p.tok
	p.next()
	id := p.add(parent, ast.Node{Kind: ast.KindInstruction, Text: strings.ToLower(mn.text), Region: mn.region})
	if p.atEnd() {
		return
	}
	for {
		op := p.operand()
		p.tree.AppendChild(id, op)
		n := p.tree.Node(id)
		n.Region = n.Region.Cover(p.tree.Node(op).Region)
		if p.tok.kind != tokComma {
			return
		}
		p.next()
	}
}

// isPointer reports whether word names one of the X, Y or Z pointer registers.
func isPointer(word string) bool {
	switch strings.ToUpper(word) {
	case "X", "Y", "Z":
		return true
	}
	return false
}

func (p *parser) operand() ast.NodeID {
	t := p.tok
	if t.kind == tokOp && t.op == ast.OpSub {
		if nt := p.peek(); nt.kind == tokIdent && isPointer(nt.text) {
			p.next()
			p.next()
			return p.tree.New(ast.Node{Kind: ast.KindPointer, Text: strings.ToUpper(nt.text), Op: ast.OpPreDec, Region: t.region.Cover(nt.region)})
		}
	}
	if t.kind == tokIdent && isPointer(t.text) {
		nt := p.peek()
		switch {
		case nt.kind == tokComma || nt.kind == tokEOL || nt.kind == tokEOF:
			p.next()
			return p.tree.New(ast.Node{Kind: ast.KindPointer, Text: strings.ToUpper(t.text), Region: t.region})
		case nt.kind == tokOp && nt.op == ast.OpAdd:
			p.next()
			p.next()
			r := t.region.Cover(nt.region)
			if p.atEnd() || p.tok.kind == tokComma {
				return p.tree.New(ast.Node{Kind: ast.KindPointer, Text: strings.ToUpper(t.text), Op: ast.OpPostInc, Region: r})
			}
			disp := p.expr(1)
			r = r.Cover(p.tree.Node(disp).Region)
			return p.tree.New(ast.Node{Kind: ast.KindPointer, Text: strings.ToUpper(t.text), Op: ast.OpDisplace, Region: r, Children: []ast.NodeID{disp}})
		}
	}
	return p.expr(1)
}

func binaryPrecedence(op ast.Op) int {
	switch op {
	case ast.OpLogOr:
		return 1
	case ast.OpLogAnd:
		return 2
	case ast.OpOr:
		return 3
	case ast.OpXor:
		return 4
	case ast.OpAnd:
		return 5
	case ast.OpEq, ast.OpNe:
		return 6
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return 7
	case ast.OpShl, ast.OpShr:
		return 8
	case ast.OpAdd, ast.OpSub:
		return 9
	case ast.OpMul, ast.OpDiv, ast.OpMod:
		return 10
	}
	return 0
}

// expr parses a binary expression by precedence climbing.
func (p *parser) expr(minPrec int) ast.NodeID {
	left := p.unary()
	for p.tok.kind == tokOp {
		prec := binaryPrecedence(p.tok.op)
		if prec == 0 || prec < minPrec {
			break
		}
		op := p.tok.op
		p.next()
		right := p.expr(prec + 1)
		r := p.tree.Node(left).Region.Cover(p.tree.Node(right).Region)
		left = p.tree.New(ast.Node{Kind: ast.KindBinary, Op: op, Region: r, Children: []ast.NodeID{left, right}})
	}
	return left
}

func (p *parser) unary() ast.NodeID {
	t := p.tok
	if t.kind == tokOp {
		var op ast.Op
		switch t.op {
		case ast.OpSub:
			op = ast.OpNeg
		case ast.OpNot, ast.OpLogNot:
			op = t.op
		case ast.OpAdd:
			p.next()
			return p.unary()
		}
		if op != ast.OpNone {
			p.next()
			x := p.unary()
			r := t.region.Cover(p.tree.Node(x).Region)
			return p.tree.New(ast.Node{Kind: ast.KindUnary, Op: op, Region: r, Children: []ast.NodeID{x}})
		}
	}
	return p.primary()
}

func (p *parser) primary() ast.NodeID {
	t := p.tok
	switch t.kind {
	case tokNumber:
		p.next()
		return p.tree.New(ast.Node{Kind: ast.KindNumber, Text: t.text, Value: t.value, Region: t.region})
	case tokString:
		p.next()
		return p.tree.New(ast.Node{Kind: ast.KindString, Text: t.text, Region: t.region})
	case tokIdent:
		p.next()
		if p.tok.kind == tokLParen {
			p.next()
			arg := p.expr(1)
			end, _ := p.expect(tokRParen, "')'")
			return p.tree.New(ast.Node{Kind: ast.KindCall, Text: strings.ToLower(t.text), Region: t.region.Cover(end.region), Children: []ast.NodeID{arg}})
		}
		return p.tree.New(ast.Node{Kind: ast.KindIdent, Text: t.text, Region: t.region})
	case tokDirective:
		// A local label reference such as .loop.
		p.next()
		return p.tree.New(ast.Node{Kind: ast.KindIdent, Text: "." + t.text, Region: t.region})
	case tokLParen:
		p.next()
		inner := p.expr(1)
		end, _ := p.expect(tokRParen, "')'")
		return p.tree.New(ast.Node{Kind: ast.KindParen, Region: t.region.Cover(end.region), Children: []ast.NodeID{inner}})
	}
	p.errorf(t.region, "expected expression, found %s", t.describe())
	return p.tree.New(ast.Node{Kind: ast.KindError, Region: t.region})
}
