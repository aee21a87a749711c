package expr

import (
	"strconv"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/symbols"
)

// Term is a relocatable part of an expression left after constant folding.
type Term struct {
	Name string
	// Symbol is nil for the PC pseudo symbol and for opaque function calls.
	Symbol *symbols.Symbol
	// Sign is the signed multiplier of the term in the linear form, or 1
	// when the expression is not linear.
	Sign int
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	// Absolute is set when the value is known without final placement.
	Absolute bool
	// Value is valid when Absolute is set.
	Value int32
	// Terms lists the relocatable terms of a non-absolute expression.
	Terms []Term
	// Coefficient is the sum of the term signs.
	Coefficient int
	// Linear is set when the residual is a sum of terms plus Addend.
	Linear bool
	Addend int32
}

// NeedsRelocation reports whether the value depends on placement.
//
// Terms of opposite sign are not cancelled: label-label stays relocatable
// even though its coefficient is zero.
func (a Analysis) NeedsRelocation() bool {
	return !a.Absolute
}

// Symbols returns the names of the relocatable terms.
func (a Analysis) Symbols() []string {
	out := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		out[i] = t.Name
	}
	return out
}

// Analyze decides whether the expression at id is absolute. Identifiers bound
// to address symbols, and PC, are kept as opaque terms; everything else is
// folded. Operators outside + - * / << >> & | and unary - ~ are rejected as
// an internal error once a relocatable term is involved.
func Analyze(t *ast.Tree, id ast.NodeID, r Resolver) (Analysis, error) {
	reloc, err := hasRelocatable(t, id, r)
	if err != nil {
		return Analysis{}, err
	}
	if !reloc {
		v, err := Eval(t, id, r)
		if err != nil {
			return Analysis{}, err
		}
		return Analysis{Absolute: true, Value: v}, nil
	}

	root, err := convert(t, id, r, nil)
	if err != nil {
		return Analysis{}, err
	}
	for {
		if err := fold(root); err != nil {
			return Analysis{}, err
		}
		if root.isNum {
			return Analysis{Absolute: true, Value: root.num}, nil
		}
		if !pushDown(root) {
			break
		}
	}
	return residual(root), nil
}

// hasRelocatable is the quick reject: it looks for any address symbol or PC.
func hasRelocatable(t *ast.Tree, id ast.NodeID, r Resolver) (bool, error) {
	var found bool
	var err error
	t.Walk(id, func(c ast.NodeID) bool {
		if found || err != nil {
			return false
		}
		n := t.Node(c)
		if n.Kind != ast.KindIdent {
			return true
		}
		if IsPC(n.Text) {
			found = true
			return false
		}
		var sym *symbols.Symbol
		sym, err = r.Lookup(c)
		if err == nil && sym.Kind == symbols.KindAddress {
			found = true
		}
		return false
	})
	return found, err
}

// enode is the evaluation tree used while folding. Leaves are either numbers
// or relocatable terms.
type enode struct {
	op     ast.Op
	region ast.Region
	isNum  bool
	num    int32
	term   *Term
	kids   []*enode
	parent *enode
}

func convert(t *ast.Tree, id ast.NodeID, r Resolver, parent *enode) (*enode, error) {
	id = t.Unparen(id)
	n := t.Node(id)
	e := &enode{region: n.Region, parent: parent}
	switch n.Kind {
	case ast.KindNumber, ast.KindString:
		v, err := Eval(t, id, r)
		if err != nil {
			return nil, err
		}
		e.isNum, e.num = true, v

	case ast.KindIdent:
		if IsPC(n.Text) {
			e.term = &Term{Name: "PC", Sign: 1}
			break
		}
		sym, err := r.Lookup(id)
		if err != nil {
			return nil, err
		}
		if sym.Kind == symbols.KindAddress {
			e.term = &Term{Name: sym.Name.String(), Symbol: sym, Sign: 1}
			break
		}
		v, err := symbolValue(sym, n)
		if err != nil {
			return nil, err
		}
		e.isNum, e.num = true, v

	case ast.KindCall:
		reloc, err := hasRelocatable(t, id, r)
		if err != nil {
			return nil, err
		}
		if reloc {
			e.term = &Term{Name: render(t, id), Sign: 1}
			break
		}
		v, err := Eval(t, id, r)
		if err != nil {
			return nil, err
		}
		e.isNum, e.num = true, v

	case ast.KindUnary, ast.KindBinary:
		e.op = n.Op
		for _, c := range n.Children {
			k, err := convert(t, c, r, e)
			if err != nil {
				return nil, err
			}
			e.kids = append(e.kids, k)
		}

	default:
		return nil, diag.Internalf(n.Region, "unexpected %s node in expression", n.Kind)
	}
	return e, nil
}

func foldable(op ast.Op, arity int) bool {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpShl, ast.OpShr, ast.OpAnd, ast.OpOr:
		return arity == 2
	case ast.OpNeg, ast.OpNot:
		return arity == 1
	}
	return false
}

// fold collapses every operator whose operands are all numbers.
func fold(e *enode) error {
	if e.isNum || e.term != nil {
		return nil
	}
	if !foldable(e.op, len(e.kids)) {
		return diag.Internalf(e.region, "operator %q in relocatable expression", e.op)
	}
	all := true
	for _, k := range e.kids {
		if err := fold(k); err != nil {
			return err
		}
		all = all && k.isNum
	}
	if !all {
		return nil
	}

	n := &ast.Node{Op: e.op, Region: e.region}
	var v int32
	var err error
	if len(e.kids) == 1 {
		v, err = unary(n, e.kids[0].num)
	} else {
		v, err = binary(n, e.kids[0].num, e.kids[1].num)
	}
	if err != nil {
		return err
	}
	e.isNum, e.num, e.kids = true, v, nil
	return nil
}

type precedenceClass int

const (
	classNone precedenceClass = iota
	classAdditive
	classMultiplicative
)

func classOf(e *enode) precedenceClass {
	if len(e.kids) != 2 {
		return classNone
	}
	switch e.op {
	case ast.OpAdd, ast.OpSub:
		return classAdditive
	case ast.OpMul:
		return classMultiplicative
	}
	return classNone
}

// sign is the sign child i contributes to e.
func sign(e *enode, i int) int {
	if e.op == ast.OpSub && i == 1 {
		return -1
	}
	return 1
}

func indexOf(parent, child *enode) int {
	for i, k := range parent.kids {
		if k == child {
			return i
		}
	}
	return -1
}

// pushDown performs one swap that brings two numbers under the same operator:
// for a node whose parent is in the same precedence class, whose sibling is a
// number and which has a numeric child, the non-numeric child trades places
// with the sibling. A swap only happens when both operands carry the same
// effective sign, so the value is preserved.
func pushDown(e *enode) bool {
	for _, k := range e.kids {
		if pushDown(k) {
			return true
		}
	}

	p := e.parent
	if p == nil || e.isNum || e.term != nil {
		return false
	}
	class := classOf(e)
	if class == classNone || class != classOf(p) {
		return false
	}
	self := indexOf(p, e)
	sib := p.kids[1-self]
	if !sib.isNum {
		return false
	}

	numeric := -1
	for i, k := range e.kids {
		if k.isNum {
			numeric = i
		}
	}
	if numeric < 0 {
		return false
	}
	other := 1 - numeric
	if sign(p, self)*sign(e, other) != sign(p, 1-self) {
		return false
	}

	x := e.kids[other]
	e.kids[other], p.kids[1-self] = sib, x
	sib.parent, x.parent = e, p
	return true
}

// residual describes what is left once folding stops.
func residual(root *enode) Analysis {
	a := Analysis{Linear: true}
	var walk func(e *enode, s int)
	walk = func(e *enode, s int) {
		switch {
		case e.isNum:
			a.Addend += int32(s) * e.num
			return
		case e.term != nil:
			t := *e.term
			t.Sign = s
			a.Terms = append(a.Terms, t)
			return
		}
		switch {
		case e.op == ast.OpAdd:
			walk(e.kids[0], s)
			walk(e.kids[1], s)
			return
		case e.op == ast.OpSub:
			walk(e.kids[0], s)
			walk(e.kids[1], -s)
			return
		case e.op == ast.OpNeg:
			walk(e.kids[0], -s)
			return
		case e.op == ast.OpMul && e.kids[0].isNum:
			walk(e.kids[1], s*int(e.kids[0].num))
			return
		case e.op == ast.OpMul && e.kids[1].isNum:
			walk(e.kids[0], s*int(e.kids[1].num))
			return
		}
		a.Linear = false
		for _, k := range e.kids {
			walk(k, s)
		}
	}
	walk(root, 1)

	if !a.Linear {
		a.Addend = 0
		for i := range a.Terms {
			a.Terms[i].Sign = 1
		}
	}
	for _, t := range a.Terms {
		a.Coefficient += t.Sign
	}
	return a
}

// render spells an expression subtree back as source text.
func render(t *ast.Tree, id ast.NodeID) string {
	n := t.Node(id)
	switch n.Kind {
	case ast.KindNumber:
		if n.Text != "" {
			return n.Text
		}
		return strconv.Itoa(int(n.Value))
	case ast.KindIdent, ast.KindString:
		return n.Text
	case ast.KindParen:
		return "(" + render(t, t.Child(id, 0)) + ")"
	case ast.KindUnary:
		return n.Op.String() + render(t, t.Child(id, 0))
	case ast.KindBinary:
		return render(t, t.Child(id, 0)) + n.Op.String() + render(t, t.Child(id, 1))
	case ast.KindCall:
		return n.Text + "(" + render(t, t.Child(id, 0)) + ")"
	}
	return "?"
}
