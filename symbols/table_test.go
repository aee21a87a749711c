package symbols

import (
	"testing"

	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/objcode"
	"github.com/stretchr/testify/require"
)

type unit string

func (u unit) Name() string { return string(u) }

func TestTableParentChain(t *testing.T) {
	parent := NewTable(nil)
	child := NewTable(parent)

	x := ast.MustIdentifier("x")
	y := ast.MustIdentifier("Y")
	require.NoError(t, parent.Define(New(x, KindConstant, unit("p.asm"), 1)))
	require.NoError(t, child.Define(New(y, KindAddress, unit("c.inc"), 2)))

	got, err := child.Get(ast.MustIdentifier("X"))
	require.NoError(t, err)
	require.Equal(t, KindConstant, got.Kind)

	_, err = parent.Get(y)
	require.ErrorIs(t, err, ErrUnknownSymbol)

	_, ok := child.MaybeGet(ast.MustIdentifier("z"))
	require.False(t, ok)

	_, ok = child.Lookup(x)
	require.False(t, ok)
	require.Equal(t, parent, child.Parent())
}

func TestTableDuplicate(t *testing.T) {
	parent := NewTable(nil)
	child := NewTable(parent)
	name := ast.MustIdentifier("loop")

	first := New(name, KindAddress, unit("a.asm"), 1)
	require.NoError(t, child.Define(first))
	err := child.Define(New(name, KindConstant, unit("a.asm"), 2))

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	require.Same(t, first, dup.Existing)
	require.Equal(t, KindConstant, dup.New.Kind)
	require.EqualError(t, err, "duplicate symbol loop (already defined as address in a.asm)")

	// Same name in a distinct table is fine.
	require.NoError(t, parent.Define(New(name, KindAddress, unit("b.asm"), 3)))
}

func TestTableDeclare(t *testing.T) {
	parent := NewTable(nil)
	child := NewTable(parent)
	name := ast.MustIdentifier("later")

	inParent := New(name, KindConstant, nil, 1)
	require.NoError(t, parent.Define(inParent))
	require.Same(t, inParent, child.Declare(name, nil, 5))
	require.Equal(t, 0, child.Len())

	other := ast.MustIdentifier("fresh")
	placeholder := child.Declare(other, nil, 6)
	require.Equal(t, KindUndefined, placeholder.Kind)
	placeholder.Referenced = true
	require.Same(t, placeholder, child.Declare(other, nil, 7))

	def := New(other, KindAddress, nil, 8)
	require.NoError(t, child.Define(def))
	require.True(t, def.Referenced)
	got, err := child.Get(other)
	require.NoError(t, err)
	require.Same(t, def, got)
}

func TestTableSymbolsSorted(t *testing.T) {
	tbl := NewTable(nil)
	for _, n := range []string{"b", "C", "a"} {
		require.NoError(t, tbl.Define(New(ast.MustIdentifier(n), KindConstant, nil, 0)))
	}
	var names []string
	for _, s := range tbl.Symbols() {
		names = append(names, s.Name.String())
	}
	require.Equal(t, []string{"a", "b", "C"}, names)
}

func TestSymbolValues(t *testing.T) {
	s := New(ast.MustIdentifier("v"), KindUndefined, nil, 0)
	require.ErrorIs(t, s.SetValue(1), ErrNoKind)
	require.NoError(t, s.SetKind(KindConstant))
	require.ErrorIs(t, s.SetKind(KindAddress), ErrKindFixed)
	require.NoError(t, s.SetValue(42))
	v, ok := s.Value()
	require.True(t, ok)
	require.Equal(t, int32(42), v)
	require.Error(t, s.SetAddress(objcode.Address{}, 0))

	l := New(ast.MustIdentifier("l"), KindAddress, nil, 0)
	a, err := objcode.ByteAddress(objcode.Code, 8)
	require.NoError(t, err)
	require.NoError(t, l.SetAddress(a, 4))
	got, ok := l.Address()
	require.True(t, ok)
	require.Equal(t, a, got)
	require.Equal(t, "address l = 0x4", l.String())

	l.ClearValue()
	_, ok = l.Value()
	require.False(t, ok)
}
