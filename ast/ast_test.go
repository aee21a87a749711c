package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    Identifier
		wantErr bool
	}{
		{in: "loop", want: Identifier{Global: "loop"}},
		{in: "_start2", want: Identifier{Global: "_start2"}},
		{in: ".inner", want: Identifier{Local: "inner"}},
		{in: "main.inner", want: Identifier{Global: "main", Local: "inner"}},
		{in: "2bad", wantErr: true},
		{in: "", wantErr: true},
		{in: "a.b.c", wantErr: true},
		{in: "main.", wantErr: true},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseIdentifier(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.in, got.String())
		})
	}
}

func TestIdentifierQualify(t *testing.T) {
	local := MustIdentifier(".loop")
	require.True(t, local.IsLocal())

	q := local.Qualify("Main")
	require.False(t, q.IsLocal())
	require.Equal(t, "Main.loop", q.String())
	require.Equal(t, "main.loop", q.Key())

	global := MustIdentifier("other")
	require.Equal(t, global, global.Qualify("main"))
}

func TestTreeReplaceChild(t *testing.T) {
	tree := NewTree()
	a := tree.New(Node{Kind: KindNumber, Value: 1})
	b := tree.New(Node{Kind: KindNumber, Value: 2})
	sum := tree.New(Node{Kind: KindBinary, Op: OpAdd, Children: []NodeID{a, b}})
	require.Equal(t, sum, tree.Node(a).Parent)

	c := tree.New(Node{Kind: KindNumber, Value: 3})
	require.True(t, tree.ReplaceChild(sum, b, c))
	require.Equal(t, []NodeID{a, c}, tree.Children(sum))
	require.Equal(t, sum, tree.Node(c).Parent)
	require.Equal(t, NoNode, tree.Node(b).Parent)
	require.False(t, tree.ReplaceChild(sum, b, c))
}

func TestTreeWalkAndUnparen(t *testing.T) {
	tree := NewTree()
	n := tree.New(Node{Kind: KindNumber, Value: 7})
	p1 := tree.New(Node{Kind: KindParen, Children: []NodeID{n}})
	p2 := tree.New(Node{Kind: KindParen, Children: []NodeID{p1}})
	require.Equal(t, n, tree.Unparen(p2))

	var seen []Kind
	tree.Walk(p2, func(id NodeID) bool {
		seen = append(seen, tree.Kind(id))
		return true
	})
	require.Equal(t, []Kind{KindParen, KindParen, KindNumber}, seen)

	seen = nil
	tree.Walk(p2, func(id NodeID) bool {
		seen = append(seen, tree.Kind(id))
		return false
	})
	require.Equal(t, []Kind{KindParen}, seen)
}

func TestRegionCover(t *testing.T) {
	a := Region{Start: 10, Length: 3, Line: 2, Column: 1}
	b := Region{Start: 4, Length: 2, Line: 1, Column: 5}
	got := a.Cover(b)
	require.Equal(t, Region{Start: 4, Length: 9, Line: 1, Column: 5}, got)
	require.Equal(t, a, a.Cover(Region{}))
	require.Equal(t, "2:1", a.String())
}
