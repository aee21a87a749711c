package diag

import (
	"bytes"
	"testing"

	"github.com/Urethramancer/avr/ast"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticString(t *testing.T) {
	r := ast.Region{Start: 4, Length: 2, Line: 3, Column: 7}
	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{"full", Diagnostic{SeverityError, "boom", r, "main.asm"}, "main.asm:3:7: error: boom"},
		{"no region", Diagnostic{SeverityInfo, "done", ast.Region{}, "main.asm"}, "main.asm: info: done"},
		{"no resource", Diagnostic{SeverityWarning, "hmm", r, ""}, "3:7: warning: hmm"},
		{"bare", Diagnostic{Severity: SeverityError, Message: "x"}, "error: x"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, tc.d.String(), tc.name)
	}
}

func TestListAndSort(t *testing.T) {
	var l List
	l.Report(Diagnostic{Severity: SeverityError, Message: "b", Resource: "b.inc", Region: ast.Region{Start: 1, Line: 1, Column: 2}})
	l.Report(Diagnostic{Severity: SeverityWarning, Message: "a2", Resource: "a.asm", Region: ast.Region{Start: 9, Line: 2, Column: 1}})
	l.Report(Diagnostic{Severity: SeverityInfo, Message: "a1", Resource: "a.asm"})
	require.Equal(t, 1, l.Count(SeverityError))
	require.True(t, l.HasErrors())

	ds := append([]Diagnostic(nil), l.Items()...)
	Sort(ds)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, ds))
	require.Equal(t, "a.asm: info: a1\na.asm:2:1: warning: a2\nb.inc:1:2: error: b\n", buf.String())

	l.Reset()
	require.Empty(t, l.Items())
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	require.True(t, b.Charge())
	require.False(t, b.Exhausted())
	require.True(t, b.Charge())
	require.True(t, b.Exhausted())
	require.False(t, b.Charge())
	require.Equal(t, 2, b.Count())

	unlimited := NewBudget(0)
	for i := 0; i < 1000; i++ {
		require.True(t, unlimited.Charge())
	}
}

func TestErrorDiagnostic(t *testing.T) {
	r := ast.Region{Line: 1, Column: 1}
	e := Errorf(r, "unknown symbol %q", "foo")
	require.EqualError(t, e, `unknown symbol "foo"`)
	d := e.Diagnostic("x.asm")
	require.Equal(t, SeverityError, d.Severity)
	require.Equal(t, "x.asm", d.Resource)
	require.Equal(t, SeverityWarning, Warningf(r, "w").Severity)
}

func TestInternalError(t *testing.T) {
	e := Internalf(ast.Region{Line: 4, Column: 2}, "bad %s", "tree")
	require.EqualError(t, e, "internal error at 4:2: bad tree")
	require.EqualError(t, Internalf(ast.Region{}, "x"), "internal error: x")
}
