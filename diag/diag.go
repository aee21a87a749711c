// Package diag collects and renders assembler diagnostics.
package diag

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/Urethramancer/avr/ast"
)

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Diagnostic is one message attached to a compilation unit.
type Diagnostic struct {
	Severity Severity
	Message  string
	// Region is zero when the message has no source position.
	Region ast.Region
	// Resource names the source the message belongs to.
	Resource string
}

// HasRegion reports whether the diagnostic points at source text.
func (d Diagnostic) HasRegion() bool {
	return !d.Region.IsZero()
}

func (d Diagnostic) String() string {
	switch {
	case d.Resource != "" && d.HasRegion():
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.Resource, d.Region.Line, d.Region.Column, d.Severity, d.Message)
	case d.Resource != "":
		return fmt.Sprintf("%s: %s: %s", d.Resource, d.Severity, d.Message)
	case d.HasRegion():
		return fmt.Sprintf("%d:%d: %s: %s", d.Region.Line, d.Region.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Sink receives diagnostics.
type Sink interface {
	Report(Diagnostic)
}

// List is a Sink that keeps everything it is given.
type List struct {
	items []Diagnostic
}

// Report appends d.
func (l *List) Report(d Diagnostic) {
	l.items = append(l.items, d)
}

// Items returns the recorded diagnostics in arrival order.
func (l *List) Items() []Diagnostic {
	return l.items
}

// Count returns how many diagnostics of severity s were recorded.
func (l *List) Count(s Severity) int {
	n := 0
	for _, d := range l.items {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error was recorded.
func (l *List) HasErrors() bool {
	return l.Count(SeverityError) > 0
}

// Reset drops all recorded diagnostics.
func (l *List) Reset() {
	l.items = l.items[:0]
}

// Sort orders diagnostics by resource, then position. Messages without a
// region sort before positioned ones of the same resource.
func Sort(ds []Diagnostic) {
	slices.SortStableFunc(ds, func(a, b Diagnostic) int {
		if c := cmp.Compare(a.Resource, b.Resource); c != 0 {
			return c
		}
		return cmp.Compare(a.Region.Start, b.Region.Start)
	})
}

// Render writes one line per diagnostic.
func Render(w io.Writer, ds []Diagnostic) error {
	for _, d := range ds {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	return nil
}
