package diag

import (
	"fmt"

	"github.com/Urethramancer/avr/ast"
)

// Error is a semantic error tied to a source region. Phase handlers return it
// and the traversal turns it into a Diagnostic.
type Error struct {
	Region   ast.Region
	Severity Severity
	Message  string
}

// Errorf builds an error-severity Error.
func Errorf(r ast.Region, format string, args ...any) *Error {
	return &Error{Region: r, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// Warningf builds a warning that travels like an error but does not fail the run.
func Warningf(r ast.Region, format string, args ...any) *Error {
	return &Error{Region: r, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Message
}

// Diagnostic converts e for the named resource.
func (e *Error) Diagnostic(resource string) Diagnostic {
	return Diagnostic{Severity: e.Severity, Message: e.Message, Region: e.Region, Resource: resource}
}

// Budget counts errors against a maximum.
type Budget struct {
	max   int
	count int
}

// NewBudget returns a budget allowing max errors. A max of zero or less never runs out.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Charge records one error. It returns false when the budget was already
// exhausted and the error must be dropped.
func (b *Budget) Charge() bool {
	if b.Exhausted() {
		return false
	}
	b.count++
	return true
}

// Exhausted reports whether the maximum has been reached.
func (b *Budget) Exhausted() bool {
	return b.max > 0 && b.count >= b.max
}

// Count returns the number of charged errors.
func (b *Budget) Count() int {
	return b.count
}

// InternalError reports a defect in the assembler itself, such as a malformed
// tree. It is never charged to the error budget and aborts the run.
type InternalError struct {
	Region  ast.Region
	Message string
}

// Internalf builds an InternalError.
func Internalf(r ast.Region, format string, args ...any) *InternalError {
	return &InternalError{Region: r, Message: fmt.Sprintf(format, args...)}
}

func (e *InternalError) Error() string {
	if e.Region.IsZero() {
		return "internal error: " + e.Message
	}
	return fmt.Sprintf("internal error at %s: %s", e.Region, e.Message)
}
