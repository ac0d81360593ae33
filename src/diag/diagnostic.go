// Package diag defines the compiler's diagnostic record and a buffered accumulator for
// collecting diagnostics across a stage before deciding whether to continue (spec §7).
package diag

import (
	"aero/src/ast"
	"fmt"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Severity differentiates fatal diagnostics from advisory ones.
type Severity int

const (
	Error Severity = iota
	Warning
)

// Note attaches supplementary source context to a Diagnostic, e.g. a function's declared
// signature location for an arity-mismatch error.
type Note struct {
	Loc ast.SourceLocation
	Msg string
}

// Diagnostic is the compiler's single error/warning record (spec §6).
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Primary  ast.SourceLocation
	Notes    []Note
}

// String returns a plain single-line rendering of d; the driver is responsible for the
// richer caret-span rendering (spec §7).
func (d Diagnostic) String() string {
	sev := "error"
	if d.Severity == Warning {
		sev = "warning"
	}
	return fmt.Sprintf("%s: %s: %s (%s)", d.Primary, sev, d.Message, d.Code)
}

// ---------------------
// ----- functions -----
// ---------------------

// Errorf builds an Error-severity Diagnostic.
func Errorf(loc ast.SourceLocation, code, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: Error, Code: code, Message: fmt.Sprintf(format, args...), Primary: loc}
}

// Warnf builds a Warning-severity Diagnostic.
func Warnf(loc ast.SourceLocation, code, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...), Primary: loc}
}

// Bag is a buffered diagnostic accumulator. It adapts the teacher's util.perror shape
// (src/util/perror.go: Append/Len/Flush/Errors) to a single-threaded pipeline: spec §5 mandates
// synchronous, non-concurrent compilation, so the channel/goroutine listener perror uses to
// stay safe under parallel optimisation workers has no job to do here and is dropped.
type Bag struct {
	items []Diagnostic
}

// NewBag returns an empty Bag with room for n diagnostics preallocated.
func NewBag(n int) *Bag {
	if n < 1 {
		n = 16
	}
	return &Bag{items: make([]Diagnostic, 0, n)}
}

// Append adds d to the bag.
func (b *Bag) Append(d Diagnostic) {
	b.items = append(b.items, d)
}

// Len returns the number of diagnostics currently buffered.
func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether any buffered diagnostic is Error severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// List returns the buffered diagnostics in the order they were appended.
func (b *Bag) List() []Diagnostic {
	return b.items
}

// Flush empties the bag's buffer, retaining its backing capacity.
func (b *Bag) Flush() {
	b.items = b.items[:0]
}
