package ast

import "fmt"

// SourceLocation identifies a single point in a source file (spec §3). Locations attached to
// tokens and nodes within a single file are monotonically non-decreasing.
type SourceLocation struct {
	File   string
	Line   int
	Col    int
	Offset int
}

// String returns a print-friendly "file:line:col" form used in diagnostics.
func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}
