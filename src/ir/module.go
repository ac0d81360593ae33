package ir

import "strings"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// StringConst is one interned string literal, addressable from instructions by Name. Grounded
// on the teacher's lir.Global string pool (src/ir/lir/module.go's `strings []*Global` /
// `CreateString`), which exists for the identical reason: printf's format string and any
// string-literal operand must live as a global constant, not a stack value.
type StringConst struct {
	Name  string
	Value string
}

// Module is the top-level lowered program: every function plus the pool of interned string
// constants print!/println! and string literals reference. Grounded on the teacher's lir.Module
// (src/ir/lir/module.go), minus its `sync.Mutex` (spec §5: synchronous, single-threaded
// compilation has no concurrent module writers) and its integer/float global variables (Aero's
// MVP surface has no top-level `let`, only functions — see SPEC_FULL.md's Non-goals).
type Module struct {
	Name      string
	Functions []*Function
	Strings   []StringConst
}

// ---------------------
// ----- functions -----
// ---------------------

// String returns a textual rendering of Module m, used for debug dumps and tests.
func (m *Module) String() string {
	sb := strings.Builder{}
	sb.WriteString("module ")
	sb.WriteString(m.Name)
	sb.WriteString("\n\n")
	for _, s := range m.Strings {
		sb.WriteString(s.Name)
		sb.WriteString(" = constant string ")
		sb.WriteString(quoteString(s.Value))
		sb.WriteString("\n")
	}
	if len(m.Strings) > 0 {
		sb.WriteString("\n")
	}
	for _, f := range m.Functions {
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// quoteString quotes s the way a Go string literal would be written, used only for the debug
// dump above (Module.String), not for the textual LLVM IR the Code Generator produces.
func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(strings.ReplaceAll(s, "\\", "\\\\"), "\"", "\\\"") + "\""
}
