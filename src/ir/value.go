// Package ir is Aero's SSA-flavored intermediate representation: basic blocks of linear
// instructions, each terminated explicitly, in the shape LLVM IR itself uses (alloca/load/store
// memory slots, icmp/fcmp with an explicit predicate, explicit widening/narrowing casts). It
// generalizes the teacher's register-based assembly LIR (src/ir/lir/{value,block,function,
// module}.go) from a hardware-register target to this memory-slot SSA form, and is deliberately
// free of any LLVM library import: the Code Generator stage (src/codegen) is the only place
// tinygo.org/x/go-llvm is used, so this package's terminator and register-naming invariants can
// be tested without it (spec §8).
package ir

import (
	"fmt"

	"aero/src/ast"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ValueKind differentiates a Value's origin: a virtual register produced by some earlier
// Instr, a literal constant, or a reference to a named global (a function or an interned
// string).
type ValueKind int

const (
	VReg ValueKind = iota
	VConstInt
	VConstFloat
	VConstBool
	VConstStr
	VGlobalFunc
)

// Value is an SSA operand: either a reference to a virtual register's name or an immediate
// constant. Instructions take Values as operands and, when they produce a result, are
// referenced as a Value via their own Result register name.
type Value struct {
	Kind  ValueKind
	Name  string  // Register name (VReg) or global symbol name (VConstStr/VGlobalFunc).
	Type  ast.Type
	Int   int64   // VConstInt payload, or 0/1 for VConstBool.
	Float float64 // VConstFloat payload.
}

// String renders a Value the way it would appear as an instruction operand.
func (v Value) String() string {
	switch v.Kind {
	case VReg:
		return v.Name
	case VConstInt:
		return fmt.Sprintf("%d", v.Int)
	case VConstFloat:
		return fmt.Sprintf("%g", v.Float)
	case VConstBool:
		return fmt.Sprintf("%t", v.Int != 0)
	case VConstStr:
		return v.Name // Interned string names already carry their "@" (see internString).
	case VGlobalFunc:
		return "@" + v.Name
	}
	return "<invalid>"
}

// Op identifies the operation an Instr performs.
type Op int

const (
	OpAlloca Op = iota
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpNot
	OpICmp // Predicate carried in Instr.Pred: "eq" "ne" "slt" "sle" "sgt" "sge" "ult" "ule" "ugt" "uge".
	OpFCmp // Predicate carried in Instr.Pred: "oeq" "one" "olt" "ole" "ogt" "oge".
	OpSIToFP
	OpFPToSI
	OpUIToFP
	OpFPToUI
	OpSExt
	OpZExt
	OpTrunc
	OpFPExt
	OpFPTrunc
	OpCall
)

// opNames names Op constants for debug printing, mirroring the teacher's aTyp/iTyp tables.
var opNames = [...]string{
	"alloca", "load", "store", "add", "sub", "mul", "div", "rem", "neg", "not",
	"icmp", "fcmp", "sitofp", "fptosi", "uitofp", "fptoui", "sext", "zext", "trunc", "fpext", "fptrunc", "call",
}

// String returns Op's mnemonic.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Instr is a single linear instruction within a Block: one operation, its operands, and the
// register it assigns (empty for instructions with no result, e.g. store).
type Instr struct {
	Op     Op
	Result string   // Virtual register name this instruction defines; "" if none.
	Type   ast.Type // Result type, or the memory slot's pointee type for OpAlloca.
	Args   []Value
	Pred   string // Comparison predicate for OpICmp/OpFCmp.
	Callee string // Target function name for OpCall.
	Hint   string // Human-readable name hint for OpAlloca (the source variable's name).
}

// String renders Instr in a textual form close to what the Code Generator eventually emits as
// LLVM IR, used by Block.String for debugging and tests.
func (i Instr) String() string {
	args := ""
	for idx, a := range i.Args {
		if idx > 0 {
			args += ", "
		}
		args += a.String()
	}
	switch i.Op {
	case OpAlloca:
		return fmt.Sprintf("%s = alloca %s ; %s", i.Result, i.Type, i.Hint)
	case OpStore:
		return fmt.Sprintf("store %s, %s", i.Args[0], i.Args[1])
	case OpCall:
		return fmt.Sprintf("%s = call %s(%s)", i.Result, i.Callee, args)
	case OpICmp, OpFCmp:
		return fmt.Sprintf("%s = %s %s %s", i.Result, i.Op, i.Pred, args)
	default:
		if i.Result == "" {
			return fmt.Sprintf("%s %s", i.Op, args)
		}
		return fmt.Sprintf("%s = %s %s", i.Result, i.Op, args)
	}
}

// TermKind differentiates a Block's possible terminators.
type TermKind int

const (
	TermRet TermKind = iota
	TermBr
	TermCondBr
	// TermUnreachable marks a block sema has already proven is never entered (every path into
	// it diverged through an explicit return), so it gets no meaningful control-flow edge.
	TermUnreachable
)

// Term is the single terminator instruction every Block must end with (spec §8's basic-block
// invariant): an unconditional return, an unconditional branch, a two-way conditional branch,
// or an unreachable marker.
type Term struct {
	Kind    TermKind
	Val     *Value // TermRet's optional return value; nil means a unit/void return.
	Cond    *Value // TermCondBr's condition.
	Target  *Block // TermBr's destination.
	IfTrue  *Block // TermCondBr's true destination.
	IfFalse *Block // TermCondBr's false destination.
}

// String renders Term for debug printing.
func (t *Term) String() string {
	switch t.Kind {
	case TermRet:
		if t.Val == nil {
			return "ret"
		}
		return fmt.Sprintf("ret %s", t.Val)
	case TermBr:
		return fmt.Sprintf("br %s", t.Target.Name)
	case TermCondBr:
		return fmt.Sprintf("br %s, %s, %s", t.Cond, t.IfTrue.Name, t.IfFalse.Name)
	case TermUnreachable:
		return "unreachable"
	}
	return "<invalid terminator>"
}
