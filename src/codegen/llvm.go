// Package codegen is the fifth and final pipeline stage: it turns a lowered *ir.Module into a
// textual LLVM IR string ready for an external `llc`/`clang` (spec §1, §4.5, §6). It is the only
// package in this repo that imports tinygo.org/x/go-llvm, grounded on the teacher's
// src/ir/llvm/transform.go, which builds an llvm.Context/llvm.Module/llvm.Builder and emits
// instructions through the builder's Create* methods. Unlike the teacher, which goes on to run
// a TargetMachine and emit an object file, this stage stops at Module.String() — spec §1 hands
// object-code emission to an external toolchain.
package codegen

import (
	"fmt"

	"aero/src/ast"
	"aero/src/ir"

	"tinygo.org/x/go-llvm"
)

// dataLayout is the generic x86_64 Linux data layout spec §4.5's module header names; this repo
// never queries the host's LLVM target registry (genTargetTriple in the teacher does, to build a
// real TargetMachine for object emission, which this stage deliberately never does).
const dataLayout = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128"

const targetTriple = "x86_64-pc-linux-gnu"

// generator carries the live LLVM context across one Module's translation. Grounded on the
// teacher's genFuncBody/genExpression parameter threading (ctx, b llvm.Builder, m llvm.Module,
// fun llvm.Value), collapsed into one struct so methods don't carry four positional parameters.
type generator struct {
	ctx     llvm.Context
	builder llvm.Builder
	mod     llvm.Module

	funcs   map[string]llvm.Value // Aero function name -> declared llvm.Value.
	strs    map[string]llvm.Value // IR string-pool name (e.g. "@.str.0") -> GlobalStringPtr value.
	regs    map[string]llvm.Value // current function's register/slot name -> llvm.Value.
	blocks  map[*ir.Block]llvm.BasicBlock
	curFunc *ir.Function
}

// GenLLVM translates m into textual LLVM IR. It is the Code Generator stage's sole entry point,
// called once by the driver after semantic analysis and IR lowering succeed (spec §6).
func GenLLVM(m *ir.Module) (string, error) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	builder := ctx.NewBuilder()
	defer builder.Dispose()

	mod := ctx.NewModule(m.Name)
	mod.SetDataLayout(dataLayout)
	mod.SetTarget(targetTriple)

	g := &generator{
		ctx:     ctx,
		builder: builder,
		mod:     mod,
		funcs:   map[string]llvm.Value{},
		strs:    map[string]llvm.Value{},
	}

	g.declarePrintf()
	for _, s := range m.Strings {
		g.strs[s.Name] = builder.CreateGlobalStringPtr(s.Value, stringGlobalLabel(s.Name))
	}

	// Two passes over functions, mirroring the teacher's genFuncHeader/genFuncBody split: every
	// signature is declared before any body is defined, so forward and mutually recursive calls
	// resolve regardless of declaration order in the source file.
	for _, fn := range m.Functions {
		if err := g.declareFunc(fn); err != nil {
			return "", err
		}
	}
	for _, fn := range m.Functions {
		if err := g.defineFunc(fn); err != nil {
			return "", err
		}
	}

	return g.mod.String(), nil
}

// stringGlobalLabel strips the IR string pool's leading "@" (ir.StringConst.Name is already
// fully qualified for the package's own debug printer) since go-llvm's CreateGlobalStringPtr
// wants a bare symbol name and prepends its own sigil when rendering the module.
func stringGlobalLabel(name string) string {
	if len(name) > 0 && name[0] == '@' {
		return name[1:]
	}
	return name
}

// declarePrintf declares the C library's variadic printf, the sole external function this
// pipeline's MVP surface calls (print!/println!), mirroring the teacher's genPrintf.
func (g *generator) declarePrintf() {
	params := []llvm.Type{llvm.PointerType(g.ctx.Int8Type(), 0)}
	ftyp := llvm.FunctionType(g.ctx.Int32Type(), params, true)
	fn := llvm.AddFunction(g.mod, "printf", ftyp)
	g.funcs["printf"] = fn
}

// llvmType maps an ast.Type to its LLVM representation (spec §3's realised type set).
func (g *generator) llvmType(t ast.Type) llvm.Type {
	switch t.Kind {
	case ast.KindInt, ast.KindUint:
		w := t.Width
		if w == 0 {
			w = 64 // usize.
		}
		return g.ctx.IntType(w)
	case ast.KindFloat:
		if t.Width == 32 {
			return g.ctx.FloatType()
		}
		return g.ctx.DoubleType()
	case ast.KindBool:
		return g.ctx.Int1Type()
	case ast.KindChar:
		return g.ctx.Int8Type()
	case ast.KindStr:
		return llvm.PointerType(g.ctx.Int8Type(), 0)
	case ast.KindUnit:
		return g.ctx.VoidType()
	case ast.KindUnresolvedInt:
		return g.ctx.Int64Type()
	}
	return g.ctx.VoidType()
}

// funcRetType returns the LLVM return type a function should declare, applying spec §6's driver
// contract: `main` always returns i32 at the LLVM level regardless of its declared Aero return
// type, since the process's C-level exit code is observed from @main's return value.
func (g *generator) funcRetType(fn *ir.Function) llvm.Type {
	if fn.Name == "main" {
		return g.ctx.Int32Type()
	}
	return g.llvmType(fn.RetType)
}

// declareFunc registers fn's signature with the module, without emitting a body.
func (g *generator) declareFunc(fn *ir.Function) error {
	params := make([]llvm.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = g.llvmType(p.Type)
	}
	ftyp := llvm.FunctionType(g.funcRetType(fn), params, false)
	llfn := llvm.AddFunction(g.mod, fn.Name, ftyp)
	for i, p := range fn.Params {
		llfn.Param(i).SetName(p.Name)
	}
	g.funcs[fn.Name] = llfn
	return nil
}

// defineFunc emits fn's basic blocks and instructions. Blocks are created up front in a
// *ir.Block -> llvm.BasicBlock map (mirroring the teacher's genIf/genWhile forward-reference
// need for a branch target that hasn't been filled with instructions yet) before any
// instruction is emitted, so a branch to a not-yet-populated block resolves correctly.
func (g *generator) defineFunc(fn *ir.Function) error {
	llfn := g.funcs[fn.Name]
	g.curFunc = fn
	g.regs = map[string]llvm.Value{}
	g.blocks = map[*ir.Block]llvm.BasicBlock{}

	for _, b := range fn.Blocks {
		g.blocks[b] = llvm.AddBasicBlock(llfn, blockLabel(b.Name))
	}
	for i, p := range fn.Params {
		g.regs["%"+p.Name] = llfn.Param(i)
	}

	for _, b := range fn.Blocks {
		g.builder.SetInsertPointAtEnd(g.blocks[b])
		for _, instr := range b.Instrs {
			if err := g.emitInstr(fn, instr); err != nil {
				return fmt.Errorf("function %q: %w", fn.Name, err)
			}
		}
		if err := g.emitTerm(fn, b); err != nil {
			return fmt.Errorf("function %q: %w", fn.Name, err)
		}
	}
	return nil
}

// blockLabel strips the leading "%" ir's debug printer never adds to block names (ir.Block.Name
// is already a bare label); kept as a defensive no-op matcher for future-proofing against a
// prefixed name.
func blockLabel(name string) string {
	if len(name) > 0 && name[0] == '%' {
		return name[1:]
	}
	return name
}

// emitTerm emits b's terminator: an unconditional return, branch, conditional branch, or
// unreachable. main's
// implicit `ret` (Aero's Unit return) is rewritten into `ret i32 0` per spec §6.
func (g *generator) emitTerm(fn *ir.Function, b *ir.Block) error {
	t := b.Term
	if t == nil {
		return fmt.Errorf("block %q has no terminator", b.Name)
	}
	switch t.Kind {
	case ir.TermRet:
		if fn.Name == "main" {
			if t.Val == nil {
				g.builder.CreateRet(llvm.ConstInt(g.ctx.Int32Type(), 0, false))
				return nil
			}
			v, err := g.resolveValue(*t.Val)
			if err != nil {
				return err
			}
			g.builder.CreateRet(v)
			return nil
		}
		if t.Val == nil {
			g.builder.CreateRetVoid()
			return nil
		}
		v, err := g.resolveValue(*t.Val)
		if err != nil {
			return err
		}
		g.builder.CreateRet(v)
		return nil
	case ir.TermBr:
		g.builder.CreateBr(g.blocks[t.Target])
		return nil
	case ir.TermCondBr:
		cond, err := g.resolveValue(*t.Cond)
		if err != nil {
			return err
		}
		g.builder.CreateCondBr(cond, g.blocks[t.IfTrue], g.blocks[t.IfFalse])
		return nil
	case ir.TermUnreachable:
		g.builder.CreateUnreachable()
		return nil
	}
	return fmt.Errorf("block %q: unknown terminator kind %d", b.Name, t.Kind)
}

// resolveValue turns an ir.Value operand into an llvm.Value: either a materialised constant or a
// lookup into the current function's register map.
func (g *generator) resolveValue(v ir.Value) (llvm.Value, error) {
	switch v.Kind {
	case ir.VConstInt:
		return llvm.ConstInt(g.llvmType(v.Type.Resolved()), uint64(v.Int), true), nil
	case ir.VConstFloat:
		return llvm.ConstFloat(g.llvmType(v.Type), v.Float), nil
	case ir.VConstBool:
		return llvm.ConstInt(g.ctx.Int1Type(), uint64(v.Int), false), nil
	case ir.VConstStr:
		if s, ok := g.strs[v.Name]; ok {
			return s, nil
		}
		return llvm.Value{}, fmt.Errorf("unresolved string constant %q", v.Name)
	case ir.VGlobalFunc:
		if fn, ok := g.funcs[v.Name]; ok {
			return fn, nil
		}
		return llvm.Value{}, fmt.Errorf("unresolved function reference %q", v.Name)
	case ir.VReg:
		if r, ok := g.regs[v.Name]; ok {
			return r, nil
		}
		return llvm.Value{}, fmt.Errorf("unresolved register %q", v.Name)
	}
	return llvm.Value{}, fmt.Errorf("unknown value kind %d", v.Kind)
}

// emitInstr translates one ir.Instr into the corresponding LLVM builder call(s), recording the
// result (if any) under instr.Result for later operands to resolve.
func (g *generator) emitInstr(fn *ir.Function, instr ir.Instr) error {
	args := make([]llvm.Value, len(instr.Args))
	for i, a := range instr.Args {
		v, err := g.resolveValue(a)
		if err != nil {
			return err
		}
		args[i] = v
	}

	var result llvm.Value
	switch instr.Op {
	case ir.OpAlloca:
		result = g.builder.CreateAlloca(g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpLoad:
		result = g.builder.CreateLoad(args[0], regLabel(instr.Result))
	case ir.OpStore:
		g.builder.CreateStore(args[0], args[1])
		return nil
	case ir.OpAdd:
		result = arith(g.builder, instr.Type, args[0], args[1], regLabel(instr.Result),
			(llvm.Builder).CreateAdd, (llvm.Builder).CreateFAdd)
	case ir.OpSub:
		result = arith(g.builder, instr.Type, args[0], args[1], regLabel(instr.Result),
			(llvm.Builder).CreateSub, (llvm.Builder).CreateFSub)
	case ir.OpMul:
		result = arith(g.builder, instr.Type, args[0], args[1], regLabel(instr.Result),
			(llvm.Builder).CreateMul, (llvm.Builder).CreateFMul)
	case ir.OpDiv:
		if instr.Type.Kind == ast.KindFloat {
			result = g.builder.CreateFDiv(args[0], args[1], regLabel(instr.Result))
		} else if instr.Type.Kind == ast.KindUint {
			result = g.builder.CreateUDiv(args[0], args[1], regLabel(instr.Result))
		} else {
			result = g.builder.CreateSDiv(args[0], args[1], regLabel(instr.Result))
		}
	case ir.OpRem:
		if instr.Type.Kind == ast.KindFloat {
			result = g.builder.CreateFRem(args[0], args[1], regLabel(instr.Result))
		} else if instr.Type.Kind == ast.KindUint {
			result = g.builder.CreateURem(args[0], args[1], regLabel(instr.Result))
		} else {
			result = g.builder.CreateSRem(args[0], args[1], regLabel(instr.Result))
		}
	case ir.OpNeg:
		if instr.Type.Kind == ast.KindFloat {
			result = g.builder.CreateFNeg(args[0], regLabel(instr.Result))
		} else {
			result = g.builder.CreateNeg(args[0], regLabel(instr.Result))
		}
	case ir.OpNot:
		result = g.builder.CreateNot(args[0], regLabel(instr.Result))
	case ir.OpICmp:
		result = g.builder.CreateICmp(icmpPred(instr.Pred), args[0], args[1], regLabel(instr.Result))
	case ir.OpFCmp:
		result = g.builder.CreateFCmp(fcmpPred(instr.Pred), args[0], args[1], regLabel(instr.Result))
	case ir.OpSIToFP:
		result = g.builder.CreateSIToFP(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpFPToSI:
		result = g.builder.CreateFPToSI(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpUIToFP:
		result = g.builder.CreateUIToFP(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpFPToUI:
		result = g.builder.CreateFPToUI(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpSExt:
		result = g.builder.CreateSExt(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpZExt:
		result = g.builder.CreateZExt(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpTrunc:
		result = g.builder.CreateTrunc(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpFPExt:
		result = g.builder.CreateFPExt(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpFPTrunc:
		result = g.builder.CreateFPTrunc(args[0], g.llvmType(instr.Type), regLabel(instr.Result))
	case ir.OpCall:
		callee, ok := g.funcs[instr.Callee]
		if !ok {
			return fmt.Errorf("call to undeclared function %q", instr.Callee)
		}
		label := ""
		if instr.Result != "" {
			label = regLabel(instr.Result)
		}
		result = g.builder.CreateCall(callee, args, label)
	default:
		return fmt.Errorf("unhandled IR op %s", instr.Op)
	}

	if instr.Result != "" {
		g.regs[instr.Result] = result
	}
	return nil
}

// arith dispatches a binary arithmetic op to its integer or floating point builder method
// depending on instr.Type, since LLVM has no overloaded add/sub/mul across the two domains.
func arith(b llvm.Builder, t ast.Type, lhs, rhs llvm.Value, name string,
	intOp, floatOp func(llvm.Builder, llvm.Value, llvm.Value, string) llvm.Value) llvm.Value {
	if t.Kind == ast.KindFloat {
		return floatOp(b, lhs, rhs, name)
	}
	return intOp(b, lhs, rhs, name)
}

// regLabel strips the "%" the ir package's register/slot names carry for its own debug printer,
// since go-llvm's Create* methods take a bare name and add the sigil themselves.
func regLabel(name string) string {
	if len(name) > 0 && name[0] == '%' {
		return name[1:]
	}
	return name
}

// icmpPred maps an ir.Instr.Pred spelling to llvm.IntPredicate (spec §4.4's predicate set).
func icmpPred(p string) llvm.IntPredicate {
	switch p {
	case "eq":
		return llvm.IntEQ
	case "ne":
		return llvm.IntNE
	case "ugt":
		return llvm.IntUGT
	case "uge":
		return llvm.IntUGE
	case "ult":
		return llvm.IntULT
	case "ule":
		return llvm.IntULE
	case "sgt":
		return llvm.IntSGT
	case "sge":
		return llvm.IntSGE
	case "slt":
		return llvm.IntSLT
	case "sle":
		return llvm.IntSLE
	}
	return llvm.IntEQ
}

// fcmpPred maps an ir.Instr.Pred spelling to llvm.FloatPredicate, restricted to the ordered
// comparisons Aero's comparison operators lower to (spec §4.4: NaN never compares equal or
// ordered, matching IEEE 754 and Rust's own float comparison semantics).
func fcmpPred(p string) llvm.FloatPredicate {
	switch p {
	case "oeq":
		return llvm.FloatOEQ
	case "one":
		return llvm.FloatONE
	case "ogt":
		return llvm.FloatOGT
	case "oge":
		return llvm.FloatOGE
	case "olt":
		return llvm.FloatOLT
	case "ole":
		return llvm.FloatOLE
	}
	return llvm.FloatOEQ
}
