package ir

import (
	"fmt"
	"strings"

	"aero/src/ast"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// slot records a local variable's stack allocation: the register holding its address and its
// value type.
type slot struct {
	Reg  string
	Type ast.Type
}

// generator walks a type-checked *ast.Node program and lowers it to a Module. Grounded on the
// teacher's ir/llvm/transform.go `gen`/`genIf`/`genWhile` dispatch-by-node-type recursion (same
// "switch on node kind, recurse into children" shape, same scope-stack-of-maps threading), but
// emitting into this package's own Block/Instr types instead of calling
// tinygo.org/x/go-llvm builder methods directly — see src/codegen/llvm.go for that step.
type generator struct {
	mod     *Module
	fn      *Function
	cur     *Block
	scopes  []map[string]slot
	breaks  []*Block
	continu []*Block
	strings map[string]string
}

// ---------------------
// ----- functions -----
// ---------------------

// Lower builds a Module from a type-checked program's AST.
func Lower(program *ast.Node) *Module {
	g := &generator{
		mod:     &Module{Name: "aero_module"},
		strings: map[string]string{},
	}
	for _, fnNode := range program.Children {
		g.lowerFunc(fnNode)
	}
	return g.mod
}

// pushScope/popScope/declare/lookup manage the generator's variable-name-to-slot bindings,
// mirroring sema's scopeStack but mapping to IR storage instead of type information.

func (g *generator) pushScope() { g.scopes = append(g.scopes, map[string]slot{}) }
func (g *generator) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *generator) declare(name string, s slot) {
	g.scopes[len(g.scopes)-1][name] = s
}

func (g *generator) lookup(name string) slot {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if s, ok := g.scopes[i][name]; ok {
			return s
		}
	}
	panic(fmt.Sprintf("internal error: unresolved identifier %q reached IR generation", name))
}

// emit appends instr to the current block. Once a block has a terminator no further
// instructions are appended: dead code after a return/break/continue is simply dropped, since
// nothing placed after a block's terminator can ever execute.
func (g *generator) emit(instr Instr) {
	if g.cur.Term != nil {
		return
	}
	g.cur.Instrs = append(g.cur.Instrs, instr)
}

// newBlock creates a new block in the current function under a readable, unique name and
// appends it to the function's block list.
func (g *generator) newBlock(hint string) *Block {
	b := &Block{Name: g.fn.freshBlockName(hint)}
	g.fn.Blocks = append(g.fn.Blocks, b)
	return b
}

// alloca reserves a stack slot for a local variable and returns its register name.
func (g *generator) alloca(hint string, typ ast.Type) string {
	reg := "%" + g.fn.freshSlotName(hint)
	g.emit(Instr{Op: OpAlloca, Result: reg, Type: typ, Hint: hint})
	return reg
}

// internString interns s in the module's string pool, returning its global name. Identical
// content is interned once (mirrors the teacher's CreateString, which always allocates a fresh
// global; Aero additionally dedups since print! format strings repeat often in realistic
// programs).
func (g *generator) internString(s string) string {
	if name, ok := g.strings[s]; ok {
		return name
	}
	name := fmt.Sprintf("@.str.%d", len(g.mod.Strings))
	g.mod.Strings = append(g.mod.Strings, StringConst{Name: name, Value: s})
	g.strings[s] = name
	return name
}

// --------------------------
// ----- Function bodies ----
// --------------------------

// lowerFunc lowers one top-level function definition.
func (g *generator) lowerFunc(fnNode *ast.Node) {
	retType := ast.TypeUnit
	if fnNode.HasRet {
		retType = fnNode.RetType
	}

	fn := &Function{Name: fnNode.Data.(string), RetType: retType}
	for _, p := range fnNode.Params {
		fn.Params = append(fn.Params, Param{Name: p.Name, Type: p.Type})
	}
	g.fn = fn
	g.scopes = nil
	g.pushScope()

	entry := g.newBlock("entry")
	g.cur = entry

	for _, p := range fn.Params {
		reg := g.alloca(p.Name, p.Type)
		g.emit(Instr{
			Op: OpStore, Type: p.Type,
			Args: []Value{{Kind: VReg, Name: "%" + p.Name, Type: p.Type}, {Kind: VReg, Name: reg, Type: p.Type}},
		})
		g.declare(p.Name, slot{Reg: reg, Type: p.Type})
	}

	result := g.lowerBlock(fnNode.Body)
	if g.cur.Term == nil {
		// Falling off the end of a unit function is an implicit void return, and a non-unit
		// trailing expression supplies the function's return value. Reaching the end with
		// neither only happens when every path actually diverged through an explicit return
		// (semantic analysis requires this; see sema.blockDiverges) and this trailing block is
		// the unreachable remainder of an if/else whose arms all returned.
		switch {
		case retType.Kind == ast.KindUnit:
			g.cur.Term = &Term{Kind: TermRet}
		case result != nil && result.Type.Kind != ast.KindUnit:
			v := g.coerce(*result, retType)
			g.cur.Term = &Term{Kind: TermRet, Val: &v}
		default:
			g.cur.Term = &Term{Kind: TermUnreachable}
		}
	}

	g.popScope()
	g.mod.Functions = append(g.mod.Functions, fn)
}

// lowerBlock lowers a sequence of statements followed by an optional trailing expression,
// returning the trailing expression's value (nil if the block is unit-valued, or if an earlier
// statement already terminated the block with a return/break/continue).
func (g *generator) lowerBlock(block *ast.Node) *Value {
	g.pushScope()
	defer g.popScope()

	for _, s := range block.Stmts {
		if g.cur.Term != nil {
			break
		}
		g.lowerStmt(s)
	}

	if block.Trailing != nil && g.cur.Term == nil {
		v := g.lowerTrailing(block.Trailing)
		return &v
	}
	return nil
}

// lowerTrailing lowers a block's final, value-producing construct: an ordinary expression, a
// nested block, or an if/else chain used as an expression.
func (g *generator) lowerTrailing(n *ast.Node) Value {
	switch n.Kind {
	case ast.IfStmt:
		return g.lowerIfExpr(n)
	case ast.Block:
		if v := g.lowerBlock(n); v != nil {
			return *v
		}
		return Value{Type: ast.TypeUnit}
	default:
		return g.lowerExpr(n)
	}
}

// lowerStmt lowers one statement.
func (g *generator) lowerStmt(s *ast.Node) {
	switch s.Kind {
	case ast.LetStmt:
		g.lowerLet(s)
	case ast.AssignStmt:
		g.lowerAssign(s)
	case ast.ExprStmt:
		g.lowerExpr(s.Children[0])
	case ast.Block:
		g.lowerBlock(s)
	case ast.IfStmt:
		g.lowerIfExpr(s)
	case ast.WhileStmt:
		g.lowerWhile(s)
	case ast.ForStmt:
		g.lowerFor(s)
	case ast.LoopStmt:
		g.lowerLoop(s)
	case ast.BreakStmt:
		g.cur.Term = &Term{Kind: TermBr, Target: g.breaks[len(g.breaks)-1]}
	case ast.ContinueStmt:
		g.cur.Term = &Term{Kind: TermBr, Target: g.continu[len(g.continu)-1]}
	case ast.ReturnStmt:
		var v *Value
		if s.Value != nil {
			vv := g.coerce(g.lowerExpr(s.Value), g.fn.RetType)
			v = &vv
		}
		g.cur.Term = &Term{Kind: TermRet, Val: v}
	default:
		panic(fmt.Sprintf("internal error: unexpected node in statement position: %s", s))
	}
}

// lowerLet lowers `let [mut] name [: Type] [= expr];`, allocating a fresh stack slot so that
// same-scope shadowing (spec's resolved Open Question #2) gives each `let` its own storage.
func (g *generator) lowerLet(s *ast.Node) {
	name := s.Data.(string)
	typ := s.Sym.Type
	reg := g.alloca(name, typ)
	if s.Init != nil {
		v := g.coerce(g.lowerExpr(s.Init), typ)
		g.emit(Instr{Op: OpStore, Type: typ, Args: []Value{v, {Kind: VReg, Name: reg, Type: typ}}})
	}
	g.declare(name, slot{Reg: reg, Type: typ})
}

// lowerAssign lowers `name = expr;` as a store into the existing slot.
func (g *generator) lowerAssign(s *ast.Node) {
	sl := g.lookup(s.Data.(string))
	v := g.coerce(g.lowerExpr(s.Value), sl.Type)
	g.emit(Instr{Op: OpStore, Type: sl.Type, Args: []Value{v, {Kind: VReg, Name: sl.Reg, Type: sl.Type}}})
}

// -----------------------------
// ----- Control flow shapes ---
// -----------------------------

// lowerIfExpr lowers an if/else-if/else chain, usable both as a statement (its value is
// discarded) and as a block's trailing expression (spec §4.4's design note: both arms store
// their value through a shared stack slot rather than an LLVM phi node).
func (g *generator) lowerIfExpr(n *ast.Node) Value {
	resultType := n.Type
	hasValue := n.Type.Kind != ast.KindUnit && n.Type.Kind != ast.KindInvalid

	var resultSlot string
	if hasValue {
		resultSlot = g.alloca("if.result", resultType)
	}
	contBlock := g.newBlock("if.cont")

	settle := func(body *ast.Node) {
		v := g.lowerBlock(body)
		if g.cur.Term == nil {
			if hasValue && v != nil {
				cv := g.coerce(*v, resultType)
				g.emit(Instr{Op: OpStore, Type: resultType, Args: []Value{cv, {Kind: VReg, Name: resultSlot, Type: resultType}}})
			}
			g.cur.Term = &Term{Kind: TermBr, Target: contBlock}
		}
	}

	for i, br := range n.Branches {
		armBlock := g.newBlock(fmt.Sprintf("if.then%d", i))
		var falseBlock *Block
		switch {
		case i < len(n.Branches)-1:
			falseBlock = g.newBlock(fmt.Sprintf("if.check%d", i+1))
		case n.Else != nil:
			falseBlock = g.newBlock("if.else")
		default:
			falseBlock = contBlock
		}

		cond := g.lowerExpr(br.Cond)
		g.cur.Term = &Term{Kind: TermCondBr, Cond: &cond, IfTrue: armBlock, IfFalse: falseBlock}

		g.cur = armBlock
		settle(br.Body)
		g.cur = falseBlock
	}

	if n.Else != nil {
		settle(n.Else)
	}

	g.cur = contBlock
	if !hasValue {
		return Value{Type: ast.TypeUnit}
	}
	reg := g.fn.freshReg()
	g.emit(Instr{Op: OpLoad, Result: reg, Type: resultType, Args: []Value{{Kind: VReg, Name: resultSlot, Type: resultType}}})
	return Value{Kind: VReg, Name: reg, Type: resultType}
}

// lowerWhile lowers `while cond { body }` as a condition-check block, a body block, and an
// exit block, with the condition re-evaluated at the top of every iteration.
func (g *generator) lowerWhile(s *ast.Node) {
	checkBlock := g.newBlock("while.check")
	bodyBlock := g.newBlock("while.body")
	exitBlock := g.newBlock("while.exit")

	g.cur.Term = &Term{Kind: TermBr, Target: checkBlock}

	g.cur = checkBlock
	cond := g.lowerExpr(s.Cond)
	g.cur.Term = &Term{Kind: TermCondBr, Cond: &cond, IfTrue: bodyBlock, IfFalse: exitBlock}

	g.cur = bodyBlock
	g.breaks = append(g.breaks, exitBlock)
	g.continu = append(g.continu, checkBlock)
	g.lowerBlock(s.WhileBod)
	g.breaks = g.breaks[:len(g.breaks)-1]
	g.continu = g.continu[:len(g.continu)-1]
	if g.cur.Term == nil {
		g.cur.Term = &Term{Kind: TermBr, Target: checkBlock}
	}

	g.cur = exitBlock
}

// lowerLoop lowers `loop { body }`: an unconditional back-edge with no exit test of its own;
// the only way out is `break` or `return` inside the body.
func (g *generator) lowerLoop(s *ast.Node) {
	bodyBlock := g.newBlock("loop.body")
	exitBlock := g.newBlock("loop.exit")

	g.cur.Term = &Term{Kind: TermBr, Target: bodyBlock}

	g.cur = bodyBlock
	g.breaks = append(g.breaks, exitBlock)
	g.continu = append(g.continu, bodyBlock)
	g.lowerBlock(s.LoopBody)
	g.breaks = g.breaks[:len(g.breaks)-1]
	g.continu = g.continu[:len(g.continu)-1]
	if g.cur.Term == nil {
		g.cur.Term = &Term{Kind: TermBr, Target: bodyBlock}
	}

	g.cur = exitBlock
}

// lowerFor lowers `for x in a..b { body }` / `for x in a..=b { body }` as an induction variable
// stepped in a dedicated stack slot, compared against the (inclusive) upper bound before each
// iteration.
func (g *generator) lowerFor(s *ast.Node) {
	elemType := s.From.Type.Resolved()
	if s.From.Type.Kind == ast.KindUnresolvedInt {
		elemType = s.To.Type.Resolved()
	}

	fromV := g.coerce(g.lowerExpr(s.From), elemType)
	toV := g.coerce(g.lowerExpr(s.To), elemType)

	ivSlot := g.alloca(s.LoopVar, elemType)
	g.emit(Instr{Op: OpStore, Type: elemType, Args: []Value{fromV, {Kind: VReg, Name: ivSlot, Type: elemType}}})

	checkBlock := g.newBlock("for.check")
	bodyBlock := g.newBlock("for.body")
	stepBlock := g.newBlock("for.step")
	exitBlock := g.newBlock("for.exit")

	g.cur.Term = &Term{Kind: TermBr, Target: checkBlock}

	g.cur = checkBlock
	ivReg := g.fn.freshReg()
	g.emit(Instr{Op: OpLoad, Result: ivReg, Type: elemType, Args: []Value{{Kind: VReg, Name: ivSlot, Type: elemType}}})
	iv := Value{Kind: VReg, Name: ivReg, Type: elemType}
	pred := "slt"
	if elemType.Kind == ast.KindUint {
		pred = "ult"
	}
	if s.Inclusive {
		pred = map[string]string{"slt": "sle", "ult": "ule"}[pred]
	}
	cmpReg := g.fn.freshReg()
	g.emit(Instr{Op: OpICmp, Result: cmpReg, Type: ast.TypeBool, Pred: pred, Args: []Value{iv, toV}})
	cmp := Value{Kind: VReg, Name: cmpReg, Type: ast.TypeBool}
	g.cur.Term = &Term{Kind: TermCondBr, Cond: &cmp, IfTrue: bodyBlock, IfFalse: exitBlock}

	g.cur = bodyBlock
	g.pushScope()
	g.declare(s.LoopVar, slot{Reg: ivSlot, Type: elemType})
	g.breaks = append(g.breaks, exitBlock)
	g.continu = append(g.continu, stepBlock)
	g.lowerBlock(s.ForBody)
	g.breaks = g.breaks[:len(g.breaks)-1]
	g.continu = g.continu[:len(g.continu)-1]
	g.popScope()
	if g.cur.Term == nil {
		g.cur.Term = &Term{Kind: TermBr, Target: stepBlock}
	}

	g.cur = stepBlock
	curReg := g.fn.freshReg()
	g.emit(Instr{Op: OpLoad, Result: curReg, Type: elemType, Args: []Value{{Kind: VReg, Name: ivSlot, Type: elemType}}})
	nextReg := g.fn.freshReg()
	one := Value{Kind: VConstInt, Type: elemType, Int: 1}
	g.emit(Instr{Op: OpAdd, Result: nextReg, Type: elemType,
		Args: []Value{{Kind: VReg, Name: curReg, Type: elemType}, one}})
	g.emit(Instr{Op: OpStore, Type: elemType,
		Args: []Value{{Kind: VReg, Name: nextReg, Type: elemType}, {Kind: VReg, Name: ivSlot, Type: elemType}}})
	g.cur.Term = &Term{Kind: TermBr, Target: checkBlock}

	g.cur = exitBlock
}

// -----------------------
// ----- Expressions -----
// -----------------------

// lowerExpr lowers an expression node to an SSA Value.
func (g *generator) lowerExpr(n *ast.Node) Value {
	switch n.Kind {
	case ast.IntLit:
		return Value{Kind: VConstInt, Type: n.Type.Resolved(), Int: n.Data.(int64)}
	case ast.FloatLit:
		return Value{Kind: VConstFloat, Type: n.Type, Float: n.Data.(float64)}
	case ast.BoolLit:
		b := int64(0)
		if n.Data.(bool) {
			b = 1
		}
		return Value{Kind: VConstBool, Type: ast.TypeBool, Int: b}
	case ast.StringLit:
		name := g.internString(n.Data.(string))
		return Value{Kind: VConstStr, Name: name, Type: ast.TypeStr}
	case ast.Ident:
		sl := g.lookup(n.Data.(string))
		reg := g.fn.freshReg()
		g.emit(Instr{Op: OpLoad, Result: reg, Type: sl.Type, Args: []Value{{Kind: VReg, Name: sl.Reg, Type: sl.Type}}})
		return Value{Kind: VReg, Name: reg, Type: sl.Type}
	case ast.Unary:
		return g.lowerUnary(n)
	case ast.Binary:
		return g.lowerBinary(n)
	case ast.Compare:
		return g.lowerCompare(n)
	case ast.Logical:
		return g.lowerLogical(n)
	case ast.Call:
		return g.lowerCall(n)
	case ast.MacroCall:
		return g.lowerMacroCall(n)
	case ast.Cast:
		return g.lowerCast(n)
	case ast.IfStmt:
		return g.lowerIfExpr(n)
	case ast.Block:
		if v := g.lowerBlock(n); v != nil {
			return *v
		}
		return Value{Type: ast.TypeUnit}
	}
	panic(fmt.Sprintf("internal error: unexpected node in expression position: %s", n))
}

// lowerUnary lowers `-x`/`!x`.
func (g *generator) lowerUnary(n *ast.Node) Value {
	operand := g.lowerExpr(n.Children[0])
	reg := g.fn.freshReg()
	op := OpNeg
	if n.Data.(string) == "!" {
		op = OpNot
	}
	g.emit(Instr{Op: op, Result: reg, Type: n.Type, Args: []Value{operand}})
	return Value{Kind: VReg, Name: reg, Type: n.Type}
}

// lowerBinary lowers `+ - * / %` between two already-unified numeric operands, coercing each
// side to the node's resolved result type (sema has already confirmed they unify).
func (g *generator) lowerBinary(n *ast.Node) Value {
	resultType := n.Type.Resolved()
	lhs := g.coerce(g.lowerExpr(n.Children[0]), resultType)
	rhs := g.coerce(g.lowerExpr(n.Children[1]), resultType)

	ops := map[string]Op{"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpRem}
	reg := g.fn.freshReg()
	g.emit(Instr{Op: ops[n.Data.(string)], Result: reg, Type: resultType, Args: []Value{lhs, rhs}})
	return Value{Kind: VReg, Name: reg, Type: resultType}
}

// lowerCompare lowers `== != < <= > >=`, selecting icmp/fcmp and the signed/unsigned/ordered
// predicate spelling from the (unified) operand type.
func (g *generator) lowerCompare(n *ast.Node) Value {
	lt := n.Children[0].Type
	rt := n.Children[1].Type
	operandType := lt
	if lt.Kind == ast.KindUnresolvedInt {
		operandType = rt
	}
	operandType = operandType.Resolved()

	lhs := g.coerce(g.lowerExpr(n.Children[0]), operandType)
	rhs := g.coerce(g.lowerExpr(n.Children[1]), operandType)

	op := n.Data.(string)
	var instrOp Op
	var pred string
	if operandType.Kind == ast.KindFloat {
		instrOp = OpFCmp
		pred = map[string]string{"==": "oeq", "!=": "one", "<": "olt", "<=": "ole", ">": "ogt", ">=": "oge"}[op]
	} else {
		instrOp = OpICmp
		unsigned := operandType.Kind == ast.KindUint
		switch op {
		case "==":
			pred = "eq"
		case "!=":
			pred = "ne"
		case "<":
			pred = pickSigned(unsigned, "ult", "slt")
		case "<=":
			pred = pickSigned(unsigned, "ule", "sle")
		case ">":
			pred = pickSigned(unsigned, "ugt", "sgt")
		case ">=":
			pred = pickSigned(unsigned, "uge", "sge")
		}
	}

	reg := g.fn.freshReg()
	g.emit(Instr{Op: instrOp, Result: reg, Type: ast.TypeBool, Pred: pred, Args: []Value{lhs, rhs}})
	return Value{Kind: VReg, Name: reg, Type: ast.TypeBool}
}

func pickSigned(unsigned bool, u, s string) string {
	if unsigned {
		return u
	}
	return s
}

// lowerLogical lowers `&&`/`||` with short-circuit evaluation: the right-hand side is only
// evaluated when its value could change the result, via a result slot and a branch to a lazily
// entered block, rejoining at a continuation block.
func (g *generator) lowerLogical(n *ast.Node) Value {
	resultSlot := g.alloca("logic.result", ast.TypeBool)
	rhsBlock := g.newBlock("logic.rhs")
	contBlock := g.newBlock("logic.cont")

	lhs := g.lowerExpr(n.Children[0])
	g.emit(Instr{Op: OpStore, Type: ast.TypeBool, Args: []Value{lhs, {Kind: VReg, Name: resultSlot, Type: ast.TypeBool}}})

	if n.Data.(string) == "&&" {
		g.cur.Term = &Term{Kind: TermCondBr, Cond: &lhs, IfTrue: rhsBlock, IfFalse: contBlock}
	} else {
		g.cur.Term = &Term{Kind: TermCondBr, Cond: &lhs, IfTrue: contBlock, IfFalse: rhsBlock}
	}

	g.cur = rhsBlock
	rhs := g.lowerExpr(n.Children[1])
	g.emit(Instr{Op: OpStore, Type: ast.TypeBool, Args: []Value{rhs, {Kind: VReg, Name: resultSlot, Type: ast.TypeBool}}})
	if g.cur.Term == nil {
		g.cur.Term = &Term{Kind: TermBr, Target: contBlock}
	}

	g.cur = contBlock
	reg := g.fn.freshReg()
	g.emit(Instr{Op: OpLoad, Result: reg, Type: ast.TypeBool, Args: []Value{{Kind: VReg, Name: resultSlot, Type: ast.TypeBool}}})
	return Value{Kind: VReg, Name: reg, Type: ast.TypeBool}
}

// lowerCast lowers `expr as Type`, the explicit numeric conversion sema's analyzeCast validated.
// Unlike coerce (which only ever widens/narrows within one numeric kind, since that is all
// sema's implicit-coercion rules permit), a cast may additionally cross between the integer and
// floating point domains, mirroring the teacher's genExpression print! lowering's
// CreateSIToFP/CreateFPToSI pair (src/ir/llvm/transform.go) generalized to every combination
// Aero's richer type set allows.
func (g *generator) lowerCast(n *ast.Node) Value {
	v := g.lowerExpr(n.Children[0])
	from := v.Type.Resolved()
	to := n.Type

	if from.Equal(to) {
		return v
	}

	if v.Kind == VConstInt && to.Kind == ast.KindFloat {
		return Value{Kind: VConstFloat, Type: to, Float: float64(v.Int)}
	}
	if v.Kind == VConstFloat && to.IsInteger() {
		return Value{Kind: VConstInt, Type: to, Int: int64(v.Float)}
	}
	if (v.Kind == VConstInt || v.Kind == VConstFloat) && from.Kind == to.Kind {
		v.Type = to
		return v
	}

	switch {
	case from.Kind == ast.KindInt && to.Kind == ast.KindInt,
		from.Kind == ast.KindInt && to.Kind == ast.KindUint,
		from.Kind == ast.KindUint && to.Kind == ast.KindInt:
		if from.Width < to.Width {
			op := OpZExt
			if from.Kind == ast.KindInt {
				op = OpSExt
			}
			return g.cast(v, op, to)
		}
		if from.Width > to.Width {
			return g.cast(v, OpTrunc, to)
		}
		v.Type = to
		return v
	case from.Kind == ast.KindUint && to.Kind == ast.KindUint:
		if from.Width < to.Width {
			return g.cast(v, OpZExt, to)
		}
		if from.Width > to.Width {
			return g.cast(v, OpTrunc, to)
		}
		v.Type = to
		return v
	case from.Kind == ast.KindFloat && to.Kind == ast.KindFloat:
		if from.Width < to.Width {
			return g.cast(v, OpFPExt, to)
		}
		return g.cast(v, OpFPTrunc, to)
	case from.Kind == ast.KindInt && to.Kind == ast.KindFloat:
		return g.cast(v, OpSIToFP, to)
	case from.Kind == ast.KindUint && to.Kind == ast.KindFloat:
		return g.cast(v, OpUIToFP, to)
	case from.Kind == ast.KindFloat && to.Kind == ast.KindInt:
		return g.cast(v, OpFPToSI, to)
	case from.Kind == ast.KindFloat && to.Kind == ast.KindUint:
		return g.cast(v, OpFPToUI, to)
	}
	return v
}

// lowerCall lowers a user-function call, coercing each argument to its declared parameter type.
func (g *generator) lowerCall(n *ast.Node) Value {
	var args []Value
	for i, argNode := range n.Children {
		v := g.lowerExpr(argNode)
		if i < len(n.Func.Params) {
			v = g.coerce(v, n.Func.Params[i].Type)
		}
		args = append(args, v)
	}
	if n.Func.ReturnType.Kind == ast.KindUnit {
		g.emit(Instr{Op: OpCall, Type: ast.TypeUnit, Callee: n.Func.Name, Args: args})
		return Value{Type: ast.TypeUnit}
	}
	reg := g.fn.freshReg()
	g.emit(Instr{Op: OpCall, Result: reg, Type: n.Func.ReturnType, Callee: n.Func.Name, Args: args})
	return Value{Kind: VReg, Name: reg, Type: n.Func.ReturnType}
}

// lowerMacroCall lowers `print!`/`println!` to a call against the C library's variadic printf.
// Each argument is widened to the type C varargs promotion requires (spec's supplemented
// ambient feature: i8/i16 sign-extend to 32 bits, u8/u16 zero-extend to 32 bits, bool
// zero-extends to 32 bits, f32 extends to double) before its promoted type picks the `{}` placeholder's conversion
// specifier — substituted here, while the argument's concrete type is still in hand, rather
// than deferred to the Code Generator, since two callsites sharing one format-string template
// can resolve to different specifiers once their argument types differ (spec §4.4/§4.5).
// println! additionally appends a trailing newline to the format string.
func (g *generator) lowerMacroCall(n *ast.Node) Value {
	args := make([]Value, 1, len(n.Children)+1)
	specs := make([]string, 0, len(n.Children))
	for _, argNode := range n.Children {
		v := g.promoteForVarargs(g.lowerExpr(argNode))
		specs = append(specs, specifierFor(v.Type))
		args = append(args, v)
	}

	format := substitutePlaceholders(n.Format, specs)
	if n.Data.(string) == "println" {
		format += "\n"
	}
	args[0] = Value{Kind: VConstStr, Name: g.internString(format), Type: ast.TypeStr}

	g.emit(Instr{Op: OpCall, Callee: "printf", Type: ast.TypeUnit, Args: args})
	return Value{Type: ast.TypeUnit}
}

// specifierFor picks printf's conversion specifier for a (post-promotion) argument type.
func specifierFor(t ast.Type) string {
	switch t.Kind {
	case ast.KindFloat:
		return "%f"
	case ast.KindStr:
		return "%s"
	default:
		return "%d"
	}
}

// substitutePlaceholders rewrites Aero's `{}` placeholders into printf conversion specifiers,
// one specifier per placeholder in source order; sema's analyzeMacroCall has already confirmed
// len(specs) equals the placeholder count.
func substitutePlaceholders(format string, specs []string) string {
	var sb strings.Builder
	i := 0
	for idx := 0; idx < len(format); {
		if format[idx] == '{' && idx+1 < len(format) && format[idx+1] == '}' {
			if i < len(specs) {
				sb.WriteString(specs[i])
				i++
			}
			idx += 2
			continue
		}
		sb.WriteByte(format[idx])
		idx++
	}
	return sb.String()
}

// promoteForVarargs widens v to the type C varargs promotion requires when passed through an
// unprototyped parameter list, mirroring the teacher's genExpression print! lowering
// (src/ir/llvm/transform.go) generalized from VSL's single numeric type to Aero's full width set.
func (g *generator) promoteForVarargs(v Value) Value {
	switch v.Type.Kind {
	case ast.KindInt:
		if v.Type.Width < 32 {
			return g.cast(v, OpSExt, ast.TypeInt(32))
		}
	case ast.KindUint:
		if v.Type.Width < 32 {
			return g.cast(v, OpZExt, ast.TypeUint(32))
		}
	case ast.KindFloat:
		if v.Type.Width < 64 {
			return g.cast(v, OpFPExt, ast.TypeFloat(64))
		}
	case ast.KindBool:
		return g.cast(v, OpZExt, ast.TypeInt(32))
	}
	return v
}

// cast emits a single conversion instruction and returns its result as a Value.
func (g *generator) cast(v Value, op Op, to ast.Type) Value {
	reg := g.fn.freshReg()
	g.emit(Instr{Op: op, Result: reg, Type: to, Args: []Value{v}})
	return Value{Kind: VReg, Name: reg, Type: to}
}

// coerce adapts v to the target type to, resolving unconstrained integer-literal values to a
// concrete width and inserting the corresponding widen/narrow cast when a constant of one
// concrete numeric type feeds a slot of another compatible one. sema has already rejected any
// coercion that isn't one of these (spec's numeric unification rules); this is purely the
// mechanical lowering of the same decision.
func (g *generator) coerce(v Value, to ast.Type) Value {
	if v.Type.Equal(to) {
		return v
	}
	// An unconstrained integer-literal constant feeding a float-typed slot (spec §4.3: "if one
	// operand is a concrete float and the other an unconstrained integer literal, the literal
	// coerces to that float type") must actually become a float immediate, not merely be
	// relabelled: a VConstInt's Int payload is meaningless to the Code Generator's ConstFloat
	// path, and codegen's resolveValue builds VConstInt operands with llvm.ConstInt regardless
	// of the Type tag, which would hand a float-typed instruction an integer constant.
	if v.Kind == VConstInt && to.Kind == ast.KindFloat {
		return Value{Kind: VConstFloat, Type: to, Float: float64(v.Int)}
	}
	if v.Kind == VConstInt || v.Kind == VConstFloat {
		v.Type = to
		return v
	}
	if !v.Type.IsNumeric() || !to.IsNumeric() {
		return v
	}
	// A register sourced from a symbol sema left polymorphic (an un-annotated `let` bound to a
	// still-unresolved integer literal, kept that way so it could unify with a concrete return
	// or operand context instead of collapsing too early — see sema.analyzeLet) resolves to its
	// default width here, the one place left where that default actually has to materialise as
	// a concrete LLVM type before the ordinary widen/narrow logic below can compare widths.
	if v.Type.Kind == ast.KindUnresolvedInt {
		v.Type = v.Type.Resolved()
		if v.Type.Equal(to) {
			return v
		}
	}
	switch {
	case v.Type.Kind == ast.KindInt && to.Kind == ast.KindInt:
		if v.Type.Width < to.Width {
			return g.cast(v, OpSExt, to)
		}
		return g.cast(v, OpTrunc, to)
	case v.Type.Kind == ast.KindUint && to.Kind == ast.KindUint:
		if v.Type.Width < to.Width {
			return g.cast(v, OpZExt, to)
		}
		return g.cast(v, OpTrunc, to)
	case v.Type.Kind == ast.KindFloat && to.Kind == ast.KindFloat:
		if v.Type.Width < to.Width {
			return g.cast(v, OpFPExt, to)
		}
		return g.cast(v, OpFPTrunc, to)
	}
	return v
}
