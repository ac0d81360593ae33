package sema

import (
	"fmt"
	"strings"

	"aero/src/ast"
	"aero/src/diag"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Analyzer walks a parsed program twice: once to populate the function table (spec §4.3
// Phase 1), then once per function body to resolve identifiers and check types (Phase 2). It
// generalizes the teacher's ir.ValidateTree / lutExp-driven validation (src/ir/validate.go) to
// Aero's richer statement set, replacing the lookup-table compatibility check with a handful of
// small rules since Aero, unlike VSL, never implicitly mixes integers and floats.
type Analyzer struct {
	diags     *diag.Bag
	funcs     map[string]*ast.FunctionEntry
	scopes    *scopeStack
	curFunc   *ast.FunctionEntry
	loopDepth int
}

// ---------------------
// ----- functions -----
// ---------------------

// Analyze type-checks program in place, annotating its nodes (Type, Sym, Func fields), and
// returns every diagnostic raised. err is non-nil once at least one Error-severity diagnostic
// was recorded.
func Analyze(program *ast.Node) ([]diag.Diagnostic, error) {
	a := &Analyzer{
		diags:  diag.NewBag(8),
		funcs:  map[string]*ast.FunctionEntry{},
		scopes: newScopeStack(),
	}

	a.collectFunctions(program)
	for _, fn := range program.Children {
		a.analyzeFunc(fn)
	}

	if a.diags.HasErrors() {
		return a.diags.List(), fmt.Errorf("semantic analysis failed: %d diagnostic(s)", a.diags.Len())
	}
	return a.diags.List(), nil
}

// errorf records an Error-severity diagnostic at loc.
func (a *Analyzer) errorf(loc ast.SourceLocation, code, format string, args ...interface{}) {
	a.diags.Append(diag.Errorf(loc, code, format, args...))
}

// ----------------------------
// ----- Phase 1: symbols -----
// ----------------------------

// collectFunctions registers every top-level function's signature before any body is
// analyzed, so forward calls and mutual recursion resolve (spec §4.3 Phase 1, grounded on the
// teacher's single upfront pass building the Global symbol table before ValidateTree runs).
func (a *Analyzer) collectFunctions(program *ast.Node) {
	for _, fn := range program.Children {
		name := fn.Data.(string)
		if prev, ok := a.funcs[name]; ok {
			a.errorf(fn.Loc, "E-SEMA-DUPFUNC", "function %q redeclared (first declared at %s)", name, prev.DefinedAt)
			continue
		}
		entry := &ast.FunctionEntry{
			Name: name, Params: fn.Params, ReturnType: fn.RetType, DefinedAt: fn.Loc,
		}
		a.funcs[name] = entry
		fn.Func = entry

		// spec §6: "main ... lowers to an LLVM @main returning i32" — the Code Generator
		// always declares @main with an i32 return regardless of what the Aero source wrote,
		// so any other declared return type would lower a mismatched ret terminator against
		// that signature. Reject it here instead of letting an invalid module reach codegen.
		if name == "main" {
			ret := ast.TypeUnit
			if fn.HasRet {
				ret = fn.RetType
			}
			if ret.Kind != ast.KindUnit && !ret.Equal(ast.TypeInt(32)) {
				a.errorf(fn.Loc, "E-SEMA-MAINRET", "function \"main\" must return unit or i32, got %s", ret)
			}
		}
	}
}

// --------------------------
// ----- Phase 2: bodies-----
// --------------------------

// analyzeFunc checks one function body against its own signature.
func (a *Analyzer) analyzeFunc(fn *ast.Node) {
	name := fn.Data.(string)
	a.curFunc = a.funcs[name]
	if a.curFunc == nil {
		return // Duplicate declaration already reported; signature unusable.
	}

	a.scopes.push()
	for _, p := range fn.Params {
		sym := &ast.Symbol{Name: p.Name, Type: p.Type, Mutable: false, Initialized: true, ScopeDepth: a.scopes.depth()}
		a.scopes.declare(p.Name, sym)
	}

	bodyType := a.analyzeBlock(fn.Body)

	want := ast.TypeUnit
	if fn.HasRet {
		want = fn.RetType
	}
	// A body that always transfers control away through an explicit return never falls off
	// its own end, so its trailing (unit) type need not match the declared return type: each
	// return statement already had its value checked against want by analyzeReturn.
	if !compatible(bodyType, want) && !blockDiverges(fn.Body) {
		a.errorf(fn.Body.Loc, "E-SEMA-RETTYPE",
			"function %q's body evaluates to %s, expected %s", name, bodyType.Resolved(), want)
	}

	a.scopes.pop()
	a.curFunc = nil
}

// analyzeBlock pushes a new scope, checks every statement, and returns the type the block
// evaluates to: its trailing expression's type, or unit when there is none.
func (a *Analyzer) analyzeBlock(block *ast.Node) ast.Type {
	a.scopes.push()
	for _, s := range block.Stmts {
		a.analyzeStmt(s)
	}
	t := ast.TypeUnit
	if block.Trailing != nil {
		t = a.analyzeTrailing(block.Trailing)
	}
	a.scopes.pop()
	block.Type = t
	return t
}

// analyzeTrailing checks the value-producing position at the end of a block: an ordinary
// expression, a nested block, or an if/else chain used as an expression (spec §4.4's design
// note on if-as-expression).
func (a *Analyzer) analyzeTrailing(n *ast.Node) ast.Type {
	switch n.Kind {
	case ast.IfStmt:
		return a.analyzeIf(n, true)
	case ast.Block:
		return a.analyzeBlock(n)
	default:
		return a.analyzeExpr(n)
	}
}

// analyzeStmt checks a single statement. Statements never themselves produce a value that
// feeds into anything, so their resulting type (if any) is discarded.
func (a *Analyzer) analyzeStmt(s *ast.Node) {
	switch s.Kind {
	case ast.LetStmt:
		a.analyzeLet(s)
	case ast.AssignStmt:
		a.analyzeAssign(s)
	case ast.ExprStmt:
		a.analyzeExpr(s.Children[0])
	case ast.Block:
		a.analyzeBlock(s)
	case ast.IfStmt:
		a.analyzeIf(s, false)
	case ast.WhileStmt:
		a.analyzeWhile(s)
	case ast.ForStmt:
		a.analyzeFor(s)
	case ast.LoopStmt:
		a.loopDepth++
		a.analyzeBlock(s.LoopBody)
		a.loopDepth--
	case ast.BreakStmt:
		if a.loopDepth == 0 {
			a.errorf(s.Loc, "E-SEMA-BREAK", "'break' outside of a loop")
		}
	case ast.ContinueStmt:
		if a.loopDepth == 0 {
			a.errorf(s.Loc, "E-SEMA-CONTINUE", "'continue' outside of a loop")
		}
	case ast.ReturnStmt:
		a.analyzeReturn(s)
	default:
		a.errorf(s.Loc, "E-SEMA-INTERNAL", "unexpected node in statement position: %s", s)
	}
}

// analyzeLet checks `let [mut] name [: Type] [= expr];`, registering the new binding in the
// innermost scope. The declared type is the annotation when present, else the initializer's
// inferred type. An un-annotated binding initialized from a still-unresolved integer literal
// (e.g. `let a = 1;`) stays polymorphic rather than collapsing to its default width right away:
// spec §9's "monomorphic literal collapse" only has to happen once nothing further constrains
// the value, and a later concrete context — an `-> i32` return, an arithmetic operand, a typed
// parameter — is exactly such a constraint. Collapsing eagerly here would wrongly reject CI
// contract programs like `fn main() -> i32 { let a = 1; ...; return a + b + c; }`, where `a`
// must still be free to unify with `i32` at the `return`.
func (a *Analyzer) analyzeLet(s *ast.Node) {
	var initType ast.Type
	hasInit := s.Init != nil
	if hasInit {
		initType = a.analyzeExpr(s.Init)
	}

	var declared ast.Type
	switch {
	case s.HasType && hasInit:
		declared = s.Annotated
		if !compatible(initType, declared) {
			a.errorf(s.Init.Loc, "E-SEMA-LETTYPE", "cannot initialize %q of type %s with value of type %s",
				s.Data, declared, initType.Resolved())
		}
	case s.HasType && !hasInit:
		declared = s.Annotated
	case !s.HasType && hasInit:
		declared = initType
	default:
		a.errorf(s.Loc, "E-SEMA-LETINFER", "cannot infer type of %q without an initializer or type annotation", s.Data)
		declared = ast.TypeInvalid
	}

	sym := &ast.Symbol{
		Name: s.Data.(string), Type: declared, Mutable: s.Mutable,
		Initialized: hasInit, ScopeDepth: a.scopes.depth(),
	}
	s.Sym = sym
	s.Type = declared
	a.scopes.declare(sym.Name, sym)
}

// analyzeAssign checks `name = expr;` against an existing, mutable binding.
func (a *Analyzer) analyzeAssign(s *ast.Node) {
	name := s.Data.(string)
	sym := a.scopes.lookup(name)
	rhsType := a.analyzeExpr(s.Value)

	if sym == nil {
		a.errorf(s.Loc, "E-SEMA-UNDECLARED", "assignment to undeclared identifier %q", name)
		return
	}
	if !sym.Mutable {
		a.errorf(s.Loc, "E-SEMA-IMMUTABLE", "cannot assign twice to immutable binding %q", name)
	}
	if !compatible(rhsType, sym.Type) {
		a.errorf(s.Value.Loc, "E-SEMA-ASSIGNTYPE", "cannot assign value of type %s to %q of type %s",
			rhsType.Resolved(), name, sym.Type)
	}
	sym.Initialized = true
	s.Sym = sym
}

// analyzeIf checks every branch condition is bool and recursively checks each arm. When
// expr is true the chain is being used as an expression (it is a block's trailing
// construct), so a missing else or mismatched arm types are reported as errors; in statement
// position mismatched arm types are permitted, since nothing ever reads the chain's value.
func (a *Analyzer) analyzeIf(n *ast.Node, expr bool) ast.Type {
	var result ast.Type
	mismatch := false
	for i, br := range n.Branches {
		condType := a.analyzeExpr(br.Cond)
		if !condType.Equal(ast.TypeBool) {
			a.errorf(br.Cond.Loc, "E-SEMA-IFCOND", "if condition must be bool, got %s", condType.Resolved())
		}
		bt := a.analyzeBlock(br.Body)
		if i == 0 {
			result = bt
		} else if !result.Equal(bt) {
			mismatch = true
		}
	}

	if n.Else != nil {
		et := a.analyzeBlock(n.Else)
		if !result.Equal(et) {
			mismatch = true
		}
	} else if result.Kind != ast.KindUnit {
		mismatch = expr // A dangling if without else only matters when its value is read.
	}

	n.Type = result
	if expr && mismatch {
		a.errorf(n.Loc, "E-SEMA-IFTYPE", "if/else arms must all evaluate to the same type to be used as a value")
		n.Type = ast.TypeInvalid
		return ast.TypeInvalid
	}
	return result
}

// analyzeWhile checks `while cond { body }`.
func (a *Analyzer) analyzeWhile(s *ast.Node) {
	condType := a.analyzeExpr(s.Cond)
	if !condType.Equal(ast.TypeBool) {
		a.errorf(s.Cond.Loc, "E-SEMA-WHILECOND", "while condition must be bool, got %s", condType.Resolved())
	}
	a.loopDepth++
	a.analyzeBlock(s.WhileBod)
	a.loopDepth--
}

// analyzeFor checks `for x in a..b { body }` / `for x in a..=b { body }`: both range bounds
// must be the same integer type, and the loop variable is bound, immutable, to that type for
// the body's duration.
func (a *Analyzer) analyzeFor(s *ast.Node) {
	fromType := a.analyzeExpr(s.From)
	toType := a.analyzeExpr(s.To)

	if !fromType.IsInteger() || !toType.IsInteger() {
		a.errorf(s.Loc, "E-SEMA-RANGETYPE", "for-range bounds must be integers, got %s and %s",
			fromType.Resolved(), toType.Resolved())
	} else if !compatible(fromType, toType) && !compatible(toType, fromType) {
		a.errorf(s.Loc, "E-SEMA-RANGETYPE", "for-range bounds have mismatched types %s and %s",
			fromType.Resolved(), toType.Resolved())
	}

	elemType := fromType.Resolved()
	if fromType.Kind == ast.KindUnresolvedInt {
		elemType = toType.Resolved()
	}

	a.scopes.push()
	sym := &ast.Symbol{Name: s.LoopVar, Type: elemType, Mutable: false, Initialized: true, ScopeDepth: a.scopes.depth()}
	a.scopes.declare(s.LoopVar, sym)

	a.loopDepth++
	a.analyzeBlock(s.ForBody)
	a.loopDepth--
	a.scopes.pop()
}

// analyzeReturn checks a return statement's value, if any, against the enclosing function's
// declared return type.
func (a *Analyzer) analyzeReturn(s *ast.Node) {
	valType := ast.TypeUnit
	if s.Value != nil {
		valType = a.analyzeExpr(s.Value)
	}
	want := ast.TypeUnit
	if a.curFunc != nil {
		want = a.curFunc.ReturnType
	}
	if !compatible(valType, want) {
		a.errorf(s.Loc, "E-SEMA-RETURNTYPE", "return type mismatch: expected %s, got %s", want, valType.Resolved())
	}
}

// ------------------------
// ----- Expressions ------
// ------------------------

// analyzeExpr type-checks expression node n, annotates n.Type, and returns it.
func (a *Analyzer) analyzeExpr(n *ast.Node) ast.Type {
	switch n.Kind {
	case ast.IntLit, ast.FloatLit:
		return n.Type
	case ast.BoolLit:
		n.Type = ast.TypeBool
		return n.Type
	case ast.StringLit:
		n.Type = ast.TypeStr
		return n.Type
	case ast.Ident:
		return a.analyzeIdent(n)
	case ast.Unary:
		return a.analyzeUnary(n)
	case ast.Binary:
		return a.analyzeBinary(n)
	case ast.Compare:
		return a.analyzeCompare(n)
	case ast.Logical:
		return a.analyzeLogical(n)
	case ast.Call:
		return a.analyzeCall(n)
	case ast.MacroCall:
		return a.analyzeMacroCall(n)
	case ast.Cast:
		return a.analyzeCast(n)
	case ast.IfStmt:
		return a.analyzeIf(n, true)
	case ast.Block:
		return a.analyzeBlock(n)
	default:
		a.errorf(n.Loc, "E-SEMA-INTERNAL", "unexpected node in expression position: %s", n)
		n.Type = ast.TypeInvalid
		return ast.TypeInvalid
	}
}

// analyzeIdent resolves a variable reference.
func (a *Analyzer) analyzeIdent(n *ast.Node) ast.Type {
	name := n.Data.(string)
	sym := a.scopes.lookup(name)
	if sym == nil {
		a.errorf(n.Loc, "E-SEMA-UNDECLARED", "use of undeclared identifier %q", name)
		n.Type = ast.TypeInvalid
		return n.Type
	}
	if !sym.Initialized {
		a.errorf(n.Loc, "E-SEMA-USEBEFOREINIT", "use of %q before it is initialized", name)
		n.Type = ast.TypeInvalid
		return n.Type
	}
	n.Sym = sym
	n.Type = sym.Type
	return n.Type
}

// analyzeUnary checks `-expr` (numeric) and `!expr` (bool).
func (a *Analyzer) analyzeUnary(n *ast.Node) ast.Type {
	operand := a.analyzeExpr(n.Children[0])
	op := n.Data.(string)
	switch op {
	case "-":
		if !operand.IsNumeric() {
			a.errorf(n.Loc, "E-SEMA-UNARY", "unary '-' requires a numeric operand, got %s", operand.Resolved())
			n.Type = ast.TypeInvalid
			return n.Type
		}
	case "!":
		if !operand.Equal(ast.TypeBool) {
			a.errorf(n.Loc, "E-SEMA-UNARY", "unary '!' requires a bool operand, got %s", operand.Resolved())
			n.Type = ast.TypeInvalid
			return n.Type
		}
	}
	n.Type = operand
	return n.Type
}

// analyzeBinary checks `+ - * / %`: both operands must be numeric and unify to one type,
// with a polymorphic integer literal collapsing to the other operand's concrete type (spec
// §4.3's "unconstrained integer literal coerces" rule).
func (a *Analyzer) analyzeBinary(n *ast.Node) ast.Type {
	lt := a.analyzeExpr(n.Children[0])
	rt := a.analyzeExpr(n.Children[1])

	result, ok := unifyNumeric(lt, rt)
	if !ok {
		a.errorf(n.Loc, "E-SEMA-BINARY", "operator %q not defined for %s and %s",
			n.Data, lt.Resolved(), rt.Resolved())
		n.Type = ast.TypeInvalid
		return n.Type
	}
	if n.Data.(string) == "%" && result.IsFloat() {
		a.errorf(n.Loc, "E-SEMA-BINARY", "operator '%%' is not defined for floating point operands")
		n.Type = ast.TypeInvalid
		return n.Type
	}
	n.Type = result
	return n.Type
}

// analyzeCompare checks `== != < <= > >=`, always producing bool.
func (a *Analyzer) analyzeCompare(n *ast.Node) ast.Type {
	lt := a.analyzeExpr(n.Children[0])
	rt := a.analyzeExpr(n.Children[1])
	op := n.Data.(string)

	ok := false
	switch {
	case lt.IsNumeric() && rt.IsNumeric():
		_, ok = unifyNumeric(lt, rt)
	case op == "==" || op == "!=":
		ok = lt.Equal(rt)
	default:
		ok = lt.Equal(rt) && lt.IsNumeric()
	}
	if !ok {
		a.errorf(n.Loc, "E-SEMA-COMPARE", "operator %q not defined for %s and %s",
			op, lt.Resolved(), rt.Resolved())
	}
	n.Type = ast.TypeBool
	return n.Type
}

// analyzeLogical checks `&& ||`: both operands must be bool.
func (a *Analyzer) analyzeLogical(n *ast.Node) ast.Type {
	lt := a.analyzeExpr(n.Children[0])
	rt := a.analyzeExpr(n.Children[1])
	if !lt.Equal(ast.TypeBool) || !rt.Equal(ast.TypeBool) {
		a.errorf(n.Loc, "E-SEMA-LOGICAL", "operator %q requires bool operands, got %s and %s",
			n.Data, lt.Resolved(), rt.Resolved())
	}
	n.Type = ast.TypeBool
	return n.Type
}

// analyzeCall checks a function call's arity and argument types against the callee's
// registered signature.
func (a *Analyzer) analyzeCall(n *ast.Node) ast.Type {
	name := n.Data.(string)
	f, ok := a.funcs[name]
	if !ok {
		a.errorf(n.Loc, "E-SEMA-UNDECLARED", "call to undeclared function %q", name)
		for _, arg := range n.Children {
			a.analyzeExpr(arg)
		}
		n.Type = ast.TypeInvalid
		return n.Type
	}
	if len(n.Children) != len(f.Params) {
		a.errorf(n.Loc, "E-SEMA-ARITY", "function %q expects %d argument(s), got %d",
			name, len(f.Params), len(n.Children))
	}
	for i, arg := range n.Children {
		at := a.analyzeExpr(arg)
		if i < len(f.Params) && !compatible(at, f.Params[i].Type) {
			a.errorf(arg.Loc, "E-SEMA-ARGTYPE", "function %q parameter %d expects %s, got %s",
				name, i+1, f.Params[i].Type, at.Resolved())
		}
	}
	n.Func = f
	n.Type = f.ReturnType
	return n.Type
}

// analyzeMacroCall checks `print!`/`println!`'s format string against its argument count
// (spec's supplemented ambient feature: format-string placeholder checking). Each `{}` in the
// format string must pair with exactly one trailing argument.
func (a *Analyzer) analyzeMacroCall(n *ast.Node) ast.Type {
	placeholders := strings.Count(n.Format, "{}")
	if placeholders != len(n.Children) {
		a.errorf(n.Loc, "E-SEMA-FORMAT", "%s! format string has %d placeholder(s) but %d argument(s) were given",
			n.Data, placeholders, len(n.Children))
	}
	for _, arg := range n.Children {
		a.analyzeExpr(arg)
	}
	n.Type = ast.TypeUnit
	return n.Type
}

// analyzeCast checks `expr as Type`: Aero only allows explicit conversion between scalar
// numeric types (spec §4.3's "mixed concrete int × float without an explicit cast is an
// error" is the rule this expression exists to satisfy).
func (a *Analyzer) analyzeCast(n *ast.Node) ast.Type {
	from := a.analyzeExpr(n.Children[0])
	to := n.CastTo

	if to.Kind == ast.KindInvalid {
		n.Type = ast.TypeInvalid
		return n.Type
	}
	if !from.IsNumeric() || !to.IsNumeric() {
		a.errorf(n.Loc, "E-SEMA-CAST", "cannot cast %s to %s: only numeric types may be cast", from.Resolved(), to)
		n.Type = ast.TypeInvalid
		return n.Type
	}
	n.Type = to
	return n.Type
}

// --------------------------
// ----- Type utilities -----
// --------------------------

// unifyNumeric computes the result type of combining lt and rt under Aero's numeric coercion
// rule: unconstrained integer literals adopt the other operand's concrete numeric type (spec
// §4.3); two concrete types must already match exactly, since Aero never implicitly mixes
// distinct integer widths or floats and integers.
func unifyNumeric(lt, rt ast.Type) (ast.Type, bool) {
	if !lt.IsNumeric() || !rt.IsNumeric() {
		return ast.TypeInvalid, false
	}
	switch {
	case lt.Kind == ast.KindUnresolvedInt && rt.Kind == ast.KindUnresolvedInt:
		return ast.TypeUnresolvedInt, true
	case lt.Kind == ast.KindUnresolvedInt:
		return rt, true
	case rt.Kind == ast.KindUnresolvedInt:
		return lt, true
	case lt.Equal(rt):
		return lt, true
	}
	return ast.TypeInvalid, false
}

// compatible reports whether a value of type got may be used where want is expected: exact
// structural match, or an unconstrained integer literal against any numeric target. A type on
// either side already in error (KindInvalid) is treated as compatible so one mistake does not
// cascade into a wall of follow-on diagnostics.
func compatible(got, want ast.Type) bool {
	if got.Kind == ast.KindInvalid || want.Kind == ast.KindInvalid {
		return true
	}
	if got.Kind == ast.KindUnresolvedInt {
		return want.IsNumeric()
	}
	return got.Equal(want)
}

// blockDiverges reports whether block never falls off its own end: its last statement always
// transfers control away (a return, or an if/else whose every arm diverges). A trailing if/else
// chain or nested block (the parser places one that ends a block in Trailing) is checked the
// same way; any other trailing expression falls through to produce its value, so it never
// diverges.
func blockDiverges(block *ast.Node) bool {
	if block.Trailing != nil {
		if block.Trailing.Kind == ast.IfStmt || block.Trailing.Kind == ast.Block {
			return stmtDiverges(block.Trailing)
		}
		return false
	}
	if len(block.Stmts) == 0 {
		return false
	}
	return stmtDiverges(block.Stmts[len(block.Stmts)-1])
}

// stmtDiverges reports whether executing s always transfers control away rather than falling
// through to whatever follows it in its enclosing block.
func stmtDiverges(s *ast.Node) bool {
	switch s.Kind {
	case ast.ReturnStmt:
		return true
	case ast.Block:
		return blockDiverges(s)
	case ast.IfStmt:
		if s.Else == nil {
			return false
		}
		for _, br := range s.Branches {
			if !blockDiverges(br.Body) {
				return false
			}
		}
		return blockDiverges(s.Else)
	default:
		return false
	}
}
