// Package sema performs the single resolution pass over a parsed unit:
// name uniqueness, definite-declaration-before-use, loop-control placement,
// and return-type agreement, per spec.md §4.P.
package sema

import (
	"fmt"

	"minic/internal/ast"
	"minic/token"
)

// Error is a semantic error: undeclared identifier, duplicate name, a local
// declared outside a function's top-level block, break/continue outside a
// loop, return value/void mismatch, a non-comparison condition, or an arity
// mismatch against a locally defined callee.
type Error struct {
	Message string
	Pos     token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
}

// funcSig records what later calls need to check call arity.
type funcSig struct {
	paramCount int
	pos        token.Position
}

// Analyzer walks a unit once, in declaration order, accumulating errors.
// Unlike the parser it does not stop at the first error — all of a unit's
// semantic problems are reported together — but lowering never runs on a
// unit that produced any.
type Analyzer struct {
	functions map[string]funcSig
	errors    []*Error
}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{functions: make(map[string]funcSig)}
}

// Check runs the resolution pass over unit and returns every error found.
func Check(unit *ast.Unit) []*Error {
	a := New()
	a.collectFunctions(unit)
	for _, fn := range unit.Functions {
		a.checkFunction(fn)
	}
	return a.errors
}

func (a *Analyzer) collectFunctions(unit *ast.Unit) {
	for _, fn := range unit.Functions {
		if existing, ok := a.functions[fn.Name.Value]; ok {
			a.addError(fn.Name.Pos(), fmt.Sprintf("function %q already declared at %d:%d", fn.Name.Value, existing.pos.Line, existing.pos.Column))
			continue
		}
		a.functions[fn.Name.Value] = funcSig{paramCount: len(fn.Params), pos: fn.Name.Pos()}
	}
}

// scope is the set of names visible at the current point in a function:
// its parameters plus every local declared so far, in program order.
type scope struct {
	declared   map[string]bool
	returnType *ast.Ident
}

func (a *Analyzer) checkFunction(fn *ast.Function) {
	sc := &scope{declared: make(map[string]bool), returnType: fn.Return}

	seen := make(map[string]bool)
	for _, p := range fn.Params {
		if seen[p.Name.Value] {
			a.addError(p.Name.Pos(), fmt.Sprintf("duplicate parameter %q", p.Name.Value))
			continue
		}
		seen[p.Name.Value] = true
		sc.declared[p.Name.Value] = true
	}

	a.checkTopLevelBlock(fn.Body, sc, false)
}

// checkTopLevelBlock checks a function's direct body block, where `let` is
// allowed. checkNestedBlock checks everything else (if/while bodies), where
// it is not.
func (a *Analyzer) checkTopLevelBlock(block *ast.Block, sc *scope, inLoop bool) {
	a.checkBlock(block, sc, inLoop, true)
}

func (a *Analyzer) checkNestedBlock(block *ast.Block, sc *scope, inLoop bool) {
	a.checkBlock(block, sc, inLoop, false)
}

func (a *Analyzer) checkBlock(block *ast.Block, sc *scope, inLoop bool, topLevel bool) {
	for _, stmt := range block.Stmts {
		a.checkStmt(stmt, sc, inLoop, topLevel)
	}
}

func (a *Analyzer) checkStmt(stmt ast.Stmt, sc *scope, inLoop bool, topLevel bool) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if !topLevel {
			a.addError(s.Pos(), fmt.Sprintf("local %q declared outside the function's top-level block", s.Name.Value))
		}
		a.checkExpr(s.Init, sc)
		if sc.declared[s.Name.Value] {
			a.addError(s.Name.Pos(), fmt.Sprintf("local %q already declared", s.Name.Value))
		}
		sc.declared[s.Name.Value] = true

	case *ast.AssignStmt:
		if !sc.declared[s.Target.Value] {
			a.addError(s.Target.Pos(), fmt.Sprintf("undeclared identifier %q", s.Target.Value))
		}
		a.checkExpr(s.Value, sc)

	case *ast.ExprStmt:
		a.checkExpr(s.Call, sc)

	case *ast.IfStmt:
		a.checkCondition(s.Cond, sc)
		a.checkNestedBlock(s.Then, sc, inLoop)
		if s.Else != nil {
			a.checkNestedBlock(s.Else, sc, inLoop)
		}

	case *ast.WhileStmt:
		a.checkCondition(s.Cond, sc)
		a.checkNestedBlock(s.Body, sc, true)

	case *ast.BreakStmt:
		if !inLoop {
			a.addError(s.Pos(), "'break' outside a loop")
		}

	case *ast.ContinueStmt:
		if !inLoop {
			a.addError(s.Pos(), "'continue' outside a loop")
		}

	case *ast.ReturnStmt:
		if s.Value != nil {
			if sc.returnType == nil {
				a.addError(s.Pos(), "'return' with a value in a function with no return type")
			}
			a.checkExpr(s.Value, sc)
		} else if sc.returnType != nil {
			a.addError(s.Pos(), fmt.Sprintf("'return;' in a function declaring return type %q", sc.returnType.Value))
		}
	}
}

// checkCondition enforces that an if/while condition is either a comparison
// or a bare boolean literal: the condition-code opcodes the lowerers emit
// require a comparator at the top, except for the literal-true/false
// degenerate case, which the flat and graph lowerers special-case into an
// unconditional jump with no comparison at all.
func (a *Analyzer) checkCondition(cond ast.Expr, sc *scope) {
	a.checkExpr(cond, sc)
	if !isComparisonExpr(cond) && !isBoolLitExpr(cond) {
		a.addError(cond.Pos(), "condition must be a comparison")
	}
}

func isComparisonExpr(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.BinaryExpr:
		return isCompareOp(v.Op)
	case *ast.ParenExpr:
		return isComparisonExpr(v.Value)
	default:
		return false
	}
}

func isBoolLitExpr(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.BoolLit:
		return true
	case *ast.ParenExpr:
		return isBoolLitExpr(v.Value)
	default:
		return false
	}
}

func isCompareOp(op token.Type) bool {
	switch op {
	case token.EQ, token.NOT_EQ, token.LT, token.LE, token.GT, token.GE:
		return true
	default:
		return false
	}
}

func (a *Analyzer) checkExpr(expr ast.Expr, sc *scope) {
	switch e := expr.(type) {
	case *ast.IntLit, *ast.BoolLit:
		// always valid
	case *ast.IdentExpr:
		if !sc.declared[e.Name] {
			a.addError(e.Pos(), fmt.Sprintf("undeclared identifier %q", e.Name))
		}
	case *ast.BinaryExpr:
		a.checkExpr(e.Left, sc)
		a.checkExpr(e.Right, sc)
	case *ast.UnaryExpr:
		a.checkExpr(e.Value, sc)
	case *ast.ParenExpr:
		a.checkExpr(e.Value, sc)
	case *ast.CallExpr:
		for _, arg := range e.Args {
			a.checkExpr(arg, sc)
		}
		if sig, ok := a.functions[e.Callee.Value]; ok {
			if len(e.Args) != sig.paramCount {
				a.addError(e.Pos(), fmt.Sprintf("function %q expects %d argument(s), got %d", e.Callee.Value, sig.paramCount, len(e.Args)))
			}
		}
		// a callee not defined in this unit is an external collaborator and is
		// not checked for arity, matching spec.md §7's "only if the callee is
		// defined in the same unit" qualifier.
	}
}

func (a *Analyzer) addError(pos token.Position, message string) {
	a.errors = append(a.errors, &Error{Message: message, Pos: pos})
}
