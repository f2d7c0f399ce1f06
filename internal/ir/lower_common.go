package ir

import (
	"fmt"
	"strconv"

	"minic/internal/ast"
	"minic/token"
)

// LowerError is the IR stage's error type. LowerFlat and LowerGraph return
// no error and never construct one: they take an AST that sema has already
// accepted.
type LowerError struct {
	Message string
	Pos     token.Position
}

func (e *LowerError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
}

func condCodeFor(op token.Type) CondCode {
	switch op {
	case token.EQ:
		return CCEq
	case token.NOT_EQ:
		return CCNe
	case token.LT:
		return CCLt
	case token.LE:
		return CCLe
	case token.GT:
		return CCGt
	case token.GE:
		return CCGe
	default:
		return CCEq
	}
}

func unwrapParen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.Value
	}
}

func isBoolLit(e ast.Expr, want bool) bool {
	b, ok := unwrapParen(e).(*ast.BoolLit)
	return ok && b.Value == want
}

func isCompareBinary(e ast.Expr) (*ast.BinaryExpr, bool) {
	bin, ok := unwrapParen(e).(*ast.BinaryExpr)
	if !ok {
		return nil, false
	}
	switch bin.Op {
	case token.EQ, token.NOT_EQ, token.LT, token.LE, token.GT, token.GE:
		return bin, true
	default:
		return nil, false
	}
}

func parseIntLiteral(lit string) int64 {
	n, _ := strconv.ParseInt(lit, 10, 64)
	return n
}

func boolImm(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// scanAssignedNames collects every name that is the target of an
// AssignStmt anywhere in block, including nested if/while bodies. The
// graph lowering uses this to decide which parameters need an Alloc (every
// let-declared local always gets one; a parameter only needs one if the
// function ever reassigns it).
func scanAssignedNames(block *ast.Block) map[string]bool {
	names := make(map[string]bool)
	var walkBlock func(b *ast.Block)
	var walkStmt func(s ast.Stmt)
	walkStmt = func(s ast.Stmt) {
		switch v := s.(type) {
		case *ast.AssignStmt:
			names[v.Target.Value] = true
		case *ast.IfStmt:
			walkBlock(v.Then)
			if v.Else != nil {
				walkBlock(v.Else)
			}
		case *ast.WhileStmt:
			walkBlock(v.Body)
		}
	}
	walkBlock = func(b *ast.Block) {
		for _, s := range b.Stmts {
			walkStmt(s)
		}
	}
	walkBlock(block)
	return names
}
