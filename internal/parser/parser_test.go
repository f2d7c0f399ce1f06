package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minic/internal/ast"
)

func TestParseEmptyFunction(t *testing.T) {
	unit, err := Parse("test.mn", "fn main() {}")
	require.NoError(t, err)
	require.Len(t, unit.Functions, 1)
	fn := unit.Functions[0]
	assert.Equal(t, "main", fn.Name.Value)
	assert.Nil(t, fn.Return)
	assert.Empty(t, fn.Params)
	assert.Empty(t, fn.Body.Stmts)
}

func TestParseFunctionParamsAndReturn(t *testing.T) {
	unit, err := Parse("test.mn", "fn foo(p0: i64, p1: i64) -> i64 { return p0; }")
	require.NoError(t, err)
	fn := unit.Functions[0]
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "p0", fn.Params[0].Name.Value)
	assert.Equal(t, "i64", fn.Params[0].Type.Value)
	require.NotNil(t, fn.Return)
	assert.Equal(t, "i64", fn.Return.Value)
}

func TestParseLetAndAssign(t *testing.T) {
	unit, err := Parse("test.mn", "fn main() { let mut a: i64 = 0; a = a + 1; }")
	require.NoError(t, err)
	body := unit.Functions[0].Body
	require.Len(t, body.Stmts, 2)

	let, ok := body.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	assert.Equal(t, "a", let.Name.Value)
	assert.Equal(t, "i64", let.Type.Value)
	lit, ok := let.Init.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, "0", lit.Value)

	assign, ok := body.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "a", assign.Target.Value)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", string(bin.Op))
}

func TestParseIfElse(t *testing.T) {
	unit, err := Parse("test.mn", "fn main() { if (0 == 0) { } else { } }")
	require.NoError(t, err)
	body := unit.Functions[0].Body
	require.Len(t, body.Stmts, 1)
	ifStmt, ok := body.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	assert.NotNil(t, ifStmt.Else)
	cond, ok := ifStmt.Cond.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "==", string(cond.Op))
}

func TestParseWhileBreakContinue(t *testing.T) {
	src := `fn main(){
		let mut a: i64 = 0;
		while (a < 9) {
			a = a + 1;
			if (a == 23) { continue; }
		}
	}`
	unit, err := Parse("test.mn", src)
	require.NoError(t, err)
	body := unit.Functions[0].Body
	require.Len(t, body.Stmts, 2)
	whileStmt, ok := body.Stmts[1].(*ast.WhileStmt)
	require.True(t, ok)
	require.Len(t, whileStmt.Body.Stmts, 2)
	ifStmt, ok := whileStmt.Body.Stmts[1].(*ast.IfStmt)
	require.True(t, ok)
	_, ok = ifStmt.Then.Stmts[0].(*ast.ContinueStmt)
	assert.True(t, ok)
}

func TestParseCallStatementAndExpression(t *testing.T) {
	unit, err := Parse("test.mn", "fn main(){ let mut n:i64=0; n = calc() + 1; }")
	require.NoError(t, err)
	body := unit.Functions[0].Body
	assign, ok := body.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	call, ok := bin.Left.(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "calc", call.Callee.Value)
	assert.Empty(t, call.Args)
}

func TestParsePrecedence(t *testing.T) {
	unit, err := Parse("test.mn", "fn main() -> i64 { return 1 + 2 * 3; }")
	require.NoError(t, err)
	ret := unit.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	top, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", string(top.Op))
	_, ok = top.Left.(*ast.IntLit)
	assert.True(t, ok)
	_, ok = top.Right.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestParseUnaryMinus(t *testing.T) {
	unit, err := Parse("test.mn", "fn main() -> i64 { return -5; }")
	require.NoError(t, err)
	ret := unit.Functions[0].Body.Stmts[0].(*ast.ReturnStmt)
	unary, ok := ret.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	lit, ok := unary.Value.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, "5", lit.Value)
}

func TestParseErrorUnexpectedToken(t *testing.T) {
	_, err := Parse("test.mn", "fn main() { let mut a: i64 = ; }")
	require.Error(t, err)
	var parseErr *Error
	require.ErrorAs(t, err, &parseErr)
}

func TestParseErrorMissingSemicolon(t *testing.T) {
	_, err := Parse("test.mn", "fn main() { let mut a: i64 = 0 }")
	require.Error(t, err)
}

func TestParseNonAssociativeComparison(t *testing.T) {
	// a single comparison at the top of `expr` is allowed, but the grammar
	// gives no rule to chain a second one without parentheses.
	_, err := Parse("test.mn", "fn main() -> i64 { return 1 < 2 < 3; }")
	require.Error(t, err)
}
