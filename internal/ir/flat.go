package ir

import (
	"minic/internal/ast"
	"minic/token"
)

// LowerFlat lowers every function in unit into the flat, linear first IR
// (spec.md §4.F): MoveImm/Move, arithmetic, Call, IfFalse/Goto with
// absolute instruction-index targets, Return/ReturnVoid.
func LowerFlat(unit *ast.Unit) *FlatProgram {
	prog := &FlatProgram{}
	for _, fn := range unit.Functions {
		prog.Functions = append(prog.Functions, lowerFlatFunction(fn))
	}
	return prog
}

type loopLabels struct{ head, exit int }

type flatLowerer struct {
	fn            *ast.Function
	instrs        []*Instruction
	nextValue     ValueID
	locals        map[string]ValueID
	returnSlot    ValueID
	hasReturnSlot bool
	loopStack     []loopLabels

	labelCounter int
	resolved     map[int]int
	pending      map[int][]int
}

func lowerFlatFunction(fn *ast.Function) *FlatFunction {
	l := &flatLowerer{
		fn:       fn,
		locals:   make(map[string]ValueID),
		resolved: make(map[int]int),
		pending:  make(map[int][]int),
	}

	if fn.Return != nil {
		l.returnSlot = l.allocSlot()
		l.hasReturnSlot = true
	}
	for _, p := range fn.Params {
		slot := l.allocSlot()
		l.locals[p.Name.Value] = slot
		s := slot
		l.emit(&Instruction{Op: OpParameter, Result: &s})
	}

	l.lowerStmts(fn.Body.Stmts)

	if !endsInReturn(fn.Body) {
		l.emit(&Instruction{Op: OpReturnVoid})
	}

	return &FlatFunction{
		Name:         fn.Name.Value,
		ParamCount:   len(fn.Params),
		HasReturn:    fn.Return != nil,
		Instructions: l.instrs,
	}
}

func endsInReturn(body *ast.Block) bool {
	if len(body.Stmts) == 0 {
		return false
	}
	_, ok := body.Stmts[len(body.Stmts)-1].(*ast.ReturnStmt)
	return ok
}

func (l *flatLowerer) allocSlot() ValueID {
	v := l.nextValue
	l.nextValue++
	return v
}

func (l *flatLowerer) emit(instr *Instruction) int {
	instr.ID = len(l.instrs)
	l.instrs = append(l.instrs, instr)
	return len(l.instrs) - 1
}

func (l *flatLowerer) newLabel() int {
	l.labelCounter++
	return l.labelCounter
}

// place records that label resolves to the current instruction count and
// patches every pending site recorded against it so far.
func (l *flatLowerer) place(label int) {
	pos := len(l.instrs)
	l.resolved[label] = pos
	for _, idx := range l.pending[label] {
		l.instrs[idx].Target = pos
	}
	delete(l.pending, label)
}

// branchTo sets instrIdx's branch target to label, immediately if label is
// already resolved (a backward branch), or as a pending fix-up otherwise.
func (l *flatLowerer) branchTo(instrIdx int, label int) {
	if pos, ok := l.resolved[label]; ok {
		l.instrs[instrIdx].Target = pos
		return
	}
	l.pending[label] = append(l.pending[label], instrIdx)
}

func (l *flatLowerer) lowerStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		l.lowerStmt(s)
	}
}

func (l *flatLowerer) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		vL := l.allocSlot()
		vT := l.allocSlot()
		l.lowerExprTo(vT, s.Init)
		l.locals[s.Name.Value] = vL
		l.emit(&Instruction{Op: OpMove, Inputs: []ValueID{vT}, Result: &vL})

	case *ast.AssignStmt:
		vX := l.locals[s.Target.Value]
		vT, _ := l.lowerExpr(s.Value)
		l.emit(&Instruction{Op: OpMove, Inputs: []ValueID{vT}, Result: &vX})

	case *ast.ExprStmt:
		l.lowerExpr(s.Call)

	case *ast.IfStmt:
		l.lowerIf(s)

	case *ast.WhileStmt:
		l.lowerWhile(s)

	case *ast.BreakStmt:
		top := l.loopStack[len(l.loopStack)-1]
		idx := l.emit(&Instruction{Op: OpGoto})
		l.branchTo(idx, top.exit)

	case *ast.ContinueStmt:
		top := l.loopStack[len(l.loopStack)-1]
		idx := l.emit(&Instruction{Op: OpGoto})
		l.branchTo(idx, top.head)

	case *ast.ReturnStmt:
		if s.Value != nil {
			l.lowerExprTo(l.returnSlot, s.Value)
			rs := l.returnSlot
			l.emit(&Instruction{Op: OpReturn, Inputs: []ValueID{rs}})
		} else {
			l.emit(&Instruction{Op: OpReturnVoid})
		}
	}
}

func (l *flatLowerer) lowerIf(s *ast.IfStmt) {
	elseLabel := l.newLabel()
	switch {
	case isBoolLit(s.Cond, true):
		// no comparison emitted; the then-branch is always taken.
	case isBoolLit(s.Cond, false):
		idx := l.emit(&Instruction{Op: OpGoto})
		l.branchTo(idx, elseLabel)
	default:
		vA, cc, vB := l.lowerCondition(s.Cond)
		ifIdx := l.emit(&Instruction{Op: OpIfFalse, Inputs: []ValueID{vA, vB}, CC: &cc})
		l.branchTo(ifIdx, elseLabel)
	}

	l.lowerStmts(s.Then.Stmts)

	if s.Else != nil {
		endLabel := l.newLabel()
		gotoIdx := l.emit(&Instruction{Op: OpGoto})
		l.branchTo(gotoIdx, endLabel)
		l.place(elseLabel)
		l.lowerStmts(s.Else.Stmts)
		l.place(endLabel)
	} else {
		l.place(elseLabel)
	}
}

func (l *flatLowerer) lowerWhile(s *ast.WhileStmt) {
	head := l.newLabel()
	exit := l.newLabel()
	l.place(head)

	switch {
	case isBoolLit(s.Cond, true):
		// no comparison emitted; body falls straight through every iteration.
	case isBoolLit(s.Cond, false):
		idx := l.emit(&Instruction{Op: OpGoto})
		l.branchTo(idx, exit)
	default:
		vA, cc, vB := l.lowerCondition(s.Cond)
		idx := l.emit(&Instruction{Op: OpIfFalse, Inputs: []ValueID{vA, vB}, CC: &cc})
		l.branchTo(idx, exit)
	}

	l.loopStack = append(l.loopStack, loopLabels{head: head, exit: exit})
	l.lowerStmts(s.Body.Stmts)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	gotoIdx := l.emit(&Instruction{Op: OpGoto})
	l.branchTo(gotoIdx, head)
	l.place(exit)
}

func (l *flatLowerer) lowerCondition(cond ast.Expr) (ValueID, CondCode, ValueID) {
	bin, _ := isCompareBinary(cond)
	vA, _ := l.lowerExpr(bin.Left)
	vB, _ := l.lowerExpr(bin.Right)
	return vA, condCodeFor(bin.Op), vB
}

// lowerExpr lowers expr into a fresh value slot and returns it, except for
// a bare identifier read, which reuses the variable's existing slot with no
// instruction at all (spec.md §4.F rule 3: "no explicit load in the flat IR").
func (l *flatLowerer) lowerExpr(expr ast.Expr) (ValueID, bool) {
	switch e := expr.(type) {
	case *ast.IdentExpr:
		return l.locals[e.Name], true
	case *ast.ParenExpr:
		return l.lowerExpr(e.Value)
	default:
		dst := l.allocSlot()
		l.lowerExprTo(dst, expr)
		return dst, true
	}
}

// lowerExprTo lowers expr so its final value lands in the caller-chosen
// slot dst, used for `let` initializer temporaries, the function's reserved
// return slot, and the fresh slots lowerExpr allocates. Assignments lower
// into a fresh slot and then Move it into the target.
func (l *flatLowerer) lowerExprTo(dst ValueID, expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.IntLit:
		n := parseIntLiteral(e.Value)
		l.emit(&Instruction{Op: OpMoveImm, Imm: &n, Result: &dst})

	case *ast.BoolLit:
		n := boolImm(e.Value)
		l.emit(&Instruction{Op: OpMoveImm, Imm: &n, Result: &dst})

	case *ast.IdentExpr:
		src := l.locals[e.Name]
		l.emit(&Instruction{Op: OpMove, Inputs: []ValueID{src}, Result: &dst})

	case *ast.ParenExpr:
		l.lowerExprTo(dst, e.Value)

	case *ast.UnaryExpr:
		operand, _ := l.lowerExpr(e.Value)
		l.emit(&Instruction{Op: OpNeg, Inputs: []ValueID{operand}, Result: &dst})

	case *ast.CallExpr:
		var args []ValueID
		for _, a := range e.Args {
			v, _ := l.lowerExpr(a)
			args = append(args, v)
		}
		l.emit(&Instruction{Op: OpCall, Inputs: args, Result: &dst, Callee: e.Callee.Value})

	case *ast.BinaryExpr:
		if op, ok := arithmeticOpcode(e.Op); ok {
			left, _ := l.lowerExpr(e.Left)
			right, _ := l.lowerExpr(e.Right)
			l.emit(&Instruction{Op: op, Inputs: []ValueID{left, right}, Result: &dst})
			return
		}
		// a comparison used as a plain value (legal per the grammar outside
		// if/while conditions, since booleans are not first-class in the IR):
		// materialize it as 0/1 through the same IfFalse machinery conditions use.
		l.lowerBoolValueTo(dst, e)
	}
}

func (l *flatLowerer) lowerBoolValueTo(dst ValueID, bin *ast.BinaryExpr) {
	vA, _ := l.lowerExpr(bin.Left)
	vB, _ := l.lowerExpr(bin.Right)
	cc := condCodeFor(bin.Op)
	falseLabel := l.newLabel()
	joinLabel := l.newLabel()

	idx := l.emit(&Instruction{Op: OpIfFalse, Inputs: []ValueID{vA, vB}, CC: &cc})
	l.branchTo(idx, falseLabel)

	one := int64(1)
	l.emit(&Instruction{Op: OpMoveImm, Imm: &one, Result: &dst})
	gotoIdx := l.emit(&Instruction{Op: OpGoto})
	l.branchTo(gotoIdx, joinLabel)

	l.place(falseLabel)
	zero := int64(0)
	l.emit(&Instruction{Op: OpMoveImm, Imm: &zero, Result: &dst})

	l.place(joinLabel)
}

func arithmeticOpcode(op token.Type) (Opcode, bool) {
	switch op {
	case token.PLUS:
		return OpAdd, true
	case token.MINUS:
		return OpSub, true
	case token.STAR:
		return OpMul, true
	case token.SLASH:
		return OpDiv, true
	case token.PERCENT:
		return OpMod, true
	default:
		return 0, false
	}
}
