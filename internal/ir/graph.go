package ir

import "minic/internal/ast"

// LowerGraph lowers every function in unit into the graph second IR
// (spec.md §4.G): basic blocks with SSA values, explicit Alloc/Load/Store
// for locals, and Branch/Jump terminators with derived predecessor sets.
//
// The teacher's own IR builder never lowers control flow (its contracts
// have none to lower); the block/Branch/Jump construction below, and the
// alloca-hoisting-to-entry and loop-head/join-block collapsing rules it
// follows, are this repository's own extension of that plumbing.
func LowerGraph(unit *ast.Unit) *Program {
	prog := &Program{}
	for _, fn := range unit.Functions {
		prog.Functions = append(prog.Functions, lowerGraphFunction(fn))
	}
	return prog
}

type graphLoop struct {
	head *BasicBlock
	exit *BasicBlock
}

type graphLowerer struct {
	fn          *ast.Function
	blocks      []*BasicBlock
	cur         *BasicBlock
	nextValue   ValueID
	nextInstrID int
	allocs      map[string]ValueID // local/param name -> its Alloc pointer value
	plain       map[string]ValueID // un-reassigned parameter name -> its bare SSA value
	loopStack   []graphLoop
}

func lowerGraphFunction(fn *ast.Function) *Function {
	l := &graphLowerer{
		fn:     fn,
		allocs: make(map[string]ValueID),
		plain:  make(map[string]ValueID),
	}

	entry := l.newBlock()
	l.cur = entry

	reassigned := scanAssignedNames(fn.Body)
	for _, p := range fn.Params {
		v := l.allocValue()
		l.emit(&Instruction{Op: OpParameter, Result: &v})
		if reassigned[p.Name.Value] {
			ptr := l.allocValue()
			l.emit(&Instruction{Op: OpAlloc, Result: &ptr})
			l.emit(&Instruction{Op: OpStore, Inputs: []ValueID{v}, Dest: &ptr})
			l.allocs[p.Name.Value] = ptr
		} else {
			l.plain[p.Name.Value] = v
		}
	}

	l.lowerStmts(fn.Body.Stmts)

	if !terminated(l.cur) {
		l.emit(&Instruction{Op: OpReturnVoid})
	}

	computePredecessors(l.blocks)

	return &Function{
		Name:       fn.Name.Value,
		ParamCount: len(fn.Params),
		HasReturn:  fn.Return != nil,
		Blocks:     l.blocks,
	}
}

func computePredecessors(blocks []*BasicBlock) {
	for _, b := range blocks {
		b.Predecessors = nil
	}
	for _, b := range blocks {
		for _, succID := range b.Successors {
			blocks[succID].Predecessors = append(blocks[succID].Predecessors, b.ID)
		}
	}
}

func terminated(b *BasicBlock) bool {
	if len(b.Instructions) == 0 {
		return false
	}
	return b.Instructions[len(b.Instructions)-1].Op.IsTerminator()
}

func (l *graphLowerer) newBlock() *BasicBlock {
	b := &BasicBlock{ID: len(l.blocks)}
	l.blocks = append(l.blocks, b)
	return b
}

func (l *graphLowerer) allocValue() ValueID {
	v := l.nextValue
	l.nextValue++
	return v
}

// emit appends instr to l.cur, assigning the next instruction ID in the
// function's shared, emission-ordered ID space (spec.md §4.G: IDs need not
// be contiguous within a block).
func (l *graphLowerer) emit(instr *Instruction) {
	instr.ID = l.nextInstrID
	l.nextInstrID++
	l.cur.Instructions = append(l.cur.Instructions, instr)
}

// hoistAlloc appends instr to the entry block, ahead of its terminator if
// it already has one (a `let` lexically past the function's first loop or
// branch still backs its local with an entry-block Alloc).
func (l *graphLowerer) hoistAlloc(instr *Instruction) {
	entry := l.blocks[0]
	instr.ID = l.nextInstrID
	l.nextInstrID++
	if terminated(entry) {
		last := len(entry.Instructions) - 1
		entry.Instructions = append(entry.Instructions, nil)
		copy(entry.Instructions[last+1:], entry.Instructions[last:last+1])
		entry.Instructions[last] = instr
	} else {
		entry.Instructions = append(entry.Instructions, instr)
	}
}

func (l *graphLowerer) terminateWithJump(target *BasicBlock) {
	if terminated(l.cur) {
		return
	}
	l.emit(&Instruction{Op: OpJump})
	l.cur.Successors = []int{target.ID}
}

func (l *graphLowerer) lowerStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if terminated(l.cur) {
			l.cur = l.newBlock() // unreachable code past a terminator, kept for completeness
		}
		l.lowerStmt(s)
	}
}

func (l *graphLowerer) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		ptr := l.allocValue()
		l.hoistAlloc(&Instruction{Op: OpAlloc, Result: &ptr})
		v := l.lowerExpr(s.Init)
		l.allocs[s.Name.Value] = ptr
		l.emit(&Instruction{Op: OpStore, Inputs: []ValueID{v}, Dest: &ptr})

	case *ast.AssignStmt:
		ptr := l.allocs[s.Target.Value]
		v := l.lowerExpr(s.Value)
		l.emit(&Instruction{Op: OpStore, Inputs: []ValueID{v}, Dest: &ptr})

	case *ast.ExprStmt:
		l.lowerExpr(s.Call)

	case *ast.IfStmt:
		l.lowerIf(s)

	case *ast.WhileStmt:
		l.lowerWhile(s)

	case *ast.BreakStmt:
		top := l.loopStack[len(l.loopStack)-1]
		l.terminateWithJump(top.exit)

	case *ast.ContinueStmt:
		top := l.loopStack[len(l.loopStack)-1]
		l.terminateWithJump(top.head)

	case *ast.ReturnStmt:
		if s.Value != nil {
			v := l.lowerExpr(s.Value)
			l.emit(&Instruction{Op: OpReturn, Inputs: []ValueID{v}})
		} else {
			l.emit(&Instruction{Op: OpReturnVoid})
		}
	}
}

func (l *graphLowerer) lowerIf(s *ast.IfStmt) {
	literal := isBoolLit(s.Cond, true) || isBoolLit(s.Cond, false)
	var vA, vB ValueID
	var cc CondCode
	if !literal {
		vA, cc, vB = l.lowerCondition(s.Cond)
	}
	thenBlock := l.newBlock()
	elseBlock := l.newBlock() // also the join block when s.Else == nil

	switch {
	case isBoolLit(s.Cond, true):
		l.terminateWithJump(thenBlock) // no comparison; the other block is unreachable
	case isBoolLit(s.Cond, false):
		l.terminateWithJump(elseBlock)
	default:
		l.emit(&Instruction{Op: OpBranch, Inputs: []ValueID{vA, vB}, CC: &cc})
		l.cur.Successors = []int{thenBlock.ID, elseBlock.ID}
	}

	l.cur = thenBlock
	l.lowerStmts(s.Then.Stmts)
	thenEnd := l.cur

	if s.Else != nil {
		l.cur = elseBlock
		l.lowerStmts(s.Else.Stmts)
		elseEnd := l.cur

		join := l.newBlock()
		l.cur = thenEnd
		l.terminateWithJump(join)
		l.cur = elseEnd
		l.terminateWithJump(join)
		l.cur = join
		return
	}

	l.cur = thenEnd
	l.terminateWithJump(elseBlock)
	l.cur = elseBlock
}

func (l *graphLowerer) lowerWhile(s *ast.WhileStmt) {
	head := l.startLoopHead()
	exit := l.newBlock()

	switch {
	case isBoolLit(s.Cond, true):
		l.cur = head

	case isBoolLit(s.Cond, false):
		l.cur = head
		l.terminateWithJump(exit)
		l.cur = l.newBlock() // the body is still emitted, as unreachable dead code

	default:
		vA, cc, vB := l.lowerCondition(s.Cond)
		bodyStart := l.newBlock()
		l.emit(&Instruction{Op: OpBranch, Inputs: []ValueID{vA, vB}, CC: &cc})
		l.cur.Successors = []int{bodyStart.ID, exit.ID}
		l.cur = bodyStart
	}

	l.loopStack = append(l.loopStack, graphLoop{head: head, exit: exit})
	l.lowerStmts(s.Body.Stmts)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	l.terminateWithJump(head)
	l.cur = exit
}

// startLoopHead reuses the current block as the loop header when nothing
// has been emitted into it yet (so there is nothing to skip on a back
// edge); otherwise it closes the current block with a Jump into a fresh
// header block, which is what lets a back edge re-run only the loop.
func (l *graphLowerer) startLoopHead() *BasicBlock {
	if len(l.cur.Instructions) == 0 {
		return l.cur
	}
	head := l.newBlock()
	l.terminateWithJump(head)
	l.cur = head
	return head
}

func (l *graphLowerer) lowerCondition(cond ast.Expr) (ValueID, CondCode, ValueID) {
	bin, _ := isCompareBinary(cond)
	vA := l.lowerExpr(bin.Left)
	vB := l.lowerExpr(bin.Right)
	return vA, condCodeFor(bin.Op), vB
}

func (l *graphLowerer) lowerExpr(expr ast.Expr) ValueID {
	switch e := expr.(type) {
	case *ast.IntLit:
		n := parseIntLiteral(e.Value)
		v := l.allocValue()
		l.emit(&Instruction{Op: OpConstant, Imm: &n, Result: &v})
		return v

	case *ast.BoolLit:
		n := boolImm(e.Value)
		v := l.allocValue()
		l.emit(&Instruction{Op: OpConstant, Imm: &n, Result: &v})
		return v

	case *ast.IdentExpr:
		if ptr, ok := l.allocs[e.Name]; ok {
			v := l.allocValue()
			l.emit(&Instruction{Op: OpLoad, Inputs: []ValueID{ptr}, Result: &v})
			return v
		}
		return l.plain[e.Name]

	case *ast.ParenExpr:
		return l.lowerExpr(e.Value)

	case *ast.UnaryExpr:
		operand := l.lowerExpr(e.Value)
		v := l.allocValue()
		l.emit(&Instruction{Op: OpNeg, Inputs: []ValueID{operand}, Result: &v})
		return v

	case *ast.CallExpr:
		var args []ValueID
		for _, a := range e.Args {
			args = append(args, l.lowerExpr(a))
		}
		v := l.allocValue()
		l.emit(&Instruction{Op: OpCall, Inputs: args, Result: &v, Callee: e.Callee.Value})
		return v

	case *ast.BinaryExpr:
		if op, ok := arithmeticOpcode(e.Op); ok {
			left := l.lowerExpr(e.Left)
			right := l.lowerExpr(e.Right)
			v := l.allocValue()
			l.emit(&Instruction{Op: op, Inputs: []ValueID{left, right}, Result: &v})
			return v
		}
		return l.lowerBoolValue(e)
	}
	return 0
}

// lowerBoolValue materializes a comparison used in a plain value position
// (legal per the grammar: `expr := cmp` appears as a let initializer,
// assignment value, return value, or call argument, not only a condition).
func (l *graphLowerer) lowerBoolValue(bin *ast.BinaryExpr) ValueID {
	vA := l.lowerExpr(bin.Left)
	vB := l.lowerExpr(bin.Right)
	cc := condCodeFor(bin.Op)

	trueBlock := l.newBlock()
	falseBlock := l.newBlock()
	join := l.newBlock()

	l.emit(&Instruction{Op: OpBranch, Inputs: []ValueID{vA, vB}, CC: &cc})
	l.cur.Successors = []int{trueBlock.ID, falseBlock.ID}

	result := l.allocValue()

	l.cur = trueBlock
	one := int64(1)
	ptr := l.allocValue()
	l.hoistAlloc(&Instruction{Op: OpAlloc, Result: &ptr})
	l.emit(&Instruction{Op: OpStore, Inputs: []ValueID{mustConst(l, one)}, Dest: &ptr})
	l.terminateWithJump(join)

	l.cur = falseBlock
	zero := int64(0)
	l.emit(&Instruction{Op: OpStore, Inputs: []ValueID{mustConst(l, zero)}, Dest: &ptr})
	l.terminateWithJump(join)

	l.cur = join
	l.emit(&Instruction{Op: OpLoad, Inputs: []ValueID{ptr}, Result: &result})
	return result
}

func mustConst(l *graphLowerer, n int64) ValueID {
	v := l.allocValue()
	imm := n
	l.emit(&Instruction{Op: OpConstant, Imm: &imm, Result: &v})
	return v
}
