package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"minic/internal/parser"
)

func lowerFlatSrc(t *testing.T, src string) *FlatProgram {
	t.Helper()
	unit, err := parser.Parse("test.mn", src)
	require.NoError(t, err)
	return LowerFlat(unit)
}

func TestFlatEmptyFunctionIsSingleReturnVoid(t *testing.T) {
	prog := lowerFlatSrc(t, "fn main() {}")
	fn := prog.Functions[0]
	require.Len(t, fn.Instructions, 1)
	require.Equal(t, OpReturnVoid, fn.Instructions[0].Op)
}

func TestFlatParametersAreNumberedFromZero(t *testing.T) {
	prog := lowerFlatSrc(t, "fn foo(p0: i64, p1: i64) {}")
	fn := prog.Functions[0]
	require.Len(t, fn.Instructions, 3)
	require.Equal(t, OpParameter, fn.Instructions[0].Op)
	require.Equal(t, ValueID(0), *fn.Instructions[0].Result)
	require.Equal(t, OpParameter, fn.Instructions[1].Op)
	require.Equal(t, ValueID(1), *fn.Instructions[1].Result)
	require.Equal(t, OpReturnVoid, fn.Instructions[2].Op)
}

func TestFlatReturnLiteralUsesReturnSlotDirectly(t *testing.T) {
	prog := lowerFlatSrc(t, "fn foo() -> i64 { return 0; }")
	fn := prog.Functions[0]
	require.Len(t, fn.Instructions, 2)
	require.Equal(t, OpMoveImm, fn.Instructions[0].Op)
	require.Equal(t, ValueID(0), *fn.Instructions[0].Result)
	require.Equal(t, int64(0), *fn.Instructions[0].Imm)
	require.Equal(t, OpReturn, fn.Instructions[1].Op)
	require.Equal(t, ValueID(0), fn.Instructions[1].Inputs[0])
}

func TestFlatIfElseBothEmpty(t *testing.T) {
	prog := lowerFlatSrc(t, "fn main(){ if (0==0) {} else {} }")
	fn := prog.Functions[0]
	require.Len(t, fn.Instructions, 5)
	require.Equal(t, OpMoveImm, fn.Instructions[0].Op)
	require.Equal(t, OpMoveImm, fn.Instructions[1].Op)
	require.Equal(t, OpIfFalse, fn.Instructions[2].Op)
	require.Equal(t, 4, fn.Instructions[2].Target)
	require.Equal(t, OpGoto, fn.Instructions[3].Op)
	require.Equal(t, 4, fn.Instructions[3].Target)
	require.Equal(t, OpReturnVoid, fn.Instructions[4].Op)
}

func TestFlatCallPlusLiteralAssignment(t *testing.T) {
	prog := lowerFlatSrc(t, "fn main(){ let mut n:i64=0; n = calc() + 1; }")
	fn := prog.Functions[0]

	var sawCall, sawAdd, sawMoveOne bool
	callIdx, addIdx, moveIdx := -1, -1, -1
	for i, in := range fn.Instructions {
		switch in.Op {
		case OpCall:
			sawCall = true
			require.Equal(t, "calc", in.Callee)
			require.Empty(t, in.Inputs)
			callIdx = i
		case OpAdd:
			sawAdd = true
			addIdx = i
		case OpMoveImm:
			if in.Imm != nil && *in.Imm == 1 {
				sawMoveOne = true
				moveIdx = i
			}
		}
	}
	require.True(t, sawCall)
	require.True(t, sawAdd)
	require.True(t, sawMoveOne)
	require.True(t, callIdx < moveIdx && moveIdx < addIdx, "expected Call, then MoveImm 1, then Add in order")
	require.Equal(t, OpReturnVoid, fn.Instructions[len(fn.Instructions)-1].Op)

	var moveCount int
	for _, in := range fn.Instructions {
		if in.Op == OpMove {
			moveCount++
		}
	}
	require.GreaterOrEqual(t, moveCount, 2) // let's Move + the assignment's Move
}

func TestFlatWhileTrueDegenerates(t *testing.T) {
	prog := lowerFlatSrc(t, "fn main(){ while (true) {} }")
	fn := prog.Functions[0]
	require.Len(t, fn.Instructions, 2)
	require.Equal(t, OpGoto, fn.Instructions[0].Op)
	require.Equal(t, 0, fn.Instructions[0].Target)
	require.Equal(t, OpReturnVoid, fn.Instructions[1].Op)
}

func TestFlatBreakContinueTargetLoopLabels(t *testing.T) {
	prog := lowerFlatSrc(t, `fn main(){
		let mut a: i64 = 0;
		while (a < 9) {
			a = a + 1;
			if (a == 5) { break; }
			if (a == 3) { continue; }
		}
	}`)
	fn := prog.Functions[0]

	var gotos []*Instruction
	for _, in := range fn.Instructions {
		if in.Op == OpGoto {
			gotos = append(gotos, in)
		}
	}
	// at least: break's goto (exit), continue's goto (head), and the loop's own
	// trailing back-edge goto (head).
	require.GreaterOrEqual(t, len(gotos), 3)
}
