package ir

import (
	"fmt"
	"strings"
)

// PrintFlat renders prog in the flat IR's stable textual form (spec.md
// §4.T): one `N. ...` line per instruction, functions separated by a blank
// line and headed by `Function <name>:`.
func PrintFlat(prog *FlatProgram) string {
	var b strings.Builder
	for i, fn := range prog.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Function %s:\n", fn.Name)
		for _, in := range fn.Instructions {
			b.WriteString(printFlatInstruction(in))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func printFlatInstruction(in *Instruction) string {
	prefix := fmt.Sprintf("%d.", in.ID)
	switch in.Op {
	case OpParameter:
		return fmt.Sprintf("%s v%d = Parameter", prefix, *in.Result)
	case OpMoveImm:
		return fmt.Sprintf("%s MoveImm v%d, %d", prefix, *in.Result, *in.Imm)
	case OpMove:
		return fmt.Sprintf("%s Move v%d, v%d", prefix, *in.Result, in.Inputs[0])
	case OpCall:
		return fmt.Sprintf("%s Call %s, args: %s", prefix, in.Callee, joinValues(in.Inputs))
	case OpIfFalse:
		return fmt.Sprintf("%s IfFalse v%d %s v%d, goto %d", prefix, in.Inputs[0], in.CC.String(), in.Inputs[1], in.Target)
	case OpGoto:
		return fmt.Sprintf("%s Goto %d", prefix, in.Target)
	case OpReturn:
		return fmt.Sprintf("%s Return v%d", prefix, in.Inputs[0])
	case OpReturnVoid:
		return fmt.Sprintf("%s ReturnVoid", prefix)
	case OpNeg:
		return fmt.Sprintf("%s v%d = Neg(v%d)", prefix, *in.Result, in.Inputs[0])
	default:
		return fmt.Sprintf("%s v%d = %s(%s)", prefix, *in.Result, in.Op.String(), joinValues(in.Inputs))
	}
}

// PrintGraph renders prog in the graph IR's stable textual form: per
// function, a `BB b: preds: [..] succs: [..]` header per block followed by
// each instruction, functions separated by a blank line and headed by
// `Function <name>:`. Blocks print in creation order; predecessors in
// ascending ID (spec.md §4.T).
func PrintGraph(prog *Program) string {
	var b strings.Builder
	for i, fn := range prog.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Function %s:\n", fn.Name)
		for _, block := range fn.Blocks {
			fmt.Fprintf(&b, "BB %d: preds: %s succs: %s\n", block.ID, intList(block.Predecessors), intList(block.Successors))
			for _, in := range block.Instructions {
				b.WriteString(printGraphInstruction(in))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func printGraphInstruction(in *Instruction) string {
	switch in.Op {
	case OpParameter:
		return fmt.Sprintf("%%%d = Parameter", *in.Result)
	case OpConstant:
		return fmt.Sprintf("%%%d = Constant %d", *in.Result, *in.Imm)
	case OpAlloc:
		return fmt.Sprintf("%%%d = Alloc", *in.Result)
	case OpLoad:
		return fmt.Sprintf("%%%d = Load %%%d", *in.Result, in.Inputs[0])
	case OpStore:
		return fmt.Sprintf("%d Store %%%d, %%%d", in.ID, *in.Dest, in.Inputs[0])
	case OpCall:
		return fmt.Sprintf("%%%d = Call %s, args: %s", *in.Result, in.Callee, joinPctValues(in.Inputs))
	case OpBranch:
		return fmt.Sprintf("%d Branch %s %%%d, %%%d", in.ID, in.CC.String(), in.Inputs[0], in.Inputs[1])
	case OpJump:
		return fmt.Sprintf("%d Jump", in.ID)
	case OpReturn:
		return fmt.Sprintf("%d Return %%%d", in.ID, in.Inputs[0])
	case OpReturnVoid:
		return fmt.Sprintf("%d ReturnVoid", in.ID)
	case OpNeg:
		return fmt.Sprintf("%%%d = Neg(%%%d)", *in.Result, in.Inputs[0])
	default:
		return fmt.Sprintf("%%%d = %s(%s)", *in.Result, in.Op.String(), joinPctValues(in.Inputs))
	}
}

func joinValues(ids []ValueID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("v%d", id)
	}
	return strings.Join(parts, ", ")
}

func joinPctValues(ids []ValueID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%%%d", id)
	}
	return strings.Join(parts, ", ")
}

func intList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
