package ir

import "fmt"

// GraphBuilder is the programmatic, lowering-independent way to build a
// function graph directly (spec.md §6's IR construction interface): a test
// harness declares blocks with their successor lists and appends
// instructions to them, and Build computes predecessors and runs Validate
// before handing back a Function.
//
// Unlike the rest of this package, GraphBuilder never runs the lexer,
// parser, or lowering passes — it consumes only the IR model, matching
// spec.md §1's note that this harness is a separate, narrower concern than
// the source-to-IR pipeline.
type GraphBuilder struct {
	name            string
	paramCount      int
	hasReturn       bool
	maxBlocks       int
	maxInstructions int
	blocks          []*BasicBlock
	instrCount      int
}

// NewGraphBuilder creates a builder bounded by maxBlocks basic blocks and
// maxInstructions total instructions.
func NewGraphBuilder(name string, paramCount int, hasReturn bool, maxBlocks, maxInstructions int) *GraphBuilder {
	return &GraphBuilder{name: name, paramCount: paramCount, hasReturn: hasReturn, maxBlocks: maxBlocks, maxInstructions: maxInstructions}
}

// AddBlock declares a new basic block with the given successor block IDs
// and returns its ID (assigned in declaration order, starting at 0).
func (g *GraphBuilder) AddBlock(successors []int) int {
	id := len(g.blocks)
	g.blocks = append(g.blocks, &BasicBlock{ID: id, Successors: successors})
	return id
}

// AddInstruction appends in to the block identified by blockID.
func (g *GraphBuilder) AddInstruction(blockID int, in *Instruction) error {
	if blockID < 0 || blockID >= len(g.blocks) {
		return fmt.Errorf("no such block %d", blockID)
	}
	if g.instrCount >= g.maxInstructions {
		return fmt.Errorf("exceeds maximum instruction count %d", g.maxInstructions)
	}
	g.instrCount++
	g.blocks[blockID].Instructions = append(g.blocks[blockID].Instructions, in)
	return nil
}

// Build checks the block budget, computes predecessors and runs Validate,
// returning the assembled Function only if every check passes.
func (g *GraphBuilder) Build() (*Function, error) {
	if len(g.blocks) > g.maxBlocks {
		return nil, fmt.Errorf("exceeds maximum block count %d", g.maxBlocks)
	}
	computePredecessors(g.blocks)
	if err := Validate(g.blocks); err != nil {
		return nil, err
	}
	return &Function{Name: g.name, ParamCount: g.paramCount, HasReturn: g.hasReturn, Blocks: g.blocks}, nil
}

// Validate checks blocks against spec.md §3's invariants: every block ends
// in exactly one terminator of the right successor arity, every value is
// defined exactly once, every input/dest references a defined value, and
// the entry block has no incoming edge other than a self-loop. It does not
// check that a Load/Store pointer comes from an Alloc in the entry block.
func Validate(blocks []*BasicBlock) error {
	defined := make(map[ValueID]bool)
	for _, b := range blocks {
		for i, in := range b.Instructions {
			isLast := i == len(b.Instructions)-1
			if in.Op.IsTerminator() && !isLast {
				return fmt.Errorf("block %d: terminator %s is not the last instruction", b.ID, in.Op)
			}
			if !in.Op.IsTerminator() && isLast {
				return fmt.Errorf("block %d: does not end in a terminator", b.ID)
			}
			if in.Result != nil {
				if defined[*in.Result] {
					return fmt.Errorf("value v%d defined more than once", *in.Result)
				}
				defined[*in.Result] = true
			}
		}

		switch term := term(b); {
		case term == nil:
			return fmt.Errorf("block %d: empty block has no terminator", b.ID)
		case term.Op == OpBranch && len(b.Successors) != 2:
			return fmt.Errorf("block %d: Branch terminator must have exactly 2 successors, has %d", b.ID, len(b.Successors))
		case term.Op == OpJump && len(b.Successors) != 1:
			return fmt.Errorf("block %d: Jump terminator must have exactly 1 successor, has %d", b.ID, len(b.Successors))
		case (term.Op == OpReturn || term.Op == OpReturnVoid) && len(b.Successors) != 0:
			return fmt.Errorf("block %d: Return/ReturnVoid terminator must have 0 successors, has %d", b.ID, len(b.Successors))
		}

		for _, succ := range b.Successors {
			if succ < 0 || succ >= len(blocks) {
				return fmt.Errorf("block %d: successor %d out of range", b.ID, succ)
			}
		}
	}

	for _, b := range blocks {
		for _, in := range b.Instructions {
			for _, input := range in.Inputs {
				if !defined[input] {
					return fmt.Errorf("value v%d used but never defined", input)
				}
			}
			if in.Dest != nil && !defined[*in.Dest] {
				return fmt.Errorf("value v%d used as destination but never defined", *in.Dest)
			}
		}
	}

	if len(blocks) > 0 {
		for _, p := range blocks[0].Predecessors {
			if p != 0 {
				return fmt.Errorf("entry block has an incoming edge from block %d", p)
			}
		}
	}

	return nil
}

func term(b *BasicBlock) *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}
