package ir

import (
	"github.com/wippyai/mir-machine/types"
)

// FuncBuilder assembles a Func block by block. It exists for tests, examples
// and front ends that lower straight into the IR; the evaluator only ever
// sees the finished Func.
type FuncBuilder struct {
	fn *Func
}

// NewFunc starts a function. Local 0 is the return slot of type ret; params
// become locals 1..len(params).
func NewFunc(name string, ret *types.Type, params ...*types.Type) *FuncBuilder {
	locals := make([]*types.Type, 0, 1+len(params))
	locals = append(locals, ret)
	locals = append(locals, params...)
	return &FuncBuilder{
		fn: &Func{
			Name:      name,
			Locals:    locals,
			NumParams: len(params),
			Catch:     -1,
		},
	}
}

// Local declares a temporary and returns its slot index.
func (b *FuncBuilder) Local(t *types.Type) int {
	b.fn.Locals = append(b.fn.Locals, t)
	return len(b.fn.Locals) - 1
}

// RetPlace returns the place of the return slot.
func (b *FuncBuilder) RetPlace() Place {
	return LocalPlace(0)
}

// ParamPlace returns the place of the i-th parameter.
func (b *FuncBuilder) ParamPlace(i int) Place {
	return LocalPlace(1 + i)
}

// Block appends an empty basic block and returns its builder. Block ids are
// assigned in creation order; block 0 is the entry.
func (b *FuncBuilder) Block() *BlockBuilder {
	blk := &Block{Term: Terminator{Kind: TermUnreachable}}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return &BlockBuilder{ID: len(b.fn.Blocks) - 1, blk: blk}
}

// CatchAt marks the block that resumes execution when an abort unwinds into
// this frame.
func (b *FuncBuilder) CatchAt(block int) *FuncBuilder {
	b.fn.Catch = block
	return b
}

// Build returns the assembled function.
func (b *FuncBuilder) Build() *Func {
	return b.fn
}

// BlockBuilder appends statements and sets the terminator of one block.
// Until a terminator method is called the block ends in Unreachable.
type BlockBuilder struct {
	ID  int
	blk *Block
}

// Assign appends place = rvalue.
func (bb *BlockBuilder) Assign(p Place, rv Rvalue) *BlockBuilder {
	bb.blk.Stmts = append(bb.blk.Stmts, Statement{Kind: StmtAssign, Place: p, Rvalue: rv})
	return bb
}

// Assert appends an assertion that cond evaluates to expected, aborting with
// msg otherwise.
func (bb *BlockBuilder) Assert(cond Operand, expected bool, msg string) *BlockBuilder {
	bb.blk.Stmts = append(bb.blk.Stmts, Statement{Kind: StmtAssert, Cond: cond, Expected: expected, Msg: msg})
	return bb
}

// Nop appends a no-op statement.
func (bb *BlockBuilder) Nop() *BlockBuilder {
	bb.blk.Stmts = append(bb.blk.Stmts, Statement{Kind: StmtNop})
	return bb
}

// Goto ends the block with an unconditional transfer.
func (bb *BlockBuilder) Goto(target int) {
	bb.blk.Term = Terminator{Kind: TermGoto, Target: target}
}

// SwitchInt ends the block with a multi-way branch. Pass otherwise -1 when
// no default target exists.
func (bb *BlockBuilder) SwitchInt(discr Operand, values []uint64, targets []int, otherwise int) {
	bb.blk.Term = Terminator{
		Kind:      TermSwitchInt,
		Discr:     discr,
		Values:    values,
		Targets:   targets,
		Otherwise: otherwise,
	}
}

// Call ends the block with a function call; execution continues at target
// with the result in dest.
func (bb *BlockBuilder) Call(callee string, args []Operand, dest Place, target int) {
	bb.blk.Term = Terminator{
		Kind:   TermCall,
		Callee: callee,
		Args:   args,
		Dest:   dest,
		Target: target,
	}
}

// Return ends the block by popping the frame.
func (bb *BlockBuilder) Return() {
	bb.blk.Term = Terminator{Kind: TermReturn}
}

// Drop ends the block with drop glue for p, continuing at target.
func (bb *BlockBuilder) Drop(p Place, target int) {
	bb.blk.Term = Terminator{Kind: TermDrop, Place: p, Target: target}
}

// Unreachable ends the block with the always-invalid terminator.
func (bb *BlockBuilder) Unreachable() {
	bb.blk.Term = Terminator{Kind: TermUnreachable}
}

// Resume ends the block by continuing an in-flight unwind into the caller.
func (bb *BlockBuilder) Resume() {
	bb.blk.Term = Terminator{Kind: TermResume}
}

// Abort ends the block by raising a program abort.
func (bb *BlockBuilder) Abort(msg string) {
	bb.blk.Term = Terminator{Kind: TermAbort, Msg: msg}
}
