package ir

import (
	"github.com/wippyai/mir-machine/types"
)

// Program is a set of lowered functions addressed by name.
type Program struct {
	funcs map[string]*Func
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{funcs: make(map[string]*Func)}
}

// Add registers a function, replacing any previous one with the same name.
func (p *Program) Add(f *Func) *Program {
	p.funcs[f.Name] = f
	return p
}

// Func returns the function with the given name.
func (p *Program) Func(name string) (*Func, bool) {
	f, ok := p.funcs[name]
	return f, ok
}

// Names returns the registered function names in unspecified order.
func (p *Program) Names() []string {
	names := make([]string, 0, len(p.funcs))
	for name := range p.funcs {
		names = append(names, name)
	}
	return names
}

// Func is one lowered function: a control-flow graph of basic blocks over a
// flat local-variable space.
//
// Locals follow the conventional layout: local 0 is the return slot,
// locals 1..NumParams are the arguments, the rest are temporaries. Block 0
// is the entry block.
type Func struct {
	Name      string
	Locals    []*types.Type
	NumParams int
	Blocks    []*Block
	// Catch designates the block that resumes normal execution when a
	// program abort unwinds into this frame, or -1 when the frame does
	// not catch.
	Catch int
}

// LocalType returns the declared type of a local slot.
func (f *Func) LocalType(local int) *types.Type {
	return f.Locals[local]
}

// Block is an ordered statement sequence ended by exactly one terminator.
type Block struct {
	Stmts []Statement
	Term  Terminator
}

// StmtKind enumerates the closed statement set.
type StmtKind int

const (
	// StmtAssign evaluates an rvalue and writes it into a place.
	StmtAssign StmtKind = iota
	// StmtAssert evaluates a boolean operand; a mismatch with Expected
	// raises the statement's message as a program abort.
	StmtAssert
	// StmtNop does nothing. Lowering sometimes leaves these behind.
	StmtNop
)

// Statement is one non-terminator instruction.
type Statement struct {
	Kind StmtKind

	// Assign
	Place  Place
	Rvalue Rvalue

	// Assert
	Cond     Operand
	Expected bool
	Msg      string
}

// TermKind enumerates the closed terminator set.
type TermKind int

const (
	// TermGoto transfers unconditionally to Target.
	TermGoto TermKind = iota
	// TermSwitchInt compares the discriminant operand against Values and
	// transfers to the matching entry of Targets, or Otherwise.
	TermSwitchInt
	// TermCall resolves Callee, binds Args into a fresh frame (or
	// dispatches to the foreign handler), writes the result into Dest and
	// continues at Target.
	TermCall
	// TermReturn pops the frame and resumes the caller.
	TermReturn
	// TermDrop runs drop glue for Place, then continues at Target.
	TermDrop
	// TermUnreachable is always an undefined-behavior violation.
	TermUnreachable
	// TermResume continues unwinding an in-flight program abort into the
	// caller.
	TermResume
	// TermAbort starts a program abort with the terminator's message.
	TermAbort
)

// Terminator ends a basic block and transfers control.
type Terminator struct {
	Kind TermKind

	// Goto/Call/Drop continuation.
	Target int

	// SwitchInt
	Discr     Operand
	Values    []uint64
	Targets   []int
	Otherwise int // -1 when absent

	// Call
	Callee string
	Args   []Operand
	Dest   Place

	// Drop
	Place Place

	// Abort
	Msg string
}
