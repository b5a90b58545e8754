// Package ir defines the lowered mid-level intermediate representation the
// abstract machine executes.
//
// A Program maps function names to Funcs. Each Func is a control-flow graph
// of basic Blocks over a flat local-variable space: local 0 is the return
// slot, locals 1..NumParams the arguments, the rest temporaries. Every block
// is an ordered statement sequence ended by exactly one terminator.
//
// # Statement and terminator sets
//
// Both kind sets are closed enumerations; the evaluator switches over them
// exhaustively and treats any unknown kind as malformed input rather than
// attempting recovery:
//
//	Statements   Assign, Assert, Nop
//	Terminators  Goto, SwitchInt, Call, Return, Drop,
//	             Unreachable, Resume, Abort
//
// # Operands, rvalues, places
//
// Operands are Copy/Move reads of a place or scalar constants. Rvalues are
// Use, Ref, BinaryOp, UnaryOp, Aggregate, Cast and Discriminant. A Place is
// a local slot refined by a projection chain (Deref, Field, Index,
// Downcast).
//
// # Construction
//
// FuncBuilder assembles functions for tests and front ends:
//
//	b := ir.NewFunc("add2", types.TypeI64)
//	bb := b.Block()
//	bb.Assign(b.RetPlace(), ir.Bin(ir.Add, ir.ConstI64(1), ir.ConstI64(1)))
//	bb.Return()
//	fn := b.Build()
//
// Func.Validate checks the structural invariants the evaluator relies on;
// violations are reported as malformed IR, a category distinct from program
// UB.
package ir
