// Package eval executes lowered control-flow-graph programs on an abstract
// machine that detects undefined behavior instead of exhibiting it.
//
// # Quick Start
//
//	prog := buildProgram()
//	m := eval.New(prog, eval.WithFuel(100_000))
//	out, err := m.Run(ctx, "main")
//	if err != nil {
//	    var v *errors.Error
//	    if stderrors.As(err, &v) && errors.IsUB(err) {
//	        fmt.Println(v.Trace()) // violation with its frame stack
//	    }
//	}
//	fmt.Println(out.Return, out.Steps)
//
// # Execution Model
//
// The machine interprets one function activation at a time. Each frame
// backs every local, including the return slot, with its own stack
// allocation, so a reference to a local carries real provenance and turns
// into a detectable use-after-free when the frame pops.
//
//	Step  - one statement or terminator, one fuel unit
//	Run   - Step until return, violation, abort or exhaustion
//	Start - prepare an entry frame for external Step driving
//
// # What Stops a Run
//
//	Outcome kind   Examples                              Category check
//	──────────────────────────────────────────────────────────────────
//	violation      use-after-free, uninitialized read,   errors.IsUB
//	               invalid discriminant, overflow
//	abort          failed assert, abort terminator,      errors.IsAbort
//	               unwound past the entry frame
//	exhaustion     fuel, memory limit, stack depth       errors.IsExhaustion
//	internal       malformed program, missing foreign    errors.IsInternal
//
// A violation is a defect in the interpreted program; exhaustion is a
// property of the configured budget; internal means the input program
// itself is broken.
//
// # Aborts and Catch Blocks
//
// A failed assert or an abort terminator starts an unwind. Frames pop until
// one whose function declares a catch block takes over; a resume terminator
// inside cleanup code re-raises into the caller. An unwind that pops the
// entry frame ends the run with an abort report.
//
// Every popped frame runs drop glue over its locals, the same glue an
// explicit drop terminator runs, so heap storage owned by an aborting call
// chain is released. The catching frame keeps its locals. A violation
// raised by the glue supersedes the abort.
//
// # Foreign Calls
//
// Calls to names the program does not define dispatch to the configured
// ForeignHandler. The handler receives the Machine and works through the
// same validated memory paths the program uses, so a buggy handler cannot
// corrupt the model silently.
package eval
