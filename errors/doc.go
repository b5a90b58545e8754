// Package errors provides structured error types for the mir-machine library.
//
// Errors are categorized by Phase (which machine operation failed) and Kind
// (what failed). Kinds fall into four disjoint categories, tested with IsUB,
// IsAbort, IsExhaustion and IsInternal:
//
//   - UB violations: use_after_free, out_of_bounds, unaligned, ... Terminal
//     for the run; the machine never corrects or defaults them.
//   - Program aborts: the interpreted program failed an assertion or
//     panicked. Recoverable at a catch frame.
//   - Resource exhaustion: a configured fuel/memory/stack budget ran out.
//   - Internal inconsistencies: malformed IR or an unsupported construct,
//     reported separately so a tooling gap is never mistaken for a defect in
//     the interpreted program.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRead, errors.KindOutOfBounds).
//		Alloc(3, 16).
//		Detail("access of 8 bytes beyond allocation size 16").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UseAfterFree(errors.PhaseRead, allocID, offset)
//	err := errors.FuelExhausted(steps, budget)
//
// Terminal errors carry the interpreted program's frame-stack trace as
// []FrameInfo{Function, Block, Stmt}, attached by the evaluator via
// WithFrames.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
