// Package mirmachine provides an abstract machine that executes lowered
// control-flow-graph programs and detects undefined behavior dynamically.
//
// Programs run on symbolic memory: every pointer is an allocation identity
// plus an offset, never a host address, and every access is validated for
// liveness, bounds, alignment and initialization before it happens. A
// defect that a real machine would turn into silent corruption stops the
// run with a structured report naming the violation, the allocation and
// the frame stack.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	mirmachine/          Root package with the one-call Run facade
//	├── types/           Type descriptors and byte-level layout computation
//	├── ir/              The lowered program form: functions, blocks, rvalues
//	├── memory/          Allocation table, symbolic pointers, access checks
//	├── eval/            The stepping interpreter and its violation rules
//	├── foreign/         Host functions and wasm-backed foreign handlers
//	└── errors/          Structured violation and exhaustion reports
//
// # Quick Start
//
// Build a program with the ir builders and run it:
//
//	b := ir.NewFunc("main", types.TypeU64)
//	entry := b.Block()
//	entry.Assign(b.RetPlace(), ir.Bin(ir.Add, ir.ConstU64(1), ir.ConstU64(1)))
//	entry.Return()
//	prog := ir.NewProgram().Add(b.Build())
//
//	out, err := mirmachine.Run(ctx, prog, "main")
//	fmt.Println(out.Return.Bits) // 2
//
// For step-level control, configured budgets or custom foreign handlers,
// use eval.New directly.
//
// # Detected Violations
//
//   - Use after free, double free, free with the wrong allocation kind
//   - Out-of-bounds and misaligned accesses
//   - Reads of uninitialized bytes, including moved-from locations
//   - Invalid enum discriminants and invalid bool bit patterns
//   - Dereference of pointers synthesized from integers
//   - Reaching an unreachable terminator, integer overflow
//
// Runs also stop, with distinct non-violation reports, on fuel exhaustion,
// memory or stack limits, and program aborts.
package mirmachine
