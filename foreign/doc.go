// Package foreign supplies handlers for calls that leave the interpreted
// program: host-provided Go functions and WebAssembly module exports.
//
// # Registry
//
// A Registry maps foreign names to Go handlers and plugs into the machine
// as its ForeignHandler:
//
//	reg := foreign.NewRegistry().WithAllocator()
//	reg.Register("host_random", func(ctx context.Context, m *eval.Machine, args []eval.Scalar) (eval.Scalar, error) {
//	    return eval.ScalarBits(4), nil
//	})
//	m := eval.New(prog, eval.WithForeign(reg))
//
// WithAllocator installs malloc, calloc, realloc and free backed by the
// machine's own heap, so allocator misuse in the program (double free,
// use after free, free of a stack address) surfaces as the corresponding
// violation.
//
// # Wasm Hosts
//
// A WasmHost answers calls from the exports of a WebAssembly module,
// typically installed as a registry fallback:
//
//	host, err := foreign.NewWasmHost(ctx, wasmBytes)
//	reg.SetFallback(host)
//
// Only integer and float scalars cross the boundary. Pointer scalars are
// refused: the machine's pointers are allocation identities, and no
// foreign address space can represent those.
package foreign
