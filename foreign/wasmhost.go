package foreign

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/eval"
)

// WasmHost serves foreign calls from the exports of a WebAssembly module.
// Arguments and results cross as plain integers; pointer scalars are
// refused because provenance cannot survive a trip through a foreign
// address space.
//
// The host's linear memory is entirely separate from the machine's
// allocation table. A wasm export computes, it does not touch program
// memory.
type WasmHost struct {
	runtime wazero.Runtime
	module  api.Module
}

// NewWasmHost compiles and instantiates wasmBytes.
func NewWasmHost(ctx context.Context, wasmBytes []byte) (*WasmHost, error) {
	r := wazero.NewRuntime(ctx)
	mod, err := r.Instantiate(ctx, wasmBytes)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseForeign, errors.KindMissingForeign, err, "instantiate wasm host")
	}
	return &WasmHost{runtime: r, module: mod}, nil
}

// Close releases the wasm runtime.
func (h *WasmHost) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// Exports returns the names of the module's exported functions.
func (h *WasmHost) Exports() []string {
	defs := h.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// CallForeign implements eval.ForeignHandler by invoking the export of the
// same name.
func (h *WasmHost) CallForeign(ctx context.Context, _ *eval.Machine, name string, args []eval.Scalar) (eval.Scalar, error) {
	fn := h.module.ExportedFunction(name)
	if fn == nil {
		return eval.Scalar{}, errors.New(errors.PhaseForeign, errors.KindMissingForeign).
			Detail("wasm host exports no %q", name).Build()
	}

	params := make([]uint64, len(args))
	for i, arg := range args {
		if arg.IsPtr {
			return eval.Scalar{}, errors.Unsupported(errors.PhaseForeign,
				"pointer argument to a wasm host function")
		}
		params[i] = arg.Bits
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return eval.Scalar{}, errors.Wrap(errors.PhaseForeign, errors.KindMissingForeign, err, name)
	}
	if len(results) == 0 {
		return eval.Scalar{}, nil
	}
	return eval.ScalarBits(results[0]), nil
}
