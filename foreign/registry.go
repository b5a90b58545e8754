package foreign

import (
	"context"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/eval"
	"github.com/wippyai/mir-machine/memory"
)

// Func is one host-provided function. It receives the calling machine and
// works through the machine's validated memory paths; a handler cannot
// reach around the checker.
type Func func(ctx context.Context, m *eval.Machine, args []eval.Scalar) (eval.Scalar, error)

// Registry maps foreign names to handlers and implements
// eval.ForeignHandler. Unknown names fall through to an optional fallback
// handler before failing.
type Registry struct {
	funcs    map[string]Func
	fallback eval.ForeignHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register installs fn under name, replacing any previous handler.
func (r *Registry) Register(name string, fn Func) *Registry {
	r.funcs[name] = fn
	return r
}

// SetFallback installs a handler consulted for names the registry does not
// know, for example a WasmHost.
func (r *Registry) SetFallback(h eval.ForeignHandler) *Registry {
	r.fallback = h
	return r
}

// Names returns the registered function names in unspecified order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// CallForeign implements eval.ForeignHandler.
func (r *Registry) CallForeign(ctx context.Context, m *eval.Machine, name string, args []eval.Scalar) (eval.Scalar, error) {
	if fn, ok := r.funcs[name]; ok {
		return fn(ctx, m, args)
	}
	if r.fallback != nil {
		return r.fallback.CallForeign(ctx, m, name, args)
	}
	return eval.Scalar{}, errors.New(errors.PhaseForeign, errors.KindMissingForeign).
		Detail("no handler for %q", name).Build()
}

// WithAllocator registers the program allocator entry points. The program
// calls them like any foreign function; the memory they hand out lives in
// the machine's allocation table as heap allocations, so every checker rule
// applies to it.
//
//	malloc(size) -> ptr       uninitialized heap memory
//	calloc(size) -> ptr       zeroed heap memory
//	realloc(ptr, size) -> ptr resize by move, frees the old block
//	free(ptr)                 release, double free is a violation
func (r *Registry) WithAllocator() *Registry {
	r.Register("malloc", mallocFn)
	r.Register("calloc", callocFn)
	r.Register("realloc", reallocFn)
	r.Register("free", freeFn)
	return r
}

func mallocFn(_ context.Context, m *eval.Machine, args []eval.Scalar) (eval.Scalar, error) {
	if len(args) != 1 {
		return eval.Scalar{}, errors.MalformedIR("malloc takes 1 argument, got %d", len(args))
	}
	ptr, err := m.Memory().Allocate(args[0].Bits, allocAlign, memory.KindHeap)
	if err != nil {
		return eval.Scalar{}, err
	}
	return eval.ScalarPtr(ptr), nil
}

func callocFn(ctx context.Context, m *eval.Machine, args []eval.Scalar) (eval.Scalar, error) {
	res, err := mallocFn(ctx, m, args)
	if err != nil {
		return eval.Scalar{}, err
	}
	if err := m.Memory().WriteRepeat(res.Ptr, 0, args[0].Bits); err != nil {
		return eval.Scalar{}, err
	}
	return res, nil
}

func reallocFn(_ context.Context, m *eval.Machine, args []eval.Scalar) (eval.Scalar, error) {
	if len(args) != 2 {
		return eval.Scalar{}, errors.MalformedIR("realloc takes 2 arguments, got %d", len(args))
	}
	old := args[0]
	size := args[1].Bits
	if !old.IsPtr || old.Ptr.Wild {
		return eval.Scalar{}, errors.New(errors.PhaseForeign, errors.KindUseAfterFree).
			Detail("realloc of a pointer with no provenance").Build()
	}

	alloc, ok := m.Memory().Get(old.Ptr.Alloc)
	if !ok {
		return eval.Scalar{}, errors.MalformedIR("realloc of unknown allocation %d", uint64(old.Ptr.Alloc))
	}
	oldSize := alloc.Size()

	next, err := m.Memory().Allocate(size, allocAlign, memory.KindHeap)
	if err != nil {
		return eval.Scalar{}, err
	}
	copySize := oldSize
	if size < copySize {
		copySize = size
	}
	if copySize > 0 {
		// Relocations and initialization state move with the bytes; bytes
		// the program never initialized stay uninitialized in the new block.
		if err := m.Memory().Copy(old.Ptr, next, copySize); err != nil {
			return eval.Scalar{}, err
		}
	}
	if err := m.Memory().Deallocate(old.Ptr.Alloc, memory.KindHeap); err != nil {
		return eval.Scalar{}, err
	}
	return eval.ScalarPtr(next), nil
}

func freeFn(_ context.Context, m *eval.Machine, args []eval.Scalar) (eval.Scalar, error) {
	if len(args) != 1 {
		return eval.Scalar{}, errors.MalformedIR("free takes 1 argument, got %d", len(args))
	}
	p := args[0]
	if !p.IsPtr || p.Ptr.Wild {
		return eval.Scalar{}, errors.New(errors.PhaseForeign, errors.KindUseAfterFree).
			Detail("free of a pointer with no provenance").Build()
	}
	return eval.Scalar{}, m.Memory().Deallocate(p.Ptr.Alloc, memory.KindHeap)
}

// allocAlign is the guarantee the allocator entry points give, enough for
// any primitive the machine models.
const allocAlign = 16
