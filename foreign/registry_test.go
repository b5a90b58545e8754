package foreign

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/eval"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

func newMachine() *eval.Machine {
	return eval.New(ir.NewProgram())
}

func wantKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected machine error, got %T: %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, e.Kind, err)
	}
}

func TestMallocFree(t *testing.T) {
	reg := NewRegistry().WithAllocator()
	m := newMachine()
	ctx := context.Background()

	res, err := reg.CallForeign(ctx, m, "malloc", []eval.Scalar{eval.ScalarBits(64)})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsPtr {
		t.Fatal("malloc did not return a pointer")
	}

	// Fresh heap memory is uninitialized.
	if _, err := m.Memory().ReadBytes(res.Ptr, 1); err == nil {
		t.Error("fresh malloc memory readable without a write")
	}

	if err := m.Memory().WriteBytes(res.Ptr, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.CallForeign(ctx, m, "free", []eval.Scalar{res}); err != nil {
		t.Fatal(err)
	}
	_, err = m.Memory().ReadBytes(res.Ptr, 1)
	wantKind(t, err, errors.KindUseAfterFree)
}

func TestCallocZeroes(t *testing.T) {
	reg := NewRegistry().WithAllocator()
	m := newMachine()

	res, err := reg.CallForeign(context.Background(), m, "calloc", []eval.Scalar{eval.ScalarBits(8)})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Memory().ReadBytes(res.Ptr, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("calloc byte %d = %d", i, b)
		}
	}
}

func TestDoubleFree(t *testing.T) {
	reg := NewRegistry().WithAllocator()
	m := newMachine()
	ctx := context.Background()

	res, err := reg.CallForeign(ctx, m, "malloc", []eval.Scalar{eval.ScalarBits(16)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CallForeign(ctx, m, "free", []eval.Scalar{res}); err != nil {
		t.Fatal(err)
	}
	_, err = reg.CallForeign(ctx, m, "free", []eval.Scalar{res})
	wantKind(t, err, errors.KindDoubleFree)
}

func TestFreeWildPointer(t *testing.T) {
	reg := NewRegistry().WithAllocator()
	m := newMachine()

	wild := eval.Scalar{Bits: 0x1000}
	_, err := reg.CallForeign(context.Background(), m, "free", []eval.Scalar{wild})
	wantKind(t, err, errors.KindUseAfterFree)
}

func TestReallocPreservesData(t *testing.T) {
	reg := NewRegistry().WithAllocator()
	m := newMachine()
	ctx := context.Background()

	res, err := reg.CallForeign(ctx, m, "malloc", []eval.Scalar{eval.ScalarBits(4)})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Memory().WriteBytes(res.Ptr, []byte{9, 8, 7, 6}); err != nil {
		t.Fatal(err)
	}

	grown, err := reg.CallForeign(ctx, m, "realloc", []eval.Scalar{res, eval.ScalarBits(16)})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Memory().ReadBytes(grown.Ptr, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 9 || got[3] != 6 {
		t.Errorf("realloc lost data: %v", got)
	}
	// Bytes past the old size are new and uninitialized.
	if _, err := m.Memory().ReadBytes(grown.Ptr.WithOffset(4), 1); err == nil {
		t.Error("grown region readable without a write")
	}
	// The old block is gone.
	_, err = m.Memory().ReadBytes(res.Ptr, 1)
	wantKind(t, err, errors.KindUseAfterFree)
}

func TestMissingNameAndFallback(t *testing.T) {
	reg := NewRegistry()
	m := newMachine()
	ctx := context.Background()

	_, err := reg.CallForeign(ctx, m, "nope", nil)
	wantKind(t, err, errors.KindMissingForeign)

	fallback := NewRegistry().Register("nope", func(context.Context, *eval.Machine, []eval.Scalar) (eval.Scalar, error) {
		return eval.ScalarBits(7), nil
	})
	reg.SetFallback(fallback)

	res, err := reg.CallForeign(ctx, m, "nope", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Bits != 7 {
		t.Errorf("fallback result = %d", res.Bits)
	}
}

func TestRegistryDrivesProgram(t *testing.T) {
	// End to end: the program allocates, stores, reads back and frees
	// through the registry's allocator.
	b := ir.NewFunc("main", types.TypeU64)
	p := b.Local(types.PointerTo(types.TypeU64))
	u := b.Local(types.TypeUnit)
	b.Block().Call("malloc", []ir.Operand{ir.ConstU64(8)}, ir.LocalPlace(p), 1)
	work := b.Block()
	work.Assign(ir.LocalPlace(p).Deref(), ir.Use(ir.ConstU64(33)))
	work.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(p).Deref())))
	work.Call("free", []ir.Operand{ir.Copy(ir.LocalPlace(p))}, ir.LocalPlace(u), 2)
	b.Block().Return()

	prog := ir.NewProgram().Add(b.Build())
	m := eval.New(prog, eval.WithForeign(NewRegistry().WithAllocator()))
	out, err := m.Run(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.Bits != 33 {
		t.Errorf("round trip through heap = %d, want 33", out.Return.Bits)
	}
}
