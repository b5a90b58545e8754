package mirmachine

import (
	"context"
	"testing"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

func TestRunFacade(t *testing.T) {
	b := ir.NewFunc("main", types.TypeU64)
	entry := b.Block()
	entry.Assign(b.RetPlace(), ir.Bin(ir.Add, ir.ConstU64(20), ir.ConstU64(22)))
	entry.Return()
	prog := ir.NewProgram().Add(b.Build())

	out, err := Run(context.Background(), prog, "main")
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.Bits != 42 {
		t.Errorf("result = %d, want 42", out.Return.Bits)
	}
}

func TestRunFacadeHasAllocator(t *testing.T) {
	b := ir.NewFunc("main", types.TypeU64)
	p := b.Local(types.PointerTo(types.TypeU64))
	b.Block().Call("malloc", []ir.Operand{ir.ConstU64(8)}, ir.LocalPlace(p), 1)
	work := b.Block()
	work.Assign(ir.LocalPlace(p).Deref(), ir.Use(ir.ConstU64(5)))
	work.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(p).Deref())))
	work.Drop(ir.LocalPlace(p), 2)
	b.Block().Return()
	prog := ir.NewProgram().Add(b.Build())

	out, err := Run(context.Background(), prog, "main")
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.Bits != 5 {
		t.Errorf("heap round trip = %d, want 5", out.Return.Bits)
	}
}

func TestRunFacadeReportsViolations(t *testing.T) {
	b := ir.NewFunc("main", types.TypeU64)
	x := b.Local(types.TypeU64)
	entry := b.Block()
	entry.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(x))))
	entry.Return()
	prog := ir.NewProgram().Add(b.Build())

	_, err := Run(context.Background(), prog, "main")
	if !errors.IsUB(err) {
		t.Fatalf("expected a violation, got %v", err)
	}
}
