package ir

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/types"
)

func TestBuilderLocalLayout(t *testing.T) {
	b := NewFunc("f", types.TypeI64, types.TypeU8, types.TypeBool)
	tmp := b.Local(types.TypeU32)

	fn := b.Build()
	if fn.NumParams != 2 {
		t.Errorf("NumParams = %d, want 2", fn.NumParams)
	}
	if len(fn.Locals) != 4 {
		t.Fatalf("locals = %d, want 4", len(fn.Locals))
	}
	if fn.Locals[0] != types.TypeI64 {
		t.Error("local 0 should be the return slot type")
	}
	if fn.Locals[1] != types.TypeU8 || fn.Locals[2] != types.TypeBool {
		t.Error("params should occupy locals 1..NumParams")
	}
	if tmp != 3 || fn.Locals[3] != types.TypeU32 {
		t.Errorf("temporary at local %d, want 3", tmp)
	}
	if b.RetPlace().Local != 0 || b.ParamPlace(1).Local != 2 {
		t.Error("place helpers disagree with the local layout")
	}
	if fn.Catch != -1 {
		t.Error("functions should not catch by default")
	}
}

func TestBlockIDsAndDefaultTerminator(t *testing.T) {
	b := NewFunc("f", types.TypeUnit)
	bb0 := b.Block()
	bb1 := b.Block()

	if bb0.ID != 0 || bb1.ID != 1 {
		t.Errorf("block ids = %d, %d, want 0, 1", bb0.ID, bb1.ID)
	}

	// A block never given a terminator ends in Unreachable, which the
	// evaluator reports as UB rather than running off the block's end.
	fn := b.Build()
	if fn.Blocks[1].Term.Kind != TermUnreachable {
		t.Error("unterminated block should default to Unreachable")
	}
}

func TestPlaceProjectionsDoNotAlias(t *testing.T) {
	base := LocalPlace(1).Field(0)
	a := base.Field(1)
	c := base.Index(2)

	if len(base.Proj) != 1 {
		t.Fatalf("base gained projections: %v", base.Proj)
	}
	if a.Proj[1].Kind != ProjField || a.Proj[1].Index != 1 {
		t.Errorf("unexpected projection %+v", a.Proj[1])
	}
	if c.Proj[1].Kind != ProjIndex || c.Proj[1].Index != 2 {
		t.Errorf("unexpected projection %+v", c.Proj[1])
	}
}

func TestValidateAccepts(t *testing.T) {
	b := NewFunc("ok", types.TypeI64)
	bb0 := b.Block()
	b.Block().Return()

	bb0.Assign(b.RetPlace(), Bin(Add, ConstI64(1), ConstI64(1)))
	bb0.Goto(1)

	if err := b.Build().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Func
	}{
		{
			name: "no_blocks",
			build: func() *Func {
				return NewFunc("f", types.TypeUnit).Build()
			},
		},
		{
			name: "goto_out_of_range",
			build: func() *Func {
				b := NewFunc("f", types.TypeUnit)
				b.Block().Goto(5)
				return b.Build()
			},
		},
		{
			name: "assign_to_missing_local",
			build: func() *Func {
				b := NewFunc("f", types.TypeUnit)
				bb := b.Block()
				bb.Assign(LocalPlace(9), Use(ConstI64(0)))
				bb.Return()
				return b.Build()
			},
		},
		{
			name: "switch_arity_mismatch",
			build: func() *Func {
				b := NewFunc("f", types.TypeUnit)
				b.Block().SwitchInt(ConstI64(0), []uint64{0, 1}, []int{0}, -1)
				return b.Build()
			},
		},
		{
			name: "switch_otherwise_out_of_range",
			build: func() *Func {
				b := NewFunc("f", types.TypeUnit)
				b.Block().SwitchInt(ConstI64(0), nil, nil, 3)
				return b.Build()
			},
		},
		{
			name: "call_without_callee",
			build: func() *Func {
				b := NewFunc("f", types.TypeUnit)
				b.Block().Call("", nil, b.RetPlace(), 0)
				return b.Build()
			},
		},
		{
			name: "catch_out_of_range",
			build: func() *Func {
				b := NewFunc("f", types.TypeUnit)
				b.Block().Return()
				b.CatchAt(2)
				return b.Build()
			},
		},
	}

	want := errors.MalformedIR("")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build().Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !stderrors.Is(err, want) {
				t.Errorf("error %v is not malformed_ir", err)
			}
		})
	}
}

func TestProgramLookup(t *testing.T) {
	b := NewFunc("main", types.TypeUnit)
	b.Block().Return()

	p := NewProgram().Add(b.Build())

	if _, ok := p.Func("main"); !ok {
		t.Error("registered function not found")
	}
	if _, ok := p.Func("missing"); ok {
		t.Error("unexpected function resolution")
	}
	if names := p.Names(); len(names) != 1 || names[0] != "main" {
		t.Errorf("Names() = %v", names)
	}
}
