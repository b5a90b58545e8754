package eval

import (
	"math"
	"testing"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

// binProg builds main() -> ret = a op b for one scalar type.
func binProg(ret *types.Type, op ir.BinOp, a, b ir.Operand) *ir.Program {
	f := ir.NewFunc("main", ret)
	entry := f.Block()
	entry.Assign(f.RetPlace(), ir.Bin(op, a, b))
	entry.Return()
	return ir.NewProgram().Add(f.Build())
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		name string
		ret  *types.Type
		op   ir.BinOp
		a, b ir.Operand
		want uint64
	}{
		{"add", types.TypeU64, ir.Add, ir.ConstU64(40), ir.ConstU64(2), 42},
		{"sub", types.TypeU64, ir.Sub, ir.ConstU64(50), ir.ConstU64(8), 42},
		{"mul", types.TypeU64, ir.Mul, ir.ConstU64(6), ir.ConstU64(7), 42},
		{"div", types.TypeU64, ir.Div, ir.ConstU64(85), ir.ConstU64(2), 42},
		{"rem", types.TypeU64, ir.Rem, ir.ConstU64(47), ir.ConstU64(5), 2},
		{"and", types.TypeU64, ir.BitAnd, ir.ConstU64(0xff0f), ir.ConstU64(0x00ff), 0x000f},
		{"or", types.TypeU64, ir.BitOr, ir.ConstU64(0xf0), ir.ConstU64(0x0f), 0xff},
		{"xor", types.TypeU64, ir.BitXor, ir.ConstU64(0xff), ir.ConstU64(0x0f), 0xf0},
		{"shl", types.TypeU64, ir.Shl, ir.ConstU64(1), ir.ConstU64(5), 32},
		{"shr", types.TypeU64, ir.Shr, ir.ConstU64(64), ir.ConstU64(3), 8},
		{"signed div", types.TypeI64, ir.Div, ir.ConstI64(-84), ir.ConstI64(2), ^uint64(41)},
		{"signed rem", types.TypeI64, ir.Rem, ir.ConstI64(-7), ir.ConstI64(3), ^uint64(0)},
		{"narrow add", types.TypeU8, ir.Add, ir.ConstU8(40), ir.ConstU8(2), 42},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, binProg(tc.ret, tc.op, tc.a, tc.b), nil)
			if err != nil {
				t.Fatal(err)
			}
			width := scalarWidth(tc.ret)
			if got := truncate(out.Return.Bits, width); got != truncate(tc.want, width) {
				t.Errorf("got %#x, want %#x", got, tc.want)
			}
		})
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		name string
		op   ir.BinOp
		a, b ir.Operand
		want bool
	}{
		{"lt", ir.Lt, ir.ConstU64(1), ir.ConstU64(2), true},
		{"le equal", ir.Le, ir.ConstU64(2), ir.ConstU64(2), true},
		{"gt", ir.Gt, ir.ConstU64(1), ir.ConstU64(2), false},
		{"eq", ir.Eq, ir.ConstU64(3), ir.ConstU64(3), true},
		{"ne", ir.Ne, ir.ConstU64(3), ir.ConstU64(3), false},
		{"signed lt", ir.Lt, ir.ConstI64(-5), ir.ConstI64(3), true},
		{"signed gt bitpattern", ir.Gt, ir.ConstI64(-1), ir.ConstI64(1), false},
		{"float lt", ir.Lt, ir.ConstF64(1.5), ir.ConstF64(2.5), true},
		{"float nan eq", ir.Eq, ir.ConstF64(nan()), ir.ConstF64(nan()), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, binProg(types.TypeBool, tc.op, tc.a, tc.b), nil)
			if err != nil {
				t.Fatal(err)
			}
			if out.Return.Bool() != tc.want {
				t.Errorf("got %v, want %v", out.Return.Bool(), tc.want)
			}
		})
	}
}

func nan() float64 {
	return math.NaN()
}

func TestDivisionByZero(t *testing.T) {
	for _, op := range []ir.BinOp{ir.Div, ir.Rem} {
		_, err := run(t, binProg(types.TypeU64, op, ir.ConstU64(1), ir.ConstU64(0)), nil)
		wantErrKind(t, err, errors.KindOverflow)
	}
}

func TestSignedDivisionOverflow(t *testing.T) {
	minI64 := ir.ConstI64(-1 << 63)
	_, err := run(t, binProg(types.TypeI64, ir.Div, minI64, ir.ConstI64(-1)), nil)
	wantErrKind(t, err, errors.KindOverflow)

	// Wrapping policy does not excuse it; the result has no representation.
	_, err = run(t, binProg(types.TypeI64, ir.Div, minI64, ir.ConstI64(-1)), nil,
		WithOverflowPolicy(OverflowWrap))
	wantErrKind(t, err, errors.KindOverflow)
}

func TestSignedOverflowDetection(t *testing.T) {
	maxI8 := ir.ConstOf(types.TypeI8, 127)
	one := ir.ConstOf(types.TypeI8, 1)

	_, err := run(t, binProg(types.TypeI8, ir.Add, maxI8, one), nil)
	wantErrKind(t, err, errors.KindOverflow)

	out, err := run(t, binProg(types.TypeI8, ir.Add, maxI8, one), nil,
		WithOverflowPolicy(OverflowWrap))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Return.Int(1); got != -128 {
		t.Errorf("127 + 1 wrapped to %d, want -128", got)
	}
}

func TestShiftOverflow(t *testing.T) {
	_, err := run(t, binProg(types.TypeU8, ir.Shl, ir.ConstU8(1), ir.ConstU8(8)), nil)
	wantErrKind(t, err, errors.KindOverflow)

	out, err := run(t, binProg(types.TypeU8, ir.Shl, ir.ConstU8(1), ir.ConstU8(9)), nil,
		WithOverflowPolicy(OverflowWrap))
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.Bits != 2 {
		t.Errorf("masked shift gave %d, want 2", out.Return.Bits)
	}
}

func TestFloatArithmetic(t *testing.T) {
	out, err := run(t, binProg(types.TypeF64, ir.Add, ir.ConstF64(1.25), ir.ConstF64(2.25)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.F64() != 3.5 {
		t.Errorf("1.25 + 2.25 = %v", out.Return.F64())
	}

	// Float division by zero is IEEE infinity, not a violation.
	out, err = run(t, binProg(types.TypeF64, ir.Div, ir.ConstF64(1), ir.ConstF64(0)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(out.Return.F64(), 1) {
		t.Errorf("1.0 / 0.0 = %v, want +inf", out.Return.F64())
	}
}

func TestUnaryOps(t *testing.T) {
	unProg := func(ret *types.Type, op ir.UnOp, a ir.Operand) *ir.Program {
		f := ir.NewFunc("main", ret)
		entry := f.Block()
		entry.Assign(f.RetPlace(), ir.Un(op, a))
		entry.Return()
		return ir.NewProgram().Add(f.Build())
	}

	out, err := run(t, unProg(types.TypeBool, ir.Not, ir.ConstBool(false)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Return.Bool() {
		t.Error("!false = false")
	}

	out, err = run(t, unProg(types.TypeI64, ir.Neg, ir.ConstI64(42)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.Int(8) != -42 {
		t.Errorf("-42 = %d", out.Return.Int(8))
	}

	out, err = run(t, unProg(types.TypeU8, ir.Not, ir.ConstU8(0x0f)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Return.Bits != 0xf0 {
		t.Errorf("^0x0f = %#x", out.Return.Bits)
	}
}

func TestNumericCasts(t *testing.T) {
	castProg := func(to *types.Type, op ir.Operand) *ir.Program {
		f := ir.NewFunc("main", to)
		entry := f.Block()
		entry.Assign(f.RetPlace(), ir.Cast(ir.CastNumeric, op, to))
		entry.Return()
		return ir.NewProgram().Add(f.Build())
	}

	tests := []struct {
		name string
		to   *types.Type
		op   ir.Operand
		want uint64
	}{
		{"narrow u64 to u8", types.TypeU8, ir.ConstU64(0x1ff), 0xff},
		{"sign extend i8 to i64", types.TypeI64, ir.ConstOf(types.TypeI8, 0xff), ^uint64(0)},
		{"zero extend u8 to u64", types.TypeU64, ir.ConstU8(0xff), 0xff},
		{"f64 to i32 truncates", types.TypeI32, ir.ConstF64(-3.9), uint64(uint32(0xfffffffd))},
		{"f64 to u8 saturates high", types.TypeU8, ir.ConstF64(1000), 0xff},
		{"f64 to u8 saturates low", types.TypeU8, ir.ConstF64(-5), 0},
		{"nan to int is zero", types.TypeI32, ir.ConstF64(nan()), 0},
		{"bool to u64", types.TypeU64, ir.ConstBool(true), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, castProg(tc.to, tc.op), nil)
			if err != nil {
				t.Fatal(err)
			}
			width := scalarWidth(tc.to)
			if got := truncate(out.Return.Bits, width); got != truncate(tc.want, width) {
				t.Errorf("got %#x, want %#x", got, tc.want)
			}
		})
	}
}
