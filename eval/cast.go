package eval

import (
	"math"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/memory"
	"github.com/wippyai/mir-machine/types"
)

// evalCast converts an operand per the cast kind and stores the result.
func (m *Machine) evalCast(frame *Frame, rv ir.Rvalue, dst place) error {
	src, st, err := m.evalScalarOperand(frame, rv.A)
	if err != nil {
		return err
	}
	to := rv.CastTo
	if to == nil {
		to = dst.ty
	}

	switch rv.CastKind {
	case ir.CastNumeric:
		out, err := numericCast(src, st, to)
		if err != nil {
			return err
		}
		return m.writeScalar(dst.ptr, dst.ty, out)

	case ir.CastPtrToInt:
		if st.Kind != types.Ptr {
			return errors.MalformedIR("ptr-to-int cast of %s", st)
		}
		if !to.IsInteger() {
			return errors.MalformedIR("ptr-to-int cast to %s", to)
		}
		// Only the offset survives. The allocation identity has no integer
		// representation, which is exactly why the reverse cast is wild.
		return m.writeScalar(dst.ptr, dst.ty, ScalarBits(truncate(src.Ptr.Offset, scalarWidth(to))))

	case ir.CastIntToPtr:
		if !st.IsInteger() {
			return errors.MalformedIR("int-to-ptr cast of %s", st)
		}
		if to.Kind != types.Ptr {
			return errors.MalformedIR("int-to-ptr cast to %s", to)
		}
		return m.writeScalar(dst.ptr, dst.ty, ScalarPtr(memory.WildPointer(truncate(src.Bits, scalarWidth(st)))))
	}
	return errors.MalformedIR("unknown cast kind %d", int(rv.CastKind))
}

// numericCast converts between numeric scalar types. Integer narrowing
// truncates, widening follows the source signedness, float-to-int
// saturates at the target's range, NaN becomes zero.
func numericCast(src Scalar, from, to *types.Type) (Scalar, error) {
	switch {
	case from.IsInteger() && to.IsInteger():
		fw, tw := scalarWidth(from), scalarWidth(to)
		if from.IsSigned() {
			return ScalarBits(truncate(uint64(src.Int(fw)), tw)), nil
		}
		return ScalarBits(truncate(truncate(src.Bits, fw), tw)), nil

	case from.IsInteger() && to.IsFloat():
		var v float64
		if from.IsSigned() {
			v = float64(src.Int(scalarWidth(from)))
		} else {
			v = float64(truncate(src.Bits, scalarWidth(from)))
		}
		if to.Kind == types.F32 {
			return ScalarF32(float32(v)), nil
		}
		return ScalarF64(v), nil

	case from.IsFloat() && to.IsInteger():
		var v float64
		if from.Kind == types.F32 {
			v = float64(src.F32())
		} else {
			v = src.F64()
		}
		return floatToInt(v, to), nil

	case from.IsFloat() && to.IsFloat():
		if from.Kind == to.Kind {
			return src, nil
		}
		if to.Kind == types.F32 {
			return ScalarF32(float32(src.F64())), nil
		}
		return ScalarF64(float64(src.F32())), nil

	case from.Kind == types.Bool && to.IsInteger():
		return ScalarBits(truncate(src.Bits, scalarWidth(to))), nil
	}
	return Scalar{}, errors.MalformedIR("numeric cast %s to %s", from, to)
}

func floatToInt(v float64, to *types.Type) Scalar {
	width := scalarWidth(to)
	if math.IsNaN(v) {
		return ScalarBits(0)
	}
	v = math.Trunc(v)

	if to.IsSigned() {
		min := float64(minSigned(width))
		maxBits := uint64(1)<<(width*8-1) - 1
		switch {
		case v < min:
			return ScalarBits(truncate(uint64(minSigned(width)), width))
		case v >= -min:
			return ScalarBits(maxBits)
		}
		return ScalarBits(truncate(uint64(int64(v)), width))
	}

	limit := math.Ldexp(1, int(width*8))
	switch {
	case v < 0:
		return ScalarBits(0)
	case v >= limit:
		return ScalarBits(truncate(^uint64(0), width))
	}
	return ScalarBits(truncate(uint64(v), width))
}
