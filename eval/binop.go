package eval

import (
	"math"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

// evalBinary applies op to two operands of the same scalar type and
// returns the result with its type. Comparisons yield bool; everything
// else keeps the operand type.
func (m *Machine) evalBinary(frame *Frame, op ir.BinOp, a, b ir.Operand) (Scalar, *types.Type, error) {
	lhs, lt, err := m.evalScalarOperand(frame, a)
	if err != nil {
		return Scalar{}, nil, err
	}
	rhs, rt, err := m.evalScalarOperand(frame, b)
	if err != nil {
		return Scalar{}, nil, err
	}
	if lt.Kind != rt.Kind {
		return Scalar{}, nil, errors.MalformedIR("%s applied to %s and %s", op, lt, rt)
	}

	switch {
	case lt.Kind == types.Ptr:
		s, err := m.pointerBinOp(op, lhs, rhs)
		return s, types.TypeBool, err
	case lt.IsFloat():
		return m.floatBinOp(op, lt, lhs, rhs)
	case lt.Kind == types.Bool:
		s, err := boolBinOp(op, lhs, rhs)
		return s, types.TypeBool, err
	case lt.IsInteger():
		return m.intBinOp(op, lt, lhs, rhs)
	}
	return Scalar{}, nil, errors.MalformedIR("%s applied to %s", op, lt)
}

func (m *Machine) intBinOp(op ir.BinOp, t *types.Type, lhs, rhs Scalar) (Scalar, *types.Type, error) {
	width := scalarWidth(t)
	bits := width * 8
	signed := t.IsSigned()

	overflowErr := func() error {
		return errors.New(errors.PhaseEval, errors.KindOverflow).
			Detail("%s %s %s overflows %s", lhs, op, rhs, t).Build()
	}

	switch op {
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		var cmp int
		if signed {
			la, ra := lhs.Int(width), rhs.Int(width)
			cmp = compare(la < ra, la == ra)
		} else {
			la, ra := truncate(lhs.Bits, width), truncate(rhs.Bits, width)
			cmp = compare(la < ra, la == ra)
		}
		return ScalarBool(cmpHolds(op, cmp)), types.TypeBool, nil

	case ir.Add, ir.Sub, ir.Mul:
		raw := arith(op, lhs.Bits, rhs.Bits)
		res := truncate(raw, width)
		if m.overflow == OverflowError && intOverflows(op, t, width, lhs, rhs, ScalarBits(res)) {
			return Scalar{}, nil, overflowErr()
		}
		return ScalarBits(res), t, nil

	case ir.Div, ir.Rem:
		if truncate(rhs.Bits, width) == 0 {
			return Scalar{}, nil, errors.New(errors.PhaseEval, errors.KindOverflow).
				Detail("%s by zero", opName(op)).Build()
		}
		if signed {
			la, ra := lhs.Int(width), rhs.Int(width)
			if ra == -1 && la == minSigned(width) {
				// Overflows regardless of policy; the true result has no
				// representation and wrapping it would be silent corruption.
				return Scalar{}, nil, overflowErr()
			}
			if op == ir.Div {
				return ScalarBits(truncate(uint64(la/ra), width)), t, nil
			}
			return ScalarBits(truncate(uint64(la%ra), width)), t, nil
		}
		la, ra := truncate(lhs.Bits, width), truncate(rhs.Bits, width)
		if op == ir.Div {
			return ScalarBits(la / ra), t, nil
		}
		return ScalarBits(la % ra), t, nil

	case ir.BitAnd:
		return ScalarBits(truncate(lhs.Bits&rhs.Bits, width)), t, nil
	case ir.BitOr:
		return ScalarBits(truncate(lhs.Bits|rhs.Bits, width)), t, nil
	case ir.BitXor:
		return ScalarBits(truncate(lhs.Bits^rhs.Bits, width)), t, nil

	case ir.Shl, ir.Shr:
		amount := truncate(rhs.Bits, width)
		if amount >= bits {
			if m.overflow == OverflowError {
				return Scalar{}, nil, errors.New(errors.PhaseEval, errors.KindOverflow).
					Detail("shift by %d on %d-bit %s", amount, bits, t).Build()
			}
			amount %= bits
		}
		if op == ir.Shl {
			return ScalarBits(truncate(lhs.Bits<<amount, width)), t, nil
		}
		if signed {
			return ScalarBits(truncate(uint64(lhs.Int(width)>>amount), width)), t, nil
		}
		return ScalarBits(truncate(lhs.Bits, width) >> amount), t, nil
	}
	return Scalar{}, nil, errors.MalformedIR("%s on %s", op, t)
}

func (m *Machine) floatBinOp(op ir.BinOp, t *types.Type, lhs, rhs Scalar) (Scalar, *types.Type, error) {
	var la, ra float64
	if t.Kind == types.F32 {
		la, ra = float64(lhs.F32()), float64(rhs.F32())
	} else {
		la, ra = lhs.F64(), rhs.F64()
	}

	switch op {
	case ir.Eq:
		return ScalarBool(la == ra), types.TypeBool, nil
	case ir.Ne:
		return ScalarBool(la != ra), types.TypeBool, nil
	case ir.Lt:
		return ScalarBool(la < ra), types.TypeBool, nil
	case ir.Le:
		return ScalarBool(la <= ra), types.TypeBool, nil
	case ir.Gt:
		return ScalarBool(la > ra), types.TypeBool, nil
	case ir.Ge:
		return ScalarBool(la >= ra), types.TypeBool, nil
	}

	var res float64
	switch op {
	case ir.Add:
		res = la + ra
	case ir.Sub:
		res = la - ra
	case ir.Mul:
		res = la * ra
	case ir.Div:
		res = la / ra
	case ir.Rem:
		res = math.Mod(la, ra)
	default:
		return Scalar{}, nil, errors.MalformedIR("%s on %s", op, t)
	}
	if t.Kind == types.F32 {
		return ScalarF32(float32(res)), t, nil
	}
	return ScalarF64(res), t, nil
}

func boolBinOp(op ir.BinOp, lhs, rhs Scalar) (Scalar, error) {
	la, ra := lhs.Bool(), rhs.Bool()
	switch op {
	case ir.Eq:
		return ScalarBool(la == ra), nil
	case ir.Ne:
		return ScalarBool(la != ra), nil
	case ir.BitAnd:
		return ScalarBool(la && ra), nil
	case ir.BitOr:
		return ScalarBool(la || ra), nil
	case ir.BitXor:
		return ScalarBool(la != ra), nil
	}
	return Scalar{}, errors.MalformedIR("%s on bool", op)
}

// pointerBinOp compares two pointers. Equality is total; ordering is only
// defined within one allocation, comparing addresses across allocations has
// no stable answer in a model without them.
func (m *Machine) pointerBinOp(op ir.BinOp, lhs, rhs Scalar) (Scalar, error) {
	if !lhs.IsPtr || !rhs.IsPtr {
		return Scalar{}, errors.MalformedIR("pointer comparison with non-pointer")
	}
	la, ra := lhs.Ptr, rhs.Ptr
	same := la.Wild == ra.Wild && la.Alloc == ra.Alloc

	switch op {
	case ir.Eq:
		return ScalarBool(same && la.Offset == ra.Offset), nil
	case ir.Ne:
		return ScalarBool(!(same && la.Offset == ra.Offset)), nil
	case ir.Lt, ir.Le, ir.Gt, ir.Ge:
		if !same {
			return Scalar{}, errors.Unsupported(errors.PhaseEval, "ordering of pointers into different allocations")
		}
		cmp := compare(la.Offset < ra.Offset, la.Offset == ra.Offset)
		return ScalarBool(cmpHolds(op, cmp)), nil
	}
	return Scalar{}, errors.MalformedIR("%s on pointers", op)
}

// evalUnary applies a unary operator.
func (m *Machine) evalUnary(frame *Frame, op ir.UnOp, a ir.Operand) (Scalar, error) {
	s, t, err := m.evalScalarOperand(frame, a)
	if err != nil {
		return Scalar{}, err
	}

	switch op {
	case ir.Not:
		if t.Kind == types.Bool {
			return ScalarBool(!s.Bool()), nil
		}
		if t.IsInteger() {
			return ScalarBits(truncate(^s.Bits, scalarWidth(t))), nil
		}
	case ir.Neg:
		if t.IsFloat() {
			if t.Kind == types.F32 {
				return ScalarF32(-s.F32()), nil
			}
			return ScalarF64(-s.F64()), nil
		}
		if t.IsSigned() {
			width := scalarWidth(t)
			if s.Int(width) == minSigned(width) && m.overflow == OverflowError {
				return Scalar{}, errors.New(errors.PhaseEval, errors.KindOverflow).
					Detail("negation of %d overflows %s", s.Int(width), t).Build()
			}
			return ScalarBits(truncate(-s.Bits, width)), nil
		}
	}
	return Scalar{}, errors.MalformedIR("unary %d on %s", int(op), t)
}

func arith(op ir.BinOp, a, b uint64) uint64 {
	switch op {
	case ir.Add:
		return a + b
	case ir.Sub:
		return a - b
	default:
		return a * b
	}
}

// intOverflows reports whether the exact result of op escapes the value
// range of t, i.e. whether the truncated result silently disagrees with
// arithmetic on unbounded integers.
func intOverflows(op ir.BinOp, t *types.Type, width uint64, lhs, rhs, res Scalar) bool {
	if t.IsSigned() {
		la, ra := lhs.Int(width), rhs.Int(width)
		switch op {
		case ir.Add:
			r := la + ra
			return (ra > 0 && r < la) || (ra < 0 && r > la) || r != res.Int(width)
		case ir.Sub:
			r := la - ra
			return (ra < 0 && r < la) || (ra > 0 && r > la) || r != res.Int(width)
		default: // Mul
			if la == 0 {
				return false
			}
			if la == -1 {
				// Dividing by -1 below would itself overflow.
				return ra == minSigned(width)
			}
			r := la * ra
			return r/la != ra || r != res.Int(width)
		}
	}

	la, ra := truncate(lhs.Bits, width), truncate(rhs.Bits, width)
	switch op {
	case ir.Add:
		r := la + ra
		return r < la || truncate(r, width) != r
	case ir.Sub:
		return la < ra
	default: // Mul
		if la == 0 {
			return false
		}
		r := la * ra
		return r/la != ra || truncate(r, width) != r
	}
}

func opName(op ir.BinOp) string {
	if op == ir.Div {
		return "division"
	}
	return "remainder"
}

func minSigned(width uint64) int64 {
	return -1 << (width*8 - 1)
}

// compare folds a three-way comparison into -1, 0 or 1.
func compare(less, equal bool) int {
	switch {
	case less:
		return -1
	case equal:
		return 0
	default:
		return 1
	}
}

// cmpHolds applies a comparison operator to a three-way result.
func cmpHolds(op ir.BinOp, cmp int) bool {
	switch op {
	case ir.Eq:
		return cmp == 0
	case ir.Ne:
		return cmp != 0
	case ir.Lt:
		return cmp < 0
	case ir.Le:
		return cmp <= 0
	case ir.Gt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}
