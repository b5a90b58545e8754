package eval

import (
	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

// evalRvalue computes rv and stores the result into dst.
func (m *Machine) evalRvalue(frame *Frame, rv ir.Rvalue, dst place) error {
	switch rv.Kind {
	case ir.RvUse:
		return m.copyOperand(frame, rv.A, dst)

	case ir.RvRef:
		return m.evalRef(frame, rv.Place, dst)

	case ir.RvBinary:
		s, _, err := m.evalBinary(frame, rv.BinOp, rv.A, rv.B)
		if err != nil {
			return err
		}
		return m.writeScalar(dst.ptr, dst.ty, s)

	case ir.RvUnary:
		s, err := m.evalUnary(frame, rv.UnOp, rv.A)
		if err != nil {
			return err
		}
		return m.writeScalar(dst.ptr, dst.ty, s)

	case ir.RvAggregate:
		return m.evalAggregate(frame, rv, dst)

	case ir.RvCast:
		return m.evalCast(frame, rv, dst)

	case ir.RvDiscriminant:
		pl, err := m.resolvePlace(frame, rv.Place)
		if err != nil {
			return err
		}
		tag, err := m.readDiscriminant(pl)
		if err != nil {
			return err
		}
		return m.writeScalar(dst.ptr, dst.ty, ScalarBits(tag))
	}
	return errors.MalformedIR("unknown rvalue kind %d", int(rv.Kind))
}

// evalRef materializes a pointer to a place. The target must be a valid
// location at construction time; a reference to freed or misaligned storage
// is a violation even before anyone dereferences it.
func (m *Machine) evalRef(frame *Frame, p ir.Place, dst place) error {
	target, err := m.resolvePlace(frame, p)
	if err != nil {
		return err
	}
	l, err := m.layouts.LayoutOf(target.ty)
	if err != nil {
		return err
	}
	if err := m.mem.CheckAccess(target.ptr, l.Size, l.Align); err != nil {
		return err
	}
	return m.writeScalar(dst.ptr, dst.ty, ScalarPtr(target.ptr))
}

// evalAggregate builds a composite value in place, field by field. The
// destination is wiped first so padding bytes come out uninitialized, the
// same as a freshly constructed value.
func (m *Machine) evalAggregate(frame *Frame, rv ir.Rvalue, dst place) error {
	t := rv.AggType
	if t == nil {
		t = dst.ty
	}
	size, err := m.placeSize(dst)
	if err != nil {
		return err
	}
	if err := m.mem.Deinit(dst.ptr, size); err != nil {
		return err
	}

	switch t.Kind {
	case types.Unit:
		return nil

	case types.Struct:
		if len(rv.Elems) != len(t.Fields) {
			return errors.MalformedIR("%s wants %d fields, got %d", t, len(t.Fields), len(rv.Elems))
		}
		for i, el := range rv.Elems {
			fieldDst, err := m.projectField(place{ptr: dst.ptr, ty: t, variant: -1}, i)
			if err != nil {
				return err
			}
			if err := m.copyOperand(frame, el, fieldDst); err != nil {
				return err
			}
		}
		return nil

	case types.Array:
		if uint64(len(rv.Elems)) != t.Len {
			return errors.MalformedIR("%s wants %d elements, got %d", t, t.Len, len(rv.Elems))
		}
		for i, el := range rv.Elems {
			elemDst, err := m.projectIndex(place{ptr: dst.ptr, ty: t, variant: -1}, i)
			if err != nil {
				return err
			}
			if err := m.copyOperand(frame, el, elemDst); err != nil {
				return err
			}
		}
		return nil

	case types.Enum:
		if rv.Variant < 0 || rv.Variant >= len(t.Variants) {
			return errors.MalformedIR("variant %d of %s", rv.Variant, t)
		}
		v := t.Variants[rv.Variant]
		if len(rv.Elems) != len(v.Fields) {
			return errors.MalformedIR("%s::%s wants %d fields, got %d", t, v.Name, len(v.Fields), len(rv.Elems))
		}
		enumPl := place{ptr: dst.ptr, ty: t, variant: rv.Variant}
		for i, el := range rv.Elems {
			fieldDst, err := m.projectField(enumPl, i)
			if err != nil {
				return err
			}
			if err := m.copyOperand(frame, el, fieldDst); err != nil {
				return err
			}
		}
		// Tag last: for a niche encoding the payload write must not
		// clobber the discriminant.
		return m.writeDiscriminant(enumPl, rv.Variant)
	}
	return errors.MalformedIR("aggregate of %s", t)
}
