package eval

import (
	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/memory"
	"github.com/wippyai/mir-machine/types"
)

// place is a resolved storage location: a pointer into program memory plus
// the type stored there. variant tracks an active downcast so field
// projections inside an enum payload resolve against the right case.
type place struct {
	ptr     memory.Pointer
	ty      *types.Type
	variant int // -1 outside a downcast
}

// resolvePlace walks a place path from its local slot through every
// projection. Dereferences read the pointer out of memory, so a dangling or
// wild pointer fails here, before any access through it.
func (m *Machine) resolvePlace(frame *Frame, p ir.Place) (place, error) {
	if p.Local < 0 || p.Local >= len(frame.locals) {
		return place{}, errors.MalformedIR("local %d out of range in %s", p.Local, frame.fn.Name)
	}
	cur := place{
		ptr:     frame.locals[p.Local],
		ty:      frame.fn.LocalType(p.Local),
		variant: -1,
	}

	for _, proj := range p.Proj {
		var err error
		switch proj.Kind {
		case ir.ProjDeref:
			cur, err = m.projectDeref(cur)
		case ir.ProjField:
			cur, err = m.projectField(cur, proj.Index)
		case ir.ProjIndex:
			cur, err = m.projectIndex(cur, proj.Index)
		case ir.ProjDowncast:
			cur, err = m.projectDowncast(cur, proj.Index)
		default:
			err = errors.MalformedIR("unknown projection kind %d", int(proj.Kind))
		}
		if err != nil {
			return place{}, err
		}
	}
	return cur, nil
}

func (m *Machine) projectDeref(cur place) (place, error) {
	if cur.ty.Kind != types.Ptr {
		return place{}, errors.MalformedIR("deref of non-pointer type %s", cur.ty)
	}
	ptr, err := m.mem.ReadPointer(cur.ptr)
	if err != nil {
		return place{}, err
	}
	elem := cur.ty.Elem
	l, err := m.layouts.LayoutOf(elem)
	if err != nil {
		return place{}, err
	}
	// The pointee must be a live, in-bounds, aligned location now, not
	// merely when it is eventually read.
	if err := m.mem.CheckAccess(ptr, l.Size, l.Align); err != nil {
		return place{}, err
	}
	return place{ptr: ptr, ty: elem, variant: -1}, nil
}

func (m *Machine) projectField(cur place, index int) (place, error) {
	l, err := m.layouts.LayoutOf(cur.ty)
	if err != nil {
		return place{}, err
	}

	switch cur.ty.Kind {
	case types.Struct:
		if index < 0 || index >= len(cur.ty.Fields) {
			return place{}, errors.MalformedIR("field %d out of range for %s", index, cur.ty)
		}
		return place{
			ptr:     cur.ptr.WithOffset(int64(l.FieldOffsets[index])),
			ty:      cur.ty.Fields[index].Type,
			variant: -1,
		}, nil

	case types.Enum:
		if cur.variant < 0 {
			return place{}, errors.MalformedIR("field projection on enum %s without downcast", cur.ty)
		}
		v := cur.ty.Variants[cur.variant]
		if index < 0 || index >= len(v.Fields) {
			return place{}, errors.MalformedIR("field %d out of range for %s::%s", index, cur.ty, v.Name)
		}
		offs := l.Variant.Cases[cur.variant].FieldOffsets
		return place{
			ptr:     cur.ptr.WithOffset(int64(offs[index])),
			ty:      v.Fields[index].Type,
			variant: -1,
		}, nil
	}
	return place{}, errors.MalformedIR("field projection on %s", cur.ty)
}

func (m *Machine) projectIndex(cur place, index int) (place, error) {
	if cur.ty.Kind != types.Array {
		return place{}, errors.MalformedIR("index projection on %s", cur.ty)
	}
	if index < 0 || uint64(index) >= cur.ty.Len {
		return place{}, errors.New(errors.PhaseEval, errors.KindOutOfBounds).
			Alloc(uint64(cur.ptr.Alloc), cur.ptr.Offset).
			Detail("index %d outside array of length %d", index, cur.ty.Len).Build()
	}
	el, err := m.layouts.LayoutOf(cur.ty.Elem)
	if err != nil {
		return place{}, err
	}
	stride := types.AlignTo(el.Size, el.Align)
	return place{
		ptr:     cur.ptr.WithOffset(int64(stride * uint64(index))),
		ty:      cur.ty.Elem,
		variant: -1,
	}, nil
}

func (m *Machine) projectDowncast(cur place, variant int) (place, error) {
	if cur.ty.Kind != types.Enum {
		return place{}, errors.MalformedIR("downcast on %s", cur.ty)
	}
	if variant < 0 || variant >= len(cur.ty.Variants) {
		return place{}, errors.MalformedIR("downcast to variant %d of %s", variant, cur.ty)
	}
	cur.variant = variant
	return cur, nil
}

// placeSize returns the byte size of a resolved place's type.
func (m *Machine) placeSize(pl place) (uint64, error) {
	l, err := m.layouts.LayoutOf(pl.ty)
	if err != nil {
		return 0, err
	}
	return l.Size, nil
}
