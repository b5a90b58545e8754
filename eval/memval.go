package eval

import (
	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/memory"
	"github.com/wippyai/mir-machine/types"
)

// readScalar loads a scalar-typed value from memory. Bool loads validate
// the bit pattern; anything but 0 or 1 in a bool is a violation.
func (m *Machine) readScalar(ptr memory.Pointer, t *types.Type) (Scalar, error) {
	switch t.Kind {
	case types.Unit:
		return Scalar{}, nil
	case types.Ptr:
		p, err := m.mem.ReadPointer(ptr)
		if err != nil {
			return Scalar{}, err
		}
		return ScalarPtr(p), nil
	case types.Bool:
		bits, err := m.mem.ReadUint(ptr, 1)
		if err != nil {
			return Scalar{}, err
		}
		if bits > 1 {
			return Scalar{}, errors.New(errors.PhaseRead, errors.KindInvalidBool).
				Alloc(uint64(ptr.Alloc), ptr.Offset).
				Detail("bool holds %#x", bits).Build()
		}
		return ScalarBits(bits), nil
	}
	width := scalarWidth(t)
	if width == 0 {
		return Scalar{}, errors.MalformedIR("scalar read of %s", t)
	}
	bits, err := m.mem.ReadUint(ptr, width)
	if err != nil {
		return Scalar{}, err
	}
	return ScalarBits(bits), nil
}

// writeScalar stores a scalar-typed value. Integer scalars landing in a
// pointer slot become wild pointers; their bit pattern carries no
// provenance.
func (m *Machine) writeScalar(ptr memory.Pointer, t *types.Type, s Scalar) error {
	switch t.Kind {
	case types.Unit:
		return nil
	case types.Ptr:
		if s.IsPtr {
			return m.mem.WritePointer(ptr, s.Ptr)
		}
		return m.mem.WritePointer(ptr, memory.WildPointer(s.Bits))
	}
	width := scalarWidth(t)
	if width == 0 {
		return errors.MalformedIR("scalar write of %s", t)
	}
	bits := s.Bits
	if s.IsPtr {
		bits = s.Ptr.Offset
	}
	return m.mem.WriteUint(ptr, truncate(bits, width), width)
}

// operandType returns the static type of an operand in the given frame.
func (m *Machine) operandType(frame *Frame, op ir.Operand) (*types.Type, error) {
	if op.Kind == ir.OpConst {
		if op.Const.Type == nil {
			return nil, errors.MalformedIR("constant without type")
		}
		return op.Const.Type, nil
	}
	pl, err := m.resolvePlace(frame, op.Place)
	if err != nil {
		return nil, err
	}
	return pl.ty, nil
}

// evalScalarOperand evaluates an operand that must be scalar-typed. Move
// operands deinitialize their source after the read.
func (m *Machine) evalScalarOperand(frame *Frame, op ir.Operand) (Scalar, *types.Type, error) {
	if op.Kind == ir.OpConst {
		t := op.Const.Type
		if t == nil {
			return Scalar{}, nil, errors.MalformedIR("constant without type")
		}
		return ScalarBits(op.Const.Bits), t, nil
	}

	pl, err := m.resolvePlace(frame, op.Place)
	if err != nil {
		return Scalar{}, nil, err
	}
	if !pl.ty.IsScalar() && pl.ty.Kind != types.Unit {
		return Scalar{}, nil, errors.MalformedIR("scalar operand of type %s", pl.ty)
	}
	s, err := m.readScalar(pl.ptr, pl.ty)
	if err != nil {
		return Scalar{}, nil, err
	}
	if op.Kind == ir.OpMove {
		if err := m.deinitPlace(pl); err != nil {
			return Scalar{}, nil, err
		}
	}
	return s, pl.ty, nil
}

// copyOperand transfers an operand of any type into dst, which must share
// the operand's type. Scalar places go through readScalar, so an invalid
// or uninitialized source fails here. Aggregates copy through memory and
// carry their initialization state and pointer provenance byte for byte.
func (m *Machine) copyOperand(frame *Frame, op ir.Operand, dst place) error {
	if op.Kind == ir.OpConst {
		t := op.Const.Type
		if t == nil {
			return errors.MalformedIR("constant without type")
		}
		return m.writeScalar(dst.ptr, t, ScalarBits(op.Const.Bits))
	}

	src, err := m.resolvePlace(frame, op.Place)
	if err != nil {
		return err
	}
	if src.ty.IsScalar() {
		// Scalars convert place to value right here, so an uninitialized
		// or invalid source fails at the statement that uses it, with the
		// frame stack still standing.
		s, err := m.readScalar(src.ptr, src.ty)
		if err != nil {
			return err
		}
		if err := m.writeScalar(dst.ptr, dst.ty, s); err != nil {
			return err
		}
	} else {
		size, err := m.placeSize(src)
		if err != nil {
			return err
		}
		if err := m.mem.Copy(src.ptr, dst.ptr, size); err != nil {
			return err
		}
	}
	if op.Kind == ir.OpMove {
		return m.deinitPlace(src)
	}
	return nil
}

// deinitPlace marks a moved-from place uninitialized. Reading it again is
// then a violation, which is exactly what a use-after-move should be.
func (m *Machine) deinitPlace(pl place) error {
	size, err := m.placeSize(pl)
	if err != nil {
		return err
	}
	return m.mem.Deinit(pl.ptr, size)
}

// readDiscriminant decodes the active variant of an enum place and returns
// its declared tag value.
func (m *Machine) readDiscriminant(pl place) (uint64, error) {
	if pl.ty.Kind != types.Enum {
		return 0, errors.MalformedIR("discriminant of %s", pl.ty)
	}
	l, err := m.layouts.LayoutOf(pl.ty)
	if err != nil {
		return 0, err
	}
	vl := l.Variant
	if vl == nil {
		return 0, errors.MalformedIR("enum %s has no variants", pl.ty)
	}
	tagPtr := pl.ptr.WithOffset(int64(vl.TagOffset))

	switch vl.Encoding {
	case types.TagDirect:
		raw, err := m.mem.ReadUint(tagPtr, vl.TagSize)
		if err != nil {
			return 0, err
		}
		if _, _, ok := pl.ty.VariantByTag(raw); !ok {
			return 0, errors.InvalidDiscriminant(errors.PhaseRead, raw, len(pl.ty.Variants))
		}
		return raw, nil

	case types.TagNiche:
		raw, err := m.readNicheBits(tagPtr, vl.TagSize)
		if err != nil {
			return 0, err
		}
		if v, ok := nicheVariant(pl.ty, vl, raw); ok {
			return pl.ty.Variants[v].Tag, nil
		}
		return pl.ty.Variants[vl.Untagged].Tag, nil
	}
	return 0, errors.MalformedIR("unknown discriminant encoding")
}

// writeDiscriminant marks the given variant active. For direct encodings
// this stores the tag; for niche encodings only non-untagged variants
// leave a trace, the untagged variant is defined by its payload alone.
func (m *Machine) writeDiscriminant(pl place, variant int) error {
	l, err := m.layouts.LayoutOf(pl.ty)
	if err != nil {
		return err
	}
	vl := l.Variant
	if vl == nil || variant < 0 || variant >= len(pl.ty.Variants) {
		return errors.MalformedIR("variant %d of %s", variant, pl.ty)
	}
	tagPtr := pl.ptr.WithOffset(int64(vl.TagOffset))

	switch vl.Encoding {
	case types.TagDirect:
		return m.mem.WriteUint(tagPtr, truncate(pl.ty.Variants[variant].Tag, vl.TagSize), vl.TagSize)

	case types.TagNiche:
		if variant == vl.Untagged {
			return nil
		}
		niche := vl.NicheStart + nicheIndex(pl.ty, vl, variant)
		if vl.TagSize == memory.PointerSize {
			// The niche aliases pointer bytes; store the raw value with no
			// provenance so later pointer reads see it as invalid.
			return m.mem.WritePointer(tagPtr, memory.WildPointer(niche))
		}
		return m.mem.WriteUint(tagPtr, truncate(niche, vl.TagSize), vl.TagSize)
	}
	return errors.MalformedIR("unknown discriminant encoding")
}

// readNicheBits reads the niche field's raw value. A pointer-width niche
// slot may legitimately hold a pointer with provenance; any live pointer
// there means the untagged variant, represented as a value outside the
// niche range.
func (m *Machine) readNicheBits(ptr memory.Pointer, size uint64) (uint64, error) {
	if size == memory.PointerSize {
		p, err := m.mem.ReadPointer(ptr)
		if err != nil {
			return 0, err
		}
		if !p.Wild {
			// Real provenance: treat as an address that can never fall in
			// a niche range starting near zero.
			return ^uint64(0), nil
		}
		return p.Offset, nil
	}
	return m.mem.ReadUint(ptr, size)
}

// nicheVariant maps a raw niche value to the tagged variant it encodes.
func nicheVariant(t *types.Type, vl *types.VariantLayout, raw uint64) (int, bool) {
	if raw < vl.NicheStart {
		return 0, false
	}
	idx := raw - vl.NicheStart
	seen := uint64(0)
	for i := range t.Variants {
		if i == vl.Untagged {
			continue
		}
		if seen == idx {
			return i, true
		}
		seen++
	}
	return 0, false
}

// nicheIndex is the inverse of nicheVariant: the position of a tagged
// variant among the tagged variants in declaration order.
func nicheIndex(t *types.Type, vl *types.VariantLayout, variant int) uint64 {
	idx := uint64(0)
	for i := 0; i < variant; i++ {
		if i != vl.Untagged {
			idx++
		}
	}
	return idx
}
