package eval

import (
	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/memory"
	"github.com/wippyai/mir-machine/types"
)

// dropValue runs drop glue for a place. An owning pointer releases its heap
// allocation; aggregates drop their parts, an enum only the active
// variant's payload. Scalars have no glue.
//
// Uninitialized leaves drop as a no-op, matching lowered code that guards
// drops with init flags. The check sits on the leaves, not the aggregate:
// padding bytes are never initialized, so a whole-range check would skip
// every padded struct. Dropping the same owning pointer twice hits the
// allocator's double-free check.
func (m *Machine) dropValue(pl place) error {
	switch pl.ty.Kind {
	case types.Ptr:
		init, err := m.mem.Initialized(pl.ptr, memory.PointerSize)
		if err != nil {
			return err
		}
		if !init {
			return nil
		}
		ptr, err := m.mem.ReadPointer(pl.ptr)
		if err != nil {
			return err
		}
		if ptr.Wild {
			return errors.New(errors.PhaseAlloc, errors.KindUseAfterFree).
				Detail("drop through a pointer with no provenance").Build()
		}
		if ptr.Alloc == memory.ZeroSized {
			return nil
		}
		return m.mem.Deallocate(ptr.Alloc, memory.KindHeap)

	case types.Struct:
		for i := range pl.ty.Fields {
			fieldPl, err := m.projectField(pl, i)
			if err != nil {
				return err
			}
			if err := m.dropValue(fieldPl); err != nil {
				return err
			}
		}
		return nil

	case types.Array:
		for i := uint64(0); i < pl.ty.Len; i++ {
			elemPl, err := m.projectIndex(pl, int(i))
			if err != nil {
				return err
			}
			if err := m.dropValue(elemPl); err != nil {
				return err
			}
		}
		return nil

	case types.Enum:
		l, err := m.layouts.LayoutOf(pl.ty)
		if err != nil {
			return err
		}
		if vl := l.Variant; vl != nil {
			init, err := m.mem.Initialized(pl.ptr.WithOffset(int64(vl.TagOffset)), vl.TagSize)
			if err != nil {
				return err
			}
			if !init {
				return nil
			}
		}
		tag, err := m.readDiscriminant(pl)
		if err != nil {
			return err
		}
		variant, v, ok := pl.ty.VariantByTag(tag)
		if !ok {
			return nil
		}
		downPl := pl
		downPl.variant = variant
		for i := range v.Fields {
			fieldPl, err := m.projectField(downPl, i)
			if err != nil {
				return err
			}
			if err := m.dropValue(fieldPl); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
