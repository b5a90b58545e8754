package memory

import (
	"github.com/wippyai/mir-machine/errors"
)

// Access validation. Every byte operation funnels through checkAccess
// before touching a buffer; the checks run in a fixed priority order and
// the first failure halts the operation with a structured violation:
//
//	1. liveness     dead or provenance-free pointer -> use_after_free
//	2. bounds       offset..offset+size outside [0, size) -> out_of_bounds
//	3. alignment    offset not a multiple of align -> unaligned
//	4. mutability   write to read-only -> write_to_readonly
//
// Initialization (checkInit) runs separately, after the above, and only on
// reads.

func (m *Memory) checkAccess(phase errors.Phase, ptr Pointer, size, align uint64, write bool) (*Allocation, error) {
	if ptr.Wild {
		return nil, errors.New(phase, errors.KindUseAfterFree).
			Detail("pointer carries no provenance (synthesized from integer %#x)", ptr.Offset).Build()
	}

	alloc, ok := m.allocs[ptr.Alloc]
	if !ok {
		return nil, errors.New(phase, errors.KindMalformedIR).
			Detail("pointer into unknown allocation %d", uint64(ptr.Alloc)).Build()
	}
	if !alloc.live {
		return nil, errors.UseAfterFree(phase, uint64(ptr.Alloc), ptr.Offset)
	}
	// Written so offset+size cannot wrap around uint64.
	if ptr.Offset > alloc.Size() || size > alloc.Size()-ptr.Offset {
		return nil, errors.OutOfBounds(phase, uint64(ptr.Alloc), ptr.Offset, size, alloc.Size())
	}
	if !ptr.AlignedTo(align) {
		return nil, errors.Unaligned(phase, uint64(ptr.Alloc), ptr.Offset, align)
	}
	if write && !alloc.mutable {
		return nil, errors.WriteToReadOnly(uint64(ptr.Alloc), ptr.Offset)
	}
	return alloc, nil
}

func (m *Memory) checkInit(alloc *Allocation, ptr Pointer, size uint64) error {
	if witness, uninit := alloc.initMask.FirstUninit(ptr.Offset, ptr.Offset+size); uninit {
		return errors.UninitializedRead(errors.PhaseRead, uint64(ptr.Alloc), witness)
	}
	return nil
}

// CheckAccess validates an access of size bytes at ptr with the given
// required alignment, without performing it. Used by the evaluator to
// reject invalid pointers at construction time, before any dereference.
func (m *Memory) CheckAccess(ptr Pointer, size, align uint64) error {
	_, err := m.checkAccess(errors.PhaseRead, ptr, size, align, false)
	return err
}

// CheckLive validates that ptr resolves to a live allocation.
func (m *Memory) CheckLive(ptr Pointer) error {
	_, err := m.checkAccess(errors.PhaseRead, ptr, 0, 1, false)
	return err
}
