package memory

import "fmt"

// AllocID identifies one allocation. Ids are opaque, strictly increasing and
// never reused, so a pointer into a freed allocation stays detectable for
// the lifetime of the run instead of silently aliasing a newer allocation.
type AllocID uint64

// ZeroSized is the reserved id backing all zero-sized allocations. It needs
// no storage and is always live.
const ZeroSized AllocID = 0

func (id AllocID) String() string {
	return fmt.Sprintf("alloc%d", uint64(id))
}

// Kind tags an allocation's origin. Deallocation must name the kind it
// expects, so a heap free on a stack slot is caught as a violation.
type Kind int

const (
	// KindStack backs a frame-local; freed implicitly when the frame pops.
	KindStack Kind = iota
	// KindHeap is created and freed by the interpreted program through
	// the allocator entry points.
	KindHeap
	// KindStatic is read-only memory that lives for the whole run.
	KindStatic
)

var kindNames = [...]string{
	KindStack:  "stack",
	KindHeap:   "heap",
	KindStatic: "static",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Relocation records that pointer-sized bytes at some offset hold a pointer
// into the allocation Target. The bit pattern alone carries only the
// offset; the relocation carries the identity.
type Relocation struct {
	Target AllocID
}

// Allocation is one fixed-size byte buffer. Size, alignment and kind never
// change after creation; death only flips the live flag, the entry stays in
// the table so later accesses fail loudly.
type Allocation struct {
	bytes       []byte
	initMask    *InitMask
	relocations map[uint64]Relocation
	align       uint64
	kind        Kind
	mutable     bool
	live        bool
}

// Size returns the allocation's fixed byte size.
func (a *Allocation) Size() uint64 {
	return uint64(len(a.bytes))
}

// Align returns the allocation's guaranteed alignment.
func (a *Allocation) Align() uint64 {
	return a.align
}

// Kind returns the allocation's origin tag.
func (a *Allocation) Kind() Kind {
	return a.kind
}

// Live reports whether the allocation may still be accessed.
func (a *Allocation) Live() bool {
	return a.live
}

// Mutable reports whether writes are permitted.
func (a *Allocation) Mutable() bool {
	return a.mutable
}

// Pointer is a symbolic address: an allocation identity plus a byte offset.
// It is never a host address; validity is checked against the allocation
// table on every use.
//
// A Wild pointer was synthesized from an integer and carries no provenance;
// the machine conservatively rejects every access through it.
type Pointer struct {
	Alloc  AllocID
	Offset uint64
	Wild   bool
}

// WildPointer returns the provenance-free pointer produced by an int-to-ptr
// cast of the given address value.
func WildPointer(addr uint64) Pointer {
	return Pointer{Offset: addr, Wild: true}
}

// WithOffset returns the pointer moved by delta bytes. Offset arithmetic
// keeps the provenance; it can never reach a different allocation.
func (p Pointer) WithOffset(delta int64) Pointer {
	p.Offset = uint64(int64(p.Offset) + delta)
	return p
}

// AlignedTo reports whether the pointer's offset satisfies align.
func (p Pointer) AlignedTo(align uint64) bool {
	if align <= 1 {
		return true
	}
	return p.Offset%align == 0
}

func (p Pointer) String() string {
	if p.Wild {
		return fmt.Sprintf("wild+%d", p.Offset)
	}
	return fmt.Sprintf("%s+%d", p.Alloc, p.Offset)
}
