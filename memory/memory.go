package memory

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/mir-machine/errors"
)

// PointerSize is the byte width of a stored pointer on the modeled target.
const PointerSize uint64 = 8

// maxAllocSize bounds a single allocation even with no usage limit set.
// Requests past it come from hostile or broken programs; letting them reach
// make would kill the host process instead of failing the run.
const maxAllocSize uint64 = 1 << 48

// Memory owns every byte of the interpreted program as a table of
// allocations. All reads and writes pass through the access validator; the
// host address space never leaks into the model.
//
// One Memory belongs to one Machine and one run. Not safe for concurrent
// use, and never needs to be.
type Memory struct {
	allocs map[AllocID]*Allocation
	nextID AllocID
	usage  uint64
	limit  uint64 // 0 = unlimited
}

// New creates an empty memory with no usage limit.
func New() *Memory {
	return NewWithLimit(0)
}

// NewWithLimit creates an empty memory that fails allocation with an
// out-of-memory report once limit bytes are live. limit 0 means unlimited.
func NewWithLimit(limit uint64) *Memory {
	m := &Memory{
		allocs: make(map[AllocID]*Allocation),
		nextID: ZeroSized + 1,
		limit:  limit,
	}
	// The reserved zero-sized allocation gives zero-sized pointers a live
	// identity without storage.
	m.allocs[ZeroSized] = &Allocation{
		initMask:    NewInitMask(0),
		relocations: make(map[uint64]Relocation),
		align:       1,
		kind:        KindStatic,
		live:        true,
	}
	return m
}

// Allocate creates a live allocation with every byte uninitialized and
// returns the pointer to its start. Zero-sized requests resolve to the
// reserved zero-sized allocation.
func (m *Memory) Allocate(size, align uint64, kind Kind) (Pointer, error) {
	if align == 0 {
		align = 1
	}
	if size == 0 {
		return Pointer{Alloc: ZeroSized}, nil
	}
	if size > maxAllocSize {
		return Pointer{}, errors.OutOfMemory(size, m.usage, maxAllocSize)
	}
	if m.limit != 0 && m.usage+size > m.limit {
		return Pointer{}, errors.OutOfMemory(size, m.usage, m.limit)
	}

	id := m.nextID
	m.nextID++
	m.usage += size
	m.allocs[id] = &Allocation{
		bytes:       make([]byte, size),
		initMask:    NewInitMask(size),
		relocations: make(map[uint64]Relocation),
		align:       align,
		kind:        kind,
		mutable:     kind != KindStatic,
		live:        true,
	}
	return Pointer{Alloc: id}, nil
}

// AllocateData creates an allocation pre-filled with data, fully
// initialized. KindStatic allocations come out read-only.
func (m *Memory) AllocateData(data []byte, align uint64, kind Kind) (Pointer, error) {
	ptr, err := m.Allocate(uint64(len(data)), align, kind)
	if err != nil {
		return Pointer{}, err
	}
	if len(data) == 0 {
		return ptr, nil
	}
	alloc := m.allocs[ptr.Alloc]
	copy(alloc.bytes, data)
	alloc.initMask.SetRange(0, uint64(len(data)), true)
	return ptr, nil
}

// Deallocate marks an allocation dead. The entry stays in the table so that
// pointers derived from it keep failing with use-after-free instead of
// silently aliasing a later allocation.
func (m *Memory) Deallocate(id AllocID, expect Kind) error {
	if id == ZeroSized {
		return nil
	}
	alloc, ok := m.allocs[id]
	if !ok {
		return errors.New(errors.PhaseAlloc, errors.KindMalformedIR).
			Detail("deallocation of unknown allocation %d", uint64(id)).Build()
	}
	if !alloc.live {
		return errors.New(errors.PhaseAlloc, errors.KindDoubleFree).
			Alloc(uint64(id), 0).
			Detail("allocation already deallocated").Build()
	}
	if alloc.kind != expect {
		return errors.New(errors.PhaseAlloc, errors.KindKindMismatch).
			Alloc(uint64(id), 0).
			Detail("deallocating %s allocation as %s", alloc.kind, expect).Build()
	}

	m.usage -= alloc.Size()
	alloc.live = false
	// Dead bytes are inert; release the buffers, every later access fails
	// the liveness check before touching them.
	alloc.bytes = nil
	alloc.initMask = nil
	alloc.relocations = nil
	return nil
}

// Get returns the allocation for id, live or dead.
func (m *Memory) Get(id AllocID) (*Allocation, bool) {
	a, ok := m.allocs[id]
	return a, ok
}

// ReadBytes returns a copy of size bytes at ptr. The range must be live, in
// bounds and fully initialized, and must not overlap stored pointer bytes:
// provenance cannot be read as plain data, only ReadPointer reconstructs it.
func (m *Memory) ReadBytes(ptr Pointer, size uint64) ([]byte, error) {
	alloc, err := m.checkAccess(errors.PhaseRead, ptr, size, 1, false)
	if err != nil {
		return nil, err
	}
	if err := m.checkInit(alloc, ptr, size); err != nil {
		return nil, err
	}
	if len(m.relocationsIn(alloc, ptr.Offset, ptr.Offset+size)) > 0 {
		return nil, errors.New(errors.PhaseRead, errors.KindUninitializedRead).
			Alloc(uint64(ptr.Alloc), ptr.Offset).
			Detail("range overlaps pointer bytes; provenance cannot be read as plain data").Build()
	}
	out := make([]byte, size)
	copy(out, alloc.bytes[ptr.Offset:ptr.Offset+size])
	return out, nil
}

// WriteBytes stores data at ptr, marking the range initialized. Pointer
// provenance overlapping the range is discarded: a partially overwritten
// pointer is torn, so the bytes of the old relocation outside the write
// become uninitialized.
func (m *Memory) WriteBytes(ptr Pointer, data []byte) error {
	size := uint64(len(data))
	alloc, err := m.checkAccess(errors.PhaseWrite, ptr, size, 1, true)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	m.clearRelocations(alloc, ptr.Offset, ptr.Offset+size)
	copy(alloc.bytes[ptr.Offset:ptr.Offset+size], data)
	alloc.initMask.SetRange(ptr.Offset, ptr.Offset+size, true)
	return nil
}

// WriteRepeat stores count copies of val at ptr.
func (m *Memory) WriteRepeat(ptr Pointer, val byte, count uint64) error {
	alloc, err := m.checkAccess(errors.PhaseWrite, ptr, count, 1, true)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	m.clearRelocations(alloc, ptr.Offset, ptr.Offset+count)
	for i := uint64(0); i < count; i++ {
		alloc.bytes[ptr.Offset+i] = val
	}
	alloc.initMask.SetRange(ptr.Offset, ptr.Offset+count, true)
	return nil
}

// Copy transfers size bytes from src to dst, propagating raw bytes,
// initialization state and pointer relocations. Correct for any overlap of
// source and destination. Relocations that would be cut at the edge of the
// source range make the copy ill-formed.
func (m *Memory) Copy(src, dst Pointer, size uint64) error {
	srcAlloc, err := m.checkAccess(errors.PhaseRead, src, size, 1, false)
	if err != nil {
		return err
	}
	dstAlloc, err := m.checkAccess(errors.PhaseWrite, dst, size, 1, true)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	if err := m.checkRelocationEdges(srcAlloc, src, size); err != nil {
		return err
	}

	// Stage everything before mutating so overlapping ranges of the same
	// allocation copy exactly.
	staged := make([]byte, size)
	copy(staged, srcAlloc.bytes[src.Offset:src.Offset+size])

	type stagedReloc struct {
		offset uint64
		reloc  Relocation
	}
	var relocs []stagedReloc
	for _, off := range m.relocationsIn(srcAlloc, src.Offset, src.Offset+size) {
		relocs = append(relocs, stagedReloc{
			offset: off - src.Offset + dst.Offset,
			reloc:  srcAlloc.relocations[off],
		})
	}

	stagedInit := make([]bool, size)
	for i := uint64(0); i < size; i++ {
		stagedInit[i] = srcAlloc.initMask.Get(src.Offset + i)
	}

	m.clearRelocations(dstAlloc, dst.Offset, dst.Offset+size)
	copy(dstAlloc.bytes[dst.Offset:dst.Offset+size], staged)
	for i, init := range stagedInit {
		dstAlloc.initMask.Set(dst.Offset+uint64(i), init)
	}
	for _, r := range relocs {
		dstAlloc.relocations[r.offset] = r.reloc
	}
	return nil
}

// Deinit marks size bytes at ptr uninitialized and discards any overlapping
// pointer provenance. Used for moved-from locations, which must not be read
// again.
func (m *Memory) Deinit(ptr Pointer, size uint64) error {
	alloc, err := m.checkAccess(errors.PhaseWrite, ptr, size, 1, true)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	m.clearRelocations(alloc, ptr.Offset, ptr.Offset+size)
	alloc.initMask.SetRange(ptr.Offset, ptr.Offset+size, false)
	return nil
}

// Initialized reports whether every byte of the range is initialized. The
// range itself must be a valid access.
func (m *Memory) Initialized(ptr Pointer, size uint64) (bool, error) {
	alloc, err := m.checkAccess(errors.PhaseRead, ptr, size, 1, false)
	if err != nil {
		return false, err
	}
	_, uninit := alloc.initMask.FirstUninit(ptr.Offset, ptr.Offset+size)
	return !uninit, nil
}

// ReadUint reads a size-byte little-endian unsigned integer. Alignment is
// checked against the integer's natural alignment.
func (m *Memory) ReadUint(ptr Pointer, size uint64) (uint64, error) {
	alloc, err := m.checkAccess(errors.PhaseRead, ptr, size, size, false)
	if err != nil {
		return 0, err
	}
	if err := m.checkInit(alloc, ptr, size); err != nil {
		return 0, err
	}
	if len(m.relocationsIn(alloc, ptr.Offset, ptr.Offset+size)) > 0 {
		return 0, errors.New(errors.PhaseRead, errors.KindUninitializedRead).
			Alloc(uint64(ptr.Alloc), ptr.Offset).
			Detail("integer read overlaps pointer bytes").Build()
	}
	return readLE(alloc.bytes[ptr.Offset:ptr.Offset+size]), nil
}

// WriteUint stores a size-byte little-endian unsigned integer.
func (m *Memory) WriteUint(ptr Pointer, val uint64, size uint64) error {
	alloc, err := m.checkAccess(errors.PhaseWrite, ptr, size, size, true)
	if err != nil {
		return err
	}
	m.clearRelocations(alloc, ptr.Offset, ptr.Offset+size)
	writeLE(alloc.bytes[ptr.Offset:ptr.Offset+size], val)
	alloc.initMask.SetRange(ptr.Offset, ptr.Offset+size, true)
	return nil
}

// ReadInt reads a size-byte little-endian signed integer, sign-extended.
func (m *Memory) ReadInt(ptr Pointer, size uint64) (int64, error) {
	raw, err := m.ReadUint(ptr, size)
	if err != nil {
		return 0, err
	}
	return signExtend(raw, size), nil
}

// WriteInt stores a size-byte little-endian signed integer.
func (m *Memory) WriteInt(ptr Pointer, val int64, size uint64) error {
	return m.WriteUint(ptr, uint64(val), size)
}

// ReadPointer reconstructs a symbolic pointer stored at ptr. A relocation
// record at exactly ptr's offset restores the allocation identity; pointer
// bytes written as a plain integer come back wild, carrying no provenance.
func (m *Memory) ReadPointer(ptr Pointer) (Pointer, error) {
	alloc, err := m.checkAccess(errors.PhaseRead, ptr, PointerSize, PointerSize, false)
	if err != nil {
		return Pointer{}, err
	}
	if err := m.checkInit(alloc, ptr, PointerSize); err != nil {
		return Pointer{}, err
	}
	offset := readLE(alloc.bytes[ptr.Offset : ptr.Offset+PointerSize])
	if reloc, ok := alloc.relocations[ptr.Offset]; ok {
		return Pointer{Alloc: reloc.Target, Offset: offset}, nil
	}
	return WildPointer(offset), nil
}

// WritePointer stores val at dst: its offset as the bit pattern plus a
// relocation record carrying the allocation identity. Wild pointers store
// no relocation.
func (m *Memory) WritePointer(dst Pointer, val Pointer) error {
	alloc, err := m.checkAccess(errors.PhaseWrite, dst, PointerSize, PointerSize, true)
	if err != nil {
		return err
	}
	m.clearRelocations(alloc, dst.Offset, dst.Offset+PointerSize)
	writeLE(alloc.bytes[dst.Offset:dst.Offset+PointerSize], val.Offset)
	alloc.initMask.SetRange(dst.Offset, dst.Offset+PointerSize, true)
	if !val.Wild {
		alloc.relocations[dst.Offset] = Relocation{Target: val.Alloc}
	}
	return nil
}

// Stats is a snapshot of the allocation table.
type Stats struct {
	BytesLive   uint64
	BytesLimit  uint64
	Allocations int
	LiveAllocs  int
	NextID      AllocID
}

// Stats returns current usage counters.
func (m *Memory) Stats() Stats {
	live := 0
	for _, a := range m.allocs {
		if a.live {
			live++
		}
	}
	return Stats{
		BytesLive:   m.usage,
		BytesLimit:  m.limit,
		Allocations: len(m.allocs) - 1, // reserved zero-sized excluded
		LiveAllocs:  live - 1,
		NextID:      m.nextID,
	}
}

// Dump renders an allocation for diagnostics: hex bytes with `__` for
// uninitialized positions, followed by its relocations in offset order.
func (m *Memory) Dump(id AllocID) string {
	alloc, ok := m.allocs[id]
	if !ok {
		return fmt.Sprintf("%s: (unknown)", id)
	}
	if !alloc.live {
		return fmt.Sprintf("%s: (deallocated)", id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d bytes, align %d, %s):", id, alloc.Size(), alloc.align, alloc.kind)
	for i := uint64(0); i < alloc.Size(); i++ {
		if alloc.initMask.Get(i) {
			fmt.Fprintf(&b, " %02x", alloc.bytes[i])
		} else {
			b.WriteString(" __")
		}
	}
	for _, off := range m.relocationsIn(alloc, 0, alloc.Size()) {
		fmt.Fprintf(&b, "\n  +%d -> %s", off, alloc.relocations[off].Target)
	}
	return b.String()
}

// relocationsIn returns the sorted offsets of relocations overlapping
// start..end (end-exclusive).
func (m *Memory) relocationsIn(alloc *Allocation, start, end uint64) []uint64 {
	var offs []uint64
	lo := uint64(0)
	if start >= PointerSize-1 {
		lo = start - (PointerSize - 1)
	}
	for off := range alloc.relocations {
		if off >= lo && off < end {
			offs = append(offs, off)
		}
	}
	sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
	return offs
}

// clearRelocations removes relocations overlapping start..end. Bytes of a
// partially overlapped relocation that fall outside the range become
// uninitialized: a torn pointer is not readable in any form.
func (m *Memory) clearRelocations(alloc *Allocation, start, end uint64) {
	offs := m.relocationsIn(alloc, start, end)
	if len(offs) == 0 {
		return
	}
	first := offs[0]
	last := offs[len(offs)-1] + PointerSize
	if first < start {
		alloc.initMask.SetRange(first, start, false)
	}
	if last > end {
		alloc.initMask.SetRange(end, last, false)
	}
	for _, off := range offs {
		delete(alloc.relocations, off)
	}
}

// checkRelocationEdges rejects a source range that would slice through a
// relocation at either edge.
func (m *Memory) checkRelocationEdges(alloc *Allocation, ptr Pointer, size uint64) error {
	for _, off := range m.relocationsIn(alloc, ptr.Offset, ptr.Offset+size) {
		if off < ptr.Offset || off+PointerSize > ptr.Offset+size {
			return errors.New(errors.PhaseRead, errors.KindUninitializedRead).
				Alloc(uint64(ptr.Alloc), off).
				Detail("copy range cuts through pointer bytes").Build()
		}
	}
	return nil
}

func readLE(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func writeLE(b []byte, val uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	copy(b, buf[:len(b)])
}

func signExtend(raw, size uint64) int64 {
	shift := (8 - size) * 8
	return int64(raw<<shift) >> shift
}
