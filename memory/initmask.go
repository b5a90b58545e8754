package memory

// InitMask tracks per-byte initialization of one allocation using a bitmap.
// Bit i is set once byte i has been written.
type InitMask struct {
	bits []uint64
	len  uint64
}

// NewInitMask creates a mask for size bytes, all uninitialized.
func NewInitMask(size uint64) *InitMask {
	words := (size + 63) / 64
	return &InitMask{bits: make([]uint64, words), len: size}
}

// Get reports whether byte i is initialized.
func (m *InitMask) Get(i uint64) bool {
	if i >= m.len {
		return false
	}
	return m.bits[i/64]&(1<<(i%64)) != 0
}

// Set marks byte i initialized or not.
func (m *InitMask) Set(i uint64, init bool) {
	if i >= m.len {
		return
	}
	if init {
		m.bits[i/64] |= 1 << (i % 64)
	} else {
		m.bits[i/64] &^= 1 << (i % 64)
	}
}

// SetRange marks bytes start..end (end-exclusive) initialized or not.
func (m *InitMask) SetRange(start, end uint64, init bool) {
	if end > m.len {
		end = m.len
	}
	for i := start; i < end; i++ {
		m.Set(i, init)
	}
}

// RangeInit reports whether every byte of start..end (end-exclusive) is
// initialized. Bytes past the mask count as uninitialized.
func (m *InitMask) RangeInit(start, end uint64) bool {
	_, uninit := m.FirstUninit(start, end)
	return !uninit
}

// FirstUninit returns the lowest uninitialized byte in start..end
// (end-exclusive). The second result is false if the whole range is
// initialized.
func (m *InitMask) FirstUninit(start, end uint64) (uint64, bool) {
	for i := start; i < end; i++ {
		if !m.Get(i) {
			return i, true
		}
	}
	return 0, false
}

// Copy transfers the initialization state of size bytes from src at srcOff
// into m at dstOff. State is staged first so the copy is exact when src and
// m are the same mask with overlapping ranges.
func (m *InitMask) Copy(src *InitMask, srcOff, dstOff, size uint64) {
	staged := make([]bool, size)
	for i := uint64(0); i < size; i++ {
		staged[i] = src.Get(srcOff + i)
	}
	for i, init := range staged {
		m.Set(dstOff+uint64(i), init)
	}
}

// Len returns the number of bytes tracked.
func (m *InitMask) Len() uint64 {
	return m.len
}
