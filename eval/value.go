package eval

import (
	"fmt"
	"math"

	"github.com/wippyai/mir-machine/memory"
	"github.com/wippyai/mir-machine/types"
)

// Scalar is an operand value small enough to live outside memory: an
// integer, float or bool bit pattern, or a pointer. Aggregates never pass
// through Scalar; they move between places as memory copies.
type Scalar struct {
	Bits  uint64
	Ptr   memory.Pointer
	IsPtr bool
}

// ScalarBits returns a plain bit-pattern scalar.
func ScalarBits(bits uint64) Scalar {
	return Scalar{Bits: bits}
}

// ScalarPtr returns a pointer scalar.
func ScalarPtr(ptr memory.Pointer) Scalar {
	return Scalar{Ptr: ptr, IsPtr: true}
}

// ScalarBool returns a bool scalar.
func ScalarBool(v bool) Scalar {
	if v {
		return Scalar{Bits: 1}
	}
	return Scalar{}
}

// ScalarF64 returns an f64 scalar.
func ScalarF64(v float64) Scalar {
	return Scalar{Bits: math.Float64bits(v)}
}

// ScalarF32 returns an f32 scalar.
func ScalarF32(v float32) Scalar {
	return Scalar{Bits: uint64(math.Float32bits(v))}
}

// Bool interprets the scalar as a bool bit pattern.
func (s Scalar) Bool() bool {
	return s.Bits != 0
}

// F64 interprets the scalar's bits as an f64.
func (s Scalar) F64() float64 {
	return math.Float64frombits(s.Bits)
}

// F32 interprets the scalar's bits as an f32.
func (s Scalar) F32() float32 {
	return math.Float32frombits(uint32(s.Bits))
}

// Int interprets the scalar as a signed integer of the given byte width.
func (s Scalar) Int(size uint64) int64 {
	shift := (8 - size) * 8
	return int64(s.Bits<<shift) >> shift
}

func (s Scalar) String() string {
	if s.IsPtr {
		return s.Ptr.String()
	}
	return fmt.Sprintf("%#x", s.Bits)
}

// scalarWidth returns the byte width of a scalar type's stored form.
func scalarWidth(t *types.Type) uint64 {
	switch t.Kind {
	case types.Bool, types.U8, types.I8:
		return 1
	case types.U16, types.I16:
		return 2
	case types.U32, types.I32, types.F32:
		return 4
	case types.U64, types.I64, types.F64:
		return 8
	case types.Ptr:
		return memory.PointerSize
	}
	return 0
}

// truncate masks bits down to the given byte width.
func truncate(bits uint64, size uint64) uint64 {
	if size >= 8 {
		return bits
	}
	return bits & (1<<(size*8) - 1)
}
