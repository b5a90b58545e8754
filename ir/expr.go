package ir

import (
	"math"

	"github.com/wippyai/mir-machine/types"
)

// ProjKind enumerates place projections.
type ProjKind int

const (
	// ProjDeref follows the pointer stored in the place so far.
	ProjDeref ProjKind = iota
	// ProjField selects a struct field or variant payload field by index.
	ProjField
	// ProjIndex selects a constant array element.
	ProjIndex
	// ProjDowncast fixes the variant context for subsequent field
	// projections on an enum place.
	ProjDowncast
)

// Projection is one step of a place path.
type Projection struct {
	Kind  ProjKind
	Index int
}

// Place designates a storage location: a local slot refined by a projection
// chain.
type Place struct {
	Local int
	Proj  []Projection
}

// LocalPlace returns the unprojected place for a local slot.
func LocalPlace(local int) Place {
	return Place{Local: local}
}

// Deref returns p with a pointer dereference appended.
func (p Place) Deref() Place {
	return p.with(Projection{Kind: ProjDeref})
}

// Field returns p with a field selection appended.
func (p Place) Field(i int) Place {
	return p.with(Projection{Kind: ProjField, Index: i})
}

// Index returns p with a constant array index appended.
func (p Place) Index(i int) Place {
	return p.with(Projection{Kind: ProjIndex, Index: i})
}

// Downcast returns p with a variant downcast appended.
func (p Place) Downcast(variant int) Place {
	return p.with(Projection{Kind: ProjDowncast, Index: variant})
}

func (p Place) with(proj Projection) Place {
	out := make([]Projection, len(p.Proj)+1)
	copy(out, p.Proj)
	out[len(p.Proj)] = proj
	return Place{Local: p.Local, Proj: out}
}

// Const is a scalar literal: a bit pattern tagged with its type.
type Const struct {
	Type *types.Type
	Bits uint64
}

// OperandKind enumerates the closed operand set.
type OperandKind int

const (
	// OpCopy reads a place, leaving it intact.
	OpCopy OperandKind = iota
	// OpMove reads a place; the place's contents are dead afterwards.
	OpMove
	// OpConst yields a literal.
	OpConst
)

// Operand is an argument position of an rvalue, call or switch.
type Operand struct {
	Kind  OperandKind
	Place Place
	Const Const
}

// Copy returns a copying place operand.
func Copy(p Place) Operand {
	return Operand{Kind: OpCopy, Place: p}
}

// Move returns a moving place operand.
func Move(p Place) Operand {
	return Operand{Kind: OpMove, Place: p}
}

// ConstOf returns a literal operand with an explicit type.
func ConstOf(t *types.Type, bits uint64) Operand {
	return Operand{Kind: OpConst, Const: Const{Type: t, Bits: bits}}
}

// ConstBool returns a bool literal operand.
func ConstBool(v bool) Operand {
	bits := uint64(0)
	if v {
		bits = 1
	}
	return ConstOf(types.TypeBool, bits)
}

// ConstI64 returns an i64 literal operand.
func ConstI64(v int64) Operand {
	return ConstOf(types.TypeI64, uint64(v))
}

// ConstU64 returns a u64 literal operand.
func ConstU64(v uint64) Operand {
	return ConstOf(types.TypeU64, v)
}

// ConstU8 returns a u8 literal operand.
func ConstU8(v uint8) Operand {
	return ConstOf(types.TypeU8, uint64(v))
}

// ConstF64 returns an f64 literal operand.
func ConstF64(v float64) Operand {
	return ConstOf(types.TypeF64, math.Float64bits(v))
}

// BinOp enumerates binary operators. Semantics are fixed per operator+type
// in the evaluator's operation table.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

var binOpNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Rem: "%",
	BitAnd: "&", BitOr: "|", BitXor: "^", Shl: "<<", Shr: ">>",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "binop?"
}

// UnOp enumerates unary operators.
type UnOp int

const (
	// Not is bitwise complement on integers, logical not on bool.
	Not UnOp = iota
	// Neg is arithmetic negation.
	Neg
)

// CastKind enumerates cast semantics.
type CastKind int

const (
	// CastNumeric converts between numeric types: widen, narrow,
	// sign-extend, int/float.
	CastNumeric CastKind = iota
	// CastPtrToInt exposes a pointer's offset as an integer, discarding
	// provenance.
	CastPtrToInt
	// CastIntToPtr fabricates a pointer from an integer. The result
	// carries no provenance and every dereference of it is a violation.
	CastIntToPtr
)

// RvalueKind enumerates the closed rvalue set.
type RvalueKind int

const (
	// RvUse yields an operand unchanged.
	RvUse RvalueKind = iota
	// RvRef constructs a pointer to a place. The place's allocation must
	// be live at construction time.
	RvRef
	// RvBinary applies a binary operator to two scalar operands.
	RvBinary
	// RvUnary applies a unary operator to one scalar operand.
	RvUnary
	// RvAggregate builds a composite value field by field.
	RvAggregate
	// RvCast converts an operand per CastKind.
	RvCast
	// RvDiscriminant reads the discriminant of an enum place.
	RvDiscriminant
)

// Rvalue is the right-hand side of an assignment.
type Rvalue struct {
	Kind RvalueKind

	// Use/Unary/Cast operand; Binary left operand.
	A Operand
	// Binary right operand.
	B Operand

	BinOp BinOp
	UnOp  UnOp

	// Ref/Discriminant target.
	Place Place

	// Aggregate
	AggType *types.Type
	Variant int
	Elems   []Operand

	// Cast
	CastKind CastKind
	CastTo   *types.Type
}

// Use returns an operand-passthrough rvalue.
func Use(op Operand) Rvalue {
	return Rvalue{Kind: RvUse, A: op}
}

// Ref returns a pointer-construction rvalue.
func Ref(p Place) Rvalue {
	return Rvalue{Kind: RvRef, Place: p}
}

// Bin returns a binary operation rvalue.
func Bin(op BinOp, a, b Operand) Rvalue {
	return Rvalue{Kind: RvBinary, BinOp: op, A: a, B: b}
}

// Un returns a unary operation rvalue.
func Un(op UnOp, a Operand) Rvalue {
	return Rvalue{Kind: RvUnary, UnOp: op, A: a}
}

// Agg returns an aggregate-construction rvalue for structs and arrays.
func Agg(t *types.Type, elems ...Operand) Rvalue {
	return Rvalue{Kind: RvAggregate, AggType: t, Variant: -1, Elems: elems}
}

// AggVariant returns an aggregate-construction rvalue for an enum variant.
func AggVariant(t *types.Type, variant int, elems ...Operand) Rvalue {
	return Rvalue{Kind: RvAggregate, AggType: t, Variant: variant, Elems: elems}
}

// Cast returns a conversion rvalue.
func Cast(kind CastKind, op Operand, to *types.Type) Rvalue {
	return Rvalue{Kind: RvCast, CastKind: kind, A: op, CastTo: to}
}

// Discriminant returns a discriminant-read rvalue.
func Discriminant(p Place) Rvalue {
	return Rvalue{Kind: RvDiscriminant, Place: p}
}
