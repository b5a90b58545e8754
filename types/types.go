package types

import "fmt"

// Kind discriminates type descriptors. The set is closed; every consumer
// switches exhaustively over it.
type Kind int

const (
	Unit Kind = iota
	Bool
	U8
	U16
	U32
	U64
	I8
	I16
	I32
	I64
	F32
	F64
	Ptr
	Struct
	Array
	Enum
)

var kindNames = [...]string{
	Unit:   "unit",
	Bool:   "bool",
	U8:     "u8",
	U16:    "u16",
	U32:    "u32",
	U64:    "u64",
	I8:     "i8",
	I16:    "i16",
	I32:    "i32",
	I64:    "i64",
	F32:    "f32",
	F64:    "f64",
	Ptr:    "ptr",
	Struct: "struct",
	Array:  "array",
	Enum:   "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is a named struct or variant-payload member.
type Field struct {
	Name string
	Type *Type
}

// Variant is one case of an Enum. Tag is the declared discriminant value;
// the set of Tag values across an enum's variants is its declared variant
// set, and any other discriminant is invalid.
type Variant struct {
	Name   string
	Tag    uint64
	Fields []Field
}

// NicheSpec requests the niche discriminant encoding for an enum: instead of
// a separate tag, otherwise-invalid bit patterns of one variant's payload
// encode the remaining variants. Offset/Size locate the niche field inside
// the untagged variant's payload; tag value t for tagged variant i is
// Start+i (counting tagged variants in declaration order).
type NicheSpec struct {
	Offset   uint64
	Size     uint64
	Start    uint64
	Untagged int
}

// Type is a type descriptor. Descriptors are immutable after construction
// and may be shared freely; the layout calculator caches per descriptor
// identity.
type Type struct {
	Kind     Kind
	Name     string
	Elem     *Type
	Len      uint64
	Fields   []Field
	Variants []Variant
	Niche    *NicheSpec
}

// Predeclared descriptors for the fixed-size primitives.
var (
	TypeUnit = &Type{Kind: Unit}
	TypeBool = &Type{Kind: Bool}
	TypeU8   = &Type{Kind: U8}
	TypeU16  = &Type{Kind: U16}
	TypeU32  = &Type{Kind: U32}
	TypeU64  = &Type{Kind: U64}
	TypeI8   = &Type{Kind: I8}
	TypeI16  = &Type{Kind: I16}
	TypeI32  = &Type{Kind: I32}
	TypeI64  = &Type{Kind: I64}
	TypeF32  = &Type{Kind: F32}
	TypeF64  = &Type{Kind: F64}
)

// PointerTo returns a thin pointer descriptor.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: Ptr, Elem: elem}
}

// StructOf returns a struct descriptor with fields laid out in declaration
// order.
func StructOf(name string, fields ...Field) *Type {
	return &Type{Kind: Struct, Name: name, Fields: fields}
}

// ArrayOf returns a fixed-length array descriptor.
func ArrayOf(elem *Type, n uint64) *Type {
	return &Type{Kind: Array, Elem: elem, Len: n}
}

// EnumOf returns an enum descriptor with a direct tag encoding. A variant
// whose Tag is left zero gets its declaration index as tag; set Tag
// explicitly for sparse discriminant sets.
func EnumOf(name string, variants ...Variant) *Type {
	tagged := make([]Variant, len(variants))
	copy(tagged, variants)
	for i := range tagged {
		if i > 0 && tagged[i].Tag == 0 {
			tagged[i].Tag = uint64(i)
		}
	}
	return &Type{Kind: Enum, Name: name, Variants: tagged}
}

func (t *Type) String() string {
	switch t.Kind {
	case Ptr:
		return "*" + t.Elem.String()
	case Array:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	case Struct, Enum:
		if t.Name != "" {
			return t.Name
		}
	}
	return t.Kind.String()
}

// IsScalar reports whether values of t fit in a single scalar immediate.
func (t *Type) IsScalar() bool {
	switch t.Kind {
	case Bool, U8, U16, U32, U64, I8, I16, I32, I64, F32, F64, Ptr:
		return true
	}
	return false
}

// IsSigned reports whether t is a signed integer type.
func (t *Type) IsSigned() bool {
	switch t.Kind {
	case I8, I16, I32, I64:
		return true
	}
	return false
}

// IsInteger reports whether t is an integer type of either signedness.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case U8, U16, U32, U64, I8, I16, I32, I64:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating point type.
func (t *Type) IsFloat() bool {
	return t.Kind == F32 || t.Kind == F64
}

// VariantByTag returns the variant with the given declared tag value.
func (t *Type) VariantByTag(tag uint64) (int, *Variant, bool) {
	for i := range t.Variants {
		if t.Variants[i].Tag == tag {
			return i, &t.Variants[i], true
		}
	}
	return 0, nil, false
}
