package types

import (
	"github.com/wippyai/mir-machine/errors"
)

// Target constants. The machine models a fixed 64-bit little-endian target;
// pointers are 8 bytes, 8-byte aligned.
const (
	PointerSize  uint64 = 8
	PointerAlign uint64 = 8
)

// Layout is the byte-level placement of a type: total size, required
// alignment, per-field offsets, and the discriminant scheme for enums.
type Layout struct {
	Size         uint64
	Align        uint64
	FieldOffsets []uint64
	Variant      *VariantLayout
}

// TagEncoding selects how an enum's discriminant is stored.
type TagEncoding int

const (
	// TagDirect stores the discriminant in dedicated tag bytes ahead of
	// the payload.
	TagDirect TagEncoding = iota
	// TagNiche encodes the discriminant in otherwise-invalid bit patterns
	// of one variant's payload; no dedicated tag bytes exist.
	TagNiche
)

// CaseLayout carries the payload field offsets of one variant, relative to
// the start of the enum value.
type CaseLayout struct {
	FieldOffsets []uint64
}

// VariantLayout describes an enum's discriminant encoding.
type VariantLayout struct {
	Encoding TagEncoding
	// TagOffset/TagSize locate the discriminant bytes. For TagDirect this
	// is a dedicated field; for TagNiche it aliases the niche field inside
	// the untagged variant's payload.
	TagOffset uint64
	TagSize   uint64
	// PayloadOffset is where variant payloads begin (TagDirect only;
	// niche payloads start at 0).
	PayloadOffset uint64
	Cases         []CaseLayout
	// Niche parameters (TagNiche only).
	NicheStart uint64
	Untagged   int
}

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// DiscriminantSize returns the tag width in bytes for an enum with the given
// number of variants.
func DiscriminantSize(numVariants int) uint64 {
	if numVariants <= 256 {
		return 1
	} else if numVariants <= 65536 {
		return 2
	}
	return 4
}

// Provider computes layouts for type descriptors. The machine consumes
// layouts only through this interface; Calculator is the reference
// implementation.
type Provider interface {
	LayoutOf(t *Type) (Layout, error)
}

// Calculator is the default layout provider. It memoizes per descriptor
// identity, so sharing descriptors across a program keeps layout queries
// cheap. Not safe for concurrent use; each Machine owns one.
type Calculator struct {
	cache map[*Type]Layout
}

// NewCalculator creates an empty layout calculator.
func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*Type]Layout),
	}
}

// LayoutOf implements Provider.
func (c *Calculator) LayoutOf(t *Type) (Layout, error) {
	if t == nil {
		return Layout{}, errors.New(errors.PhaseLayout, errors.KindMalformedIR).
			Detail("layout of nil type").Build()
	}
	if cached, ok := c.cache[t]; ok {
		return cached, nil
	}

	var info Layout
	var err error

	switch t.Kind {
	case Unit:
		info = Layout{Size: 0, Align: 1}
	case Bool, U8, I8:
		info = Layout{Size: 1, Align: 1}
	case U16, I16:
		info = Layout{Size: 2, Align: 2}
	case U32, I32, F32:
		info = Layout{Size: 4, Align: 4}
	case U64, I64, F64:
		info = Layout{Size: 8, Align: 8}
	case Ptr:
		info = Layout{Size: PointerSize, Align: PointerAlign}
	case Struct:
		info, err = c.structLayout(t)
	case Array:
		info, err = c.arrayLayout(t)
	case Enum:
		info, err = c.enumLayout(t)
	default:
		err = errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Detail("no layout for kind %s", t.Kind).Build()
	}
	if err != nil {
		return Layout{}, err
	}

	c.cache[t] = info
	return info, nil
}

func (c *Calculator) structLayout(t *Type) (Layout, error) {
	if len(t.Fields) == 0 {
		return Layout{Size: 0, Align: 1}, nil
	}

	offsets := make([]uint64, len(t.Fields))
	maxAlign := uint64(1)
	offset := uint64(0)

	for i, field := range t.Fields {
		fl, err := c.LayoutOf(field.Type)
		if err != nil {
			return Layout{}, err
		}

		offset = AlignTo(offset, fl.Align)
		offsets[i] = offset

		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}

		offset += fl.Size
	}

	return Layout{
		Size:         AlignTo(offset, maxAlign),
		Align:        maxAlign,
		FieldOffsets: offsets,
	}, nil
}

func (c *Calculator) arrayLayout(t *Type) (Layout, error) {
	el, err := c.LayoutOf(t.Elem)
	if err != nil {
		return Layout{}, err
	}
	stride := AlignTo(el.Size, el.Align)
	align := el.Align
	if align < 1 {
		align = 1
	}
	return Layout{
		Size:  stride * t.Len,
		Align: align,
	}, nil
}

func (c *Calculator) enumLayout(t *Type) (Layout, error) {
	if len(t.Variants) == 0 {
		return Layout{Size: 0, Align: 1}, nil
	}
	if t.Niche != nil {
		return c.nicheLayout(t)
	}

	tagSize := DiscriminantSize(len(t.Variants))

	maxAlign := tagSize
	maxPayload := uint64(0)
	payloadAlign := uint64(1)

	payloads := make([]Layout, len(t.Variants))
	for i, v := range t.Variants {
		pl, err := c.structLayout(&Type{Kind: Struct, Fields: v.Fields})
		if err != nil {
			return Layout{}, err
		}
		payloads[i] = pl
		if pl.Align > maxAlign {
			maxAlign = pl.Align
		}
		if pl.Align > payloadAlign {
			payloadAlign = pl.Align
		}
		if pl.Size > maxPayload {
			maxPayload = pl.Size
		}
	}

	payloadOffset := AlignTo(tagSize, payloadAlign)

	cases := make([]CaseLayout, len(t.Variants))
	for i, pl := range payloads {
		offs := make([]uint64, len(pl.FieldOffsets))
		for j, o := range pl.FieldOffsets {
			offs[j] = payloadOffset + o
		}
		cases[i] = CaseLayout{FieldOffsets: offs}
	}

	return Layout{
		Size:  AlignTo(payloadOffset+maxPayload, maxAlign),
		Align: maxAlign,
		Variant: &VariantLayout{
			Encoding:      TagDirect,
			TagOffset:     0,
			TagSize:       tagSize,
			PayloadOffset: payloadOffset,
			Cases:         cases,
		},
	}, nil
}

// nicheLayout computes the tag-free encoding: the enum occupies exactly the
// untagged variant's payload, and the niche field's invalid bit patterns
// carry the remaining variants.
func (c *Calculator) nicheLayout(t *Type) (Layout, error) {
	n := t.Niche
	if n.Untagged < 0 || n.Untagged >= len(t.Variants) {
		return Layout{}, errors.New(errors.PhaseLayout, errors.KindMalformedIR).
			Detail("niche untagged variant %d out of range", n.Untagged).Build()
	}

	untagged, err := c.structLayout(&Type{Kind: Struct, Fields: t.Variants[n.Untagged].Fields})
	if err != nil {
		return Layout{}, err
	}
	if n.Offset+n.Size > untagged.Size {
		return Layout{}, errors.New(errors.PhaseLayout, errors.KindMalformedIR).
			Detail("niche field at %d+%d outside payload of size %d", n.Offset, n.Size, untagged.Size).Build()
	}

	cases := make([]CaseLayout, len(t.Variants))
	for i, v := range t.Variants {
		if i == n.Untagged {
			cases[i] = CaseLayout{FieldOffsets: untagged.FieldOffsets}
			continue
		}
		if len(v.Fields) > 0 {
			return Layout{}, errors.New(errors.PhaseLayout, errors.KindUnsupported).
				Detail("niche-encoded variant %q may not carry a payload", v.Name).Build()
		}
		cases[i] = CaseLayout{}
	}

	return Layout{
		Size:  untagged.Size,
		Align: untagged.Align,
		Variant: &VariantLayout{
			Encoding:   TagNiche,
			TagOffset:  n.Offset,
			TagSize:    n.Size,
			Cases:      cases,
			NicheStart: n.Start,
			Untagged:   n.Untagged,
		},
	}, nil
}
