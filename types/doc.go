// Package types provides type descriptors and the layout service for the
// abstract machine.
//
// A Type describes the shape of an interpreted value: primitives, thin
// pointers, structs, fixed-length arrays, and enums (sum types). Descriptors
// are immutable and compared by identity.
//
// # Layout Rules
//
// Layouts follow a fixed 64-bit little-endian target:
//
//	Type         Size    Alignment
//	────────────────────────────────
//	bool/u8/i8   1       1
//	u16/i16      2       2
//	u32/i32/f32  4       4
//	u64/i64/f64  8       8
//	ptr          8       8
//	struct       sum     max field align
//	array        stride*n  elem align
//	enum         varies  max(tag, payload align)
//
// Structs are laid out C-style: fields in declaration order, each aligned to
// its own requirement, total size rounded up to the struct alignment.
//
// # Discriminants
//
// Enums carry a discriminant identifying the live variant. Two encodings are
// supported:
//
//   - Direct: dedicated tag bytes (1/2/4 wide by variant count) ahead of the
//     payload area shared by all variants.
//   - Niche: no tag bytes; otherwise-invalid bit patterns of one variant's
//     payload field encode the remaining variants (the Option<ptr>
//     optimization). Requested through Type.Niche.
//
// # Usage
//
//	calc := types.NewCalculator()
//	info, err := calc.LayoutOf(types.StructOf("pair",
//		types.Field{Name: "a", Type: types.TypeU8},
//		types.Field{Name: "b", Type: types.TypeU64},
//	))
//	// info.Size == 16, info.Align == 8, offsets [0, 8]
//
// The evaluator consumes layouts only through the Provider interface;
// Calculator is the reference implementation and memoizes per descriptor.
package types
