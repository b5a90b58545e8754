// Package memory implements the abstract machine's byte storage: a table of
// allocations with per-byte initialization tracking, symbolic pointers, and
// the access-level half of the UB validator.
//
// # Allocations
//
// Every allocation is a fixed-size buffer with an alignment guarantee, a
// kind tag (stack, heap, static) and a liveness flag. Size, alignment and
// kind never change. Deallocation only flips the liveness flag: the entry
// stays in the table and ids are never reused, so any pointer derived from
// a freed allocation keeps failing with use_after_free for the rest of the
// run instead of silently aliasing new storage.
//
// # Pointers and provenance
//
// A Pointer is (allocation id, byte offset), never a host address. Stored
// pointers keep their identity through a relocation record alongside the
// raw bytes:
//
//	alloc3 (16 bytes): 20 00 00 00 00 00 00 00 2a 00 00 00 00 00 00 00
//	  +0 -> alloc5
//
// Reading those bytes back through ReadPointer reconstructs the symbolic
// pointer; reading them as plain data is rejected, because the bit pattern
// alone is meaningless in an address-space-agnostic model. Only an
// intentional pointer-to-integer cast launders the bytes, and the pointer
// that a later integer-to-pointer cast fabricates is wild: it carries no
// provenance and every access through it fails.
//
// # Initialization
//
// A bitmap per allocation records which bytes have been written. Reads of
// never-written bytes fail with uninitialized_read; the machine never
// invents a value for them. Partially overwriting a stored pointer tears
// it: the relocation is dropped and its surviving bytes become
// uninitialized.
//
// # Validation order
//
// Every access is checked in a fixed priority order: liveness, bounds,
// alignment, mutability, then initialization for reads. The first failure
// halts the operation with a structured violation naming the allocation and
// offset; nothing is corrected or defaulted.
package memory
