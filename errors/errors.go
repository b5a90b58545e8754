package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which machine operation the error occurred in
type Phase string

const (
	PhaseAlloc   Phase = "alloc"   // allocation management
	PhaseRead    Phase = "read"    // memory reads
	PhaseWrite   Phase = "write"   // memory writes
	PhaseEval    Phase = "eval"    // statement/terminator execution
	PhaseLayout  Phase = "layout"  // layout computation
	PhaseForeign Phase = "foreign" // foreign-call dispatch
)

// Kind categorizes the error
type Kind string

const (
	// Undefined-behavior violations. Terminal for the run and never
	// silently corrected.
	KindUseAfterFree        Kind = "use_after_free"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindUnaligned           Kind = "unaligned"
	KindUninitializedRead   Kind = "uninitialized_read"
	KindInvalidDiscriminant Kind = "invalid_discriminant"
	KindDoubleFree          Kind = "double_free"
	KindKindMismatch        Kind = "allocation_kind_mismatch"
	KindWriteToReadOnly     Kind = "write_to_readonly"
	KindUnreachable         Kind = "reached_unreachable"
	KindOverflow            Kind = "arithmetic_overflow"
	KindInvalidBool         Kind = "invalid_bool"

	// Program aborts (assertion failures, explicit panics). Recoverable
	// while a catch frame exists on the stack.
	KindAbort Kind = "abort"

	// Resource exhaustion. Reflects a configured limit, not a soundness
	// finding.
	KindFuelExhausted Kind = "fuel_exhausted"
	KindOutOfMemory   Kind = "out_of_memory"
	KindStackOverflow Kind = "stack_overflow"

	// Interpreter-internal inconsistencies: the input IR or the machine
	// configuration is broken, not the interpreted program.
	KindMalformedIR    Kind = "malformed_ir"
	KindUnsupported    Kind = "unsupported"
	KindMissingForeign Kind = "missing_foreign"
)

// FrameInfo records one stack frame at the point of failure.
type FrameInfo struct {
	Function string
	Block    int
	Stmt     int
}

func (f FrameInfo) String() string {
	return fmt.Sprintf("%s@bb%d[%d]", f.Function, f.Block, f.Stmt)
}

// Error is the structured error type used throughout the machine
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Detail   string
	Alloc    uint64
	Offset   uint64
	HasAlloc bool
	Frames   []FrameInfo
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasAlloc {
		fmt.Fprintf(&b, " at alloc%d+%d", e.Alloc, e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if len(e.Frames) > 0 {
		b.WriteString(" in ")
		b.WriteString(e.Frames[len(e.Frames)-1].String())
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Trace renders the full frame-stack trace, outermost frame first.
func (e *Error) Trace() string {
	if len(e.Frames) == 0 {
		return ""
	}
	parts := make([]string, len(e.Frames))
	for i, f := range e.Frames {
		parts[i] = f.String()
	}
	return strings.Join(parts, " -> ")
}

// IsUB reports whether err is a detected undefined-behavior violation.
func IsUB(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindUseAfterFree, KindOutOfBounds, KindUnaligned,
		KindUninitializedRead, KindInvalidDiscriminant, KindDoubleFree,
		KindKindMismatch, KindWriteToReadOnly, KindUnreachable,
		KindOverflow, KindInvalidBool:
		return true
	}
	return false
}

// IsAbort reports whether err is a program abort (assertion/panic unwind).
func IsAbort(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindAbort
}

// IsExhaustion reports whether err reflects an exceeded resource budget.
func IsExhaustion(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindFuelExhausted, KindOutOfMemory, KindStackOverflow:
		return true
	}
	return false
}

// IsInternal reports whether err is an interpreter-internal inconsistency
// (malformed IR or a tooling gap), as opposed to a program defect.
func IsInternal(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindMalformedIR, KindUnsupported, KindMissingForeign:
		return true
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Alloc sets the offending allocation id and byte offset
func (b *Builder) Alloc(id, offset uint64) *Builder {
	b.err.Alloc = id
	b.err.Offset = offset
	b.err.HasAlloc = true
	return b
}

// Frames sets the frame-stack trace, outermost frame first
func (b *Builder) Frames(frames []FrameInfo) *Builder {
	b.err.Frames = frames
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common violations

// UseAfterFree creates a dead-allocation access error
func UseAfterFree(phase Phase, alloc, offset uint64) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUseAfterFree,
		Alloc:    alloc,
		Offset:   offset,
		HasAlloc: true,
		Detail:   "allocation is no longer live",
	}
}

// OutOfBounds creates a bounds violation error
func OutOfBounds(phase Phase, alloc, offset, length, size uint64) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfBounds,
		Alloc:    alloc,
		Offset:   offset,
		HasAlloc: true,
		Detail:   fmt.Sprintf("access of %d bytes beyond allocation size %d", length, size),
	}
}

// Unaligned creates an alignment violation error
func Unaligned(phase Phase, alloc, offset, required uint64) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUnaligned,
		Alloc:    alloc,
		Offset:   offset,
		HasAlloc: true,
		Detail:   fmt.Sprintf("offset not a multiple of required alignment %d", required),
	}
}

// UninitializedRead creates an undefined-bytes read error
func UninitializedRead(phase Phase, alloc, offset uint64) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUninitializedRead,
		Alloc:    alloc,
		Offset:   offset,
		HasAlloc: true,
		Detail:   "read of bytes that were never written",
	}
}

// InvalidDiscriminant creates an out-of-range discriminant error
func InvalidDiscriminant(phase Phase, disc uint64, variants int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidDiscriminant,
		Detail: fmt.Sprintf("discriminant %d outside declared variant set of %d", disc, variants),
	}
}

// WriteToReadOnly creates a static-memory mutation error
func WriteToReadOnly(alloc, offset uint64) *Error {
	return &Error{
		Phase:    PhaseWrite,
		Kind:     KindWriteToReadOnly,
		Alloc:    alloc,
		Offset:   offset,
		HasAlloc: true,
		Detail:   "allocation is read-only",
	}
}

// Abort creates a program abort carrying the program-specified message
func Abort(msg string) *Error {
	return &Error{
		Phase:  PhaseEval,
		Kind:   KindAbort,
		Detail: msg,
	}
}

// FuelExhausted creates a step-budget exhaustion report
func FuelExhausted(steps, budget uint64) *Error {
	return &Error{
		Phase:  PhaseEval,
		Kind:   KindFuelExhausted,
		Detail: fmt.Sprintf("executed %d steps of budget %d", steps, budget),
	}
}

// OutOfMemory creates a memory-budget exhaustion report
func OutOfMemory(requested, used, limit uint64) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("allocation of %d bytes exceeds limit (%d of %d used)", requested, used, limit),
	}
}

// MalformedIR creates an internal inconsistency error for broken input
func MalformedIR(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseEval,
		Kind:   KindMalformedIR,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// WithFrames returns a copy of err carrying the given frame trace. Non-Error
// values pass through unchanged; an existing trace is preserved.
func WithFrames(err error, frames []FrameInfo) error {
	e, ok := err.(*Error)
	if !ok || len(e.Frames) > 0 {
		return err
	}
	clone := *e
	clone.Frames = frames
	return &clone
}
