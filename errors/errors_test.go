package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{
			name: "phase_and_kind",
			err:  New(PhaseRead, KindUseAfterFree).Build(),
			want: []string{"[read]", "use_after_free"},
		},
		{
			name: "with_alloc",
			err:  New(PhaseWrite, KindOutOfBounds).Alloc(7, 24).Build(),
			want: []string{"[write]", "out_of_bounds", "alloc7+24"},
		},
		{
			name: "with_detail",
			err:  New(PhaseEval, KindMalformedIR).Detail("block %d has no terminator", 2).Build(),
			want: []string{"malformed_ir", "block 2 has no terminator"},
		},
		{
			name: "with_frames",
			err: New(PhaseRead, KindUninitializedRead).
				Frames([]FrameInfo{{Function: "main", Block: 0, Stmt: 1}}).
				Build(),
			want: []string{"uninitialized_read", "main@bb0[1]"},
		},
		{
			name: "with_cause",
			err:  Wrap(PhaseForeign, KindMissingForeign, stderrors.New("boom"), "no handler"),
			want: []string{"missing_foreign", "no handler", "caused by: boom"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, want := range tc.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := UseAfterFree(PhaseRead, 1, 0)

	if !stderrors.Is(err, New(PhaseRead, KindUseAfterFree).Build()) {
		t.Error("expected match on same phase+kind")
	}
	if stderrors.Is(err, New(PhaseWrite, KindUseAfterFree).Build()) {
		t.Error("unexpected match on different phase")
	}
	if stderrors.Is(err, New(PhaseRead, KindOutOfBounds).Build()) {
		t.Error("unexpected match on different kind")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("inner")
	err := Wrap(PhaseAlloc, KindOutOfMemory, cause, "limit hit")

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find wrapped cause")
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		kind       Kind
		ub         bool
		abort      bool
		exhaustion bool
		internal   bool
	}{
		{KindUseAfterFree, true, false, false, false},
		{KindOutOfBounds, true, false, false, false},
		{KindUnaligned, true, false, false, false},
		{KindUninitializedRead, true, false, false, false},
		{KindInvalidDiscriminant, true, false, false, false},
		{KindDoubleFree, true, false, false, false},
		{KindKindMismatch, true, false, false, false},
		{KindWriteToReadOnly, true, false, false, false},
		{KindUnreachable, true, false, false, false},
		{KindAbort, false, true, false, false},
		{KindFuelExhausted, false, false, true, false},
		{KindOutOfMemory, false, false, true, false},
		{KindStackOverflow, false, false, true, false},
		{KindMalformedIR, false, false, false, true},
		{KindUnsupported, false, false, false, true},
		{KindMissingForeign, false, false, false, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := New(PhaseEval, tc.kind).Build()
			if got := IsUB(err); got != tc.ub {
				t.Errorf("IsUB = %v, want %v", got, tc.ub)
			}
			if got := IsAbort(err); got != tc.abort {
				t.Errorf("IsAbort = %v, want %v", got, tc.abort)
			}
			if got := IsExhaustion(err); got != tc.exhaustion {
				t.Errorf("IsExhaustion = %v, want %v", got, tc.exhaustion)
			}
			if got := IsInternal(err); got != tc.internal {
				t.Errorf("IsInternal = %v, want %v", got, tc.internal)
			}
		})
	}
}

func TestCategoriesRejectForeignErrors(t *testing.T) {
	plain := stderrors.New("plain")
	if IsUB(plain) || IsAbort(plain) || IsExhaustion(plain) || IsInternal(plain) {
		t.Error("category helpers must reject non-machine errors")
	}
}

func TestTrace(t *testing.T) {
	err := New(PhaseEval, KindAbort).Frames([]FrameInfo{
		{Function: "main", Block: 0, Stmt: 2},
		{Function: "helper", Block: 1, Stmt: 0},
	}).Build()

	want := "main@bb0[2] -> helper@bb1[0]"
	if got := err.Trace(); got != want {
		t.Errorf("Trace() = %q, want %q", got, want)
	}
}

func TestWithFrames(t *testing.T) {
	frames := []FrameInfo{{Function: "f", Block: 1, Stmt: 3}}

	err := WithFrames(UseAfterFree(PhaseRead, 2, 8), frames)
	e, ok := err.(*Error)
	if !ok || len(e.Frames) != 1 {
		t.Fatalf("expected frames attached, got %v", err)
	}

	// An existing trace must not be overwritten.
	again := WithFrames(err, []FrameInfo{{Function: "g"}})
	if again.(*Error).Frames[0].Function != "f" {
		t.Error("WithFrames overwrote an existing trace")
	}

	// Non-machine errors pass through untouched.
	plain := stderrors.New("plain")
	if WithFrames(plain, frames) != plain {
		t.Error("WithFrames should pass through non-machine errors")
	}
}
