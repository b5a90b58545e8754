package mirmachine

import (
	"context"

	"github.com/wippyai/mir-machine/eval"
	"github.com/wippyai/mir-machine/foreign"
	"github.com/wippyai/mir-machine/ir"
)

// DefaultFuel bounds a facade run. Callers that need more drive eval.New
// directly with their own budget.
const DefaultFuel = 1_000_000

// Scalar and Outcome are re-exported so facade callers need no eval import
// just to pass arguments and read results.
type (
	Scalar  = eval.Scalar
	Outcome = eval.Outcome
)

// Run executes entry in prog with the standard configuration: the default
// layout calculator, the allocator foreign functions and a fuel budget of
// DefaultFuel. It is the one-call path for tests, tools and examples.
func Run(ctx context.Context, prog *ir.Program, entry string, args ...eval.Scalar) (eval.Outcome, error) {
	m := eval.New(prog,
		eval.WithFuel(DefaultFuel),
		eval.WithForeign(foreign.NewRegistry().WithAllocator()),
	)
	return m.Run(ctx, entry, args...)
}
