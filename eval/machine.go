package eval

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/memory"
	"github.com/wippyai/mir-machine/types"
)

// OverflowPolicy selects what integer overflow in arithmetic does.
type OverflowPolicy int

const (
	// OverflowError reports arithmetic overflow as a violation. The
	// default: a checker should not silently wrap.
	OverflowError OverflowPolicy = iota
	// OverflowWrap wraps to the operand width, two's complement style.
	OverflowWrap
)

// ForeignHandler resolves calls to functions the program does not define.
// Implementations get the machine itself, so a handler can allocate and
// touch program memory through the same validated paths the program uses.
type ForeignHandler interface {
	CallForeign(ctx context.Context, m *Machine, name string, args []Scalar) (Scalar, error)
}

// Option configures a Machine.
type Option func(*Machine)

// WithFuel caps the run at budget steps; one statement or terminator costs
// one step. Exceeding the budget stops the run with a fuel report. Zero
// means unlimited.
func WithFuel(budget uint64) Option {
	return func(m *Machine) { m.fuelBudget = budget }
}

// WithStackLimit caps call depth. Zero means the default of 1024 frames.
func WithStackLimit(frames int) Option {
	return func(m *Machine) { m.stackLimit = frames }
}

// WithOverflowPolicy selects wrap or error semantics for integer overflow.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(m *Machine) { m.overflow = p }
}

// WithMemoryLimit caps live program memory in bytes. Zero means unlimited.
func WithMemoryLimit(bytes uint64) Option {
	return func(m *Machine) { m.memLimit = bytes }
}

// WithForeign installs the handler for calls the program does not define.
func WithForeign(h ForeignHandler) Option {
	return func(m *Machine) { m.foreign = h }
}

// WithLayouts replaces the default layout calculator.
func WithLayouts(p types.Provider) Option {
	return func(m *Machine) { m.layouts = p }
}

// WithLogger installs a logger for per-step tracing.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// Machine executes one program run. It owns the allocation table, the call
// stack and the step budget; nothing escapes into host memory. Not safe for
// concurrent use.
type Machine struct {
	prog    *ir.Program
	mem     *memory.Memory
	layouts types.Provider
	foreign ForeignHandler
	log     *zap.Logger

	frames []*Frame
	steps  uint64

	fuelBudget uint64 // 0 = unlimited
	stackLimit int
	memLimit   uint64
	overflow   OverflowPolicy

	// Abort in flight: unwinding is set while control moves toward a catch
	// block; caughtAbort stays set after a catch so a resume terminator can
	// re-raise.
	unwinding   bool
	caughtAbort bool
	abortMsg    string

	// Entry return storage, owned by the machine so it survives the entry
	// frame's pop.
	retPtr  memory.Pointer
	retType *types.Type

	halted bool
	result error
}

// New creates a machine for prog. The machine is inert until Start or Run.
func New(prog *ir.Program, opts ...Option) *Machine {
	m := &Machine{
		prog:       prog,
		stackLimit: 1024,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.layouts == nil {
		m.layouts = types.NewCalculator()
	}
	if m.log == nil {
		m.log = Logger()
	}
	m.mem = memory.NewWithLimit(m.memLimit)
	return m
}

// Memory exposes the machine's allocation table. Foreign handlers and
// diagnostics read and allocate through it; all accesses stay validated.
func (m *Machine) Memory() *memory.Memory { return m.mem }

// Layouts exposes the machine's layout provider.
func (m *Machine) Layouts() types.Provider { return m.layouts }

// Program returns the program under execution.
func (m *Machine) Program() *ir.Program { return m.prog }

// Steps returns the number of steps executed so far.
func (m *Machine) Steps() uint64 { return m.steps }

// Frames returns the live call stack, outermost first. The slice is the
// machine's own; callers must not mutate it.
func (m *Machine) Frames() []*Frame { return m.frames }

// Halted reports whether the run has finished, normally or not.
func (m *Machine) Halted() bool { return m.halted }

// Outcome is the result of a completed run.
type Outcome struct {
	// Steps actually executed.
	Steps uint64
	// Return holds the entry function's result when its return type is a
	// scalar; HasReturn is false for unit and aggregate returns.
	Return    Scalar
	HasReturn bool
}

// Start prepares execution of the named entry function with the given
// scalar arguments. It validates the function, allocates the entry frame
// and the return storage, and leaves the machine ready to Step.
func (m *Machine) Start(entry string, args ...Scalar) error {
	fn, ok := m.prog.Func(entry)
	if !ok {
		return errors.MalformedIR("no function %q", entry)
	}
	if err := fn.Validate(); err != nil {
		return err
	}
	if len(args) != fn.NumParams {
		return errors.MalformedIR("%s takes %d arguments, got %d", entry, fn.NumParams, len(args))
	}

	m.retType = fn.LocalType(0)
	retLayout, err := m.layouts.LayoutOf(m.retType)
	if err != nil {
		return err
	}
	m.retPtr, err = m.mem.Allocate(retLayout.Size, retLayout.Align, memory.KindStack)
	if err != nil {
		return err
	}

	frame, err := m.pushFrame(fn, m.retPtr, -1)
	if err != nil {
		return err
	}
	for i, arg := range args {
		t := fn.LocalType(1 + i)
		if !t.IsScalar() && t.Kind != types.Unit {
			return errors.Unsupported(errors.PhaseEval, "non-scalar entry argument")
		}
		if t.Kind == types.Unit {
			continue
		}
		if err := m.writeScalar(frame.locals[1+i], t, arg); err != nil {
			return err
		}
	}

	m.log.Debug("machine started",
		zap.String("entry", entry),
		zap.Int("args", len(args)))
	return nil
}

// Run executes entry to completion under ctx. It returns the outcome, or
// the first violation, exhaustion or abort that stopped the run.
func (m *Machine) Run(ctx context.Context, entry string, args ...Scalar) (Outcome, error) {
	if err := m.Start(entry, args...); err != nil {
		return Outcome{}, err
	}
	for !m.halted {
		if err := m.Step(ctx); err != nil {
			return Outcome{Steps: m.steps}, err
		}
	}
	return m.outcome()
}

// Finish returns the outcome of a halted machine driven through Step.
func (m *Machine) Finish() (Outcome, error) {
	if !m.halted {
		return Outcome{}, errors.MalformedIR("machine still running")
	}
	return m.outcome()
}

func (m *Machine) outcome() (Outcome, error) {
	if m.result != nil {
		return Outcome{Steps: m.steps}, m.result
	}
	out := Outcome{Steps: m.steps}
	if m.retType != nil && m.retType.IsScalar() {
		s, err := m.readScalar(m.retPtr, m.retType)
		if err != nil {
			return out, err
		}
		out.Return = s
		out.HasReturn = true
	}
	return out, nil
}

// halt finalizes the run. err nil means normal completion.
func (m *Machine) halt(err error) {
	m.halted = true
	m.result = err
	if err != nil {
		m.log.Debug("machine halted", zap.Uint64("steps", m.steps), zap.Error(err))
	} else {
		m.log.Debug("machine halted", zap.Uint64("steps", m.steps))
	}
}

// startUnwind begins a program abort with the given message. Control moves
// to the nearest catch block on the stack; with no catcher the run halts
// with an abort report.
func (m *Machine) startUnwind(msg string) error {
	m.unwinding = true
	m.abortMsg = msg
	return m.continueUnwind()
}

// continueUnwind pops frames until one catches, running drop glue over each
// popped frame's locals so owned storage does not outlive the abort. Called
// both when the abort starts and on an explicit resume terminator.
func (m *Machine) continueUnwind() error {
	for m.unwinding {
		frame := m.frames[len(m.frames)-1]
		if frame.fn.Catch >= 0 {
			frame.block = frame.fn.Catch
			frame.stmt = 0
			m.unwinding = false
			m.caughtAbort = true
			m.log.Debug("abort caught",
				zap.String("function", frame.fn.Name),
				zap.Int("block", frame.block))
			return nil
		}
		if err := m.dropFrameLocals(frame); err != nil {
			return err
		}
		m.popFrame()
		if len(m.frames) == 0 {
			err := errors.Abort(m.abortMsg)
			m.halt(err)
			return err
		}
	}
	return nil
}

// dropFrameLocals runs drop glue over every local of a frame about to be
// discarded by the unwinder, last declared first. Uninitialized slots are
// no-ops under dropValue's leaf guards; a violation inside the glue
// supersedes the abort and is reported while the frame is still on the
// stack.
func (m *Machine) dropFrameLocals(frame *Frame) error {
	for i := len(frame.locals) - 1; i >= 0; i-- {
		pl := place{ptr: frame.locals[i], ty: frame.fn.Locals[i], variant: -1}
		if err := m.dropValue(pl); err != nil {
			return err
		}
	}
	return nil
}
