package eval

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

func (m *Machine) execTerminator(ctx context.Context, frame *Frame, term ir.Terminator) error {
	switch term.Kind {
	case ir.TermGoto:
		frame.block = term.Target
		frame.stmt = 0
		return nil

	case ir.TermSwitchInt:
		return m.execSwitch(frame, term)

	case ir.TermCall:
		return m.execCall(ctx, frame, term)

	case ir.TermReturn:
		return m.execReturn(frame)

	case ir.TermDrop:
		pl, err := m.resolvePlace(frame, term.Place)
		if err != nil {
			return err
		}
		if err := m.dropValue(pl); err != nil {
			return err
		}
		frame.block = term.Target
		frame.stmt = 0
		return nil

	case ir.TermUnreachable:
		return errors.New(errors.PhaseEval, errors.KindUnreachable).
			Detail("control reached an unreachable terminator").Build()

	case ir.TermResume:
		if !m.caughtAbort {
			return errors.MalformedIR("resume outside of an abort")
		}
		m.unwinding = true
		if err := m.dropFrameLocals(frame); err != nil {
			return err
		}
		m.popFrame()
		if len(m.frames) == 0 {
			err := errors.Abort(m.abortMsg)
			m.halt(err)
			return err
		}
		return m.continueUnwind()

	case ir.TermAbort:
		m.log.Debug("program abort",
			zap.String("function", frame.fn.Name),
			zap.String("message", term.Msg))
		return m.startUnwind(term.Msg)
	}
	return errors.MalformedIR("unknown terminator kind %d", int(term.Kind))
}

// execSwitch compares the discriminant operand against the value list and
// jumps to the matching target, or to otherwise.
func (m *Machine) execSwitch(frame *Frame, term ir.Terminator) error {
	discr, t, err := m.evalScalarOperand(frame, term.Discr)
	if err != nil {
		return err
	}

	var bits uint64
	switch {
	case t.Kind == types.Bool:
		bits = discr.Bits
	case t.IsInteger():
		bits = truncate(discr.Bits, scalarWidth(t))
	default:
		return errors.MalformedIR("switch on %s", t)
	}

	for i, v := range term.Values {
		if bits == v {
			frame.block = term.Targets[i]
			frame.stmt = 0
			return nil
		}
	}
	if term.Otherwise < 0 {
		return errors.MalformedIR("switch value %d has no target and no otherwise", bits)
	}
	frame.block = term.Otherwise
	frame.stmt = 0
	return nil
}

// execCall resolves the callee. Functions the program defines get a fresh
// frame; anything else goes to the foreign handler.
func (m *Machine) execCall(ctx context.Context, frame *Frame, term ir.Terminator) error {
	dest, err := m.resolvePlace(frame, term.Dest)
	if err != nil {
		return err
	}

	if callee, ok := m.prog.Func(term.Callee); ok {
		if err := callee.Validate(); err != nil {
			return err
		}
		if len(term.Args) != callee.NumParams {
			return errors.MalformedIR("%s takes %d arguments, got %d",
				callee.Name, callee.NumParams, len(term.Args))
		}

		next, err := m.pushFrame(callee, dest.ptr, term.Target)
		if err != nil {
			return err
		}
		// Arguments evaluate in the caller's frame but land in the
		// callee's param locals.
		for i, arg := range term.Args {
			paramTy := callee.LocalType(1 + i)
			argTy, err := m.operandType(frame, arg)
			if err != nil {
				return err
			}
			if argTy.Kind != paramTy.Kind {
				return errors.MalformedIR("%s argument %d wants %s, got %s",
					callee.Name, i, paramTy, argTy)
			}
			paramDst := place{ptr: next.locals[1+i], ty: paramTy, variant: -1}
			if err := m.copyOperand(frame, arg, paramDst); err != nil {
				return err
			}
		}
		return nil
	}

	return m.execForeignCall(ctx, frame, term, dest)
}

func (m *Machine) execForeignCall(ctx context.Context, frame *Frame, term ir.Terminator, dest place) error {
	if m.foreign == nil {
		return errors.New(errors.PhaseForeign, errors.KindMissingForeign).
			Detail("no handler for %q", term.Callee).Build()
	}

	args := make([]Scalar, len(term.Args))
	for i, arg := range term.Args {
		s, _, err := m.evalScalarOperand(frame, arg)
		if err != nil {
			return err
		}
		args[i] = s
	}

	m.log.Debug("foreign call",
		zap.String("callee", term.Callee),
		zap.Int("args", len(args)))

	res, err := m.foreign.CallForeign(ctx, m, term.Callee, args)
	if err != nil {
		var machineErr *errors.Error
		if stderrors.As(err, &machineErr) {
			return err
		}
		return errors.Wrap(errors.PhaseForeign, errors.KindMissingForeign, err, term.Callee)
	}
	if dest.ty.Kind != types.Unit {
		if err := m.writeScalar(dest.ptr, dest.ty, res); err != nil {
			return err
		}
	}
	frame.block = term.Target
	frame.stmt = 0
	return nil
}

// execReturn pops the frame, delivers the return value into the caller's
// destination and resumes the caller. Popping the entry frame halts the
// run.
func (m *Machine) execReturn(frame *Frame) error {
	retTy := frame.fn.LocalType(0)
	switch {
	case retTy.Kind == types.Unit:

	case retTy.IsScalar():
		// Read before popping so a never-written return slot reports
		// against this frame, not the caller's.
		s, err := m.readScalar(frame.locals[0], retTy)
		if err != nil {
			return err
		}
		if err := m.writeScalar(frame.retDest, retTy, s); err != nil {
			return err
		}

	default:
		l, err := m.layouts.LayoutOf(retTy)
		if err != nil {
			return err
		}
		if err := m.mem.Copy(frame.locals[0], frame.retDest, l.Size); err != nil {
			return err
		}
	}

	m.popFrame()
	if len(m.frames) == 0 {
		m.halt(nil)
		return nil
	}

	caller := m.frames[len(m.frames)-1]
	caller.block = frame.retBlock
	caller.stmt = 0
	return nil
}
