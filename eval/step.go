package eval

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
)

// ctxCheckInterval is how many steps run between context polls. Polling
// every step would dominate tight loops.
const ctxCheckInterval = 1024

// Step executes one statement or terminator of the current frame. A nil
// return with Halted() false means the machine is ready for the next step;
// any error halts the run and is also returned by the final outcome.
func (m *Machine) Step(ctx context.Context) error {
	if m.halted {
		return errors.MalformedIR("step on a halted machine")
	}
	if len(m.frames) == 0 {
		return errors.MalformedIR("step with no frames")
	}

	if m.steps%ctxCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			wrapped := errors.WithFrames(
				errors.Wrap(errors.PhaseEval, errors.KindAbort, err, "run canceled"),
				m.trace())
			m.halt(wrapped)
			return wrapped
		}
	}
	if m.fuelBudget > 0 && m.steps >= m.fuelBudget {
		err := errors.WithFrames(errors.FuelExhausted(m.steps, m.fuelBudget), m.trace())
		m.halt(err)
		return err
	}
	m.steps++

	frame := m.frames[len(m.frames)-1]
	block := frame.fn.Blocks[frame.block]

	var err error
	if frame.stmt < len(block.Stmts) {
		stmt := block.Stmts[frame.stmt]
		frame.stmt++
		err = m.execStatement(frame, stmt)
	} else {
		err = m.execTerminator(ctx, frame, block.Term)
	}

	if err != nil && !m.halted {
		err = errors.WithFrames(err, m.trace())
		m.halt(err)
	}
	return err
}

func (m *Machine) execStatement(frame *Frame, stmt ir.Statement) error {
	switch stmt.Kind {
	case ir.StmtAssign:
		dst, err := m.resolvePlace(frame, stmt.Place)
		if err != nil {
			return err
		}
		return m.evalRvalue(frame, stmt.Rvalue, dst)

	case ir.StmtAssert:
		cond, _, err := m.evalScalarOperand(frame, stmt.Cond)
		if err != nil {
			return err
		}
		if cond.Bool() != stmt.Expected {
			m.log.Debug("assert failed",
				zap.String("function", frame.fn.Name),
				zap.String("message", stmt.Msg))
			return m.startUnwind(stmt.Msg)
		}
		return nil

	case ir.StmtNop:
		return nil
	}
	return errors.MalformedIR("unknown statement kind %d", int(stmt.Kind))
}
