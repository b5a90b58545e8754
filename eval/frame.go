package eval

import (
	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/memory"
)

// Frame is one activation of a function. Every local, including the return
// slot, is backed by its own stack allocation for the frame's lifetime, so
// references into locals carry real provenance and dangle detectably after
// the frame pops.
type Frame struct {
	fn     *ir.Func
	locals []memory.Pointer

	block int
	stmt  int

	// Where the caller wants the return value, resolved at call time.
	retDest  memory.Pointer
	retBlock int
}

// Func returns the function this frame executes.
func (f *Frame) Func() *ir.Func { return f.fn }

// Local returns the pointer backing a local slot.
func (f *Frame) Local(i int) memory.Pointer { return f.locals[i] }

// Block returns the index of the block being executed.
func (f *Frame) Block() int { return f.block }

// Stmt returns the index of the next statement within the block.
func (f *Frame) Stmt() int { return f.stmt }

// Info returns the frame's position for violation reports.
func (f *Frame) Info() errors.FrameInfo {
	return errors.FrameInfo{Function: f.fn.Name, Block: f.block, Stmt: f.stmt}
}

// pushFrame allocates stack storage for every local of fn and activates
// block 0. retDest receives the return value when the frame returns;
// retBlock is where the caller resumes.
func (m *Machine) pushFrame(fn *ir.Func, retDest memory.Pointer, retBlock int) (*Frame, error) {
	if m.stackLimit > 0 && len(m.frames) >= m.stackLimit {
		return nil, errors.New(errors.PhaseEval, errors.KindStackOverflow).
			Detail("call depth %d exceeds limit %d", len(m.frames)+1, m.stackLimit).Build()
	}

	locals := make([]memory.Pointer, len(fn.Locals))
	for i, t := range fn.Locals {
		l, err := m.layouts.LayoutOf(t)
		if err != nil {
			m.freeLocals(locals[:i], fn)
			return nil, err
		}
		ptr, err := m.mem.Allocate(l.Size, l.Align, memory.KindStack)
		if err != nil {
			m.freeLocals(locals[:i], fn)
			return nil, err
		}
		locals[i] = ptr
	}

	frame := &Frame{
		fn:       fn,
		locals:   locals,
		retDest:  retDest,
		retBlock: retBlock,
	}
	m.frames = append(m.frames, frame)
	debugf("push %s depth=%d", fn.Name, len(m.frames))
	return frame, nil
}

// popFrame releases the top frame's locals and returns to the caller.
func (m *Machine) popFrame() *Frame {
	frame := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	m.freeLocals(frame.locals, frame.fn)
	debugf("pop %s depth=%d", frame.fn.Name, len(m.frames))
	return frame
}

func (m *Machine) freeLocals(locals []memory.Pointer, fn *ir.Func) {
	for _, ptr := range locals {
		// Frame teardown frees what the frame allocated; these cannot fail.
		_ = m.mem.Deallocate(ptr.Alloc, memory.KindStack)
	}
}

// trace captures the current call stack, innermost frame first.
func (m *Machine) trace() []errors.FrameInfo {
	out := make([]errors.FrameInfo, 0, len(m.frames))
	for i := len(m.frames) - 1; i >= 0; i-- {
		out = append(out, m.frames[i].Info())
	}
	return out
}
