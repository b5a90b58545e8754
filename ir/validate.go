package ir

import (
	"github.com/wippyai/mir-machine/errors"
)

// Validate checks the structural well-formedness the evaluator relies on:
// block and local indices in range, switch arms consistent, a terminator on
// every block. A failure here is a producer bug, reported as malformed IR,
// never as program UB.
func (f *Func) Validate() error {
	if len(f.Blocks) == 0 {
		return errors.MalformedIR("function %q has no blocks", f.Name)
	}
	if f.NumParams >= len(f.Locals) {
		return errors.MalformedIR("function %q declares %d params but only %d locals",
			f.Name, f.NumParams, len(f.Locals))
	}
	if f.Catch != -1 && !f.blockInRange(f.Catch) {
		return errors.MalformedIR("function %q catch block %d out of range", f.Name, f.Catch)
	}

	for bi, blk := range f.Blocks {
		for si, stmt := range blk.Stmts {
			if err := f.validateStatement(bi, si, stmt); err != nil {
				return err
			}
		}
		if err := f.validateTerminator(bi, blk.Term); err != nil {
			return err
		}
	}
	return nil
}

func (f *Func) validateStatement(block, idx int, stmt Statement) error {
	switch stmt.Kind {
	case StmtAssign:
		if !f.localInRange(stmt.Place.Local) {
			return errors.MalformedIR("%s bb%d[%d]: assign to local %d of %d",
				f.Name, block, idx, stmt.Place.Local, len(f.Locals))
		}
	case StmtAssert, StmtNop:
		// no structural constraints
	default:
		return errors.MalformedIR("%s bb%d[%d]: unknown statement kind %d",
			f.Name, block, idx, stmt.Kind)
	}
	return nil
}

func (f *Func) validateTerminator(block int, term Terminator) error {
	switch term.Kind {
	case TermGoto, TermDrop:
		if !f.blockInRange(term.Target) {
			return errors.MalformedIR("%s bb%d: target bb%d out of range", f.Name, block, term.Target)
		}
	case TermSwitchInt:
		if len(term.Values) != len(term.Targets) {
			return errors.MalformedIR("%s bb%d: switch has %d values but %d targets",
				f.Name, block, len(term.Values), len(term.Targets))
		}
		for _, t := range term.Targets {
			if !f.blockInRange(t) {
				return errors.MalformedIR("%s bb%d: switch target bb%d out of range", f.Name, block, t)
			}
		}
		if term.Otherwise != -1 && !f.blockInRange(term.Otherwise) {
			return errors.MalformedIR("%s bb%d: switch otherwise bb%d out of range", f.Name, block, term.Otherwise)
		}
	case TermCall:
		if term.Callee == "" {
			return errors.MalformedIR("%s bb%d: call without callee", f.Name, block)
		}
		if !f.blockInRange(term.Target) {
			return errors.MalformedIR("%s bb%d: call return target bb%d out of range", f.Name, block, term.Target)
		}
		if !f.localInRange(term.Dest.Local) {
			return errors.MalformedIR("%s bb%d: call destination local %d out of range", f.Name, block, term.Dest.Local)
		}
	case TermReturn, TermUnreachable, TermResume, TermAbort:
		// no structural constraints
	default:
		return errors.MalformedIR("%s bb%d: unknown terminator kind %d", f.Name, block, term.Kind)
	}
	return nil
}

func (f *Func) blockInRange(b int) bool {
	return b >= 0 && b < len(f.Blocks)
}

func (f *Func) localInRange(l int) bool {
	return l >= 0 && l < len(f.Locals)
}
