package rollup

import (
	"errors"

	"github.com/bfrollup/bfrollup/bmt"
	"github.com/bfrollup/bfrollup/log"
	"github.com/bfrollup/bfrollup/vm"
)

var (
	ErrBadPreRoot   = errors.New("rollup: witness does not open the pre root")
	ErrMissingTx    = errors.New("rollup: base-step witness lacks the transaction")
	ErrUnexpectedTx = errors.New("rollup: transaction only valid on the base step")
)

// VerifyStep replays a single step from its witness and returns the
// recomputed post root. The backing tree holds exactly the witnessed
// nodes, so any access outside the witness surfaces as
// bmt.ErrInsufficientWitness. The caller compares the returned root
// against the sequencer's claim; the verifier reports, it does not judge.
func VerifyStep(w *Witness) ([32]byte, error) {
	logger := log.Default().Module("rollup")

	wt := bmt.NewWitnessTree(w.NodeByGindex)
	root, err := wt.Root()
	if err != nil {
		return [32]byte{}, err
	}
	if root != w.PreRoot {
		return [32]byte{}, ErrBadPreRoot
	}

	st := vm.NewState(wt, nil)
	switch {
	case w.Step == 0:
		if w.Tx == nil {
			return [32]byte{}, ErrMissingTx
		}
		logger.Debug("replaying base step", "tx", w.Tx.Hash())
		if err := vm.BaseStep(st, w.Tx.Contract, w.Tx.Input(), w.Tx.Gas()); err != nil {
			return [32]byte{}, err
		}
	default:
		if w.Tx != nil {
			return [32]byte{}, ErrUnexpectedTx
		}
		halted, err := vm.Halted(st)
		if err != nil {
			return [32]byte{}, err
		}
		if halted {
			// The only step starting from a halted state is the final
			// rollback/commit bookkeeping step.
			logger.Debug("replaying finalize step", "step", w.Step)
			if err := vm.Finalize(st); err != nil {
				return [32]byte{}, err
			}
		} else {
			logger.Debug("replaying opcode step", "step", w.Step)
			if err := vm.Step(st); err != nil {
				return [32]byte{}, err
			}
		}
	}
	return st.Root()
}
