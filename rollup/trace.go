package rollup

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bfrollup/bfrollup/bmt"
	"github.com/bfrollup/bfrollup/layout"
	"github.com/bfrollup/bfrollup/log"
	"github.com/bfrollup/bfrollup/vm"
)

// SanityLimit bounds the number of VM steps in one transition. A program
// that runs past it has outlived any plausible gas budget.
const SanityLimit = 1_000_000

var (
	ErrTooManySteps = errors.New("rollup: step limit exceeded")
)

// accessRecorder collects the gindices one step touches.
type accessRecorder struct {
	gindices map[uint64]struct{}
}

func newAccessRecorder() *accessRecorder {
	return &accessRecorder{gindices: make(map[uint64]struct{})}
}

func (r *accessRecorder) Touch(g uint64) {
	r.gindices[g] = struct{}{}
}

// take returns the sorted access set and resets the recorder for the next
// step.
func (r *accessRecorder) take() []uint64 {
	out := make([]uint64, 0, len(r.gindices))
	for g := range r.gindices {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	r.gindices = make(map[uint64]struct{})
	return out
}

// Trace captures a full transition for bisection: per-step roots and
// access sets, plus a content-addressed dictionary of inner nodes
// sufficient to descend from any step root to any node of that step's
// tree. The dictionary is keyed by parent hash rather than position, so
// it can hold every historical version of a node at once.
type Trace struct {
	Nodes     map[common.Hash][2]common.Hash
	StepRoots [][32]byte
	Access    [][]uint64
	Tx        *Transaction
}

// Steps returns the number of recorded steps (base step, opcode steps and
// the finalize step).
func (tr *Trace) Steps() int {
	return len(tr.Access)
}

// PostRoot returns the honest post-transition root, the claim a dispute
// bisects against.
func (tr *Trace) PostRoot() [32]byte {
	return tr.StepRoots[len(tr.StepRoots)-1]
}

func (tr *Trace) addNode(parent, left, right [32]byte) {
	tr.Nodes[common.Hash(parent)] = [2]common.Hash{left, right}
}

// snapshotNodes records every currently materialized inner node of the
// tree into the dictionary.
func (tr *Trace) snapshotNodes(tree *bmt.Tree) {
	tree.Inner(func(g uint64, l, r [32]byte) {
		tr.addNode(bmt.Hash(l, r), l, r)
	})
}

func treeStatus(tree *bmt.Tree) (byte, error) {
	c, err := tree.Get(layout.GindexExecStatus)
	if err != nil {
		return 0, err
	}
	return layout.LeafByte(c), nil
}

// Generate runs a transaction against the world state and records the
// full fraud-proof trace. The world state itself is not modified.
func Generate(ws *WorldState, tx *Transaction) (*Trace, error) {
	logger := log.Default().Module("rollup").With("tx", tx.Hash())

	if _, err := ws.Contract(tx.Contract); err != nil {
		return nil, err
	}
	tree, err := NewStateTree(ws)
	if err != nil {
		return nil, err
	}

	tr := &Trace{
		Nodes: make(map[common.Hash][2]common.Hash),
		Tx:    tx,
	}
	// Seed the dictionary with the schema's zero subtrees so descents can
	// cross regions that were never written.
	layout.ZeroEntries(tr.addNode)

	rec := newAccessRecorder()
	st := vm.NewState(tree, rec)

	capture := func() error {
		root, err := tree.Root()
		if err != nil {
			return err
		}
		tr.StepRoots = append(tr.StepRoots, root)
		tr.snapshotNodes(tree)
		return nil
	}

	if err := capture(); err != nil { // r_0
		return nil, err
	}

	logger.Info("generating trace", "contract", tx.Contract, "gas", tx.Gas())
	if err := vm.BaseStep(st, tx.Contract, tx.Input(), tx.Gas()); err != nil {
		return nil, err
	}
	tr.Access = append(tr.Access, rec.take())
	if err := capture(); err != nil {
		return nil, err
	}

	for {
		status, err := treeStatus(tree)
		if err != nil {
			return nil, err
		}
		if status != vm.StatusRunning {
			break
		}
		if tr.Steps() >= SanityLimit {
			return nil, ErrTooManySteps
		}
		if err := vm.Step(st); err != nil {
			return nil, err
		}
		tr.Access = append(tr.Access, rec.take())
		if err := capture(); err != nil {
			return nil, err
		}
	}

	if err := vm.Finalize(st); err != nil {
		return nil, err
	}
	tr.Access = append(tr.Access, rec.take())
	if err := capture(); err != nil {
		return nil, err
	}

	post := tr.PostRoot()
	logger.Info("trace complete", "steps", tr.Steps(), "post_root", common.Hash(post))
	return tr, nil
}

// Result summarizes an applied transition.
type Result struct {
	Status   byte
	PostRoot [32]byte
	Steps    int
	TxHash   common.Hash
}

// Success reports whether the transaction committed.
func (r *Result) Success() bool {
	return r.Status == vm.StatusSuccess
}

// Transition applies a transaction to the world state. On success the
// addressed contract's persisted fields are updated in place; on an
// execution error the world state is left untouched. The returned post
// root is the honest claim a sequencer would publish.
func Transition(ws *WorldState, tx *Transaction) (*Result, error) {
	logger := log.Default().Module("rollup").With("tx", tx.Hash())

	if _, err := ws.Contract(tx.Contract); err != nil {
		return nil, err
	}
	tree, err := NewStateTree(ws)
	if err != nil {
		return nil, err
	}
	st := vm.NewState(tree, nil)

	if err := vm.BaseStep(st, tx.Contract, tx.Input(), tx.Gas()); err != nil {
		return nil, err
	}
	steps := 1
	for {
		status, err := treeStatus(tree)
		if err != nil {
			return nil, err
		}
		if status != vm.StatusRunning {
			break
		}
		if steps >= SanityLimit {
			return nil, ErrTooManySteps
		}
		if err := vm.Step(st); err != nil {
			return nil, err
		}
		steps++
	}

	status, err := treeStatus(tree)
	if err != nil {
		return nil, err
	}
	if err := vm.Finalize(st); err != nil {
		return nil, err
	}
	steps++

	if status == vm.StatusSuccess {
		cs, err := contractFromTree(st, tx.Contract)
		if err != nil {
			return nil, err
		}
		ws.SetContract(tx.Contract, cs)
		logger.Info("transaction committed", "steps", steps)
	} else {
		logger.Info("transaction reverted", "status", status, "steps", steps)
	}

	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:   status,
		PostRoot: root,
		Steps:    steps,
		TxHash:   tx.Hash(),
	}, nil
}
