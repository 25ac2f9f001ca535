package rollup

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bfrollup/bfrollup/bmt"
)

var (
	ErrStepOutOfRange = errors.New("rollup: step index outside trace")
	ErrMissingNode    = errors.New("rollup: trace node dictionary incomplete")
)

// Witness is everything the verifier needs to replay one step: the
// frontier multiproof against the pre root, both roots, and for the base
// step the transaction itself, since the base step is a function of L1
// calldata rather than of the tree.
type Witness struct {
	NodeByGindex map[uint64][32]byte
	PreRoot      [32]byte
	PostRoot     [32]byte
	Step         int
	Tx           *Transaction
}

// resolveNode descends from root to the node at gindex g through the
// content-addressed dictionary.
func resolveNode(nodes map[common.Hash][2]common.Hash, root [32]byte, g uint64) ([32]byte, error) {
	cur := common.Hash(root)
	for i := bits.Len64(g) - 2; i >= 0; i-- {
		pair, ok := nodes[cur]
		if !ok {
			return [32]byte{}, fmt.Errorf("%w: no children for %s", ErrMissingNode, cur)
		}
		cur = pair[g>>uint(i)&1]
	}
	return [32]byte(cur), nil
}

// ExtractStepWitness projects the trace down to the minimal multiproof
// for one step: the frontier cover of the step's access set, with values
// resolved against that step's pre root.
func ExtractStepWitness(tr *Trace, step int) (*Witness, error) {
	if step < 0 || step >= tr.Steps() {
		return nil, fmt.Errorf("%w: %d of %d", ErrStepOutOfRange, step, tr.Steps())
	}
	preRoot := tr.StepRoots[step]
	cover := bmt.FrontierCover(tr.Access[step])
	nodes := make(map[uint64][32]byte, len(cover))
	for _, g := range cover {
		v, err := resolveNode(tr.Nodes, preRoot, g)
		if err != nil {
			return nil, err
		}
		nodes[g] = v
	}
	w := &Witness{
		NodeByGindex: nodes,
		PreRoot:      preRoot,
		PostRoot:     tr.StepRoots[step+1],
		Step:         step,
	}
	if step == 0 {
		w.Tx = tr.Tx
	}
	return w, nil
}
