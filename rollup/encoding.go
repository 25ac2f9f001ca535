package rollup

import (
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrBadGindexWord = errors.New("rollup: gindex word out of range")

// Gindices travel as 32-byte big-endian words so the wire format matches
// the word size of an on-chain verifier.

// GindexWord encodes a gindex as a 32-byte big-endian word.
func GindexWord(g uint64) common.Hash {
	return uint256.NewInt(g).Bytes32()
}

// WordGindex decodes a 32-byte big-endian word back into a gindex.
func WordGindex(h common.Hash) (uint64, error) {
	var u uint256.Int
	u.SetBytes(h[:])
	if !u.IsUint64() || u.IsZero() {
		return 0, ErrBadGindexWord
	}
	return u.Uint64(), nil
}

type traceJSON struct {
	Nodes     map[common.Hash][2]common.Hash `json:"nodes"`
	StepRoots []common.Hash                  `json:"step_roots"`
	Access    [][]common.Hash                `json:"access"`
	Tx        *Transaction                   `json:"tx"`
}

func (tr *Trace) MarshalJSON() ([]byte, error) {
	enc := traceJSON{
		Nodes:     tr.Nodes,
		StepRoots: make([]common.Hash, len(tr.StepRoots)),
		Access:    make([][]common.Hash, len(tr.Access)),
		Tx:        tr.Tx,
	}
	for i, r := range tr.StepRoots {
		enc.StepRoots[i] = r
	}
	for i, acc := range tr.Access {
		words := make([]common.Hash, len(acc))
		for j, g := range acc {
			words[j] = GindexWord(g)
		}
		enc.Access[i] = words
	}
	return json.Marshal(&enc)
}

func (tr *Trace) UnmarshalJSON(data []byte) error {
	var dec traceJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	tr.Nodes = dec.Nodes
	tr.Tx = dec.Tx
	tr.StepRoots = make([][32]byte, len(dec.StepRoots))
	for i, r := range dec.StepRoots {
		tr.StepRoots[i] = r
	}
	tr.Access = make([][]uint64, len(dec.Access))
	for i, words := range dec.Access {
		acc := make([]uint64, len(words))
		for j, w := range words {
			g, err := WordGindex(w)
			if err != nil {
				return err
			}
			acc[j] = g
		}
		tr.Access[i] = acc
	}
	return nil
}

type witnessJSON struct {
	NodeByGindex map[common.Hash]common.Hash `json:"node_by_gindex"`
	PreRoot      common.Hash                 `json:"pre_root"`
	PostRoot     common.Hash                 `json:"post_root"`
	Step         int                         `json:"step"`
	Tx           *Transaction                `json:"tx,omitempty"`
}

func (w *Witness) MarshalJSON() ([]byte, error) {
	enc := witnessJSON{
		NodeByGindex: make(map[common.Hash]common.Hash, len(w.NodeByGindex)),
		PreRoot:      w.PreRoot,
		PostRoot:     w.PostRoot,
		Step:         w.Step,
		Tx:           w.Tx,
	}
	for g, v := range w.NodeByGindex {
		enc.NodeByGindex[GindexWord(g)] = v
	}
	return json.Marshal(&enc)
}

func (w *Witness) UnmarshalJSON(data []byte) error {
	var dec witnessJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	w.NodeByGindex = make(map[uint64][32]byte, len(dec.NodeByGindex))
	for word, v := range dec.NodeByGindex {
		g, err := WordGindex(word)
		if err != nil {
			return err
		}
		w.NodeByGindex[g] = v
	}
	w.PreRoot = dec.PreRoot
	w.PostRoot = dec.PostRoot
	w.Step = dec.Step
	w.Tx = dec.Tx
	return nil
}
