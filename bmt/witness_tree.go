package bmt

// WitnessTree backs a single verified step with exactly the nodes a witness
// provides. Reads and writes outside the witnessed set fail with
// ErrInsufficientWitness, so a replay that touches anything the prover did
// not commit to is rejected rather than silently completed with zeros.
type WitnessTree struct {
	values    map[uint64][32]byte
	witnessed map[uint64]bool
	derivable map[uint64]bool
}

// NewWitnessTree builds a tree over the witnessed node values. The keys
// are expected to form an antichain (a frontier cover); ancestors of the
// witnessed nodes are derivable by hashing, everything else is out of
// bounds.
func NewWitnessTree(nodes map[uint64][32]byte) *WitnessTree {
	w := &WitnessTree{
		values:    make(map[uint64][32]byte, len(nodes)),
		witnessed: make(map[uint64]bool, len(nodes)),
		derivable: make(map[uint64]bool),
	}
	for g, v := range nodes {
		if g == 0 {
			continue
		}
		w.values[g] = v
		w.witnessed[g] = true
		for a := g >> 1; a >= 1; a >>= 1 {
			w.derivable[a] = true
		}
	}
	return w
}

// Get returns the witnessed value at g, or derives it by hashing when g is
// an ancestor of witnessed nodes.
func (w *WitnessTree) Get(g uint64) ([32]byte, error) {
	if g == 0 {
		return [32]byte{}, ErrInvalidGindex
	}
	if v, ok := w.values[g]; ok {
		return v, nil
	}
	if !w.derivable[g] {
		return [32]byte{}, ErrInsufficientWitness
	}
	l, err := w.Get(g << 1)
	if err != nil {
		return [32]byte{}, err
	}
	r, err := w.Get(g<<1 | 1)
	if err != nil {
		return [32]byte{}, err
	}
	return Hash(l, r), nil
}

// Set overwrites a witnessed node. Writing anywhere else would change the
// root through a path the witness cannot authenticate, so it is refused.
func (w *WitnessTree) Set(g uint64, v [32]byte) error {
	if g == 0 {
		return ErrInvalidGindex
	}
	if !w.witnessed[g] {
		return ErrInsufficientWitness
	}
	w.values[g] = v
	return nil
}

// Root recomputes the root from the current node values.
func (w *WitnessTree) Root() ([32]byte, error) {
	return w.Get(1)
}
