package layout

import (
	"sync"

	"github.com/bfrollup/bfrollup/bmt"
)

// The zero value of an inner node depends on the shape below it, not just
// its depth: a contract slot full of empty lists does not hash like a
// plain zero subtree. The table below holds the shaped zero for every
// structural gindex of the schema and is computed once.
var (
	zeroOnce  sync.Once
	zeroNodes map[uint64][32]byte
)

func initZeroNodes() {
	zeroOnce.Do(func() {
		m := make(map[uint64][32]byte)
		var zero [32]byte

		var fillBody func(b uint64, depth int)
		fillBody = func(b uint64, depth int) {
			m[b] = bmt.ZeroHash(depth)
			if depth == 0 {
				return
			}
			fillBody(2*b, depth-1)
			fillBody(2*b+1, depth-1)
		}
		fillList := func(l uint64, depth int) {
			fillBody(listBody(l), depth)
			m[listLen(l)] = zero
			m[l] = bmt.Hash(m[listBody(l)], m[listLen(l)])
		}

		for c := 0; c < NumContracts; c++ {
			cr := ContractRoot(uint8(c))
			fillList(4*cr, ByteBodyDepth)
			fillList(4*cr+1, ByteBodyDepth)
			m[4*cr+2] = zero
			m[4*cr+3] = zero
			m[2*cr] = bmt.Hash(m[4*cr], m[4*cr+1])
			m[2*cr+1] = bmt.Hash(zero, zero)
			m[cr] = bmt.Hash(m[2*cr], m[2*cr+1])
		}

		for g := GindexExecContract; g <= GindexExecGas; g++ {
			m[g] = zero
		}
		fillList(gindexInputList, ByteBodyDepth)
		fillList(gindexStackList, StackBodyDepth)
		fillList(gindexOutputList, ByteBodyDepth)
		fillList(gindexSnapCells, ByteBodyDepth)
		m[GindexSnapPtr] = zero
		m[gindexSnapshot] = bmt.Hash(m[gindexSnapCells], m[GindexSnapPtr])
		for g := uint64(57); g <= 63; g++ {
			m[g] = zero
		}

		// Upward sweep: fill every remaining interior node whose children
		// are already shaped. 383 is the deepest interior gindex above the
		// contract roots.
		for g := uint64(383); g >= 1; g-- {
			if _, ok := m[g]; ok {
				continue
			}
			l, lok := m[2*g]
			r, rok := m[2*g+1]
			if lok && rok {
				m[g] = bmt.Hash(l, r)
			}
		}
		zeroNodes = m
	})
}

// ZeroNode returns the shaped zero value of the subtree rooted at g. It is
// the ZeroFn a state tree over this schema should be built with.
func ZeroNode(g uint64) [32]byte {
	initZeroNodes()
	if v, ok := zeroNodes[g]; ok {
		return v
	}
	return [32]byte{}
}

// ZeroEntries calls fn for every shaped inner node of the schema with its
// zero value and the zero values of its children. Traces seed their node
// dictionary with these so a witness descent can pass through regions that
// were never written.
func ZeroEntries(fn func(parent, left, right [32]byte)) {
	initZeroNodes()
	for g, v := range zeroNodes {
		l, lok := zeroNodes[2*g]
		r, rok := zeroNodes[2*g+1]
		if lok && rok {
			fn(v, l, r)
		}
	}
}
