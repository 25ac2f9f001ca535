// Package vm implements the stepwise Brainfuck interpreter over a
// Merkleized state. Every read and write goes through a typed accessor
// that resolves the schema gindex, reports it to the trace recorder, and
// delegates to the backing tree. The same step code runs on the prover's
// full tree and on the verifier's witness tree.
package vm

import (
	"github.com/bfrollup/bfrollup/bmt"
	"github.com/bfrollup/bfrollup/layout"
)

// Recorder receives every gindex an accessor touches. A nil Recorder
// disables recording.
type Recorder interface {
	Touch(gindex uint64)
}

// State exposes the rollup state tree through schema-aware accessors.
type State struct {
	tree bmt.State
	rec  Recorder
}

// NewState wraps a backing tree. rec may be nil.
func NewState(tree bmt.State, rec Recorder) *State {
	return &State{tree: tree, rec: rec}
}

func (s *State) touch(g uint64) {
	if s.rec != nil {
		s.rec.Touch(g)
	}
}

func (s *State) getLeaf(g uint64) ([32]byte, error) {
	s.touch(g)
	return s.tree.Get(g)
}

func (s *State) setLeaf(g uint64, v [32]byte) error {
	s.touch(g)
	return s.tree.Set(g, v)
}

// Root returns the current state root.
func (s *State) Root() ([32]byte, error) {
	return s.tree.Root()
}

func (s *State) getU64(g uint64) (uint64, error) {
	c, err := s.getLeaf(g)
	if err != nil {
		return 0, err
	}
	return layout.LeafUint64(c), nil
}

func (s *State) setU64(g, v uint64) error {
	return s.setLeaf(g, layout.Uint64Leaf(v))
}

func (s *State) getListByte(chunk uint64, off int) (byte, error) {
	c, err := s.getLeaf(chunk)
	if err != nil {
		return 0, err
	}
	return layout.ChunkByte(c, off), nil
}

func (s *State) setListByte(chunk uint64, off int, b byte) error {
	c, err := s.getLeaf(chunk)
	if err != nil {
		return err
	}
	return s.setLeaf(chunk, layout.WithChunkByte(c, off, b))
}

// Execution container scalars.

func (s *State) Contract() (uint8, error) {
	v, err := s.getU64(layout.GindexExecContract)
	return uint8(v), err
}

func (s *State) SetContract(c uint8) error {
	return s.setU64(layout.GindexExecContract, uint64(c))
}

func (s *State) PC() (uint64, error)    { return s.getU64(layout.GindexExecPC) }
func (s *State) SetPC(v uint64) error   { return s.setU64(layout.GindexExecPC, v) }
func (s *State) InPtr() (uint64, error) { return s.getU64(layout.GindexExecInPtr) }
func (s *State) SetInPtr(v uint64) error {
	return s.setU64(layout.GindexExecInPtr, v)
}

func (s *State) Status() (byte, error) {
	c, err := s.getLeaf(layout.GindexExecStatus)
	return layout.LeafByte(c), err
}

func (s *State) SetStatus(v byte) error {
	return s.setLeaf(layout.GindexExecStatus, layout.ByteLeaf(v))
}

func (s *State) Gas() (uint64, error)  { return s.getU64(layout.GindexExecGas) }
func (s *State) SetGas(v uint64) error { return s.setU64(layout.GindexExecGas, v) }

// Contract code list (immutable after creation, but the accessors do not
// enforce that; population uses the setters).

func (s *State) CodeLen(c uint8) (uint64, error) {
	return s.getU64(layout.ContractCodeLen(c))
}

func (s *State) SetCodeLen(c uint8, n uint64) error {
	return s.setU64(layout.ContractCodeLen(c), n)
}

func (s *State) CodeByte(c uint8, i uint64) (byte, error) {
	return s.getListByte(layout.ContractCodeChunk(c, i/layout.BytesPerChunk), int(i%layout.BytesPerChunk))
}

func (s *State) SetCodeByte(c uint8, i uint64, b byte) error {
	return s.setListByte(layout.ContractCodeChunk(c, i/layout.BytesPerChunk), int(i%layout.BytesPerChunk), b)
}

// Contract cells list and tape pointer.

func (s *State) CellsLen(c uint8) (uint64, error) {
	return s.getU64(layout.ContractCellsLen(c))
}

func (s *State) SetCellsLen(c uint8, n uint64) error {
	return s.setU64(layout.ContractCellsLen(c), n)
}

func (s *State) CellByte(c uint8, i uint64) (byte, error) {
	return s.getListByte(layout.ContractCellsChunk(c, i/layout.BytesPerChunk), int(i%layout.BytesPerChunk))
}

func (s *State) SetCellByte(c uint8, i uint64, b byte) error {
	return s.setListByte(layout.ContractCellsChunk(c, i/layout.BytesPerChunk), int(i%layout.BytesPerChunk), b)
}

func (s *State) CellsChunk(c uint8, k uint64) ([32]byte, error) {
	return s.getLeaf(layout.ContractCellsChunk(c, k))
}

func (s *State) SetCellsChunk(c uint8, k uint64, v [32]byte) error {
	return s.setLeaf(layout.ContractCellsChunk(c, k), v)
}

func (s *State) Ptr(c uint8) (uint64, error) {
	return s.getU64(layout.ContractPtr(c))
}

func (s *State) SetPtr(c uint8, v uint64) error {
	return s.setU64(layout.ContractPtr(c), v)
}

// Input list.

func (s *State) InputLen() (uint64, error)  { return s.getU64(layout.GindexInputLen) }
func (s *State) SetInputLen(n uint64) error { return s.setU64(layout.GindexInputLen, n) }

func (s *State) InputByte(i uint64) (byte, error) {
	return s.getListByte(layout.InputChunk(i/layout.BytesPerChunk), int(i%layout.BytesPerChunk))
}

func (s *State) SetInputChunk(k uint64, v [32]byte) error {
	return s.setLeaf(layout.InputChunk(k), v)
}

// Loop stack (u32 program counters, 8 per chunk).

func (s *State) StackLen() (uint64, error)  { return s.getU64(layout.GindexStackLen) }
func (s *State) SetStackLen(n uint64) error { return s.setU64(layout.GindexStackLen, n) }

func (s *State) StackAt(i uint64) (uint32, error) {
	c, err := s.getLeaf(layout.StackChunk(i / layout.U32sPerChunk))
	if err != nil {
		return 0, err
	}
	return layout.ChunkUint32(c, int(i%layout.U32sPerChunk)), nil
}

func (s *State) SetStackAt(i uint64, v uint32) error {
	g := layout.StackChunk(i / layout.U32sPerChunk)
	c, err := s.getLeaf(g)
	if err != nil {
		return err
	}
	return s.setLeaf(g, layout.WithChunkUint32(c, int(i%layout.U32sPerChunk), v))
}

// Output list.

func (s *State) OutputLen() (uint64, error)  { return s.getU64(layout.GindexOutputLen) }
func (s *State) SetOutputLen(n uint64) error { return s.setU64(layout.GindexOutputLen, n) }

func (s *State) OutputByte(i uint64) (byte, error) {
	return s.getListByte(layout.OutputChunk(i/layout.BytesPerChunk), int(i%layout.BytesPerChunk))
}

func (s *State) SetOutputByte(i uint64, b byte) error {
	return s.setListByte(layout.OutputChunk(i/layout.BytesPerChunk), int(i%layout.BytesPerChunk), b)
}

// Snapshot of the addressed contract's persisted fields, kept in the
// execution container for error rollback.

func (s *State) SnapCellsLen() (uint64, error) {
	return s.getU64(layout.GindexSnapCellsLen)
}

func (s *State) SetSnapCellsLen(n uint64) error {
	return s.setU64(layout.GindexSnapCellsLen, n)
}

func (s *State) SnapCellsChunk(k uint64) ([32]byte, error) {
	return s.getLeaf(layout.SnapCellsChunk(k))
}

func (s *State) SetSnapCellsChunk(k uint64, v [32]byte) error {
	return s.setLeaf(layout.SnapCellsChunk(k), v)
}

func (s *State) SnapPtr() (uint64, error)  { return s.getU64(layout.GindexSnapPtr) }
func (s *State) SetSnapPtr(v uint64) error { return s.setU64(layout.GindexSnapPtr, v) }
