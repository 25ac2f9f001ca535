package vm

import (
	"errors"

	"github.com/bfrollup/bfrollup/layout"
)

// Execution status codes, written into the status leaf. 0xff marks a
// running execution; anything in 0x00..0xfe halts it. Codes written by a
// contract's own `.` opcode share this space, so a contract can emit
// success or a custom error code by outputting the byte.
const (
	StatusRunning byte = 0xff
	StatusSuccess byte = 0x00

	CodeOutOfCode      byte = 0x01
	CodeTapeOverflow   byte = 0x02
	CodeTapeUnderflow  byte = 0x03
	CodeInputExhausted byte = 0x04
	CodeUnmatchedOpen  byte = 0x05
	CodeStackOverflow  byte = 0x06
	CodeStackUnderflow byte = 0x07
	CodeOutOfGas       byte = 0x08
	CodeOutputOverflow byte = 0x09
)

// Host-layer errors. These indicate misuse of the VM, not execution-layer
// failures; execution failures halt through the status leaf instead.
var (
	ErrInputTooLarge = errors.New("vm: input exceeds capacity")
	ErrStillRunning  = errors.New("vm: finalize on running execution")
	ErrNotRunning    = errors.New("vm: base step on live execution")
)

// Halted reports whether the execution container has left the running
// state.
func Halted(s *State) (bool, error) {
	status, err := s.Status()
	if err != nil {
		return false, err
	}
	return status != StatusRunning, nil
}

// BaseStep loads a transaction into the execution container: the input
// buffer, fresh counters, the gas budget, and a snapshot of the addressed
// contract's cells and pointer for error rollback. The contract's
// persisted fields themselves are untouched.
func BaseStep(s *State, contract uint8, input []byte, gas uint64) error {
	if len(input) > layout.MaxInputBytes {
		return ErrInputTooLarge
	}
	status, err := s.Status()
	if err != nil {
		return err
	}
	if status == StatusRunning {
		return ErrNotRunning
	}
	if err := s.SetContract(contract); err != nil {
		return err
	}
	if err := s.SetPC(0); err != nil {
		return err
	}
	if err := s.SetInPtr(0); err != nil {
		return err
	}
	if err := s.SetStatus(StatusRunning); err != nil {
		return err
	}
	if err := s.SetGas(gas); err != nil {
		return err
	}
	if err := s.SetInputLen(uint64(len(input))); err != nil {
		return err
	}
	for k := 0; k*layout.BytesPerChunk < len(input); k++ {
		var chunk [32]byte
		copy(chunk[:], input[k*layout.BytesPerChunk:])
		if err := s.SetInputChunk(uint64(k), chunk); err != nil {
			return err
		}
	}
	if err := s.SetStackLen(0); err != nil {
		return err
	}
	if err := s.SetOutputLen(0); err != nil {
		return err
	}

	cellsLen, err := s.CellsLen(contract)
	if err != nil {
		return err
	}
	if err := s.SetSnapCellsLen(cellsLen); err != nil {
		return err
	}
	for k := uint64(0); k*layout.BytesPerChunk < cellsLen; k++ {
		chunk, err := s.CellsChunk(contract, k)
		if err != nil {
			return err
		}
		if err := s.SetSnapCellsChunk(k, chunk); err != nil {
			return err
		}
	}
	ptr, err := s.Ptr(contract)
	if err != nil {
		return err
	}
	return s.SetSnapPtr(ptr)
}

// Step executes exactly one opcode. A halted execution is left untouched,
// so the post-root equals the pre-root. Gas is charged before the fetch;
// running out of code to fetch is itself an error.
func Step(s *State) error {
	halted, err := Halted(s)
	if err != nil {
		return err
	}
	if halted {
		return nil
	}

	gas, err := s.Gas()
	if err != nil {
		return err
	}
	if gas == 0 {
		return s.SetStatus(CodeOutOfGas)
	}
	if err := s.SetGas(gas - 1); err != nil {
		return err
	}

	c, err := s.Contract()
	if err != nil {
		return err
	}
	pc, err := s.PC()
	if err != nil {
		return err
	}
	codeLen, err := s.CodeLen(c)
	if err != nil {
		return err
	}
	if pc >= codeLen {
		return s.SetStatus(CodeOutOfCode)
	}
	op, err := s.CodeByte(c, pc)
	if err != nil {
		return err
	}

	switch op {
	case '>':
		return opRight(s, c, pc)
	case '<':
		return opLeft(s, c, pc)
	case '+':
		return opAdd(s, c, pc, 1)
	case '-':
		return opAdd(s, c, pc, 0xff)
	case '.':
		return opOut(s, c, pc)
	case ',':
		return opIn(s, c, pc)
	case '[':
		return opOpen(s, c, pc, codeLen)
	case ']':
		return opClose(s, c, pc)
	default:
		// Non-opcode bytes still cost the step's gas.
		return s.SetPC(pc + 1)
	}
}

func opRight(s *State, c uint8, pc uint64) error {
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	cellsLen, err := s.CellsLen(c)
	if err != nil {
		return err
	}
	if ptr+1 == cellsLen {
		if cellsLen == layout.MaxCells {
			return s.SetStatus(CodeTapeOverflow)
		}
		// Extend the tape with a zero cell. Cells beyond the length are
		// zero already, so only the length moves.
		if err := s.SetCellsLen(c, cellsLen+1); err != nil {
			return err
		}
	}
	if err := s.SetPtr(c, ptr+1); err != nil {
		return err
	}
	return s.SetPC(pc + 1)
}

func opLeft(s *State, c uint8, pc uint64) error {
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	if ptr == 0 {
		return s.SetStatus(CodeTapeUnderflow)
	}
	if err := s.SetPtr(c, ptr-1); err != nil {
		return err
	}
	return s.SetPC(pc + 1)
}

func opAdd(s *State, c uint8, pc uint64, delta byte) error {
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	b, err := s.CellByte(c, ptr)
	if err != nil {
		return err
	}
	if err := s.SetCellByte(c, ptr, b+delta); err != nil {
		return err
	}
	return s.SetPC(pc + 1)
}

func opOut(s *State, c uint8, pc uint64) error {
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	b, err := s.CellByte(c, ptr)
	if err != nil {
		return err
	}
	outLen, err := s.OutputLen()
	if err != nil {
		return err
	}
	if outLen == layout.MaxOutputBytes {
		return s.SetStatus(CodeOutputOverflow)
	}
	if err := s.SetOutputByte(outLen, b); err != nil {
		return err
	}
	if err := s.SetOutputLen(outLen + 1); err != nil {
		return err
	}
	if err := s.SetPC(pc + 1); err != nil {
		return err
	}
	// An output byte of 0x00 signals success, 0x01..0xfe a
	// contract-emitted error code. 0xff is the running sentinel and is
	// appended without halting.
	if b != StatusRunning {
		return s.SetStatus(b)
	}
	return nil
}

func opIn(s *State, c uint8, pc uint64) error {
	inPtr, err := s.InPtr()
	if err != nil {
		return err
	}
	inLen, err := s.InputLen()
	if err != nil {
		return err
	}
	if inPtr >= inLen {
		return s.SetStatus(CodeInputExhausted)
	}
	b, err := s.InputByte(inPtr)
	if err != nil {
		return err
	}
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	if err := s.SetCellByte(c, ptr, b); err != nil {
		return err
	}
	if err := s.SetInPtr(inPtr + 1); err != nil {
		return err
	}
	return s.SetPC(pc + 1)
}

func opOpen(s *State, c uint8, pc, codeLen uint64) error {
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	b, err := s.CellByte(c, ptr)
	if err != nil {
		return err
	}
	if b != 0 {
		stackLen, err := s.StackLen()
		if err != nil {
			return err
		}
		if stackLen == layout.MaxStackEntries {
			return s.SetStatus(CodeStackOverflow)
		}
		if err := s.SetStackAt(stackLen, uint32(pc)); err != nil {
			return err
		}
		if err := s.SetStackLen(stackLen + 1); err != nil {
			return err
		}
		return s.SetPC(pc + 1)
	}

	// Zero cell: scan strictly left to right for the matching bracket.
	// The scan happens inside this one step, so every examined code byte
	// lands in the step's access set.
	depth := 1
	for j := pc + 1; j < codeLen; j++ {
		op, err := s.CodeByte(c, j)
		if err != nil {
			return err
		}
		switch op {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s.SetPC(j + 1)
			}
		}
	}
	return s.SetStatus(CodeUnmatchedOpen)
}

func opClose(s *State, c uint8, pc uint64) error {
	stackLen, err := s.StackLen()
	if err != nil {
		return err
	}
	if stackLen == 0 {
		return s.SetStatus(CodeStackUnderflow)
	}
	ptr, err := s.Ptr(c)
	if err != nil {
		return err
	}
	b, err := s.CellByte(c, ptr)
	if err != nil {
		return err
	}
	if b != 0 {
		top, err := s.StackAt(stackLen - 1)
		if err != nil {
			return err
		}
		// Jump back to the opening bracket; the entry stays on the stack
		// and the re-executed `[` pushes its own.
		return s.SetPC(uint64(top))
	}
	if err := s.SetStackAt(stackLen-1, 0); err != nil {
		return err
	}
	if err := s.SetStackLen(stackLen - 1); err != nil {
		return err
	}
	return s.SetPC(pc + 1)
}

// Finalize ends a transition after the VM has halted: on error it restores
// the contract's cells and pointer from the snapshot, then it clears the
// execution container back to all zeros. It is a distinct transition from
// Step, driven by the host, so stepping a halted state through Step stays
// a structural no-op.
func Finalize(s *State) error {
	status, err := s.Status()
	if err != nil {
		return err
	}
	if status == StatusRunning {
		return ErrStillRunning
	}
	c, err := s.Contract()
	if err != nil {
		return err
	}

	snapLen, err := s.SnapCellsLen()
	if err != nil {
		return err
	}
	cellsLen, err := s.CellsLen(c)
	if err != nil {
		return err
	}
	if status != StatusSuccess {
		// Roll back: overwrite every chunk the execution could have
		// touched with the snapshot, then the length and pointer.
		n := snapLen
		if cellsLen > n {
			n = cellsLen
		}
		for k := uint64(0); k*layout.BytesPerChunk < n; k++ {
			chunk, err := s.SnapCellsChunk(k)
			if err != nil {
				return err
			}
			if err := s.SetCellsChunk(c, k, chunk); err != nil {
				return err
			}
		}
		if err := s.SetCellsLen(c, snapLen); err != nil {
			return err
		}
		snapPtr, err := s.SnapPtr()
		if err != nil {
			return err
		}
		if err := s.SetPtr(c, snapPtr); err != nil {
			return err
		}
	}

	// Clear the execution container leaf by leaf. Lists are zero beyond
	// their length, so zeroing the chunks the lengths cover is enough.
	inLen, err := s.InputLen()
	if err != nil {
		return err
	}
	stackLen, err := s.StackLen()
	if err != nil {
		return err
	}
	outLen, err := s.OutputLen()
	if err != nil {
		return err
	}

	var zero [32]byte
	if err := s.SetContract(0); err != nil {
		return err
	}
	if err := s.SetPC(0); err != nil {
		return err
	}
	if err := s.SetInPtr(0); err != nil {
		return err
	}
	if err := s.SetStatus(0); err != nil {
		return err
	}
	if err := s.SetGas(0); err != nil {
		return err
	}
	if err := s.SetInputLen(0); err != nil {
		return err
	}
	for k := uint64(0); k*layout.BytesPerChunk < inLen; k++ {
		if err := s.SetInputChunk(k, zero); err != nil {
			return err
		}
	}
	if err := s.SetStackLen(0); err != nil {
		return err
	}
	for k := uint64(0); k*layout.U32sPerChunk < stackLen; k++ {
		if err := s.setLeaf(layout.StackChunk(k), zero); err != nil {
			return err
		}
	}
	if err := s.SetOutputLen(0); err != nil {
		return err
	}
	for k := uint64(0); k*layout.BytesPerChunk < outLen; k++ {
		if err := s.setLeaf(layout.OutputChunk(k), zero); err != nil {
			return err
		}
	}
	if err := s.SetSnapCellsLen(0); err != nil {
		return err
	}
	for k := uint64(0); k*layout.BytesPerChunk < snapLen; k++ {
		if err := s.SetSnapCellsChunk(k, zero); err != nil {
			return err
		}
	}
	return s.SetSnapPtr(0)
}
