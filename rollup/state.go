package rollup

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/bfrollup/bfrollup/bmt"
	"github.com/bfrollup/bfrollup/layout"
	"github.com/bfrollup/bfrollup/vm"
)

var (
	ErrBadContractID  = errors.New("rollup: contract id outside 0..255")
	ErrNoSuchContract = errors.New("rollup: contract slot is empty")
	ErrCodeTooLarge   = errors.New("rollup: contract code exceeds capacity")
	ErrCellsTooLarge  = errors.New("rollup: contract cells exceed capacity")
	ErrPtrOutOfRange  = errors.New("rollup: contract ptr outside cells")
	ErrBadCellValue   = errors.New("rollup: cell value outside 0..255")
)

// Cells is a byte tape that marshals as a JSON array of numbers instead of
// base64.
type Cells []byte

func (c Cells) MarshalJSON() ([]byte, error) {
	vals := make([]uint16, len(c))
	for i, b := range c {
		vals[i] = uint16(b)
	}
	return json.Marshal(vals)
}

func (c *Cells) UnmarshalJSON(data []byte) error {
	var vals []int
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	out := make(Cells, len(vals))
	for i, v := range vals {
		if v < 0 || v > 255 {
			return ErrBadCellValue
		}
		out[i] = byte(v)
	}
	*c = out
	return nil
}

// ContractState is one contract slot of the JSON state file.
type ContractState struct {
	Code  string `json:"code"`
	Ptr   uint64 `json:"ptr"`
	Cells Cells  `json:"cells"`
}

// WorldState is the JSON state file: up to 256 contract slots keyed by
// decimal id.
type WorldState struct {
	Contracts map[string]*ContractState `json:"contracts"`
}

// NewWorldState returns an empty world state.
func NewWorldState() *WorldState {
	return &WorldState{Contracts: make(map[string]*ContractState)}
}

func parseContractID(key string) (uint8, error) {
	id, err := strconv.ParseUint(key, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadContractID, key)
	}
	return uint8(id), nil
}

// Contract returns the contract in slot id, or ErrNoSuchContract.
func (ws *WorldState) Contract(id uint8) (*ContractState, error) {
	cs, ok := ws.Contracts[strconv.Itoa(int(id))]
	if !ok || cs == nil {
		return nil, fmt.Errorf("%w: slot %d", ErrNoSuchContract, id)
	}
	return cs, nil
}

// SetContract stores a contract in slot id.
func (ws *WorldState) SetContract(id uint8, cs *ContractState) {
	if ws.Contracts == nil {
		ws.Contracts = make(map[string]*ContractState)
	}
	ws.Contracts[strconv.Itoa(int(id))] = cs
}

// NewStateTree builds the pre-transition state tree: every contract slot
// populated from the world state, the execution container all zero. An
// empty cells tape is padded to a single zero cell so the pointer is
// always addressable.
func NewStateTree(ws *WorldState) (*bmt.Tree, error) {
	tree := bmt.NewTree(layout.ZeroNode)
	st := vm.NewState(tree, nil)
	for key, cs := range ws.Contracts {
		if cs == nil {
			continue
		}
		id, err := parseContractID(key)
		if err != nil {
			return nil, err
		}
		if err := populateContract(st, id, cs); err != nil {
			return nil, fmt.Errorf("contract %d: %w", id, err)
		}
	}
	return tree, nil
}

func populateContract(st *vm.State, id uint8, cs *ContractState) error {
	if len(cs.Code) > layout.MaxCodeBytes {
		return ErrCodeTooLarge
	}
	cells := []byte(cs.Cells)
	if len(cells) == 0 {
		cells = []byte{0}
	}
	if len(cells) > layout.MaxCells {
		return ErrCellsTooLarge
	}
	if cs.Ptr >= uint64(len(cells)) {
		return ErrPtrOutOfRange
	}

	if err := st.SetCodeLen(id, uint64(len(cs.Code))); err != nil {
		return err
	}
	for i := 0; i < len(cs.Code); i++ {
		if err := st.SetCodeByte(id, uint64(i), cs.Code[i]); err != nil {
			return err
		}
	}
	if err := st.SetCellsLen(id, uint64(len(cells))); err != nil {
		return err
	}
	for i, b := range cells {
		if err := st.SetCellByte(id, uint64(i), b); err != nil {
			return err
		}
	}
	return st.SetPtr(id, cs.Ptr)
}

// contractFromTree reads a contract's persisted fields back out of the
// tree into JSON form.
func contractFromTree(st *vm.State, id uint8) (*ContractState, error) {
	codeLen, err := st.CodeLen(id)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	for i := range code {
		if code[i], err = st.CodeByte(id, uint64(i)); err != nil {
			return nil, err
		}
	}
	cellsLen, err := st.CellsLen(id)
	if err != nil {
		return nil, err
	}
	cells := make(Cells, cellsLen)
	for i := range cells {
		if cells[i], err = st.CellByte(id, uint64(i)); err != nil {
			return nil, err
		}
	}
	ptr, err := st.Ptr(id)
	if err != nil {
		return nil, err
	}
	return &ContractState{Code: string(code), Ptr: ptr, Cells: cells}, nil
}

// ExampleWorldState returns the canonical starter state: contract 0 skips
// the 20 sender bytes, reads one payload byte, multiplies it by 7 into the
// next cell, and emits the success byte.
func ExampleWorldState() *WorldState {
	ws := NewWorldState()
	ws.SetContract(0, &ContractState{
		Code:  ",,,,,,,,,,,,,,,,,,,,,[>+++++++<-].",
		Ptr:   0,
		Cells: Cells{0},
	})
	return ws
}
