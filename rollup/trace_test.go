package rollup

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bfrollup/bfrollup/vm"
)

func testTx(payload ...byte) *Transaction {
	return &Transaction{
		Sender:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Contract: 0,
		Payload:  payload,
	}
}

func TestTransition_MultiplyBySeven(t *testing.T) {
	ws := ExampleWorldState()
	res, err := Transition(ws, testTx(3))
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !res.Success() {
		t.Fatalf("status = %#x, want success", res.Status)
	}
	cs, err := ws.Contract(0)
	if err != nil {
		t.Fatalf("Contract(0): %v", err)
	}
	if len(cs.Cells) != 2 || cs.Cells[0] != 0 || cs.Cells[1] != 21 {
		t.Fatalf("cells = %v, want [0 21]", cs.Cells)
	}
	if cs.Ptr != 0 {
		t.Fatalf("ptr = %d, want 0", cs.Ptr)
	}
}

func TestTransition_UnmatchedBracket(t *testing.T) {
	ws := NewWorldState()
	ws.SetContract(0, &ContractState{Code: "[+", Ptr: 0, Cells: Cells{0}})
	res, err := Transition(ws, testTx(1))
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if res.Status != vm.CodeUnmatchedOpen {
		t.Fatalf("status = %#x, want %#x", res.Status, vm.CodeUnmatchedOpen)
	}
}

func TestTransition_InputExhausted(t *testing.T) {
	ws := NewWorldState()
	ws.SetContract(0, &ContractState{Code: strings.Repeat(",", 21), Cells: Cells{0}})
	res, err := Transition(ws, testTx())
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if res.Status != vm.CodeInputExhausted {
		t.Fatalf("status = %#x, want %#x", res.Status, vm.CodeInputExhausted)
	}
}

func TestTransition_OutOfGas(t *testing.T) {
	ws := NewWorldState()
	ws.SetContract(0, &ContractState{Code: "+[]", Cells: Cells{0}})
	res, err := Transition(ws, testTx())
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if res.Status != vm.CodeOutOfGas {
		t.Fatalf("status = %#x, want %#x", res.Status, vm.CodeOutOfGas)
	}
	cs, err := ws.Contract(0)
	if err != nil {
		t.Fatalf("Contract(0): %v", err)
	}
	if len(cs.Cells) != 1 || cs.Cells[0] != 0 {
		t.Fatalf("cells = %v, want [0] after rollback", cs.Cells)
	}
}

func TestTransition_NoSuchContract(t *testing.T) {
	ws := NewWorldState()
	if _, err := Transition(ws, testTx()); !errors.Is(err, ErrNoSuchContract) {
		t.Fatalf("err = %v, want ErrNoSuchContract", err)
	}
}

func TestGenerate_MatchesTransition(t *testing.T) {
	tx := testTx(3)
	tr, err := Generate(ExampleWorldState(), tx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	res, err := Transition(ExampleWorldState(), tx)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if tr.PostRoot() != res.PostRoot {
		t.Fatalf("trace post root %x, transition post root %x", tr.PostRoot(), res.PostRoot)
	}
	if tr.Steps() != res.Steps {
		t.Fatalf("trace steps = %d, transition steps = %d", tr.Steps(), res.Steps)
	}
	if len(tr.StepRoots) != tr.Steps()+1 {
		t.Fatalf("len(StepRoots) = %d, want %d", len(tr.StepRoots), tr.Steps()+1)
	}
	if tr.Tx == nil || tr.Tx.Hash() != tx.Hash() {
		t.Fatalf("trace does not carry the transaction")
	}
}

func TestGenerate_LeavesWorldStateUntouched(t *testing.T) {
	ws := ExampleWorldState()
	if _, err := Generate(ws, testTx(3)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	cs, err := ws.Contract(0)
	if err != nil {
		t.Fatalf("Contract(0): %v", err)
	}
	if len(cs.Cells) != 1 || cs.Cells[0] != 0 {
		t.Fatalf("cells = %v, want [0]", cs.Cells)
	}
}
