package rollup

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTransactionInput(t *testing.T) {
	tx := &Transaction{
		Sender:   common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314"),
		Contract: 3,
		Payload:  []byte{0xaa, 0xbb},
	}
	in := tx.Input()
	if len(in) != 22 {
		t.Fatalf("len(input) = %d, want 22", len(in))
	}
	if !bytes.Equal(in[:20], tx.Sender[:]) {
		t.Fatalf("input prefix = %x, want sender bytes", in[:20])
	}
	if !bytes.Equal(in[20:], tx.Payload) {
		t.Fatalf("input suffix = %x, want payload", in[20:])
	}
}

func TestTransactionGas(t *testing.T) {
	tx := &Transaction{Payload: []byte{1, 2, 3}}
	if got := tx.Gas(); got != 1000+3*128 {
		t.Fatalf("Gas() = %d, want %d", got, 1000+3*128)
	}
	empty := &Transaction{}
	if got := empty.Gas(); got != 1000 {
		t.Fatalf("Gas() = %d, want 1000", got)
	}
}

func TestTransactionHash(t *testing.T) {
	a := &Transaction{Sender: common.HexToAddress("0x01"), Contract: 0, Payload: []byte{3}}
	b := &Transaction{Sender: common.HexToAddress("0x01"), Contract: 0, Payload: []byte{3}}
	if a.Hash() != b.Hash() {
		t.Fatalf("identical transactions hash differently")
	}
	c := &Transaction{Sender: common.HexToAddress("0x01"), Contract: 1, Payload: []byte{3}}
	if a.Hash() == c.Hash() {
		t.Fatalf("distinct transactions share a hash")
	}
	d := &Transaction{Sender: common.HexToAddress("0x01"), Contract: 0, Payload: []byte{4}}
	if a.Hash() == d.Hash() {
		t.Fatalf("payload change did not change the hash")
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	tx := &Transaction{
		Sender:   common.HexToAddress("0xdeadbeef00000000000000000000000000000001"),
		Contract: 7,
		Payload:  []byte{0, 1, 0xff},
	}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Sender != tx.Sender || got.Contract != tx.Contract || !bytes.Equal(got.Payload, tx.Payload) {
		t.Fatalf("round trip = %+v, want %+v", got, tx)
	}
}
