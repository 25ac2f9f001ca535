// Package rollup drives transactions through the Merkleized Brainfuck VM:
// it loads world state into the state tree, runs transitions, records
// fraud-proof traces, projects single-step witnesses, and replays a step
// from a witness alone.
package rollup

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Gas schedule: a flat base allowance plus a per-byte charge on the user
// payload. The sender prefix is not charged.
const (
	baseGas    = 1000
	payloadGas = 128
)

// Transaction is one L2 transaction: the sender address, the addressed
// contract slot, and the user payload. On L1 this is the batch calldata,
// so both sides of a dispute can reconstruct the base step from it.
type Transaction struct {
	Sender   common.Address
	Contract uint8
	Payload  []byte
}

// Input returns the contract-visible input buffer: the 20 sender bytes
// followed by the payload.
func (tx *Transaction) Input() []byte {
	in := make([]byte, 0, common.AddressLength+len(tx.Payload))
	in = append(in, tx.Sender.Bytes()...)
	return append(in, tx.Payload...)
}

// Gas returns the transaction's gas budget.
func (tx *Transaction) Gas() uint64 {
	return baseGas + payloadGas*uint64(len(tx.Payload))
}

// Hash returns the transaction id, the Keccak-256 of sender, contract and
// payload.
func (tx *Transaction) Hash() common.Hash {
	return crypto.Keccak256Hash(tx.Sender.Bytes(), []byte{tx.Contract}, tx.Payload)
}

type txJSON struct {
	Sender   common.Address `json:"sender"`
	Contract uint8          `json:"contract"`
	Payload  hexutil.Bytes  `json:"payload"`
}

func (tx *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(&txJSON{
		Sender:   tx.Sender,
		Contract: tx.Contract,
		Payload:  tx.Payload,
	})
}

func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var dec txJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	tx.Sender = dec.Sender
	tx.Contract = dec.Contract
	tx.Payload = dec.Payload
	return nil
}
