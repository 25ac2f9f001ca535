package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bfrollup/bfrollup/rollup"
)

const (
	testSender  = "0x00000000000000000000000000000000000000aa"
	testPayload = "0x03"
)

func TestRun_NoArgs(t *testing.T) {
	if code := run(nil); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if code := run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}

func TestRun_MalformedArgs(t *testing.T) {
	dir := t.TempDir()
	pre := filepath.Join(dir, "pre.json")
	if code := run([]string{"init-state", pre}); code != 0 {
		t.Fatalf("init-state = %d, want 0", code)
	}
	tests := [][]string{
		{"init-state"},
		{"transition", pre, filepath.Join(dir, "post.json"), "nothex", "0", testPayload},
		{"transition", pre, filepath.Join(dir, "post.json"), testSender, "999", testPayload},
		{"transition", pre, filepath.Join(dir, "post.json"), testSender, "0", "nothex"},
		{"step-witness", pre, filepath.Join(dir, "w.json"), "notanint"},
		{"verify", pre, "0x1234"},
	}
	for _, args := range tests {
		if code := run(args); code != 2 {
			t.Errorf("run(%v) = %d, want 2", args, code)
		}
	}
}

func TestRun_Pipeline(t *testing.T) {
	dir := t.TempDir()
	pre := filepath.Join(dir, "pre.json")
	post := filepath.Join(dir, "post.json")
	proof := filepath.Join(dir, "proof.json")
	witness := filepath.Join(dir, "witness.json")

	if code := run([]string{"init-state", pre}); code != 0 {
		t.Fatalf("init-state = %d, want 0", code)
	}
	if code := run([]string{"transition", pre, post, testSender, "0", testPayload}); code != 0 {
		t.Fatalf("transition = %d, want 0", code)
	}

	data, err := os.ReadFile(post)
	if err != nil {
		t.Fatalf("read post state: %v", err)
	}
	ws := rollup.NewWorldState()
	if err := json.Unmarshal(data, ws); err != nil {
		t.Fatalf("parse post state: %v", err)
	}
	cs, err := ws.Contract(0)
	if err != nil {
		t.Fatalf("Contract(0): %v", err)
	}
	if len(cs.Cells) != 2 || cs.Cells[0] != 0 || cs.Cells[1] != 21 {
		t.Fatalf("post cells = %v, want [0 21]", cs.Cells)
	}

	if code := run([]string{"gen", pre, proof, testSender, "0", testPayload}); code != 0 {
		t.Fatalf("gen = %d, want 0", code)
	}
	var tr rollup.Trace
	if err := readJSON(proof, &tr); err != nil {
		t.Fatalf("parse proof: %v", err)
	}

	if code := run([]string{"step-witness", proof, witness, "1"}); code != 0 {
		t.Fatalf("step-witness = %d, want 0", code)
	}
	var w rollup.Witness
	if err := readJSON(witness, &w); err != nil {
		t.Fatalf("parse witness: %v", err)
	}
	if w.Step != 1 {
		t.Fatalf("witness step = %d, want 1", w.Step)
	}

	honest := common.Hash(tr.StepRoots[2]).Hex()
	if code := run([]string{"verify", witness, honest}); code != 0 {
		t.Fatalf("verify honest = %d, want 0", code)
	}

	tampered := tr.StepRoots[2]
	tampered[31] ^= 0x01
	if code := run([]string{"verify", witness, common.Hash(tampered).Hex()}); code != 0 {
		t.Fatalf("verify tampered = %d, want 0 (mismatch is reported, not fatal)", code)
	}
}

func TestRun_StepWitnessOutOfRange(t *testing.T) {
	dir := t.TempDir()
	pre := filepath.Join(dir, "pre.json")
	proof := filepath.Join(dir, "proof.json")
	if code := run([]string{"init-state", pre}); code != 0 {
		t.Fatalf("init-state = %d, want 0", code)
	}
	if code := run([]string{"gen", pre, proof, testSender, "0", testPayload}); code != 0 {
		t.Fatalf("gen = %d, want 0", code)
	}
	if code := run([]string{"step-witness", proof, filepath.Join(dir, "w.json"), "100000"}); code != 1 {
		t.Fatalf("step-witness out of range = %d, want 1", code)
	}
}
