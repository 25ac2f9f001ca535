// Command obf is the operator tool for the Brainfuck rollup: it applies
// transactions to a JSON state file, emits fraud-proof traces, projects
// single-step witnesses and replays them.
//
// Usage:
//
//	obf init-state <out.json>
//	obf transition <pre.json> <post.json> <sender> <contract_id> <payload>
//	obf gen <pre.json> <proof.json> <sender> <contract_id> <payload>
//	obf step-witness <proof.json> <witness.json> <step>
//	obf verify <witness.json> <claimed_post_root>
//
// Every subcommand accepts -verbosity: negative for errors only, 0 for
// info, positive for debug.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/bfrollup/bfrollup/log"
	"github.com/bfrollup/bfrollup/rollup"
)

const usage = `usage: obf <command> [flags] <args>

commands:
  init-state   <out.json>
  transition   <pre.json> <post.json> <sender> <contract_id> <payload>
  gen          <pre.json> <proof.json> <sender> <contract_id> <payload>
  step-witness <proof.json> <witness.json> <step>
  verify       <witness.json> <claimed_post_root>
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet("obf "+cmd, flag.ContinueOnError)
	verbosity := fs.Int("verbosity", 0, "log level (<0 errors, 0 info, >0 debug)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	log.SetDefault(log.New(log.LevelFromVerbosity(*verbosity)))
	rest = fs.Args()

	var err error
	switch cmd {
	case "init-state":
		err = cmdInitState(rest)
	case "transition":
		err = cmdTransition(rest)
	case "gen":
		err = cmdGen(rest)
	case "step-witness":
		err = cmdStepWitness(rest)
	case "verify":
		err = cmdVerify(rest)
	default:
		fmt.Fprintf(os.Stderr, "obf: unknown command %q\n%s", cmd, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "obf %s: %v\n", cmd, err)
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

// usageError marks malformed arguments, which exit 2 rather than 1.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func parseTx(sender, contract, payload string) (*rollup.Transaction, error) {
	if !common.IsHexAddress(sender) {
		return nil, usagef("sender %q is not a 20-byte hex address", sender)
	}
	id, err := strconv.ParseUint(contract, 10, 8)
	if err != nil {
		return nil, usagef("contract id %q is not in 0..255", contract)
	}
	data, err := hexutil.Decode(payload)
	if err != nil {
		return nil, usagef("payload %q is not 0x-prefixed hex", payload)
	}
	return &rollup.Transaction{
		Sender:   common.HexToAddress(sender),
		Contract: uint8(id),
		Payload:  data,
	}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func cmdInitState(args []string) error {
	if len(args) != 1 {
		return usagef("want <out.json>, got %d args", len(args))
	}
	ws := rollup.ExampleWorldState()
	if err := writeJSON(args[0], ws); err != nil {
		return err
	}
	fmt.Printf("wrote example state to %s\n", args[0])
	return nil
}

func cmdTransition(args []string) error {
	if len(args) != 5 {
		return usagef("want <pre.json> <post.json> <sender> <contract_id> <payload>, got %d args", len(args))
	}
	tx, err := parseTx(args[2], args[3], args[4])
	if err != nil {
		return err
	}
	ws := rollup.NewWorldState()
	if err := readJSON(args[0], ws); err != nil {
		return err
	}
	res, err := rollup.Transition(ws, tx)
	if err != nil {
		return err
	}
	if err := writeJSON(args[1], ws); err != nil {
		return err
	}
	fmt.Printf("tx %s\n", res.TxHash)
	fmt.Printf("status 0x%02x\n", res.Status)
	fmt.Printf("steps %d\n", res.Steps)
	fmt.Printf("post contract root %s\n", common.Hash(res.PostRoot))
	return nil
}

func cmdGen(args []string) error {
	if len(args) != 5 {
		return usagef("want <pre.json> <proof.json> <sender> <contract_id> <payload>, got %d args", len(args))
	}
	tx, err := parseTx(args[2], args[3], args[4])
	if err != nil {
		return err
	}
	ws := rollup.NewWorldState()
	if err := readJSON(args[0], ws); err != nil {
		return err
	}
	tr, err := rollup.Generate(ws, tx)
	if err != nil {
		return err
	}
	if err := writeJSON(args[1], tr); err != nil {
		return err
	}
	fmt.Printf("tx %s\n", tx.Hash())
	fmt.Printf("steps %d\n", tr.Steps())
	fmt.Printf("post contract root %s\n", common.Hash(tr.PostRoot()))
	return nil
}

func cmdStepWitness(args []string) error {
	if len(args) != 3 {
		return usagef("want <proof.json> <witness.json> <step>, got %d args", len(args))
	}
	step, err := strconv.Atoi(args[2])
	if err != nil {
		return usagef("step %q is not an integer", args[2])
	}
	var tr rollup.Trace
	if err := readJSON(args[0], &tr); err != nil {
		return err
	}
	w, err := rollup.ExtractStepWitness(&tr, step)
	if err != nil {
		return err
	}
	if err := writeJSON(args[1], w); err != nil {
		return err
	}
	fmt.Printf("step %d witness: %d nodes, pre %s\n", step, len(w.NodeByGindex), common.Hash(w.PreRoot))
	return nil
}

func cmdVerify(args []string) error {
	if len(args) != 2 {
		return usagef("want <witness.json> <claimed_post_root>, got %d args", len(args))
	}
	claimed, err := parseRoot(args[1])
	if err != nil {
		return err
	}
	var w rollup.Witness
	if err := readJSON(args[0], &w); err != nil {
		return err
	}
	root, err := rollup.VerifyStep(&w)
	if err != nil {
		return err
	}
	fmt.Printf("post contract root %s\n", common.Hash(root))
	if root == claimed {
		fmt.Println("root matches, no fraud")
	} else {
		fmt.Println("root did not match, fraud detected!")
	}
	return nil
}

func parseRoot(s string) ([32]byte, error) {
	data, err := hexutil.Decode(s)
	if err != nil || len(data) != 32 {
		return [32]byte{}, usagef("root %q is not 32 bytes of 0x-prefixed hex", s)
	}
	return [32]byte(data), nil
}
