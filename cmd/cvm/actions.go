// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/runtime"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
	"gopkg.in/yaml.v3"
	cli "gopkg.in/urfave/cli.v1"
)

func compileAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected a source file")
	}
	bin, err := loadBinary(ctx.Args().First(), ctx.String(funcFlag.Name))
	if err != nil {
		return err
	}
	h, err := packer.Inspect(bin)
	if err != nil {
		return err
	}
	out := ctx.String("output")
	if out == "" {
		out = strings.TrimSuffix(ctx.Args().First(), compiler.Suffix) + ".bin"
	}
	if err := os.WriteFile(out, bin, 0o644); err != nil {
		return errors.Wrap(err, "write binary")
	}
	fmt.Printf("%s: %s %s, %d bytes, hash %v\n", out, h.Kind, h.Module, len(bin), h.Hash)
	return nil
}

func disasmAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected a source file or binary")
	}
	bin, err := loadBinary(ctx.Args().First(), "")
	if err != nil {
		return err
	}
	h, err := packer.Inspect(bin)
	if err != nil {
		return err
	}
	// imports are bound to empty modules, nothing runs here
	obj, err := packer.Unpack(bin, vm.NewGlobals(), func(name string) (*vm.Module, bool) {
		return vm.NewModule(name, ""), true
	})
	if err != nil {
		return err
	}
	if ctx.Bool(rawFlag.Name) {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 6}
		cfg.Fdump(os.Stdout, h)
		cfg.Fdump(os.Stdout, obj)
		return nil
	}

	fmt.Printf("; %s %s (%s), format v%d, hash %v\n", h.Kind, h.Module, h.File, h.Version, h.Hash)
	switch o := obj.(type) {
	case *vm.Module:
		compiler.DisassembleModule(os.Stdout, o)
	case *vm.Closure:
		compiler.Disassemble(os.Stdout, o.Proto)
	}
	return nil
}

func newRuntime(cfg runtime.Config) (*runtime.Runtime, func(), error) {
	var opts []runtime.Option
	closer := func() {}
	if cfg.Manual {
		op, err := newTTYOperator()
		if err != nil {
			return nil, nil, errors.Wrap(err, "open terminal")
		}
		opts = append(opts, runtime.WithOperator(op))
		closer = func() { op.Close() }
	}
	rt, err := runtime.New(cfg, builtin.Default(), opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return rt, closer, nil
}

func printResult(res *runtime.Result, baseline *state.Storage) error {
	for _, line := range res.Output {
		fmt.Println(line)
	}
	fmt.Printf("status:  %v\n", res.Status)
	fmt.Printf("gas:     %d\n", res.GasUsed)
	fmt.Printf("lines:   %d\n", res.Lines)
	if !res.OK {
		fmt.Printf("error:\n%v\n", res.Payload)
		return nil
	}
	fmt.Printf("result:  %s\n", vm.Repr(res.Payload))
	if len(res.Diff) == 0 {
		return nil
	}
	diff, err := storageDiff(baseline, res.Diff)
	if err != nil {
		return err
	}
	fmt.Print(diff)
	return nil
}

func runAction(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return errors.New("expected a contract and a method")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	bin, err := loadBinary(ctx.Args().First(), "")
	if err != nil {
		return err
	}
	addr, err := parseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	entries, err := loadStorage(ctx.String(storageFlag.Name))
	if err != nil {
		return err
	}
	baseline, err := state.New(addr, entries)
	if err != nil {
		return err
	}

	stopMetrics, err := startMetricsServer(ctx)
	if err != nil {
		return err
	}
	defer stopMetrics()

	rt, closer, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer closer()

	method := ctx.Args().Get(1)
	res, err := rt.Execute(handleExitSignal(), &runtime.ExecutionRequest{
		Address: addr,
		Method:  method,
		Args:    parseArgs(ctx.Args()[2:]),
		Binary:  bin,
		Storage: baseline,
		TxID:    thor.Keccak256(bin, []byte(method)),
	})
	if err != nil {
		return err
	}
	return printResult(res, baseline)
}

type invocation struct {
	Method string   `yaml:"method"`
	Args   []string `yaml:"args"`
}

func batchAction(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return errors.New("expected a contract and an invocation file")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	bin, err := loadBinary(ctx.Args().First(), "")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(ctx.Args().Get(1))
	if err != nil {
		return errors.Wrap(err, "read invocations")
	}
	var invs []invocation
	if err := yaml.Unmarshal(data, &invs); err != nil {
		return errors.Wrap(err, "parse invocations")
	}
	addr, err := parseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	entries, err := loadStorage(ctx.String(storageFlag.Name))
	if err != nil {
		return err
	}

	reqs := make([]*runtime.ExecutionRequest, len(invs))
	for i, inv := range invs {
		// every invocation starts from the same baseline
		baseline, err := state.New(addr, entries)
		if err != nil {
			return err
		}
		reqs[i] = &runtime.ExecutionRequest{
			Address: addr,
			Method:  inv.Method,
			Args:    parseArgs(inv.Args),
			Binary:  bin,
			Storage: baseline,
			TxID:    thor.Keccak256(bin, []byte(fmt.Sprint(i))),
		}
	}

	stopMetrics, err := startMetricsServer(ctx)
	if err != nil {
		return err
	}
	defer stopMetrics()

	rt, closer, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer closer()

	results, err := rt.ExecuteBatch(handleExitSignal(), reqs)
	if err != nil {
		return err
	}
	for i, res := range results {
		payload := vm.Repr(res.Payload)
		if !res.OK {
			lines := strings.Split(strings.TrimSpace(fmt.Sprint(res.Payload)), "\n")
			payload = lines[len(lines)-1]
		}
		fmt.Printf("#%d %s: %v gas=%d lines=%d diff=%d %s\n", i, invs[i].Method, res.Status, res.GasUsed, res.Lines, len(res.Diff), payload)
	}
	return nil
}
