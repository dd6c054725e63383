// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package worker

import (
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/sandbox"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tracers"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

// statusFD is the descriptor of the status pipe in the child.
const statusFD = 3

// DispatchText is the source text shown for the dispatch pause.
const DispatchText = "dispatch(method, args)"

// IsChild reports whether the process was started as a worker.
func IsChild() bool {
	return os.Getenv(thor.WorkerEnvKey) == "1"
}

// Main runs the worker side of an invocation and returns the exit code,
// which is always 0: outcomes are reported as status messages only.
func Main() int {
	status := os.NewFile(statusFD, "status")
	if status == nil {
		fmt.Fprintln(os.Stderr, "worker: status pipe missing")
		return 0
	}
	defer status.Close()

	c := &child{status: status}
	c.run(os.Stdin)
	return 0
}

type child struct {
	status io.Writer
	gas    uint64
	lines  uint64
}

func (c *child) send(code uint64, payload any) {
	if err := writeMsg(c.status, code, payload); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
	}
}

func (c *child) fail(err error) {
	text := err.Error()
	if verr, ok := errors.Cause(err).(*vm.Error); ok {
		text = verr.Traceback()
	}
	c.send(MsgError, &ErrorPayload{Text: text, Gas: c.gas, Lines: c.lines})
}

func (c *child) run(stdin io.Reader) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		c.fail(errors.Wrap(err, "listen"))
		return
	}
	defer ln.Close()
	c.send(MsgPort, &PortPayload{Port: uint64(ln.Addr().(*net.TCPAddr).Port)})

	var req Request
	if err := rlp.Decode(stdin, &req); err != nil {
		c.fail(errors.Wrap(err, "decode request"))
		return
	}

	var conn net.Conn
	if req.Metering == MeterTrace {
		if conn, err = ln.Accept(); err != nil {
			c.fail(errors.Wrap(err, "accept controller"))
			return
		}
		defer conn.Close()
	}

	if err := c.invoke(&req, conn); err != nil {
		c.fail(err)
	}
}

// invoke loads and runs the contract. Panics become errors.
func (c *child) invoke(req *Request, conn net.Conn) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("panic: %v\n%s", e, debug.Stack())
		}
	}()

	entries, err := state.DecodeEntries(req.Storage)
	if err != nil {
		return err
	}
	baseline, err := state.New(req.Address, entries)
	if err != nil {
		return err
	}
	current := baseline.Copy()

	var message vm.Value
	if len(req.TxMessage) > 0 {
		if message, err = vm.DecodeValue(req.TxMessage); err != nil {
			return errors.WithMessage(err, "tx message")
		}
	}
	args, err := vm.DecodeValues(req.Args)
	if err != nil {
		return errors.WithMessage(err, "arguments")
	}

	header, err := packer.Inspect(req.Binary)
	if err != nil {
		return err
	}
	reg := builtin.Default()
	env := xenv.New(req.Address, req.Method, req.Redeem, &xenv.TransactionContext{ID: req.TxID, Message: message}, current)
	globals := sandbox.BuildGlobals(reg, env, header.Module)
	obj, err := packer.Unpack(req.Binary, globals, packer.MapResolver(sandbox.Modules(reg, env)))
	if err != nil {
		return err
	}
	fn, err := entry(obj, req.Method)
	if err != nil {
		return err
	}
	c.send(MsgModule, &ModulePayload{Module: fn.Proto.File, Entry: fn.Proto.Name})

	cfg := vm.Config{MaxDepth: int(req.MaxDepth)}
	var stepper *tracers.Stepper
	switch req.Metering {
	case MeterTrace:
		stepper = tracers.NewStepper(conn)
		cfg.Tracer = stepper
		cfg.Output = stepper.Output()
	case MeterOpcode:
		cfg.Costs = vm.DefaultCostTable()
		cfg.GasLimit = req.GasLimit
	default:
		return errors.Errorf("unknown metering mode %d", req.Metering)
	}

	it := vm.New(cfg)
	ret, err := it.Dispatch(sandbox.DispatchFile, sandbox.DispatchFunc, DispatchText, fn, args)
	c.gas = it.GasUsed()
	if stepper != nil {
		c.lines = uint64(stepper.Pauses())
		if ferr := stepper.Flush(); ferr != nil && err == nil {
			err = errors.Wrap(ferr, "flush output")
		}
	}
	if err != nil {
		return err
	}

	result, err := vm.EncodeValue(ret)
	if err != nil {
		return errors.WithMessage(err, "return value")
	}
	diff, err := current.ExportDiff(baseline)
	if err != nil {
		return err
	}
	diffData, err := state.EncodeDiff(diff)
	if err != nil {
		return err
	}
	c.send(MsgSuccess, &SuccessPayload{Result: result, Diff: diffData, Gas: c.gas, Lines: c.lines})
	return nil
}

// entry selects the function to run: the function itself, or the member of
// a module named by method.
func entry(obj vm.Value, method string) (*vm.Closure, error) {
	switch o := obj.(type) {
	case *vm.Closure:
		return o, nil
	case *vm.Module:
		if cl, ok := o.Members[method].(*vm.Closure); ok {
			return cl, nil
		}
		return nil, errors.Errorf("contract %s has no function %q", o.Name, method)
	}
	return nil, errors.Errorf("cannot invoke %s", vm.TypeName(obj))
}
