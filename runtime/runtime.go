// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes contract invocations in isolated workers and
// meters them.
package runtime

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/co"
	"github.com/vechain/cvm/log"
	"github.com/vechain/cvm/metrics"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/worker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var logger = log.WithContext("pkg", "runtime")

// Status is the terminal status of an execution.
type Status int

// Execution statuses.
const (
	StatusSuccess Status = iota
	StatusError
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "error"
}

// Result is the outcome of an execution.
type Result struct {
	ID      string
	Status  Status
	OK      bool
	Payload vm.Value // return value on success, error text otherwise
	Diff    state.Diff
	GasUsed uint64
	Lines   uint64
	Output  []string // contract output relayed over the trace channel
	Err     error    // ErrGasExceeded, *TransportError or *ExecutionError
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithSpawnConfig overrides how workers are started.
func WithSpawnConfig(cfg worker.SpawnConfig) Option {
	return func(rt *Runtime) { rt.spawn = cfg }
}

// WithOperator sets the operator used in manual mode.
func WithOperator(op Operator) Option {
	return func(rt *Runtime) { rt.operator = op }
}

// Runtime runs contract invocations. It is safe for concurrent use; runs
// share only the read-only price registry.
type Runtime struct {
	cfg      Config
	reg      *builtin.Registry
	spawn    worker.SpawnConfig
	operator Operator
}

// New creates a runtime.
func New(cfg Config, reg *builtin.Registry, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = builtin.Default()
	}
	rt := &Runtime{cfg: cfg, reg: reg}
	for _, opt := range opts {
		opt(rt)
	}
	if cfg.Manual && rt.operator == nil {
		return nil, errors.New("manual mode requires an operator")
	}
	return rt, nil
}

// Config returns the configuration.
func (rt *Runtime) Config() Config { return rt.cfg }

// Execute runs req in a fresh worker. Contract failures, gas breaches and
// transport failures are reported in the result; the error is only set for
// a *StartupError or a failure to set up the worker.
func (rt *Runtime) Execute(ctx context.Context, req *ExecutionRequest) (*Result, error) {
	start := time.Now()
	id := uuid.New()

	res, err := rt.execute(ctx, id, req)
	status := "startup_error"
	if err == nil {
		res.ID = id
		status = resultLabel(res)
		metricGasUsed().Observe(int64(res.GasUsed))
		metricLines().Observe(int64(res.Lines))
	}
	metricExecutionCount().AddWithLabel(1, map[string]string{"status": status})
	metricExecutionDuration().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"metering": string(rt.cfg.Metering)})

	if err != nil {
		logger.Debug("execution failed to start", "id", id, "contract", req.Address, "err", err)
		return nil, err
	}
	logger.Debug("execution finished", "id", id, "contract", req.Address, "method", req.Method,
		"ok", res.OK, "gas", res.GasUsed, "lines", res.Lines, "elapsed", time.Since(start))
	return res, nil
}

func resultLabel(res *Result) string {
	switch {
	case res.OK:
		return "success"
	case errors.Is(res.Err, ErrGasExceeded):
		return "gas_exceeded"
	}
	if _, ok := res.Err.(*TransportError); ok {
		return "transport_error"
	}
	return "error"
}

func (rt *Runtime) newWorkerRequest(id string, req *ExecutionRequest) (*worker.Request, error) {
	args, err := vm.EncodeValues(req.Args)
	if err != nil {
		return nil, errors.WithMessage(err, "encode args")
	}
	var entries map[vm.Value]vm.Value
	if req.Storage != nil {
		entries = req.Storage.Entries()
	}
	storage, err := state.EncodeEntries(entries)
	if err != nil {
		return nil, err
	}
	var message []byte
	if req.TxMessage != nil {
		if message, err = vm.EncodeValue(req.TxMessage); err != nil {
			return nil, errors.WithMessage(err, "encode tx message")
		}
	}
	wreq := &worker.Request{
		ID:        id,
		Address:   req.Address,
		Method:    req.Method,
		Args:      args,
		Binary:    req.Binary,
		Storage:   storage,
		TxID:      req.TxID,
		TxMessage: message,
		Redeem:    req.Redeem,
		Metering:  worker.MeterTrace,
		MaxDepth:  uint64(rt.cfg.MaxDepth),
	}
	if rt.cfg.Metering == MeteringOpcode {
		wreq.Metering = worker.MeterOpcode
		wreq.GasLimit = rt.cfg.GasLimit
	}
	return wreq, nil
}

func (rt *Runtime) execute(ctx context.Context, id string, req *ExecutionRequest) (*Result, error) {
	if _, err := packer.Inspect(req.Binary); err != nil {
		return nil, err
	}
	wreq, err := rt.newWorkerRequest(id, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	spawned := time.Now()
	p, err := worker.Spawn(ctx, rt.spawn, wreq)
	if err != nil {
		return nil, err
	}
	metricActiveWorkers().Add(1)
	defer func() {
		p.Close()
		metricActiveWorkers().Add(-1)
	}()

	// INIT
	msg, err := rt.await(p, worker.MsgPort, "port")
	if err != nil {
		return nil, err
	}
	if msg.Code == worker.MsgError {
		return rt.collect(msg, nil)
	}
	var port worker.PortPayload
	if err := msg.Decode(&port); err != nil {
		return nil, &StartupError{Stage: "port", Err: err}
	}
	metrics.ObserveSince(metricStartupDuration(), spawned)

	var conn net.Conn
	if wreq.Metering == worker.MeterTrace {
		d := net.Dialer{Timeout: rt.cfg.StartupTimeout}
		if conn, err = d.DialContext(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", port.Port)); err != nil {
			return nil, &StartupError{Stage: "connect", Err: err}
		}
		defer conn.Close()
	}

	if msg, err = rt.await(p, worker.MsgModule, "module"); err != nil {
		return nil, err
	}
	if msg.Code == worker.MsgError {
		return rt.collect(msg, nil)
	}
	var mod worker.ModulePayload
	if err := msg.Decode(&mod); err != nil {
		return nil, &StartupError{Stage: "module", Err: err}
	}
	logger.Trace("worker ready", "id", id, "pid", p.Pid(), "port", port.Port, "module", mod.Module, "entry", mod.Entry)

	if conn == nil {
		return rt.collectOpcode(ctx, p)
	}

	ctrl := NewController(rt.reg, mod.Module, mod.Entry, rt.cfg.LineGas, rt.cfg.GasLimit)
	if rt.cfg.Manual {
		ctrl.SetOperator(rt.operator)
	}

	// closing the connection unblocks the trace loop on cancellation
	var goes co.Goes
	finished := make(chan struct{})
	goes.Go(func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-finished:
		}
	})
	loopErr := ctrl.Run(conn, rt.cfg.TraceTimeout)
	close(finished)
	goes.Wait()

	if loopErr != nil {
		// abandon the worker at once, it may be blocked on a pause
		p.Kill()
		metricWorkerKills().Add(1)
		logger.Debug("trace loop aborted", "id", id, "state", ctrl.State(), "err", loopErr)
		if errors.Is(loopErr, ErrGasExceeded) {
			return &Result{
				Status:  StatusError,
				Payload: "GasExceeded: " + loopErr.Error(),
				GasUsed: ctrl.GasUsed(),
				Lines:   ctrl.Lines(),
				Output:  ctrl.Output(),
				Err:     loopErr,
			}, nil
		}
		// a result sent just before the channel broke is still taken
		select {
		case msg, ok := <-p.Messages():
			if ok {
				return rt.collect(msg, ctrl)
			}
		default:
		}
		return rt.transportFailure(ctrl, loopErr), nil
	}

	select {
	case msg, ok := <-p.Messages():
		if ok {
			return rt.collect(msg, ctrl)
		}
	case <-time.After(rt.cfg.DrainTimeout):
	case <-ctx.Done():
	}
	err = p.ReadErr()
	if err == nil {
		err = errors.New("worker exited without a result")
	}
	return rt.transportFailure(ctrl, &TransportError{Op: "collect", Err: err}), nil
}

// await waits for the startup message want. An error message is passed
// through as the result of a contract that failed to load.
func (rt *Runtime) await(p *worker.Process, want uint64, stage string) (*worker.Message, error) {
	select {
	case msg, ok := <-p.Messages():
		if !ok {
			err := p.ReadErr()
			if err == nil {
				err = errors.New("worker exited")
			}
			return nil, &StartupError{Stage: stage, Err: err}
		}
		if msg.Code != want && msg.Code != worker.MsgError {
			return nil, &StartupError{Stage: stage, Err: errors.Errorf("unexpected %s", worker.MsgName(msg.Code))}
		}
		return msg, nil
	case <-time.After(rt.cfg.StartupTimeout):
		return nil, &StartupError{Stage: stage, Err: errors.Errorf("no %s within %v", worker.MsgName(want), rt.cfg.StartupTimeout)}
	}
}

// collectOpcode waits for the result of an opcode metered run. The run is
// bounded by ExecTimeout since an unlimited gas budget never stops a loop.
func (rt *Runtime) collectOpcode(ctx context.Context, p *worker.Process) (*Result, error) {
	timer := time.NewTimer(rt.cfg.ExecTimeout)
	defer timer.Stop()

	select {
	case msg, ok := <-p.Messages():
		if ok {
			return rt.collect(msg, nil)
		}
		err := p.ReadErr()
		if err == nil {
			err = errors.New("worker exited without a result")
		}
		return rt.transportFailure(nil, &TransportError{Op: "collect", Err: err}), nil
	case <-timer.C:
		p.Kill()
		metricWorkerKills().Add(1)
		err := errors.Errorf("no result within %v", rt.cfg.ExecTimeout)
		return rt.transportFailure(nil, &TransportError{Op: "timeout", Err: err}), nil
	case <-ctx.Done():
		return rt.transportFailure(nil, &TransportError{Op: "collect", Err: ctx.Err()}), nil
	}
}

// collect turns the terminal message into a result. In trace mode gas and
// lines come from the controller, otherwise from the worker.
func (rt *Runtime) collect(msg *worker.Message, ctrl *Controller) (*Result, error) {
	res := &Result{Status: StatusError}
	if ctrl != nil {
		res.GasUsed, res.Lines, res.Output = ctrl.GasUsed(), ctrl.Lines(), ctrl.Output()
	}

	switch msg.Code {
	case worker.MsgSuccess:
		var ok worker.SuccessPayload
		if err := msg.Decode(&ok); err != nil {
			return rt.transportFailure(ctrl, &TransportError{Op: "decode", Err: err}), nil
		}
		ret, err := vm.DecodeValue(ok.Result)
		if err != nil {
			return rt.transportFailure(ctrl, &TransportError{Op: "decode", Err: err}), nil
		}
		diff, err := state.DecodeDiff(ok.Diff)
		if err != nil {
			return rt.transportFailure(ctrl, &TransportError{Op: "decode", Err: err}), nil
		}
		res.Status, res.OK, res.Payload, res.Diff = StatusSuccess, true, ret, diff
		if ctrl == nil {
			res.GasUsed, res.Lines = ok.Gas, ok.Lines
		}
	case worker.MsgError:
		var fail worker.ErrorPayload
		if err := msg.Decode(&fail); err != nil {
			return rt.transportFailure(ctrl, &TransportError{Op: "decode", Err: err}), nil
		}
		res.Payload = fail.Text
		res.Err = &ExecutionError{Text: fail.Text}
		if ctrl == nil {
			res.GasUsed, res.Lines = fail.Gas, fail.Lines
			if limit := rt.cfg.GasLimit; rt.cfg.Metering == MeteringOpcode && limit > 0 && fail.Gas > limit {
				res.Err = errors.Wrapf(ErrGasExceeded, "gas %d > limit %d", fail.Gas, limit)
			}
		}
	default:
		return rt.transportFailure(ctrl, &TransportError{Op: "collect", Err: errors.Errorf("unexpected %s", worker.MsgName(msg.Code))}), nil
	}
	return res, nil
}

func (rt *Runtime) transportFailure(ctrl *Controller, err error) *Result {
	res := &Result{
		Status:  StatusError,
		Payload: err.Error(),
		Err:     err,
	}
	if ctrl != nil {
		res.GasUsed, res.Lines, res.Output = ctrl.GasUsed(), ctrl.Lines(), ctrl.Output()
	}
	return res
}

// ExecuteBatch runs reqs concurrently, at most MaxConcurrency at a time.
// Results are in request order. The first startup error cancels the batch.
func (rt *Runtime) ExecuteBatch(ctx context.Context, reqs []*ExecutionRequest) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	sem := semaphore.NewWeighted(rt.cfg.MaxConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		i, req := i, req
		g.Go(func() error {
			defer sem.Release(1)
			res, err := rt.Execute(gctx, req)
			if err != nil {
				return errors.WithMessagef(err, "request %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
