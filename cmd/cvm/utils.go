// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/vechain/cvm/co"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/log"
	"github.com/vechain/cvm/metrics"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/runtime"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
	cli "gopkg.in/urfave/cli.v1"
)

var logger = log.WithContext("pkg", "cvm")

func initLogger(ctx *cli.Context) {
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.GlobalBool(jsonLogsFlag.Name) || !isatty.IsTerminal(os.Stderr.Fd()) {
		handler = log.JSONHandlerWithLevel(os.Stderr, &level)
	} else {
		handler = log.LogfmtHandlerWithLevel(os.Stderr, &level)
	}
	log.SetDefault(log.NewLogger(handler))
}

// handleExitSignal returns a context canceled on the first interrupt.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		sig := <-quit
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

// startMetricsServer serves prometheus metrics when the flag is set. The
// returned func stops the server.
func startMetricsServer(ctx *cli.Context) (func(), error) {
	addr := ctx.String(metricsAddrFlag.Name)
	if addr == "" {
		return func() {}, nil
	}
	metrics.InitializePrometheusMetrics()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen metrics address %v", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Handler: mux}

	var goes co.Goes
	goes.Go(func() {
		// ignore error from http server
		_ = srv.Serve(listener)
	})
	logger.Info("metrics server started", "url", "http://"+listener.Addr().String()+"/metrics")
	return func() {
		srv.Shutdown(context.Background())
		goes.Wait()
	}, nil
}

// loadBinary compiles a source file or reads a packed binary. fn selects a
// single function of a source to pack.
func loadBinary(path, fn string) ([]byte, error) {
	if strings.HasSuffix(path, compiler.Suffix) {
		m, err := compiler.CompileFile(path)
		if err != nil {
			return nil, err
		}
		if fn == "" {
			return packer.Pack(m)
		}
		cl, ok := m.Members[fn].(*vm.Closure)
		if !ok {
			return nil, errors.Errorf("%s has no function %q", path, fn)
		}
		return packer.Pack(cl)
	}
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read binary")
	}
	if _, err := packer.Inspect(bin); err != nil {
		return nil, err
	}
	return bin, nil
}

// parseArg reads a command line argument: 0x prefixed hex is bytes, then
// json, then a plain string.
func parseArg(s string) vm.Value {
	if strings.HasPrefix(s, "0x") {
		if b, err := hexutil.Decode(s); err == nil {
			return vm.Bytes(b)
		}
	}
	if v, err := vm.UnmarshalJSON([]byte(s)); err == nil {
		return v
	}
	return s
}

func parseArgs(args []string) []vm.Value {
	vals := make([]vm.Value, len(args))
	for i, a := range args {
		vals[i] = parseArg(a)
	}
	return vals
}

// loadStorage reads the json object at path as storage entries.
func loadStorage(path string) (map[vm.Value]vm.Value, error) {
	entries := make(map[vm.Value]vm.Value)
	if path == "" {
		return entries, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read storage")
	}
	v, err := vm.UnmarshalJSON(data)
	if err != nil {
		return nil, errors.WithMessage(err, "parse storage")
	}
	m, ok := v.(*vm.Map)
	if !ok {
		return nil, errors.Errorf("storage must be a json object, got %s", vm.TypeName(v))
	}
	m.Range(func(k, v vm.Value) bool {
		entries[k] = v
		return true
	})
	return entries, nil
}

func parseAddress(s string) (thor.Address, error) {
	if s == "" {
		return thor.BytesToAddress([]byte("cvm")), nil
	}
	return thor.ParseAddress(s)
}

// loadConfig reads the runtime configuration and applies flag overrides.
func loadConfig(ctx *cli.Context) (runtime.Config, error) {
	cfg := runtime.DefaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = runtime.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(gasLimitFlag.Name) {
		cfg.GasLimit = ctx.Uint64(gasLimitFlag.Name)
	}
	if ctx.IsSet(lineGasFlag.Name) {
		cfg.LineGas = ctx.Uint64(lineGasFlag.Name)
	}
	if ctx.IsSet(meteringFlag.Name) {
		cfg.Metering = runtime.Metering(ctx.String(meteringFlag.Name))
	}
	if ctx.Bool(manualFlag.Name) {
		cfg.Manual = true
	}
	return cfg, cfg.Validate()
}

// storageLines renders entries one per line in key order.
func storageLines(s *state.Storage) []string {
	if s == nil {
		return nil
	}
	var lines []string
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		lines = append(lines, fmt.Sprintf("%s: %s\n", vm.Repr(k), vm.Repr(v)))
	}
	return lines
}

// storageDiff renders a unified diff of the storage before and after diff
// is merged.
func storageDiff(before *state.Storage, diff state.Diff) (string, error) {
	after := before.Copy()
	if err := after.MergeDiff(diff); err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        storageLines(before),
		B:        storageLines(after),
		FromFile: "storage@" + fmt.Sprint(before.Version()),
		ToFile:   "storage@" + fmt.Sprint(after.Version()),
		Context:  3,
	})
}
