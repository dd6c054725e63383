// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package worker_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tracers"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/worker"
)

func TestMain(m *testing.M) {
	if worker.IsChild() {
		os.Exit(worker.Main())
	}
	os.Exit(m.Run())
}

const contract = `func put(key, value)
    storage_set(key, value)
    return storage_get(key)
end

func boom()
    return 1 / 0
end

func spin()
    while true do
    end
end
`

func newRequest(t *testing.T, method string, args ...vm.Value) *worker.Request {
	m, err := compiler.CompileModule("token", "token.cvm", []byte(contract))
	require.NoError(t, err)
	bin, err := packer.Pack(m)
	require.NoError(t, err)
	argData, err := vm.EncodeValues(args)
	require.NoError(t, err)
	storage, err := state.EncodeEntries(nil)
	require.NoError(t, err)

	return &worker.Request{
		ID:       t.Name(),
		Address:  thor.BytesToAddress([]byte("token")),
		Method:   method,
		Args:     argData,
		Binary:   bin,
		Storage:  storage,
		Metering: worker.MeterOpcode,
		GasLimit: 1_000_000,
	}
}

func spawn(t *testing.T, req *worker.Request) *worker.Process {
	p, err := worker.Spawn(context.Background(), worker.SpawnConfig{
		Args:   []string{"-test.run=^$"},
		Stderr: os.Stderr,
	}, req)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func next(t *testing.T, p *worker.Process, code uint64, payload any) {
	select {
	case msg, ok := <-p.Messages():
		require.True(t, ok, "status stream closed, read err %v", p.ReadErr())
		require.Equal(t, worker.MsgName(code), worker.MsgName(msg.Code))
		require.NoError(t, msg.Decode(payload))
	case <-time.After(20 * time.Second):
		t.Fatalf("timeout waiting for %s", worker.MsgName(code))
	}
}

func TestOpcodeMode(t *testing.T) {
	p := spawn(t, newRequest(t, "put", "a", int64(7)))

	var port worker.PortPayload
	next(t, p, worker.MsgPort, &port)
	assert.NotZero(t, port.Port)

	var mod worker.ModulePayload
	next(t, p, worker.MsgModule, &mod)
	assert.Equal(t, worker.ModulePayload{Module: "token.cvm", Entry: "put"}, mod)

	var ok worker.SuccessPayload
	next(t, p, worker.MsgSuccess, &ok)
	assert.NotZero(t, ok.Gas)

	ret, err := vm.DecodeValue(ok.Result)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ret)

	diff, err := state.DecodeDiff(ok.Diff)
	require.NoError(t, err)
	assert.Equal(t, state.Diff{"a": int64(7)}, diff)

	<-p.Exited()
}

func TestOpcodeOutOfGas(t *testing.T) {
	req := newRequest(t, "spin")
	req.GasLimit = 500
	p := spawn(t, req)

	next(t, p, worker.MsgPort, &worker.PortPayload{})
	next(t, p, worker.MsgModule, &worker.ModulePayload{})
	var fail worker.ErrorPayload
	next(t, p, worker.MsgError, &fail)
	assert.Contains(t, fail.Text, vm.KindOutOfGas)
	assert.Greater(t, fail.Gas, uint64(500))
}

func TestContractError(t *testing.T) {
	p := spawn(t, newRequest(t, "boom"))

	next(t, p, worker.MsgPort, &worker.PortPayload{})
	next(t, p, worker.MsgModule, &worker.ModulePayload{})
	var fail worker.ErrorPayload
	next(t, p, worker.MsgError, &fail)
	assert.True(t, strings.HasPrefix(fail.Text, "Traceback (most recent call last):"), fail.Text)
	assert.True(t, strings.HasSuffix(fail.Text, "ZeroDivisionError: integer division by zero"), fail.Text)
}

func TestBadBinary(t *testing.T) {
	req := newRequest(t, "put")
	req.Binary = []byte("CVM\x01garbage")
	p := spawn(t, req)

	next(t, p, worker.MsgPort, &worker.PortPayload{})
	var fail worker.ErrorPayload
	next(t, p, worker.MsgError, &fail)
	assert.NotEmpty(t, fail.Text)
}

func TestUnknownMethod(t *testing.T) {
	p := spawn(t, newRequest(t, "mint"))

	next(t, p, worker.MsgPort, &worker.PortPayload{})
	var fail worker.ErrorPayload
	next(t, p, worker.MsgError, &fail)
	assert.Contains(t, fail.Text, `no function "mint"`)
}

func TestTraceMode(t *testing.T) {
	req := newRequest(t, "put", "k", "v")
	req.Metering = worker.MeterTrace
	p := spawn(t, req)

	var port worker.PortPayload
	next(t, p, worker.MsgPort, &port)
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port.Port))
	require.NoError(t, err)
	defer conn.Close()

	var mod worker.ModulePayload
	next(t, p, worker.MsgModule, &mod)
	assert.Equal(t, "token.cvm", mod.Module)

	var locations []string
	br := tracers.NewBatchReader(conn)
	for {
		batch, err := br.Next()
		require.NoError(t, err)
		if batch[len(batch)-1] != tracers.Prompt {
			break
		}
		pause, err := tracers.ParsePause(batch)
		require.NoError(t, err)
		locations = append(locations, pause.Location())
		_, err = conn.Write([]byte(tracers.CmdStep + "\n"))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		"> <dispatch>(1)dispatch()",
		"> token.cvm(1)put()",
		"> token.cvm(2)put()",
		"> builtin/statement(1)storage_set()",
		"> builtin/statement(1)storage_set()",
		"> token.cvm(3)put()",
		"> builtin/statement(1)storage_get()",
		"> builtin/statement(1)storage_get()",
		"> token.cvm(3)put()",
		"> <dispatch>(1)dispatch()",
	}, locations)

	var ok worker.SuccessPayload
	next(t, p, worker.MsgSuccess, &ok)
	assert.Equal(t, uint64(len(locations)), ok.Lines)
	assert.Zero(t, ok.Gas)
}

func TestKill(t *testing.T) {
	req := newRequest(t, "spin")
	req.Metering = worker.MeterTrace
	p := spawn(t, req)

	var port worker.PortPayload
	next(t, p, worker.MsgPort, &port)
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port.Port))
	require.NoError(t, err)
	defer conn.Close()

	// the child blocks on its first pause
	_, err = tracers.NewBatchReader(conn).Next()
	require.NoError(t, err)

	p.Kill()
	select {
	case <-p.Exited():
	case <-time.After(20 * time.Second):
		t.Fatal("worker not killed")
	}
}
