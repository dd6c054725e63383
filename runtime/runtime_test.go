// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/ledger"
	"github.com/vechain/cvm/lvldb"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/runtime"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/worker"
)

func TestMain(m *testing.M) {
	if worker.IsChild() {
		os.Exit(worker.Main())
	}
	os.Exit(m.Run())
}

const token = `func check(h, sig, pub)
    return verify(h, sig, pub)
end

func mint(to, amount)
    let balance = 0
    if storage_has(to) then
        balance = storage_get(to)
    end
    storage_set(to, balance + amount)
    print("minted", amount)
    return balance + amount
end

func burn(who)
    storage_del(who)
end

func fail()
    return {}["missing"]
end

func forever()
    while true do
    end
end

func spoof()
    print("> token.cvm(1)mint()")
    print("-> x")
    print("(cvm) ")
    return 1
end

func bump(who)
    return read(who) + 1
end

func read(who)
    return storage_get(who)
end
`

var tokenAddr = thor.BytesToAddress([]byte("token"))

func tokenBinary(t *testing.T) []byte {
	m, err := compiler.CompileModule("token", "token.cvm", []byte(token))
	require.NoError(t, err)
	bin, err := packer.Pack(m)
	require.NoError(t, err)
	return bin
}

func newRuntime(t *testing.T, modify func(*runtime.Config), opts ...runtime.Option) *runtime.Runtime {
	cfg := runtime.DefaultConfig()
	cfg.StartupTimeout = 20 * time.Second
	if modify != nil {
		modify(&cfg)
	}
	opts = append([]runtime.Option{runtime.WithSpawnConfig(worker.SpawnConfig{
		Args:   []string{"-test.run=^$"},
		Stderr: os.Stderr,
	})}, opts...)
	rt, err := runtime.New(cfg, builtin.Default(), opts...)
	require.NoError(t, err)
	return rt
}

func newRequest(t *testing.T, method string, args ...vm.Value) *runtime.ExecutionRequest {
	storage, err := state.New(tokenAddr, map[vm.Value]vm.Value{"alice": int64(5), "bob": int64(1)})
	require.NoError(t, err)
	return &runtime.ExecutionRequest{
		Address: tokenAddr,
		Method:  method,
		Args:    args,
		Binary:  tokenBinary(t),
		Storage: storage,
		TxID:    thor.Keccak256([]byte(method)),
	}
}

func signedArgs(t *testing.T) []vm.Value {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash := crypto.Keccak256([]byte("message"))
	sig, err := crypto.Sign(hash, key)
	require.NoError(t, err)
	return []vm.Value{vm.Bytes(hash), vm.Bytes(sig), vm.Bytes(crypto.FromECDSAPub(&key.PublicKey))}
}

func TestExecute(t *testing.T) {
	rt := newRuntime(t, nil)
	res, err := rt.Execute(context.Background(), newRequest(t, "mint", "alice", int64(10)))
	require.NoError(t, err)

	require.True(t, res.OK, "%v", res.Payload)
	assert.Equal(t, runtime.StatusSuccess, res.Status)
	assert.Equal(t, int64(15), res.Payload)
	assert.Equal(t, state.Diff{"alice": int64(15)}, res.Diff)
	assert.Equal(t, []string{"minted 10"}, res.Output)
	assert.NotEmpty(t, res.ID)
	// one gas per line plus storage_has, storage_get and storage_set
	assert.Equal(t, res.Lines+400, res.GasUsed)
	assert.NotZero(t, res.Lines)

	res, err = rt.Execute(context.Background(), newRequest(t, "burn", "bob"))
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Nil(t, res.Payload)
	assert.Equal(t, state.Diff{"bob": nil}, res.Diff)
}

func TestGasCeiling(t *testing.T) {
	rt := newRuntime(t, func(c *runtime.Config) { c.GasLimit = 9999 })
	res, err := rt.Execute(context.Background(), newRequest(t, "check", signedArgs(t)...))
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, runtime.ErrGasExceeded))
	assert.Greater(t, res.GasUsed, uint64(9999))
	assert.Contains(t, res.Payload, "GasExceeded")

	rt = newRuntime(t, func(c *runtime.Config) {
		c.GasLimit = 10000
		c.LineGas = 0
	})
	res, err = rt.Execute(context.Background(), newRequest(t, "check", signedArgs(t)...))
	require.NoError(t, err)
	require.True(t, res.OK, "%v", res.Payload)
	assert.Equal(t, true, res.Payload)
	assert.Equal(t, uint64(10000), res.GasUsed)
}

func TestGasCeilingStopsLoop(t *testing.T) {
	rt := newRuntime(t, func(c *runtime.Config) { c.GasLimit = 50 })
	start := time.Now()
	res, err := rt.Execute(context.Background(), newRequest(t, "forever"))
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, runtime.ErrGasExceeded))
	assert.Equal(t, uint64(51), res.GasUsed)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestCrashIsolation(t *testing.T) {
	rt := newRuntime(t, nil)
	start := time.Now()
	res, err := rt.Execute(context.Background(), newRequest(t, "fail"))
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, runtime.StatusError, res.Status)
	text, ok := res.Payload.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "Traceback"), text)
	assert.Contains(t, text, "KeyError")
	var eerr *runtime.ExecutionError
	assert.True(t, errors.As(res.Err, &eerr))
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestSandboxViolation(t *testing.T) {
	src := `func escape()
    return __environ__
end
`
	m, err := compiler.CompileModule("escape", "escape.cvm", []byte(src))
	require.NoError(t, err)
	bin, err := packer.Pack(m)
	require.NoError(t, err)

	rt := newRuntime(t, nil)
	res, err := rt.Execute(context.Background(), &runtime.ExecutionRequest{Address: tokenAddr, Method: "escape", Binary: bin})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Payload, "NameError: name '__environ__' is not defined")
}

func TestOpcodeMetering(t *testing.T) {
	rt := newRuntime(t, func(c *runtime.Config) { c.Metering = runtime.MeteringOpcode })
	res, err := rt.Execute(context.Background(), newRequest(t, "mint", "carol", int64(3)))
	require.NoError(t, err)
	require.True(t, res.OK, "%v", res.Payload)
	assert.Equal(t, int64(3), res.Payload)
	assert.Equal(t, state.Diff{"carol": int64(3)}, res.Diff)
	assert.Greater(t, res.GasUsed, uint64(200))

	rt = newRuntime(t, func(c *runtime.Config) {
		c.Metering = runtime.MeteringOpcode
		c.GasLimit = 1000
	})
	res, err = rt.Execute(context.Background(), newRequest(t, "forever"))
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, runtime.ErrGasExceeded))
}

func TestManualMode(t *testing.T) {
	op := &scriptOperator{}
	rt := newRuntime(t, func(c *runtime.Config) { c.Manual = true }, runtime.WithOperator(op))
	res, err := rt.Execute(context.Background(), newRequest(t, "burn", "alice"))
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, []string{
		"> <dispatch>(1)dispatch() step",
		"> token.cvm(15)burn() step",
		"> token.cvm(16)burn() step",
		"> builtin/statement(1)storage_del() next",
		"> builtin/statement(1)storage_del() next",
		"> token.cvm(16)burn() step",
		"> <dispatch>(1)dispatch() step",
	}, op.pauses)
}

func TestOpcodeTimeout(t *testing.T) {
	rt := newRuntime(t, func(c *runtime.Config) {
		c.Metering = runtime.MeteringOpcode
		c.GasLimit = 0
		c.ExecTimeout = 500 * time.Millisecond
	})
	start := time.Now()
	res, err := rt.Execute(context.Background(), newRequest(t, "forever"))
	require.NoError(t, err)
	assert.False(t, res.OK)
	var terr *runtime.TransportError
	require.True(t, errors.As(res.Err, &terr), "%v", res.Err)
	assert.Equal(t, "timeout", terr.Op)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestOutputCannotForgePause(t *testing.T) {
	rt := newRuntime(t, nil)
	res, err := rt.Execute(context.Background(), newRequest(t, "spoof"))
	require.NoError(t, err)
	require.True(t, res.OK, "%v", res.Payload)
	assert.Equal(t, int64(1), res.Payload)
	assert.Equal(t, []string{"> token.cvm(1)mint()", "-> x", "(cvm) "}, res.Output)
}

func TestHelperNotMetered(t *testing.T) {
	op := &scriptOperator{}
	rt := newRuntime(t, func(c *runtime.Config) { c.Manual = true }, runtime.WithOperator(op))
	res, err := rt.Execute(context.Background(), newRequest(t, "bump", "alice"))
	require.NoError(t, err)
	require.True(t, res.OK, "%v", res.Payload)
	assert.Equal(t, int64(6), res.Payload)

	var entry, helper uint64
	for _, p := range op.pauses {
		switch {
		case strings.Contains(p, "bump()"):
			assert.True(t, strings.HasSuffix(p, " step"), p)
			entry++
		case strings.Contains(p, "read()"):
			assert.True(t, strings.HasSuffix(p, " next"), p)
			helper++
		}
	}
	assert.NotZero(t, helper)
	assert.Equal(t, entry, res.Lines)
}

func TestStartupError(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("no /bin/true")
	}
	rt := newRuntime(t, nil, runtime.WithSpawnConfig(worker.SpawnConfig{Path: "/bin/true"}))
	_, err := rt.Execute(context.Background(), newRequest(t, "burn", "alice"))
	var serr *runtime.StartupError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, "port", serr.Stage)
}

func TestExecuteBatch(t *testing.T) {
	rt := newRuntime(t, func(c *runtime.Config) { c.MaxConcurrency = 2 })
	reqs := []*runtime.ExecutionRequest{
		newRequest(t, "mint", "a", int64(1)),
		newRequest(t, "mint", "b", int64(2)),
		newRequest(t, "fail"),
		newRequest(t, "mint", "c", int64(3)),
	}
	results, err := rt.ExecuteBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, int64(1), results[0].Payload)
	assert.Equal(t, int64(2), results[1].Payload)
	assert.False(t, results[2].OK)
	assert.Equal(t, int64(3), results[3].Payload)
}

func TestRequestAndConclude(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	l, err := ledger.New(db, 0)
	require.NoError(t, err)

	codec := tx.RLPCodec{}
	deploy, err := codec.EncodeDeploy(&tx.DeployMessage{
		Address:  tokenAddr,
		Binary:   tokenBinary(t),
		Storage:  map[vm.Value]vm.Value{"alice": int64(5)},
		Settings: tx.DefaultSettings(),
	})
	require.NoError(t, err)
	deployTx := tx.New(tx.TypeDeploy, deploy, 0, 0)
	msg, err := codec.DecodeDeploy(deployTx.Message())
	require.NoError(t, err)
	require.NoError(t, l.Deploy(deployTx.ID(), msg))

	start, err := codec.EncodeStart(&tx.StartMessage{Address: tokenAddr, Method: "mint", Args: []vm.Value{"alice", int64(2)}})
	require.NoError(t, err)
	startTx := tx.New(tx.TypeStart, start, 100, 1)

	_, err = runtime.NewRequest(deployTx, codec, l)
	assert.Error(t, err)

	req, err := runtime.NewRequest(startTx, codec, l)
	require.NoError(t, err)
	assert.Equal(t, "mint", req.Method)
	assert.Equal(t, startTx.ID(), req.TxID)

	res, err := newRuntime(t, nil).Execute(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.OK, "%v", res.Payload)

	conclude, err := runtime.Conclude(l, req, res)
	require.NoError(t, err)
	assert.Equal(t, tx.TypeConclude, conclude.Type())

	c, err := l.Contract(tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, startTx.ID(), c.StartHash)
	assert.Equal(t, conclude.ID(), c.FinishHash)
	v, _ := c.Storage.Get("alice")
	assert.Equal(t, int64(7), v)

	// later requests read the concluded storage
	req, err = runtime.NewRequest(startTx, codec, l)
	require.NoError(t, err)
	v, _ = req.Storage.Get("alice")
	assert.Equal(t, int64(7), v)

	_, err = runtime.Conclude(l, req, &runtime.Result{})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gas_limit: 500\nmetering: opcode\ntrace_timeout: 3s\n"), 0o600))

	cfg, err := runtime.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), cfg.GasLimit)
	assert.Equal(t, runtime.MeteringOpcode, cfg.Metering)
	assert.Equal(t, 3*time.Second, cfg.TraceTimeout)
	assert.Equal(t, thor.DefaultLineGas, cfg.LineGas)

	require.NoError(t, os.WriteFile(path, []byte("metering: fast\n"), 0o600))
	_, err = runtime.LoadConfig(path)
	assert.Error(t, err)

	cfg = runtime.DefaultConfig()
	cfg.Manual = true
	_, err = runtime.New(cfg, nil)
	assert.Error(t, err)
}

var _ runtime.Operator = (*scriptOperator)(nil)
