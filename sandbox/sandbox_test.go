// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sandbox_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/sandbox"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
	"github.com/vechain/cvm/xenv"
)

func newEnv(t *testing.T) *xenv.Environment {
	addr := thor.BytesToAddress([]byte("contract"))
	stg, err := state.New(addr, nil)
	require.NoError(t, err)
	return xenv.New(addr, "run", thor.Address{}, nil, stg)
}

func TestBuildGlobals(t *testing.T) {
	reg := builtin.Default()
	g := sandbox.BuildGlobals(reg, newEnv(t), "token")

	assert.Equal(t, len(sandbox.AllowGlobals)+len(sandbox.AllowBuiltins)+len(reg.Names()), g.Len())
	for _, name := range []string{"exit", "getenv", "globals", "sleep", "__environ__", "__argv__", "__pid__"} {
		assert.False(t, g.Has(name), name)
	}
	for _, name := range sandbox.AllowBuiltins {
		assert.True(t, g.Has(name), name)
	}
	name, _ := g.Get("__name__")
	assert.Equal(t, "token", name)

	v, ok := g.Get("verify")
	require.True(t, ok)
	n := v.(*vm.Native)
	assert.Equal(t, "builtin/signature", n.Lib)
	assert.Equal(t, uint64(10000), n.Price)
	assert.Equal(t, "func verify(hash, sig, pubkey)", n.Signature())
}

func TestBuildGlobalsOnlyAllowed(t *testing.T) {
	reg := builtin.Default()
	g := sandbox.BuildGlobals(reg, newEnv(t), "token")

	allowed := make(map[string]bool)
	for _, name := range sandbox.AllowBuiltins {
		allowed[name] = true
	}
	for _, name := range reg.Names() {
		allowed[name] = true
	}
	ambient := vm.AmbientBuiltins()
	for name := range ambient {
		if !allowed[name] {
			assert.False(t, g.Has(name), name)
		}
	}
	for _, name := range sandbox.AllowBuiltins {
		assert.Contains(t, ambient, name)
	}
	for _, name := range g.Names() {
		v, _ := g.Get(name)
		if n, ok := v.(*vm.Native); ok && n.Lib == "" {
			assert.True(t, allowed[name], name)
		}
	}
}

func TestSandboxedContract(t *testing.T) {
	src := `import hashing

func run(key)
    storage_set(key, hashing.sha256(key))
    return [has_getenv(), len(storage_keys())]
end

func has_getenv()
    return type(getenv)
end
`
	m, err := compiler.CompileModule("token", "token.cvm", []byte(src))
	require.NoError(t, err)

	env := newEnv(t)
	reg := builtin.Default()
	g := sandbox.BuildGlobals(reg, env, m.Name)
	mods := sandbox.Modules(reg, env)
	for _, imp := range m.Imports {
		g.Set(imp, mods[imp])
	}
	m.Bind(g)

	_, err = vm.New(vm.Config{}).Call(m.Members["run"], []vm.Value{"k"})
	assert.True(t, vm.IsKind(err, vm.KindNameError))
	assert.Contains(t, err.Error(), "getenv")
	assert.True(t, env.Storage().Has("k"))
}

func TestModules(t *testing.T) {
	reg := builtin.Default()
	mods := sandbox.Modules(reg, newEnv(t))
	assert.Equal(t, []string{"convert", "hashing", "signature", "statement"}, sandbox.ModuleNames(reg))
	require.Len(t, mods, 4)
	assert.Equal(t, []string{"keccak_256", "sha256", "sha3_256"}, mods["hashing"].MemberNames())
	assert.Equal(t, "builtin/hashing", mods["hashing"].File)
}
