// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package compiler_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/vm"
)

const sample = `import hashing
import lib.util

const FEE = 10
const OWNERS = ["a", "b"]

func transfer(to, amount = 1)
    let balance = 0
    func add(n)
        balance = balance + n
    end
    add(amount)
    return balance - FEE
end
`

func TestCompileModule(t *testing.T) {
	m, err := compiler.CompileModule("sample", "sample.cvm", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"hashing", "lib.util"}, m.Imports)
	assert.Equal(t, []string{"FEE", "OWNERS", "transfer"}, m.MemberNames())
	assert.Equal(t, int64(10), m.Members["FEE"])
	assert.Equal(t, `["a", "b"]`, vm.Repr(m.Members["OWNERS"]))

	cl := m.Members["transfer"].(*vm.Closure)
	p := cl.Proto
	assert.Equal(t, "transfer", p.Name)
	assert.Equal(t, 7, p.Line)
	assert.Equal(t, []string{"to", "amount"}, p.Params)
	assert.Equal(t, []vm.Value{int64(1)}, p.Defaults)
	assert.Equal(t, []string{"balance"}, p.CellNames)
	assert.Equal(t, "func transfer(to, amount = 1)", p.Text(7))
	assert.Equal(t, "return balance - FEE", p.Text(13))

	require.Len(t, p.Protos, 1)
	add := p.Protos[0]
	assert.Equal(t, []string{"balance"}, add.FreeNames)
	assert.Empty(t, add.Locals[1:])

	g, ok := cl.Globals.Get("FEE")
	assert.True(t, ok)
	assert.Equal(t, int64(10), g)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"duplicate", "func f()\nend\n\nfunc f()\nend\n", 4, "'f' already declared at line 1"},
		{"default order", "func f(a = 1, b)\nend\n", 1, "non-default argument 'b' follows default argument"},
		{"duplicate arg", "func f(a, a)\nend\n", 1, "duplicate argument 'a'"},
		{"chained", "func f(a)\n    return 1 < a < 3\nend\n", 2, "comparisons cannot be chained"},
		{"global assign", "const X = 1\nfunc f()\n    X[0] = 1\n    return X\nend\n", 0, ""},
		{"nested import", "func f()\n    import x\nend\n", 2, "'import' is only allowed at top level"},
		{"bad target", "func f()\n    f() = 1\nend\n", 2, "cannot assign to expression"},
		{"break", "func f()\n    break\nend\n", 2, "'break' outside loop"},
		{"continue", "func f()\n    continue\nend\n", 2, "'continue' not properly in loop"},
		{"top level", "let x = 1\n", 1, "expected import, const or func at top level"},
		{"const expr", "const X = len([])\n", 1, "const X: not a constant expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.CompileModule("m", "m.cvm", []byte(tt.src))
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *compiler.Error
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, "m.cvm", cerr.File)
			assert.Equal(t, tt.line, cerr.Line)
			assert.Contains(t, cerr.Msg, tt.msg)
		})
	}

	_, err := compiler.CompileModule("m", "m.cvm", []byte("func f()\n    return 1\n"))
	assert.ErrorContains(t, err, "missing 'end'")

	_, err = compiler.CompileModule("m", "m.cvm", []byte("func f()\n    return \"open\nend\n"))
	assert.ErrorContains(t, err, "unterminated string")
}

func TestCompileFunction(t *testing.T) {
	fn, err := compiler.CompileFunction("double.cvm", []byte("func double(x)\n    return x * 2\nend\n"))
	require.NoError(t, err)
	ret, err := vm.New(vm.Config{}).Call(fn, []vm.Value{int64(21)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), ret)

	_, err = compiler.CompileFunction("two.cvm", []byte("func a()\nend\nfunc b()\nend\n"))
	assert.ErrorContains(t, err, "expected a single function")

	_, err = compiler.CompileFunction("none.cvm", []byte("const X = 1\n"))
	assert.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.cvm")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	m, err := compiler.CompileFile(path)
	require.NoError(t, err)
	assert.Equal(t, "token", m.Name)
	assert.Equal(t, "token.cvm", m.File)

	_, err = compiler.CompileFile(filepath.Join(t.TempDir(), "missing.cvm"))
	assert.Error(t, err)
}

func TestDisassemble(t *testing.T) {
	m, err := compiler.CompileModule("sample", "sample.cvm", []byte(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	compiler.DisassembleModule(&buf, m)
	out := buf.String()

	assert.Contains(t, out, "module sample (sample.cvm)")
	assert.Contains(t, out, "import lib.util")
	assert.Contains(t, out, "const FEE = 10")
	assert.Contains(t, out, "func transfer(to, amount) (sample.cvm:7)")
	assert.Contains(t, out, "cells: balance")
	assert.Contains(t, out, "  func add(n) (sample.cvm:9)")
	assert.Contains(t, out, "free: balance")
	assert.Contains(t, out, "LOAD_GLOBAL")
	assert.Contains(t, out, "(FEE)")
	assert.Contains(t, out, "CLOSURE")
}
