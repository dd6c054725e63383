// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/vm"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		want vm.Value
	}{
		{"42", int64(42)},
		{"true", true},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{"plain", "plain"},
		{"0x0102", vm.Bytes([]byte{1, 2})},
		{"0xzz", "0xzz"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseArg(tt.in), tt.in)
	}

	l, ok := parseArg("[1, 2]").(*vm.List)
	require.True(t, ok)
	assert.Equal(t, []vm.Value{int64(1), int64(2)}, l.Items)
}

func TestLoadStorage(t *testing.T) {
	entries, err := loadStorage("")
	require.NoError(t, err)
	assert.Empty(t, entries)

	dir := t.TempDir()
	path := filepath.Join(dir, "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"alice": 5, "bob": [1]}`), 0o600))
	entries, err = loadStorage(path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries["alice"])

	require.NoError(t, os.WriteFile(path, []byte(`[1, 2]`), 0o600))
	_, err = loadStorage(path)
	assert.Error(t, err)
}

func TestStorageDiff(t *testing.T) {
	before, err := state.New(thor.Address{}, map[vm.Value]vm.Value{"a": int64(1), "b": int64(2)})
	require.NoError(t, err)

	out, err := storageDiff(before, state.Diff{"a": int64(3), "b": nil, "c": "x"})
	require.NoError(t, err)
	assert.Contains(t, out, "--- storage@0")
	assert.Contains(t, out, "+++ storage@1")
	assert.Contains(t, out, `-"a": 1`)
	assert.Contains(t, out, `+"a": 3`)
	assert.Contains(t, out, `-"b": 2`)
	assert.Contains(t, out, `+"c": "x"`)

	// the baseline is left untouched
	v, _ := before.Get("a")
	assert.Equal(t, int64(1), v)
}

func TestLoadBinary(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "counter.cvm")
	require.NoError(t, os.WriteFile(src, []byte(strings.Join([]string{
		"func inc(n)",
		"    return n + 1",
		"end",
		"",
		"func dec(n)",
		"    return n - 1",
		"end",
		"",
	}, "\n")), 0o600))

	bin, err := loadBinary(src, "")
	require.NoError(t, err)
	h, err := packer.Inspect(bin)
	require.NoError(t, err)
	assert.Equal(t, packer.KindModule, h.Kind)
	assert.Equal(t, []string{"dec", "inc"}, h.Funcs)

	bin, err = loadBinary(src, "inc")
	require.NoError(t, err)
	h, err = packer.Inspect(bin)
	require.NoError(t, err)
	assert.Equal(t, packer.KindFunction, h.Kind)
	assert.Equal(t, "inc", h.Entry)

	_, err = loadBinary(src, "missing")
	assert.Error(t, err)

	path := filepath.Join(dir, "counter.bin")
	require.NoError(t, os.WriteFile(path, bin, 0o600))
	got, err := loadBinary(path, "")
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o600))
	_, err = loadBinary(path, "")
	assert.Error(t, err)
}
