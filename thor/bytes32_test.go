// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseBytes32(t *testing.T) {
	h := Keccak256([]byte("cvm"))

	got, err := ParseBytes32(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, got)

	got, err = ParseBytes32(strings.TrimPrefix(h.String(), "0x"))
	require.NoError(t, err)
	assert.Equal(t, h, got)

	for _, bad := range []string{"", "0x1234", h.String() + "00", "0x" + strings.Repeat("zz", 32)} {
		_, err := ParseBytes32(bad)
		assert.Error(t, err, bad)
	}
}

func TestBytesToBytes32(t *testing.T) {
	h := BytesToBytes32([]byte{1, 2})
	assert.Equal(t, byte(1), h[30])
	assert.Equal(t, byte(2), h[31])
	assert.False(t, h.IsZero())
	assert.True(t, Bytes32{}.IsZero())

	long := make([]byte, 40)
	long[39] = 9
	assert.Equal(t, byte(9), BytesToBytes32(long)[31])
}

func TestBytes32Text(t *testing.T) {
	type doc struct {
		ID Bytes32 `yaml:"id"`
	}
	in := doc{ID: Keccak256([]byte("x"))}
	data, err := yaml.Marshal(&in)
	require.NoError(t, err)
	assert.Contains(t, string(data), in.ID.String())

	var out doc
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
