// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewLogger(JSONHandler(out))
	l.Info("executed", "gas", uint64(42), "payload", []byte{0xca, 0xfe})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "executed", rec["msg"])
	assert.Equal(t, "info", rec["lvl"])
	assert.Equal(t, float64(42), rec["gas"])
	assert.Equal(t, "0xcafe", rec["payload"])
	assert.Contains(t, rec, "t")
}

func TestLogfmtHandlerWithLevel(t *testing.T) {
	out := new(bytes.Buffer)
	var level slog.LevelVar
	level.Set(LevelWarn)
	l := NewLogger(LogfmtHandlerWithLevel(out, &level))

	l.Debug("hidden")
	l.Info("hidden")
	assert.Empty(t, out.String())

	l.Warn("shown", "k", "v")
	assert.True(t, strings.Contains(out.String(), "lvl=warn"))
	assert.True(t, strings.Contains(out.String(), "k=v"))
}

func TestWithContextFollowsRoot(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	pkgLogger := WithContext("pkg", "test")

	out := new(bytes.Buffer)
	SetDefault(NewLogger(LogfmtHandler(out)))
	pkgLogger.With("id", 1).Info("hello")

	assert.Contains(t, out.String(), "pkg=test")
	assert.Contains(t, out.String(), "id=1")
	assert.Contains(t, out.String(), "msg=hello")
}

func TestFromLegacyLevel(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "crit"},
		{1, "error"},
		{2, "warn"},
		{3, "info"},
		{4, "debug"},
		{5, "trace"},
		{9, "trace"},
		{-1, "crit"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelString(FromLegacyLevel(tt.in)))
	}
}

func TestDiscardHandler(t *testing.T) {
	l := NewLogger(DiscardHandler())
	assert.False(t, l.Enabled(context.Background(), LevelCrit))
	l.Error("nothing")
}

func TestReplaceAttr(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewLogger(LogfmtHandler(out))
	l.Info("done", "elapsed", 1500*time.Millisecond, "output", []string{"a", "b"}, "id", stringer("x1"))

	s := out.String()
	assert.Contains(t, s, "elapsed=1.5s")
	assert.Contains(t, s, `output=a|b`)
	assert.Contains(t, s, "id=x1")

	out.Reset()
	l = NewLogger(JSONHandler(out))
	l.Info("done", "elapsed", 2*time.Second, "output", []string{"a"})
	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "2s", rec["elapsed"])
	assert.Equal(t, []any{"a"}, rec["output"])
}

type stringer string

func (s stringer) String() string { return string(s) }
