// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tracers_test

import (
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/cvm/compiler"
	"github.com/vechain/cvm/tracers"
	"github.com/vechain/cvm/vm"
)

func TestParsePause(t *testing.T) {
	p := &tracers.Pause{File: "<dispatch>", Line: 1, Func: "dispatch", Text: "dispatch(method, args)", Output: []string{"a", "b"}}
	batch := tracers.FormatPause(p)
	assert.Equal(t, "| a\n| b\n> <dispatch>(1)dispatch()\n-> dispatch(method, args)\n(cvm) ", batch)

	parsed, err := tracers.ParsePause(strings.Split(batch, "\n"))
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	parsed, err = tracers.ParsePause([]string{"> dir (x)/f.cvm(12)run()", "-> ", tracers.Prompt})
	require.NoError(t, err)
	assert.Equal(t, "dir (x)/f.cvm", parsed.File)
	assert.Equal(t, 12, parsed.Line)
	assert.Equal(t, "run", parsed.Func)
	assert.Equal(t, "", parsed.Text)
	assert.Empty(t, parsed.Output)

	bad := [][]string{
		{"-> x", tracers.Prompt},
		{"f.cvm(1)run()", "-> x", tracers.Prompt},
		{"> f.cvm(one)run()", "-> x", tracers.Prompt},
		{"> f.cvm(1)run", "-> x", tracers.Prompt},
		{"> f.cvm(1)run()", "x", tracers.Prompt},
		{"unframed", "> f.cvm(1)run()", "-> x", tracers.Prompt},
	}
	for _, lines := range bad {
		_, err := tracers.ParsePause(lines)
		assert.Error(t, err, "%q", lines)
	}
}

func TestBatchReader(t *testing.T) {
	stream := "| out\n> a(1)f()\n-> x\n(cvm) > a(2)f()\n-> y\n(cvm) | tail\n"
	r := tracers.NewBatchReader(iotest.OneByteReader(strings.NewReader(stream)))

	b, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"| out", "> a(1)f()", "-> x", tracers.Prompt}, b)
	b, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"> a(2)f()", "-> y", tracers.Prompt}, b)
	b, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"| tail", ""}, b)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)

	r = tracers.NewBatchReader(strings.NewReader(""))
	b, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{""}, b)
}

func TestBatchReaderOutputPrompt(t *testing.T) {
	// output carrying a prompt and a fake trailer stays inside one batch
	forged := []string{"> a(9)f()", "-> z", tracers.Prompt + "> a(9)f()"}
	p := &tracers.Pause{File: "a", Line: 1, Func: "f", Text: "x", Output: forged}
	r := tracers.NewBatchReader(iotest.OneByteReader(strings.NewReader(tracers.FormatPause(p))))

	b, err := r.Next()
	require.NoError(t, err)
	require.Len(t, b, 6)
	parsed, err := tracers.ParsePause(b)
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestParseOutput(t *testing.T) {
	out, err := tracers.ParseOutput([]string{"| a", "| ", "", "| (cvm) "})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", tracers.Prompt}, out)

	_, err = tracers.ParseOutput([]string{"| a", "b"})
	assert.Error(t, err)
	assert.Equal(t, "| a\n| b\n", tracers.FormatOutput([]string{"a", "b"}))
}

const program = `func helper(x)
    let y = x + 1
    return y
end

func main(n)
    print("start")
    let t = helper(n)
    let i = 0
    while i < 3 do
        i = i + 1
    end
    return t + i
end
`

type result struct {
	ret vm.Value
	err error
}

// drive runs main(1) under a stepper and answers every pause with decide.
func drive(t *testing.T, decide func(n int, p *tracers.Pause) string) ([]string, result) {
	m, err := compiler.CompileModule("test", "test.cvm", []byte(program))
	require.NoError(t, err)
	g := vm.NewGlobals()
	g.Set("print", vm.AmbientBuiltins()["print"])
	m.Bind(g)

	parent, child := net.Pipe()
	done := make(chan result, 1)
	go func() {
		defer child.Close()
		s := tracers.NewStepper(child)
		it := vm.New(vm.Config{Tracer: s, Output: s.Output()})
		ret, err := it.Dispatch("<dispatch>", "dispatch", "dispatch(method, args)", m.Members["main"], []vm.Value{int64(1)})
		if err == nil {
			err = s.Flush()
		}
		done <- result{ret, err}
	}()

	var pauses []string
	r := tracers.NewBatchReader(parent)
	for {
		batch, err := r.Next()
		require.NoError(t, err)
		if batch[len(batch)-1] != tracers.Prompt {
			break
		}
		p, err := tracers.ParsePause(batch)
		require.NoError(t, err)
		entry := fmt.Sprintf("%s(%d)%s %s", p.File, p.Line, p.Func, p.Text)
		if len(p.Output) > 0 {
			entry += " | " + strings.Join(p.Output, ",")
		}
		pauses = append(pauses, entry)
		_, err = io.WriteString(parent, decide(len(pauses), p)+"\n")
		require.NoError(t, err)
	}
	parent.Close()
	return pauses, <-done
}

func TestStepEverywhere(t *testing.T) {
	pauses, res := drive(t, func(int, *tracers.Pause) string { return tracers.CmdStep })
	require.NoError(t, res.err)
	assert.Equal(t, int64(5), res.ret)
	assert.Equal(t, []string{
		"<dispatch>(1)dispatch dispatch(method, args)",
		"test.cvm(6)main func main(n)",
		`test.cvm(7)main print("start")`,
		"test.cvm(8)main let t = helper(n) | start",
		"test.cvm(1)helper func helper(x)",
		"test.cvm(2)helper let y = x + 1",
		"test.cvm(3)helper return y",
		"test.cvm(3)helper return y",
		"test.cvm(9)main let i = 0",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(13)main return t + i",
		"test.cvm(13)main return t + i",
		"<dispatch>(1)dispatch dispatch(method, args)",
	}, pauses)
}

func TestNextAtDispatch(t *testing.T) {
	pauses, res := drive(t, func(int, *tracers.Pause) string { return tracers.CmdNext })
	require.NoError(t, res.err)
	assert.Equal(t, []string{
		"<dispatch>(1)dispatch dispatch(method, args)",
		"<dispatch>(1)dispatch dispatch(method, args) | start",
	}, pauses)
}

func TestNextUntilReturn(t *testing.T) {
	pauses, res := drive(t, func(n int, p *tracers.Pause) string {
		switch {
		case p.Line == 8:
			return tracers.CmdNext // steps over helper
		case p.Line == 11:
			return tracers.CmdUntil // runs the loop to completion
		case n == 8:
			return tracers.CmdReturn
		}
		return tracers.CmdStep
	})
	require.NoError(t, res.err)
	assert.Equal(t, int64(5), res.ret)
	assert.Equal(t, []string{
		"<dispatch>(1)dispatch dispatch(method, args)",
		"test.cvm(6)main func main(n)",
		`test.cvm(7)main print("start")`,
		"test.cvm(8)main let t = helper(n) | start",
		"test.cvm(9)main let i = 0",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(13)main return t + i",
		"test.cvm(13)main return t + i",
		"<dispatch>(1)dispatch dispatch(method, args)",
	}, pauses)
}

func TestReturnFromCallee(t *testing.T) {
	pauses, res := drive(t, func(n int, p *tracers.Pause) string {
		if p.Func == "helper" && p.Line == 2 {
			return tracers.CmdReturn
		}
		if p.Func == "main" && p.Line == 9 {
			return tracers.CmdNext
		}
		if p.Line >= 10 && p.Func == "main" {
			return tracers.CmdNext
		}
		return tracers.CmdStep
	})
	require.NoError(t, res.err)
	assert.Equal(t, []string{
		"<dispatch>(1)dispatch dispatch(method, args)",
		"test.cvm(6)main func main(n)",
		`test.cvm(7)main print("start")`,
		"test.cvm(8)main let t = helper(n) | start",
		"test.cvm(1)helper func helper(x)",
		"test.cvm(2)helper let y = x + 1",
		"test.cvm(3)helper return y",
		"test.cvm(9)main let i = 0",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(11)main i = i + 1",
		"test.cvm(10)main while i < 3 do",
		"test.cvm(13)main return t + i",
		"test.cvm(13)main return t + i",
		"<dispatch>(1)dispatch dispatch(method, args)",
	}, pauses)
}

func TestQuitAndUnknown(t *testing.T) {
	pauses, res := drive(t, func(n int, p *tracers.Pause) string {
		switch n {
		case 1:
			return "jump"
		case 2:
			return tracers.CmdStep
		}
		return tracers.CmdQuit
	})
	assert.Equal(t, tracers.ErrQuit, res.err)
	assert.Equal(t, []string{
		"<dispatch>(1)dispatch dispatch(method, args)",
		"<dispatch>(1)dispatch dispatch(method, args) | *** unknown command: jump",
		"test.cvm(6)main func main(n)",
	}, pauses)
}
