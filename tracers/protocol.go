// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tracers implements the step-trace protocol spoken between a worker
// running contract code and the parent driving it.
//
// The worker pauses at execution events and writes a batch: any output the
// contract printed since the last pause, the location line, the source line
// and a prompt.
//
//	| hello
//	> token.cvm(12)transfer()
//	-> storage_set(to, amount)
//	(cvm) 
//
// Every line the worker writes starts with a marker, so a prompt is only
// recognized at the start of a line and contract output cannot forge one.
// The parent answers each batch with exactly one command line.
package tracers

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Commands understood by the worker.
const (
	CmdStep   = "step"
	CmdNext   = "next"
	CmdUntil  = "until"
	CmdReturn = "return"
	CmdQuit   = "quit"
)

// Prompt terminates every batch.
const Prompt = "(cvm) "

const (
	outPrefix  = "| "
	locPrefix  = "> "
	textPrefix = "-> "
)

// ValidCommand reports whether cmd is a protocol command.
func ValidCommand(cmd string) bool {
	switch cmd {
	case CmdStep, CmdNext, CmdUntil, CmdReturn, CmdQuit:
		return true
	}
	return false
}

// Pause is one stop of the worker.
type Pause struct {
	File   string
	Line   int
	Func   string
	Text   string
	Output []string
}

// Location renders the location line of p.
func (p *Pause) Location() string {
	return fmt.Sprintf("%s%s(%d)%s()", locPrefix, p.File, p.Line, p.Func)
}

// FormatPause renders a complete batch for p.
func FormatPause(p *Pause) string {
	var sb strings.Builder
	sb.WriteString(FormatOutput(p.Output))
	sb.WriteString(p.Location())
	sb.WriteByte('\n')
	sb.WriteString(textPrefix)
	sb.WriteString(p.Text)
	sb.WriteByte('\n')
	sb.WriteString(Prompt)
	return sb.String()
}

// FormatOutput renders contract output lines as sent on the wire.
func FormatOutput(lines []string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(outPrefix)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseOutput returns the contract output held in wire lines. Empty lines,
// such as the remainder after the last newline, carry nothing.
func ParseOutput(lines []string) ([]string, error) {
	var out []string
	for _, line := range lines {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, outPrefix) {
			return nil, errors.Errorf("malformed output line %q", line)
		}
		out = append(out, line[len(outPrefix):])
	}
	return out, nil
}

// ParsePause parses a split batch. The trailer is the two lines before the
// prompt; anything earlier is output.
func ParsePause(lines []string) (*Pause, error) {
	n := len(lines)
	if n < 3 {
		return nil, errors.Errorf("incomplete batch of %d lines", n)
	}
	loc, text := lines[n-3], lines[n-2]

	if !strings.HasPrefix(loc, locPrefix) || !strings.HasSuffix(loc, "()") {
		return nil, errors.Errorf("malformed location %q", loc)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(loc, locPrefix), "()")
	closeAt := strings.LastIndexByte(body, ')')
	if closeAt < 0 {
		return nil, errors.Errorf("malformed location %q", loc)
	}
	openAt := strings.LastIndexByte(body[:closeAt], '(')
	if openAt < 0 {
		return nil, errors.Errorf("malformed location %q", loc)
	}
	line, err := strconv.Atoi(body[openAt+1 : closeAt])
	if err != nil {
		return nil, errors.Errorf("malformed line number in %q", loc)
	}
	if !strings.HasPrefix(text, strings.TrimSpace(textPrefix)) {
		return nil, errors.Errorf("malformed source line %q", text)
	}
	output, err := ParseOutput(lines[:n-3])
	if err != nil {
		return nil, err
	}
	return &Pause{
		File:   body[:openAt],
		Line:   line,
		Func:   body[closeAt+1:],
		Text:   strings.TrimPrefix(strings.TrimPrefix(text, "->"), " "),
		Output: output,
	}, nil
}

// BatchReader splits the worker stream into batches.
type BatchReader struct {
	r    io.Reader
	buf  []byte
	done bool
}

// NewBatchReader creates a reader over r.
func NewBatchReader(r io.Reader) *BatchReader {
	return &BatchReader{r: r}
}

// Next returns the next batch split on newlines, the prompt being the last
// element. Only a prompt opening a line ends a batch. At end of stream the
// remaining bytes are returned once, so a stream ending cleanly yields a
// single empty element; after that Next returns io.EOF.
func (b *BatchReader) Next() ([]string, error) {
	if b.done {
		return nil, io.EOF
	}
	chunk := make([]byte, 4096)
	for {
		if i := promptIndex(b.buf); i >= 0 {
			end := i + len(Prompt)
			batch := string(b.buf[:end])
			b.buf = append(b.buf[:0], b.buf[end:]...)
			return strings.Split(batch, "\n"), nil
		}
		n, err := b.r.Read(chunk)
		b.buf = append(b.buf, chunk[:n]...)
		if err == io.EOF {
			b.done = true
			rest := string(b.buf)
			b.buf = nil
			return strings.Split(rest, "\n"), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// promptIndex returns the offset of the first prompt at the start of a line.
func promptIndex(buf []byte) int {
	prompt := []byte(Prompt)
	if bytes.HasPrefix(buf, prompt) {
		return 0
	}
	if i := bytes.Index(buf, append([]byte{'\n'}, prompt...)); i >= 0 {
		return i + 1
	}
	return -1
}
