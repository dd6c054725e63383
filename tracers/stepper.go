// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tracers

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/vm"
)

// ErrQuit is returned by the stepper hooks when the parent sends quit.
var ErrQuit = errors.New("execution quit by controller")

// Stepper is a vm.Tracer that pauses at execution events and waits for a
// command from the parent. Stop rules follow a line debugger: a stop frame,
// an optional return frame and a minimum line.
type Stepper struct {
	w   io.Writer
	r   *bufio.Reader
	out bytes.Buffer

	stopFrame   uint64 // 0 stops everywhere
	returnFrame uint64
	stopLine    int // -1 never stops in the stop frame
	pauses      int
}

// NewStepper creates a stepper talking over rw. It stops at the first event.
func NewStepper(rw io.ReadWriter) *Stepper {
	return &Stepper{
		w: rw,
		r: bufio.NewReader(rw),
	}
}

// Output returns the writer contract output is buffered in. Buffered output
// is sent ahead of the next pause.
func (s *Stepper) Output() io.Writer { return &s.out }

// Pauses returns the number of pauses so far.
func (s *Stepper) Pauses() int { return s.pauses }

// Flush sends buffered output not yet delivered with a pause.
func (s *Stepper) Flush() error {
	lines := s.takeOutput()
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(s.w, FormatOutput(lines))
	return err
}

// takeOutput drains the output buffer as lines.
func (s *Stepper) takeOutput() []string {
	if s.out.Len() == 0 {
		return nil
	}
	text := strings.TrimSuffix(s.out.String(), "\n")
	s.out.Reset()
	return strings.Split(text, "\n")
}

// stopHere reports whether execution should pause in f.
func (s *Stepper) stopHere(f *vm.TraceFrame) bool {
	if s.stopFrame == 0 {
		return true
	}
	if f.ID == s.stopFrame {
		if s.stopLine == -1 {
			return false
		}
		return f.Line >= s.stopLine
	}
	for p := f.Parent; p != nil; p = p.Parent {
		if p.ID == s.stopFrame {
			return false
		}
	}
	// the stop frame has returned
	return true
}

func (s *Stepper) setStop(frame, ret uint64, line int) {
	s.stopFrame, s.returnFrame, s.stopLine = frame, ret, line
}

// OnCall implements vm.Tracer.
func (s *Stepper) OnCall(f *vm.TraceFrame) error {
	if !s.stopHere(f) {
		return nil
	}
	return s.interact(f)
}

// OnLine implements vm.Tracer.
func (s *Stepper) OnLine(f *vm.TraceFrame) error {
	if !s.stopHere(f) {
		return nil
	}
	return s.interact(f)
}

// OnReturn implements vm.Tracer.
func (s *Stepper) OnReturn(f *vm.TraceFrame) error {
	if !s.stopHere(f) && f.ID != s.returnFrame {
		return nil
	}
	if err := s.interact(f); err != nil {
		return err
	}
	// next or until issued in a returning frame steps into the caller
	if s.stopFrame == f.ID && s.stopLine != -1 {
		s.setStop(0, 0, 0)
	}
	return nil
}

func (s *Stepper) interact(f *vm.TraceFrame) error {
	s.pauses++
	pause := &Pause{
		File:   f.File,
		Line:   f.Line,
		Func:   f.Func,
		Text:   f.Text,
		Output: s.takeOutput(),
	}
	if _, err := io.WriteString(s.w, FormatPause(pause)); err != nil {
		return errors.Wrap(err, "write pause")
	}

	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return ErrQuit
			}
			if err != io.EOF {
				return errors.Wrap(err, "read command")
			}
		}
		switch cmd := strings.TrimSpace(line); cmd {
		case CmdStep:
			s.setStop(0, 0, 0)
		case CmdNext:
			s.setStop(f.ID, 0, 0)
		case CmdUntil:
			s.setStop(f.ID, f.ID, f.Line+1)
		case CmdReturn:
			var parent uint64
			if f.Parent != nil {
				parent = f.Parent.ID
			}
			s.setStop(parent, f.ID, 0)
		case CmdQuit:
			return ErrQuit
		default:
			// repeat the pause so the reply is still a complete batch
			again := *pause
			again.Output = []string{"*** unknown command: " + cmd}
			if _, err := io.WriteString(s.w, FormatPause(&again)); err != nil {
				return errors.Wrap(err, "write pause")
			}
			continue
		}
		return nil
	}
}
