// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/builtin"
	"github.com/vechain/cvm/sandbox"
	"github.com/vechain/cvm/tracers"
)

// State is the state of a Controller.
type State int

// Controller states.
const (
	StateInit State = iota
	StateStep
	StateNext
	StateUntil
	StateReturn
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStep:
		return "STEP"
	case StateNext:
		return "NEXT"
	case StateUntil:
		return "UNTIL"
	case StateReturn:
		return "RETURN"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Command returns the trace command that realizes s, or "" for states that
// send nothing.
func (s State) Command() string {
	switch s {
	case StateStep:
		return tracers.CmdStep
	case StateNext:
		return tracers.CmdNext
	case StateUntil:
		return tracers.CmdUntil
	case StateReturn:
		return tracers.CmdReturn
	}
	return ""
}

// Operator chooses commands in manual mode. suggested is the command the
// controller would send on its own; an empty reply keeps it.
type Operator interface {
	Command(p *tracers.Pause, suggested string) (string, error)
}

// Controller drives a traced worker over the step-trace protocol and
// accumulates gas from the pauses it observes.
type Controller struct {
	reg      *builtin.Registry
	module   string // source file of the contract
	entry    string // function invoked by dispatch
	lineGas  uint64
	gasLimit uint64
	operator Operator

	state  State
	gas    uint64
	lines  uint64
	output []string
	last   *tracers.Pause
}

// NewController creates a controller for the contract function entry
// defined in module.
func NewController(reg *builtin.Registry, module, entry string, lineGas, gasLimit uint64) *Controller {
	return &Controller{
		reg:      reg,
		module:   module,
		entry:    entry,
		lineGas:  lineGas,
		gasLimit: gasLimit,
	}
}

// SetOperator enables manual mode.
func (c *Controller) SetOperator(op Operator) { c.operator = op }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// GasUsed returns the gas accumulated so far.
func (c *Controller) GasUsed() uint64 { return c.gas }

// Lines returns the number of contract lines executed.
func (c *Controller) Lines() uint64 { return c.lines }

// Output returns the contract output relayed by the worker.
func (c *Controller) Output() []string { return c.output }

// LastPause returns the most recent pause, nil before the first one.
func (c *Controller) LastPause() *tracers.Pause { return c.last }

// Classify decides how to continue from p. Pauses in the dispatch entry
// point and in the entry function are stepped; anything else, like a helper
// or a capability function, is stepped over.
func (c *Controller) Classify(p *tracers.Pause) State {
	if p.File == sandbox.DispatchFile || c.inEntry(p) {
		return StateStep
	}
	return StateNext
}

func (c *Controller) inEntry(p *tracers.Pause) bool {
	return p.File == c.module && p.Func == c.entry
}

// Observe classifies p, charges its gas and returns the command to send. It
// fails with ErrGasExceeded once the limit is passed.
func (c *Controller) Observe(p *tracers.Pause) (string, error) {
	c.last = p
	c.output = append(c.output, p.Output...)

	c.state = c.Classify(p)
	if c.state == StateStep && c.inEntry(p) {
		c.lines++
		c.gas += c.lineGas
	}
	if p.File != c.module {
		c.gas += c.reg.DefinitionPrice(p.Text)
	}

	if c.gasLimit > 0 && c.gas > c.gasLimit {
		c.state = StateError
		return "", errors.Wrapf(ErrGasExceeded, "gas %d > limit %d at %s(%d)", c.gas, c.gasLimit, p.File, p.Line)
	}

	cmd := c.state.Command()
	if c.operator != nil {
		chosen, err := c.operator.Command(p, cmd)
		if err != nil {
			c.state = StateError
			return "", errors.WithMessage(err, "operator")
		}
		if chosen != "" {
			cmd = chosen
			c.state = commandState(chosen)
		}
	}
	return cmd, nil
}

func commandState(cmd string) State {
	switch cmd {
	case tracers.CmdStep:
		return StateStep
	case tracers.CmdNext:
		return StateNext
	case tracers.CmdUntil:
		return StateUntil
	case tracers.CmdReturn:
		return StateReturn
	}
	return StateError
}

// Run serves the trace loop on conn until the worker closes it, sending
// exactly one command per pause. timeout bounds the wait for each batch. It
// returns nil when the stream ended cleanly, an ErrGasExceeded error on
// breach and a *TransportError otherwise.
func (c *Controller) Run(conn net.Conn, timeout time.Duration) error {
	br := tracers.NewBatchReader(conn)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return c.fail("deadline", err)
		}
		batch, err := br.Next()
		if err != nil {
			if err == io.EOF {
				c.state = StateDone
				return nil
			}
			return c.fail("read", err)
		}
		if batch[len(batch)-1] != tracers.Prompt {
			// trailing output at the end of the stream
			out, err := tracers.ParseOutput(batch)
			if err != nil {
				return c.fail("parse", err)
			}
			c.output = append(c.output, out...)
			continue
		}

		pause, err := tracers.ParsePause(batch)
		if err != nil {
			return c.fail("parse", err)
		}
		cmd, err := c.Observe(pause)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return c.fail("deadline", err)
		}
		if _, err := io.WriteString(conn, cmd+"\n"); err != nil {
			return c.fail("write", err)
		}
	}
}

func (c *Controller) fail(op string, err error) error {
	c.state = StateError
	return &TransportError{Op: op, Err: err}
}
