// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-tty"
	"github.com/vechain/cvm/tracers"
)

// ttyOperator lets the user pick trace commands at every pause.
type ttyOperator struct {
	tty *tty.TTY
	out io.Writer
}

func newTTYOperator() (*ttyOperator, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	return &ttyOperator{tty: t, out: t.Output()}, nil
}

func (o *ttyOperator) Close() error { return o.tty.Close() }

func (o *ttyOperator) Command(p *tracers.Pause, suggested string) (string, error) {
	for _, line := range p.Output {
		fmt.Fprintln(o.out, line)
	}
	fmt.Fprintln(o.out, p.Location())
	fmt.Fprintln(o.out, "-> "+p.Text)
	for {
		fmt.Fprintf(o.out, "%s[%s] ", tracers.Prompt, suggested)
		line, err := o.tty.ReadString()
		if err != nil {
			return "", err
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" || tracers.ValidCommand(cmd) {
			return cmd, nil
		}
		fmt.Fprintf(o.out, "*** unknown command: %s\n", cmd)
	}
}
