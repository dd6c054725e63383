// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package worker runs one contract invocation in a child process.
//
// The parent re-executes its own binary with thor.WorkerEnvKey set. The
// request is written to the child's stdin and status messages come back rlp
// framed on an extra pipe (fd 3). The step-trace protocol runs on a loopback
// TCP connection whose port is the first status message.
package worker

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/cvm/log"
	"github.com/vechain/cvm/thor"
)

var logger = log.WithContext("pkg", "worker")

// SpawnConfig configures how the child is started.
type SpawnConfig struct {
	Path   string   // binary to execute, defaults to the running executable
	Args   []string // arguments passed to the binary
	Env    []string // extra environment
	Stderr io.Writer
}

// Process is a running worker.
type Process struct {
	id   string
	cmd  *exec.Cmd
	msgs chan *Message

	status *os.File
	exited chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
	killOnce  sync.Once

	readErr error
	waitErr error
}

// Spawn starts a worker for req.
func Spawn(ctx context.Context, cfg SpawnConfig, req *Request) (*Process, error) {
	data, err := rlp.EncodeToBytes(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	path := cfg.Path
	if path == "" {
		if path, err = os.Executable(); err != nil {
			return nil, errors.Wrap(err, "locate executable")
		}
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "status pipe")
	}

	cmd := exec.CommandContext(ctx, path, cfg.Args...)
	cmd.Env = append(append(os.Environ(), thor.WorkerEnvKey+"=1"), cfg.Env...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = cfg.Stderr
	cmd.ExtraFiles = []*os.File{pw}
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, errors.Wrap(err, "start worker")
	}
	// the child holds the write end now
	pw.Close()

	p := &Process{
		id:     req.ID,
		cmd:    cmd,
		msgs:   make(chan *Message, 4),
		status: pr,
		exited: make(chan struct{}),
		closed: make(chan struct{}),
	}
	go p.readLoop()
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	logger.Debug("worker spawned", "id", req.ID, "pid", cmd.Process.Pid)
	return p, nil
}

func (p *Process) readLoop() {
	defer close(p.msgs)
	s := rlp.NewStream(p.status, 0)
	for {
		var msg Message
		if err := s.Decode(&msg); err != nil {
			if err != io.EOF {
				p.readErr = err
			}
			return
		}
		select {
		case p.msgs <- &msg:
		case <-p.closed:
			return
		}
	}
}

// Messages returns the status channel. It is closed when the child closes
// its end of the pipe or the process is closed.
func (p *Process) Messages() <-chan *Message { return p.msgs }

// Pid returns the process id of the child.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Exited is closed once the child has exited.
func (p *Process) Exited() <-chan struct{} { return p.exited }

// ReadErr returns the error that ended the status stream. It is only
// meaningful once Messages is closed.
func (p *Process) ReadErr() error { return p.readErr }

// Kill terminates the child. It may be called any number of times.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		select {
		case <-p.exited:
		default:
			if err := p.cmd.Process.Kill(); err != nil {
				logger.Trace("kill worker", "id", p.id, "err", err)
			}
		}
	})
}

// Close kills the child, releases the status pipe and reaps the process.
// Failures are logged and otherwise ignored.
func (p *Process) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.Kill()
		if err := p.status.Close(); err != nil {
			logger.Trace("close status pipe", "id", p.id, "err", err)
		}
		<-p.exited
		logger.Debug("worker closed", "id", p.id, "err", p.waitErr)
	})
}
