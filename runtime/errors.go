// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/pkg/errors"
)

// ErrGasExceeded is recorded when the accumulated gas passes the limit.
var ErrGasExceeded = errors.New("gas limit exceeded")

// StartupError is returned by Execute when the worker did not announce its
// port or module in time, or sent an unexpected message.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return "worker startup (" + e.Stage + "): " + e.Err.Error()
}

func (e *StartupError) Unwrap() error { return e.Err }

// TransportError is a failure of the trace channel: a malformed batch, a
// reset connection or a timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExecutionError is the failure reported by the worker. Text is the
// traceback of the contract error.
type ExecutionError struct {
	Text string
}

func (e *ExecutionError) Error() string { return e.Text }
