// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrWrongKind is returned when a binary does not hold the expected kind.
var ErrWrongKind = errors.New("wrong kind")

// Error is a serialization failure of a contract binary.
type Error struct {
	Op  string // "pack", "unpack" or "inspect"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s contract: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(op, format string, args ...any) error {
	return &Error{Op: op, Err: errors.Errorf(format, args...)}
}

func wrap(op string, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: errors.WithMessage(err, msg)}
}
