// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"fmt"
	"strings"
)

// Error kinds.
const (
	KindTypeError     = "TypeError"
	KindNameError     = "NameError"
	KindAttrError     = "AttributeError"
	KindKeyError      = "KeyError"
	KindIndexError    = "IndexError"
	KindZeroDivision  = "ZeroDivisionError"
	KindOverflowError = "OverflowError"
	KindValueError    = "ValueError"
	KindRecursion     = "RecursionError"
	KindOutOfGas      = "OutOfGasError"
	KindContractError = "ContractError"
	KindRuntimeError  = "RuntimeError"
)

// TraceEntry is one line of a traceback.
type TraceEntry struct {
	File string
	Line int
	Func string
	Text string
}

// Error is a failure raised while running contract code.
type Error struct {
	Kind  string
	Msg   string
	Trace []TraceEntry // innermost last
}

func newError(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Errorf creates an error of the given kind. Natives use it to fail with a
// specific kind.
func Errorf(kind, format string, args ...any) error {
	return newError(kind, format, args...)
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Msg
}

// Traceback renders the error with its call stack.
func (e *Error) Traceback() string {
	var sb strings.Builder
	if len(e.Trace) > 0 {
		sb.WriteString("Traceback (most recent call last):\n")
		for _, t := range e.Trace {
			fmt.Fprintf(&sb, "  File \"%s\", line %d, in %s\n", t.File, t.Line, t.Func)
			if t.Text != "" {
				sb.WriteString("    ")
				sb.WriteString(t.Text)
				sb.WriteByte('\n')
			}
		}
	}
	sb.WriteString(e.Error())
	return sb.String()
}

// IsKind reports whether err is a contract error of kind.
func IsKind(err error, kind string) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
