// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/vechain/cvm/thor"
)

// InvariantError is raised when contract storage would hold a nil value or
// keys of more than one type.
type InvariantError struct {
	Addr thor.Address
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("storage invariant violated (%v): %s", e.Addr, e.Msg)
}

func invariantErrorf(addr thor.Address, format string, args ...any) error {
	return &InvariantError{Addr: addr, Msg: fmt.Sprintf(format, args...)}
}
