// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/pkg/errors"
	"github.com/vechain/cvm/state"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
)

// Contract is the materialized state of a contract after replaying its
// history.
type Contract struct {
	Address    thor.Address
	Index      int64 // -1 before deploy
	Binary     []byte
	Settings   tx.Settings
	Storage    *state.Storage
	StartHash  thor.Bytes32
	FinishHash thor.Bytes32
}

func newContract(addr thor.Address) *Contract {
	return &Contract{Address: addr, Index: -1}
}

// Deployed reports whether the contract has been deployed.
func (c *Contract) Deployed() bool { return c.Index >= 0 }

// Copy returns a deep copy of c.
func (c *Contract) Copy() *Contract {
	cpy := *c
	cpy.Binary = append([]byte(nil), c.Binary...)
	if c.Storage != nil {
		cpy.Storage = c.Storage.Copy()
	}
	return &cpy
}

// apply applies r in place.
func (c *Contract) apply(r *Record) error {
	switch r.Kind {
	case RecordInit:
		if c.Deployed() {
			return errors.Wrapf(ErrDeployed, "contract %v", c.Address)
		}
		entries, err := state.DecodeEntries(r.Storage)
		if err != nil {
			return err
		}
		storage, err := state.New(c.Address, entries)
		if err != nil {
			return err
		}
		c.Binary = r.Binary
		c.Settings = r.Settings
		c.Storage = storage
	case RecordUpdate:
		if !c.Deployed() {
			return errors.Wrapf(ErrNotDeployed, "contract %v", c.Address)
		}
		if !c.Settings.UpdateBinary {
			return errors.Wrapf(ErrUpdateLocked, "contract %v", c.Address)
		}
		c.Binary = r.Binary
		// an update that does not allow further updates locks the binary
		if !r.Settings.UpdateBinary {
			c.Settings.UpdateBinary = false
		}
	case RecordConclude:
		if !c.Deployed() {
			return errors.Wrapf(ErrNotDeployed, "contract %v", c.Address)
		}
		diff, err := state.DecodeDiff(r.Storage)
		if err != nil {
			return err
		}
		if err := c.Storage.MergeDiff(diff); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown record kind %d", r.Kind)
	}
	c.Index++
	c.StartHash = r.StartHash
	c.FinishHash = r.FinishHash
	return nil
}
