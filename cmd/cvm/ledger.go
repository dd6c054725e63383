// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/ledger"
	"github.com/vechain/cvm/lvldb"
	"github.com/vechain/cvm/packer"
	"github.com/vechain/cvm/runtime"
	"github.com/vechain/cvm/thor"
	"github.com/vechain/cvm/tx"
	cli "gopkg.in/urfave/cli.v1"
)

func openLedger(ctx *cli.Context, readOnly bool) (*ledger.Ledger, func(), error) {
	dir := ctx.String(dataDirFlag.Name)
	db, err := lvldb.New(dir, lvldb.Options{ReadOnly: readOnly, Sync: !readOnly})
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.New(db, 0)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Debug("ledger opened", "dir", dir)
	return l, func() { db.Close() }, nil
}

func nonce() uint64 { return uint64(time.Now().UnixNano()) }

func ledgerDeployAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected a contract")
	}
	bin, err := loadBinary(ctx.Args().First(), "")
	if err != nil {
		return err
	}
	addr, err := parseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	entries, err := loadStorage(ctx.String(storageFlag.Name))
	if err != nil {
		return err
	}
	l, closer, err := openLedger(ctx, false)
	if err != nil {
		return err
	}
	defer closer()

	msg := &tx.DeployMessage{
		Address:  addr,
		Binary:   bin,
		Storage:  entries,
		Settings: tx.Settings{UpdateBinary: !ctx.Bool(lockedFlag.Name)},
	}
	data, err := tx.RLPCodec{}.EncodeDeploy(msg)
	if err != nil {
		return err
	}
	trx := tx.New(tx.TypeDeploy, data, 0, nonce())
	if err := l.Deploy(trx.ID(), msg); err != nil {
		return err
	}
	fmt.Printf("deployed %v in tx %v\n", addr, trx.ID())
	return nil
}

func ledgerUpdateAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected a contract")
	}
	bin, err := loadBinary(ctx.Args().First(), "")
	if err != nil {
		return err
	}
	addr, err := parseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	l, closer, err := openLedger(ctx, false)
	if err != nil {
		return err
	}
	defer closer()

	msg := &tx.UpdateMessage{
		Address:  addr,
		Binary:   bin,
		Settings: tx.Settings{UpdateBinary: !ctx.Bool(lockedFlag.Name)},
	}
	data, err := tx.RLPCodec{}.EncodeUpdate(msg)
	if err != nil {
		return err
	}
	trx := tx.New(tx.TypeUpdate, data, 0, nonce())
	if err := l.Update(trx.ID(), msg); err != nil {
		return err
	}
	fmt.Printf("updated %v in tx %v\n", addr, trx.ID())
	return nil
}

func ledgerCallAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("expected a method")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	addr, err := parseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	l, closer, err := openLedger(ctx, false)
	if err != nil {
		return err
	}
	defer closer()

	data, err := tx.RLPCodec{}.EncodeStart(&tx.StartMessage{
		Address: addr,
		Method:  ctx.Args().First(),
		Args:    parseArgs(ctx.Args()[1:]),
	})
	if err != nil {
		return err
	}
	start := tx.New(tx.TypeStart, data, cfg.GasLimit, nonce())
	req, err := runtime.NewRequest(start, tx.RLPCodec{}, l)
	if err != nil {
		return err
	}

	rt, rtCloser, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rtCloser()

	baseline := req.Storage.Copy()
	res, err := rt.Execute(handleExitSignal(), req)
	if err != nil {
		return err
	}
	if err := printResult(res, baseline); err != nil {
		return err
	}
	if !res.OK {
		return nil
	}
	conclude, err := runtime.Conclude(l, req, res)
	if err != nil {
		return err
	}
	fmt.Printf("concluded start tx %v in tx %v\n", start.ID(), conclude.ID())
	return nil
}

func ledgerShowAction(ctx *cli.Context) error {
	addr, err := parseAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	l, closer, err := openLedger(ctx, true)
	if err != nil {
		return err
	}
	defer closer()

	c, err := l.Contract(addr)
	if err != nil {
		return err
	}
	if !c.Deployed() {
		return errors.Wrapf(ledger.ErrNotDeployed, "contract %v", addr)
	}
	h, err := packer.Inspect(c.Binary)
	if err != nil {
		return err
	}
	fmt.Printf("address:   %v\n", c.Address)
	fmt.Printf("records:   %d\n", c.Index+1)
	fmt.Printf("contract:  %s %s, hash %v\n", h.Kind, h.Module, h.Hash)
	fmt.Printf("updatable: %v\n", c.Settings.UpdateBinary)
	fmt.Printf("last:      start %v finish %v\n", c.StartHash, c.FinishHash)

	storage := c.Storage
	if ctx.IsSet(recordsFlag.Name) || ctx.IsSet(beforeFlag.Name) {
		var before thor.Bytes32
		if s := ctx.String(beforeFlag.Name); s != "" {
			if before, err = thor.ParseBytes32(s); err != nil {
				return err
			}
		}
		if storage, err = l.ReadContractStorage(addr, ctx.Uint64(recordsFlag.Name), before); err != nil {
			return err
		}
	}
	fmt.Printf("storage:   %d entries, version %d\n", storage.Len(), storage.Version())
	for _, line := range storageLines(storage) {
		fmt.Print("  " + line)
	}
	return nil
}
