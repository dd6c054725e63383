// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/vechain/cvm/worker"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	// the binary doubles as the isolation worker
	if worker.IsChild() {
		os.Exit(worker.Main())
	}

	app := cli.App{
		Version:   fullVersion(),
		Name:      "cvm",
		Usage:     "Sandboxed contract compiler and execution engine",
		Copyright: "2018 VeChain Foundation <https://vechain.org/>",
		Flags:     []cli.Flag{verbosityFlag, jsonLogsFlag},
		Before: func(ctx *cli.Context) error {
			initLogger(ctx)
			return nil
		},
		Commands: []cli.Command{
			{
				Name:      "compile",
				Usage:     "compile a contract source into a binary",
				ArgsUsage: "<source.cvm>",
				Flags:     []cli.Flag{outputFlag, funcFlag},
				Action:    compileAction,
			},
			{
				Name:      "disasm",
				Usage:     "list the instructions of a contract",
				ArgsUsage: "<source.cvm|binary>",
				Flags:     []cli.Flag{rawFlag},
				Action:    disasmAction,
			},
			{
				Name:      "run",
				Usage:     "invoke a contract method in an isolated worker",
				ArgsUsage: "<source.cvm|binary> <method> [args...]",
				Flags: []cli.Flag{
					configFlag, gasLimitFlag, lineGasFlag, meteringFlag, manualFlag,
					storageFlag, addressFlag, metricsAddrFlag,
				},
				Action: runAction,
			},
			{
				Name:      "batch",
				Usage:     "run the invocations listed in a yaml file concurrently",
				ArgsUsage: "<source.cvm|binary> <invocations.yaml>",
				Flags:     []cli.Flag{configFlag, gasLimitFlag, lineGasFlag, meteringFlag, storageFlag, addressFlag, metricsAddrFlag},
				Action:    batchAction,
			},
			{
				Name:  "ledger",
				Usage: "manage a local contract ledger",
				Subcommands: []cli.Command{
					{
						Name:      "deploy",
						Usage:     "deploy a contract",
						ArgsUsage: "<source.cvm|binary>",
						Flags:     []cli.Flag{dataDirFlag, addressFlag, storageFlag, lockedFlag},
						Action:    ledgerDeployAction,
					},
					{
						Name:      "update",
						Usage:     "replace the binary of a contract",
						ArgsUsage: "<source.cvm|binary>",
						Flags:     []cli.Flag{dataDirFlag, addressFlag, lockedFlag},
						Action:    ledgerUpdateAction,
					},
					{
						Name:      "call",
						Usage:     "invoke a deployed contract and conclude its storage diff",
						ArgsUsage: "<method> [args...]",
						Flags:     []cli.Flag{dataDirFlag, addressFlag, configFlag, gasLimitFlag, lineGasFlag, meteringFlag, manualFlag},
						Action:    ledgerCallAction,
					},
					{
						Name:   "show",
						Usage:  "print the head state of a contract",
						Flags:  []cli.Flag{dataDirFlag, addressFlag, recordsFlag, beforeFlag},
						Action: ledgerShowAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
