// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path of a yaml runtime configuration",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "serve prometheus metrics on this address, e.g. localhost:2112",
	}
	outputFlag = cli.StringFlag{
		Name:  "output, o",
		Usage: "file to write the contract binary to",
	}
	funcFlag = cli.StringFlag{
		Name:  "func",
		Usage: "pack only this function instead of the whole module",
	}
	rawFlag = cli.BoolFlag{
		Name:  "raw",
		Usage: "dump the decoded structures instead of listing instructions",
	}
	gasLimitFlag = cli.Uint64Flag{
		Name:  "gas-limit",
		Usage: "gas ceiling of the invocation, overrides the configuration",
	}
	lineGasFlag = cli.Uint64Flag{
		Name:  "line-gas",
		Usage: "gas charged per executed line, overrides the configuration",
	}
	meteringFlag = cli.StringFlag{
		Name:  "metering",
		Usage: "metering mode (trace|opcode), overrides the configuration",
	}
	manualFlag = cli.BoolFlag{
		Name:  "manual",
		Usage: "choose every trace command from the terminal",
	}
	storageFlag = cli.StringFlag{
		Name:  "storage",
		Usage: "json object holding the initial storage",
	}
	addressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "contract address",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: "cvm-data",
		Usage: "directory of the contract ledger database",
	}
	lockedFlag = cli.BoolFlag{
		Name:  "locked",
		Usage: "forbid later binary updates",
	}
	recordsFlag = cli.Uint64Flag{
		Name:  "records",
		Usage: "replay only the first n records of the history",
	}
	beforeFlag = cli.StringFlag{
		Name:  "before",
		Usage: "replay up to the record concluded by this tx id",
	}
)
