// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import "time"

// Execution constants.
const (
	DefaultGasLimit uint64 = 100_000_000 // gas ceiling of a single invocation when none given.
	DefaultLineGas  uint64 = 1           // gas charged for each executed contract line.

	DefaultStartupTimeout = 10 * time.Second // max wait for the worker to announce its port and load the module.
	DefaultTraceTimeout   = 10 * time.Second // max wait for a single pause batch.
	DefaultDrainTimeout   = 2 * time.Second  // grace given to the status channel after end of stream.
	DefaultExecTimeout    = 60 * time.Second // max run time of an opcode metered invocation.

	MaxCallDepth = 128 // max nested contract calls.
)

// WorkerEnvKey is the environment variable marking a process as an isolation worker.
const WorkerEnvKey = "CVM_WORKER"
