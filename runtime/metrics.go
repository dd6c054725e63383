// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/vechain/cvm/metrics"
)

var (
	metricExecutionCount    = metrics.LazyLoadCounterVec("execution_count", []string{"status"})
	metricExecutionDuration = metrics.LazyLoadHistogramVec("execution_duration_ms", []string{"metering"}, metrics.BucketDuration)
	metricStartupDuration   = metrics.LazyLoadHistogram("worker_startup_duration_ms", metrics.BucketDuration)
	metricWorkerKills       = metrics.LazyLoadCounter("worker_kill_count")
	metricGasUsed           = metrics.LazyLoadHistogram("execution_gas_used", metrics.BucketGas)
	metricLines             = metrics.LazyLoadHistogram("execution_lines", metrics.BucketGas)
	metricActiveWorkers     = metrics.LazyLoadGauge("active_workers")
)
