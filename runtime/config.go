// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/cvm/thor"
	"gopkg.in/yaml.v3"
)

// Metering selects how gas is accounted.
type Metering string

// Metering modes.
const (
	MeteringTrace  Metering = "trace"  // parent counts lines and priced calls from trace pauses
	MeteringOpcode Metering = "opcode" // worker charges the opcode cost table
)

// Config configures a Runtime.
type Config struct {
	GasLimit       uint64        `yaml:"gas_limit"` // 0 means unlimited
	LineGas        uint64        `yaml:"line_gas"`
	Metering       Metering      `yaml:"metering"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
	TraceTimeout   time.Duration `yaml:"trace_timeout"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
	ExecTimeout    time.Duration `yaml:"exec_timeout"` // opcode mode only
	MaxConcurrency int64         `yaml:"max_concurrency"`
	MaxDepth       int           `yaml:"max_depth"`
	Manual         bool          `yaml:"manual"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		GasLimit:       thor.DefaultGasLimit,
		LineGas:        thor.DefaultLineGas,
		Metering:       MeteringTrace,
		StartupTimeout: thor.DefaultStartupTimeout,
		TraceTimeout:   thor.DefaultTraceTimeout,
		DrainTimeout:   thor.DefaultDrainTimeout,
		ExecTimeout:    thor.DefaultExecTimeout,
		MaxConcurrency: 4,
		MaxDepth:       thor.MaxCallDepth,
	}
}

// LoadConfig reads a yaml file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Metering {
	case MeteringTrace, MeteringOpcode:
	default:
		return errors.Errorf("invalid metering mode %q", c.Metering)
	}
	if c.Manual && c.Metering != MeteringTrace {
		return errors.New("manual mode requires trace metering")
	}
	if c.StartupTimeout <= 0 || c.TraceTimeout <= 0 || c.DrainTimeout <= 0 || c.ExecTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.MaxConcurrency <= 0 {
		return errors.New("max_concurrency must be positive")
	}
	return nil
}
