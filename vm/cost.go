// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

// CostTable maps every opcode to its static gas cost.
type CostTable [256]uint64

// Gas costs of instruction groups.
const (
	GasQuick   uint64 = 1
	GasFastest uint64 = 2
	GasFast    uint64 = 3
	GasMid     uint64 = 5
	GasCall    uint64 = 10
)

// DefaultCostTable returns the cost table used by opcode metering.
func DefaultCostTable() *CostTable {
	var t CostTable
	for op := OpNop; op < opCount; op++ {
		t[op] = GasQuick
	}
	t[OpNop] = 0
	t[OpIndex] = GasFastest
	t[OpStoreIndex] = GasFastest
	t[OpLoadAttr] = GasFastest
	t[OpMul] = GasFastest
	t[OpDiv] = GasFast
	t[OpMod] = GasFast
	t[OpBuildList] = GasFast
	t[OpBuildMap] = GasFast
	t[OpIter] = GasFast
	t[OpClosure] = GasMid
	t[OpCall] = GasCall
	return &t
}
