// Copyright (c) 2025 The VeChainThor developers
// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/log"
)

var logger = log.WithContext("pkg", "solidity")

// ConfigVariable is a default parameter value which a non-zero storage slot of the same name can override.
type ConfigVariable struct {
	slot        dlp.Bytes32
	name        string
	value       *big.Int
	initialised bool
}

func NewConfigVariable(name string, defaultValue *big.Int) *ConfigVariable {
	return &ConfigVariable{
		slot:  dlp.BytesToBytes32([]byte(name)),
		name:  name,
		value: new(big.Int).Set(defaultValue),
	}
}

// Get returns a copy of the current value.
func (c *ConfigVariable) Get() *big.Int {
	return new(big.Int).Set(c.value)
}

func (c *ConfigVariable) Name() string {
	return c.name
}

func (c *ConfigVariable) Slot() dlp.Bytes32 {
	return c.slot
}

// Override reads the override slot once from the contract storage.
func (c *ConfigVariable) Override(ctx *Context) {
	if c.initialised { // early return to prevent subsequent reads
		return
	}
	storage, err := ctx.state.GetStorage(ctx.address, c.slot)
	if err != nil {
		logger.Warn("failed to read config value", "slot", c.Name(), "error", err)
		return
	}
	c.initialised = true

	if num := new(big.Int).SetBytes(storage.Bytes()); num.Sign() != 0 {
		c.value = num
		logger.Debug("debug override found new config value", "slot", c.Name(), "value", c.value)
	} else {
		logger.Debug("using default config value", "slot", c.Name(), "value", c.value)
	}
}
