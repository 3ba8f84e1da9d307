// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/xenv"
)

func validateConfig(cfg *Config) error {
	switch {
	case cfg.EpochSize == 0:
		return reverts.New(reverts.InvalidParam, "zero epoch size")
	case cfg.EpochRewardAmount.Sign() < 0:
		return reverts.New(reverts.InvalidParam, "negative epoch reward")
	case cfg.MinStake.Sign() < 0:
		return reverts.New(reverts.InvalidParam, "negative min stake")
	case cfg.Rho.Sign() <= 0:
		return reverts.New(reverts.InvalidParam, "rho must be positive")
	case cfg.Kappa.Sign() < 0 || cfg.Kappa.Cmp(dlp.Unit()) > 0:
		return reverts.New(reverts.InvalidParam, "kappa must be within [0, 1]")
	case cfg.MinTrust.Sign() < 0 || cfg.MinTrust.Cmp(dlp.Unit()) > 0:
		return reverts.New(reverts.InvalidParam, "min trust must be within [0, 1]")
	}
	return nil
}

// updateConfig applies an owner change to the config. Pending epochs are created
// with the old values first, so a change only applies from the next epoch on.
func (r *Registry) updateConfig(env *xenv.Environment, name string, value *big.Int, apply func(cfg *Config)) error {
	err := r.exec(env, call{op: "updateConfig", ownerOnly: true}, func(uint64) error {
		cfg, err := r.storage.GetConfig()
		if err != nil {
			return err
		}
		apply(cfg)
		if err := validateConfig(cfg); err != nil {
			return err
		}
		r.storage.SetConfig(cfg)
		return env.Log(EventConfigUpdated, r.addr, nil, name, value)
	})
	if err != nil {
		logger.Info("update config failed", "kind", r.kind, "name", name, "error", err)
		return err
	}
	logger.Info("updated config", "kind", r.kind, "name", name, "value", value)
	return nil
}

func (r *Registry) UpdateEpochSize(env *xenv.Environment, size uint64) error {
	return r.updateConfig(env, "epochSize", new(big.Int).SetUint64(size), func(cfg *Config) {
		cfg.EpochSize = size
	})
}

func (r *Registry) UpdateEpochRewardAmount(env *xenv.Environment, amount *big.Int) error {
	if amount == nil {
		return reverts.New(reverts.InvalidParam, "nil amount")
	}
	return r.updateConfig(env, "epochRewardAmount", amount, func(cfg *Config) {
		cfg.EpochRewardAmount = new(big.Int).Set(amount)
	})
}

func (r *Registry) UpdateMinStake(env *xenv.Environment, amount *big.Int) error {
	if amount == nil {
		return reverts.New(reverts.InvalidParam, "nil amount")
	}
	return r.updateConfig(env, "minStake", amount, func(cfg *Config) {
		cfg.MinStake = new(big.Int).Set(amount)
	})
}

func (r *Registry) UpdateMaxParticipants(env *xenv.Environment, limit uint64) error {
	return r.updateConfig(env, "maxParticipants", new(big.Int).SetUint64(limit), func(cfg *Config) {
		cfg.MaxParticipants = limit
	})
}

// UpdateConsensusParams sets rho, kappa and minTrust, all 1e18 fixed point.
func (r *Registry) UpdateConsensusParams(env *xenv.Environment, rho, kappa, minTrust *big.Int) error {
	if rho == nil || kappa == nil || minTrust == nil {
		return reverts.New(reverts.InvalidParam, "nil consensus param")
	}
	return r.updateConfig(env, "consensus", rho, func(cfg *Config) {
		cfg.Rho = new(big.Int).Set(rho)
		cfg.Kappa = new(big.Int).Set(kappa)
		cfg.MinTrust = new(big.Int).Set(minTrust)
	})
}

func (r *Registry) TransferOwnership(env *xenv.Environment, newOwner dlp.Address) error {
	return r.exec(env, call{op: "transferOwnership", ignorePause: true, noMaterialize: true}, func(uint64) error {
		prev, err := r.access.Owner()
		if err != nil {
			return err
		}
		if err := r.access.TransferOwnership(env.Caller(), newOwner); err != nil {
			return err
		}
		logger.Info("ownership transferred", "kind", r.kind, "from", prev, "to", newOwner)
		return env.Log(EventOwnershipTransferred, r.addr, []dlp.Bytes32{addressTopic(prev), addressTopic(newOwner)})
	})
}

// Pause blocks every state change but ownership management.
func (r *Registry) Pause(env *xenv.Environment) error {
	return r.exec(env, call{op: "pause"}, func(uint64) error {
		if err := r.access.Pause(env.Caller()); err != nil {
			return err
		}
		logger.Info("paused", "kind", r.kind)
		return env.Log(EventPaused, r.addr, nil, env.Caller())
	})
}

func (r *Registry) Unpause(env *xenv.Environment) error {
	return r.exec(env, call{op: "unpause", ignorePause: true, noMaterialize: true}, func(uint64) error {
		if err := r.access.Unpause(env.Caller()); err != nil {
			return err
		}
		logger.Info("unpaused", "kind", r.kind)
		return env.Log(EventUnpaused, r.addr, nil, env.Caller())
	})
}
