// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/dlpnet/dlpnet/builtin"
	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/state"
)

// formatAmount renders an 18-decimal fixed point value without trailing zeros.
func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	q, r := new(big.Int).QuoRem(v, dlp.Unit(), new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := fmt.Sprintf("%0*s", dlp.Decimals, new(big.Int).Abs(r).String())
	return q.String() + "." + strings.TrimRight(frac, "0")
}

// inspectRegistries prints every initialized registry with its last epochs.
func inspectRegistries(w io.Writer, st *state.State, lastEpochs uint64) error {
	for _, kind := range []registry.Kind{registry.KindValidator, registry.KindPool} {
		reg := builtin.Registry(kind).WithState(st)
		ok, err := reg.IsInitialized()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := inspectRegistry(w, reg, lastEpochs); err != nil {
			return err
		}
	}
	return nil
}

func inspectRegistry(w io.Writer, reg *registry.Registry, lastEpochs uint64) error {
	cfg, err := reg.Config()
	if err != nil {
		return err
	}
	owner, err := reg.Owner()
	if err != nil {
		return err
	}
	pool, err := reg.RewardPool()
	if err != nil {
		return err
	}
	paused, err := reg.Paused()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, `%v registry %v
    Owner        [ %v ]
    Paused       [ %v ]
    Epochs       [ size %v, reward %v, min stake %v ]
    Reward pool  [ %v ]
`,
		reg.Kind(), reg.Address(),
		owner,
		paused,
		cfg.EpochSize, formatAmount(cfg.EpochRewardAmount), formatAmount(cfg.MinStake),
		formatAmount(pool))

	count, err := reg.ParticipantsCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  participants (%d)\n", count)
	for i := range count {
		id, err := reg.ParticipantAt(i)
		if err != nil {
			return err
		}
		p, err := reg.Participant(id)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		fmt.Fprintf(w, "    %v %-12v stake %v score %v %v\n", id, p.Status, formatAmount(p.StakeAmount), formatAmount(p.Score), p.Name)
	}

	total, err := reg.EpochsCount()
	if err != nil {
		return err
	}
	first := uint64(1)
	if lastEpochs > 0 && total > lastEpochs {
		first = total - lastEpochs + 1
	}
	fmt.Fprintf(w, "  epochs (%d)\n", total)
	for id := first; id <= total; id++ {
		e, err := reg.Epoch(id)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("    #%d [%d, %d] snapshot %d reward %v", e.ID, e.StartBlock, e.EndBlock, e.SnapshotID, formatAmount(e.RewardAmount))
		if e.Finalized {
			rewards, err := reg.EpochReward(id)
			if err != nil {
				return err
			}
			if rewards == nil {
				fmt.Fprintln(w, line+" finalized")
				continue
			}
			line += fmt.Sprintf(" paid %v/%v to %d", formatAmount(rewards.Paid()), formatAmount(rewards.Total()), len(rewards.Participants))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
