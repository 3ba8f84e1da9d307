// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/dlpnet/dlpnet/builtin/epoch"
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/reward"
	"github.com/dlpnet/dlpnet/builtin/snapshot"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/xenv"
)

// report collects what a call did to epochs, published only once the call committed.
type report struct {
	created   int
	finalized []*reward.EpochReward
}

type call struct {
	op          string
	ownerOnly   bool
	ignorePause bool
	// materialize up to this block instead of the env block
	until *uint64
	// skip epoch materialization entirely
	noMaterialize bool
}

// exec runs proc as one atomic call. Pending epochs are materialized before proc sees the state.
func (r *Registry) exec(env *xenv.Environment, c call, proc func(block uint64) error) error {
	var rep report
	err := env.Call(func() error {
		if initialized, err := r.IsInitialized(); err != nil {
			return err
		} else if !initialized {
			return reverts.New(reverts.InvalidParam, "registry is not initialized")
		}
		if c.ownerOnly {
			if err := r.access.OnlyOwner(env.Caller()); err != nil {
				return err
			}
		}
		if !c.ignorePause {
			if err := r.access.WhenNotPaused(); err != nil {
				return err
			}
		}
		block := env.BlockContext().Number
		if !c.noMaterialize {
			until := block
			if c.until != nil {
				until = *c.until
			}
			var err error
			if rep, err = r.materialize(env, until); err != nil {
				return err
			}
		}
		return proc(block)
	})
	r.observe(c.op, rep, err)
	return err
}

func (r *Registry) observe(op string, rep report, err error) {
	kind := r.kind.String()
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metricOperations().AddWithLabel(1, map[string]string{"kind": kind, "op": op, "result": result})
	if err != nil {
		return
	}

	if rep.created > 0 {
		metricEpochsCreated().AddWithLabel(int64(rep.created), map[string]string{"kind": kind})
	}
	if len(rep.finalized) > 0 {
		metricEpochsFinalized().AddWithLabel(int64(len(rep.finalized)), map[string]string{"kind": kind})
		paid, unsent := 0, 0
		for _, rec := range rep.finalized {
			for i := range rec.Amounts {
				if rec.Amounts[i].Sign() == 0 {
					continue
				}
				if rec.Withdrawn[i].Sign() == 0 {
					unsent++
				} else {
					paid++
				}
			}
		}
		metricRewardPayments().AddWithLabel(int64(paid), map[string]string{"kind": kind, "result": "paid"})
		metricRewardPayments().AddWithLabel(int64(unsent), map[string]string{"kind": kind, "result": "unsent"})
	}
	if active, err := r.activeCount(); err == nil {
		metricActiveParticipants().SetWithLabel(int64(active), map[string]string{"kind": kind})
	}
	if pool, err := r.ledger.Pool(); err == nil {
		metricRewardPoolUnits().SetWithLabel(dlp.ToUnits(pool).Int64(), map[string]string{"kind": kind})
	}
}

func (r *Registry) epochParams() (epoch.Params, *Config, error) {
	cfg, err := r.storage.GetConfig()
	if err != nil {
		return epoch.Params{}, nil, err
	}
	latest, err := r.snapshots.Latest()
	if err != nil {
		return epoch.Params{}, nil, err
	}
	return newEpochParams(cfg, latest), cfg, nil
}

func newEpochParams(cfg *Config, latest snapshot.ID) epoch.Params {
	return epoch.Params{
		Size:       cfg.EpochSize,
		Reward:     cfg.EpochRewardAmount,
		SnapshotID: latest,
	}
}

// materialize creates every epoch that began at or before block and finalizes the closed ones.
func (r *Registry) materialize(env *xenv.Environment, block uint64) (report, error) {
	var rep report
	params, cfg, err := r.epochParams()
	if err != nil {
		return rep, err
	}
	before, err := r.clock.Count()
	if err != nil {
		return rep, err
	}

	created, err := r.clock.MaterializeUntil(block, params, func(e *epoch.Epoch) error {
		rec, err := r.finalize(env, cfg, e)
		if err != nil {
			return err
		}
		rep.finalized = append(rep.finalized, rec)
		return nil
	})
	if err != nil {
		return rep, err
	}
	rep.created = created

	for id := before + 1; id <= before+uint64(created); id++ {
		if err := env.Log(EventEpochCreated, r.addr, nil, new(big.Int).SetUint64(id)); err != nil {
			return rep, err
		}
	}
	if created > 0 {
		logger.Info("epochs created", "kind", r.kind, "count", created, "block", block, "current", before+uint64(created))
	}
	return rep, nil
}

// finalize scores the members of a closed epoch and pays them.
func (r *Registry) finalize(env *xenv.Environment, cfg *Config, e *epoch.Epoch) (*reward.EpochReward, error) {
	members, err := r.snapshots.Get(e.SnapshotID)
	if err != nil {
		return nil, err
	}
	shares, err := r.provider(cfg).Shares(members)
	if err != nil {
		return nil, err
	}

	if r.kind == KindValidator {
		for i, member := range members {
			p, err := r.storage.GetParticipant(member)
			if err != nil {
				return nil, err
			}
			if p.IsEmpty() {
				continue
			}
			p.Score = shares[i]
			if err := r.storage.SetParticipant(p, false); err != nil {
				return nil, err
			}
		}
	}

	rec, err := r.ledger.Finalize(e, members, shares, r.payee)
	if err != nil {
		return nil, err
	}
	if err := r.clock.MarkFinalized(e.ID); err != nil {
		return nil, err
	}
	if err := env.Log(EventEpochFinalized, r.addr, nil, new(big.Int).SetUint64(e.ID), rec.Total(), rec.Paid()); err != nil {
		return nil, err
	}

	logger.Debug("epoch finalized",
		"kind", r.kind,
		"id", e.ID,
		"members", len(members),
		"reward", dlp.ToUnits(rec.Total()),
		"paid", dlp.ToUnits(rec.Paid()),
	)
	return rec, nil
}
