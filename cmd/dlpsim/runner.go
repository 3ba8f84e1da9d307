// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"maps"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin"
	"github.com/dlpnet/dlpnet/builtin/bank"
	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/co"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/kv"
	"github.com/dlpnet/dlpnet/logdb"
	"github.com/dlpnet/dlpnet/state"
	"github.com/dlpnet/dlpnet/xenv"
)

var (
	metaBucket  = kv.Bucket("m")
	progressKey = []byte("progress")
)

type stepContext struct {
	step *Step
	env  *xenv.Environment
	bank *bank.Bank
	reg  *registry.Registry
}

type operation struct {
	registry bool
	apply    func(c *stepContext) error
}

var operations = map[string]operation{
	"mint": {false, func(c *stepContext) error {
		return c.bank.Mint(c.step.To, c.step.Amount.Big())
	}},
	"setRejecting": {false, func(c *stepContext) error {
		return c.bank.SetRejecting(c.step.To, c.step.Rejects != nil && *c.step.Rejects)
	}},
	"register": {true, func(c *stepContext) error {
		owner := c.step.Owner
		if owner.IsZero() {
			owner = c.env.Caller()
		}
		return c.reg.Register(c.env, c.step.Identity, owner, c.step.Amount.Big(), c.step.Name)
	}},
	"approve": {true, func(c *stepContext) error {
		return c.reg.Approve(c.env, c.step.Identity)
	}},
	"inactivate": {true, func(c *stepContext) error {
		return c.reg.Inactivate(c.env, c.step.Identity)
	}},
	"deregister": {true, func(c *stepContext) error {
		return c.reg.Deregister(c.env, c.step.Identity)
	}},
	"deregisterByOwner": {true, func(c *stepContext) error {
		refund := c.step.Amount.Big()
		if refund == nil {
			refund = new(big.Int)
		}
		return c.reg.DeregisterByOwner(c.env, c.step.Identity, refund)
	}},
	"updateWeights": {true, func(c *stepContext) error {
		return c.reg.UpdateWeights(c.env, c.step.Targets, amounts(c.step.Values))
	}},
	"updateScores": {true, func(c *stepContext) error {
		return c.reg.UpdateScores(c.env, c.step.Targets, amounts(c.step.Values))
	}},
	"createEpochs": {true, func(c *stepContext) error {
		if c.step.Until > 0 {
			return c.reg.CreateEpochsUntilBlockNumber(c.env, c.step.Until)
		}
		return c.reg.CreateEpochs(c.env)
	}},
	"addRewardPool": {true, func(c *stepContext) error {
		return c.reg.AddRewardPool(c.env)
	}},
	"claim": {true, func(c *stepContext) error {
		_, err := c.reg.ClaimUnsentReward(c.env, c.step.Identity, c.step.Epoch)
		return err
	}},
	"withdrawGranted": {true, func(c *stepContext) error {
		return c.reg.WithdrawGranted(c.env, c.step.Amount.Big())
	}},
	"updateEpochSize": {true, func(c *stepContext) error {
		return c.reg.UpdateEpochSize(c.env, c.step.Size)
	}},
	"updateEpochReward": {true, func(c *stepContext) error {
		return c.reg.UpdateEpochRewardAmount(c.env, c.step.Amount.Big())
	}},
	"updateMinStake": {true, func(c *stepContext) error {
		return c.reg.UpdateMinStake(c.env, c.step.Amount.Big())
	}},
	"transferOwnership": {true, func(c *stepContext) error {
		return c.reg.TransferOwnership(c.env, c.step.Owner)
	}},
	"pause": {true, func(c *stepContext) error {
		return c.reg.Pause(c.env)
	}},
	"unpause": {true, func(c *stepContext) error {
		return c.reg.Unpause(c.env)
	}},
}

func compareAddress(a, b dlp.Address) int {
	return bytes.Compare(a[:], b[:])
}

// Runner replays a scenario into persistent state and the event log.
// The stater must be the one readers use, so that its cache sees the commits.
type Runner struct {
	scenario *Scenario
	stater   *state.Stater
	meta     kv.Store
	logDB    *logdb.LogDB
	newLogs  *co.Signal

	done replayProgress
}

// replayProgress is kept in the state store and written in the same batch as the state it describes.
type replayProgress struct {
	Steps   uint64     // steps applied
	Journal logdb.Mark // end of the events journaled up to them
}

func newRunner(scenario *Scenario, stater *state.Stater, store kv.Store, logDB *logdb.LogDB, newLogs *co.Signal) *Runner {
	return &Runner{
		scenario: scenario,
		stater:   stater,
		meta:     metaBucket.NewStore(store),
		logDB:    logDB,
		newLogs:  newLogs,
	}
}

// loadProgress returns nil until genesis is applied.
func (r *Runner) loadProgress() (*replayProgress, error) {
	val, err := r.meta.Get(progressKey)
	if err != nil {
		if r.meta.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var p replayProgress
	if err := rlp.DecodeBytes(val, &p); err != nil {
		return nil, errors.Wrap(err, "decode progress")
	}
	return &p, nil
}

// commit journals the logs of st, then writes st together with the progress of steps applied.
// A crash in between leaves events past the recorded mark, which Run truncates on restart.
func (r *Runner) commit(st *state.State, block uint64, caller dlp.Address, steps uint64) error {
	logs := st.Logs()
	w := r.logDB.NewWriter()
	if err := w.Write(uint32(block), caller, logs); err != nil {
		_ = w.Rollback()
		return errors.Wrap(err, "write logs")
	}
	next := replayProgress{
		Steps:   steps,
		Journal: r.done.Journal.Advance(uint32(block), w.UncommittedCount()),
	}
	if err := w.Commit(); err != nil {
		return errors.Wrap(err, "commit logs")
	}

	stage := st.Stage()
	err := stage.Commit(func(p kv.Putter) error {
		val, err := rlp.EncodeToBytes(&next)
		if err != nil {
			return err
		}
		return metaBucket.NewPutter(p).Put(progressKey, val)
	})
	if err != nil {
		return errors.Wrap(err, "commit state")
	}
	r.done = next
	logger.Debug("committed", "steps", steps, "block", block, "changes", stage.Len(), "digest", stage.Hash(), "events", len(logs))

	if changed, hit, miss := r.stater.CacheStats(); changed {
		logger.Debug("state cache stats", "hit", hit, "miss", miss)
	}
	if len(logs) > 0 && r.newLogs != nil {
		r.newLogs.Broadcast()
	}
	return nil
}

// resume drops the events journaled past the recorded progress.
func (r *Runner) resume(p replayProgress) error {
	w := r.logDB.NewWriter()
	if err := w.Truncate(p.Journal); err != nil {
		_ = w.Rollback()
		return err
	}
	if err := w.Commit(); err != nil {
		return errors.Wrap(err, "commit truncation")
	}
	r.done = p
	return nil
}

func (r *Runner) genesis() error {
	st := r.stater.NewState()
	b := builtin.Bank.WithState(st)
	for _, addr := range slices.SortedFunc(maps.Keys(r.scenario.Accounts), compareAddress) {
		if err := b.Mint(addr, r.scenario.Accounts[addr].Big()); err != nil {
			return errors.Wrapf(err, "mint %v", addr)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(r.scenario.Registries)) {
		g := r.scenario.Registries[name]
		kind, err := parseKind(name)
		if err != nil {
			return err
		}
		env := xenv.New(st, &xenv.BlockContext{Number: g.StartBlock}, g.Owner, nil)
		if err := builtin.Registry(kind).WithState(st).Initialize(env, g.Owner, g.config()); err != nil {
			return errors.Wrapf(err, "initialize %v registry", name)
		}
		logger.Info("registry ready", "kind", kind, "owner", g.Owner, "start", g.StartBlock)
	}
	return r.commit(st, 0, dlp.Address{}, 0)
}

func (r *Runner) apply(i int, step *Step) error {
	st := r.stater.NewState()
	c := &stepContext{step: step, bank: builtin.Bank.WithState(st)}
	op := operations[step.Op]

	caller := step.Caller
	if op.registry {
		g := r.scenario.Registries[step.Registry]
		kind, err := parseKind(step.Registry)
		if err != nil {
			return err
		}
		c.reg = builtin.Registry(kind).WithState(st)
		if caller.IsZero() {
			caller = g.Owner
		}
	}
	c.env = xenv.New(st, &xenv.BlockContext{Number: step.Block}, caller, step.Amount.Big())

	err := op.apply(c)
	switch {
	case step.Expect == "" && err != nil:
		return errors.Wrapf(err, "step %d: %v", i, step.Op)
	case step.Expect != "" && err == nil:
		return errors.Errorf("step %d: %v succeeded, want %v", i, step.Op, step.Expect)
	case step.Expect != "" && !reverts.Is(err, reverts.Name(step.Expect)):
		return errors.Wrapf(err, "step %d: %v, want %v", i, step.Op, step.Expect)
	}
	if err != nil {
		logger.Debug("step reverted as expected", "step", i, "op", step.Op, "error", err)
	}
	return r.commit(st, step.Block, caller, uint64(i+1))
}

// Run applies genesis if needed and the steps not applied yet. A positive interval
// paces the steps, so subscribers see the events arrive over time.
func (r *Runner) Run(ctx context.Context, interval time.Duration) (int, error) {
	p, err := r.loadProgress()
	if err != nil {
		return 0, err
	}
	if p == nil {
		// the journal of a genesis that never landed goes too
		if err := r.resume(replayProgress{}); err != nil {
			return 0, err
		}
		if err := r.genesis(); err != nil {
			return 0, err
		}
	} else if err := r.resume(*p); err != nil {
		return 0, err
	}

	applied := 0
	for i := int(r.done.Steps); i < len(r.scenario.Steps); i++ {
		if interval > 0 && applied > 0 {
			select {
			case <-ctx.Done():
				return applied, ctx.Err()
			case <-time.After(interval):
			}
		}
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		step := r.scenario.Steps[i]
		if err := r.apply(i, step); err != nil {
			return applied, err
		}
		applied++
		logger.Debug("applied step", "step", i, "op", step.Op, "block", step.Block)
	}
	return applied, nil
}
