// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/state"
)

// BlockContext block context.
type BlockContext struct {
	Number uint64
	Time   uint64
}

// Event describes an event emitted by a builtin contract.
type Event struct {
	name      string
	signature string
	id        dlp.Bytes32
}

var knownEvents sync.Map // dlp.Bytes32 -> *Event

// NewEvent creates an event from its signature, e.g. "Transfer(address,address,uint256)".
// Created events can be looked up by id through EventByID.
func NewEvent(signature string) *Event {
	name := signature
	if i := strings.IndexByte(signature, '('); i >= 0 {
		name = signature[:i]
	}
	ev := &Event{
		name:      name,
		signature: signature,
		id:        dlp.Keccak256([]byte(signature)),
	}
	knownEvents.Store(ev.id, ev)
	return ev
}

// EventByID returns the event whose id is the given topic.
func EventByID(id dlp.Bytes32) (*Event, bool) {
	ev, ok := knownEvents.Load(id)
	if !ok {
		return nil, false
	}
	return ev.(*Event), true
}

func (e *Event) Name() string      { return e.name }
func (e *Event) Signature() string { return e.signature }
func (e *Event) ID() dlp.Bytes32   { return e.id }

// Environment an env to execute builtin operations.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	caller   dlp.Address
	value    *big.Int
}

// New create a new env. value may be nil.
func New(
	state *state.State,
	blockCtx *BlockContext,
	caller dlp.Address,
	value *big.Int,
) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		caller:   caller,
		value:    value,
	}
}

func (env *Environment) State() *state.State         { return env.state }
func (env *Environment) BlockContext() *BlockContext { return env.blockCtx }
func (env *Environment) Caller() dlp.Address         { return env.caller }

// Value returns the native value attached to the call.
func (env *Environment) Value() *big.Int {
	if env.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(env.value)
}

// Log emits an event. The event id is prepended to topics and args are rlp encoded as data.
func (env *Environment) Log(event *Event, address dlp.Address, topics []dlp.Bytes32, args ...any) error {
	data, err := rlp.EncodeToBytes(args)
	if err != nil {
		return errors.WithMessagef(err, "encode event %v", event.Name())
	}
	allTopics := make([]dlp.Bytes32, 0, len(topics)+1)
	allTopics = append(append(allTopics, event.ID()), topics...)
	env.state.AddLog(&state.Log{
		Address: address,
		Topics:  allTopics,
		Data:    data,
	})
	return nil
}

// Call runs proc atomically: any state change made by proc is reverted when it returns an error.
func (env *Environment) Call(proc func() error) error {
	checkpoint := env.state.NewCheckpoint()
	if err := proc(); err != nil {
		env.state.RevertTo(checkpoint)
		return err
	}
	return nil
}
