// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dlpnet/dlpnet/cache"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/kv"
	"github.com/dlpnet/dlpnet/stackedmap"
)

const (
	// AccountBucket is the kv bucket of accounts.
	AccountBucket = kv.Bucket("a")
	// StorageBucket is the kv bucket of storage slots.
	StorageBucket = kv.Bucket("s")
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Log is an event emitted by a builtin contract.
type Log struct {
	Address dlp.Address
	Topics  []dlp.Bytes32
	Data    []byte
}

// State manages balances, storage and logs.
type State struct {
	store    kv.Store
	accounts kv.Store
	storage  kv.Store
	cache    *committed             // shared by states of one stater
	sm       *stackedmap.StackedMap // keeps revisions of state
}

// New create state object. c is optional.
func New(store kv.Store, c *cache.LRU) *State {
	return newState(store, newCommitted(c))
}

func newState(store kv.Store, c *committed) *State {
	state := State{
		store:    store,
		accounts: AccountBucket.NewStore(store),
		storage:  StorageBucket.NewStore(store),
		cache:    c,
	}

	state.sm = stackedmap.New(func(key any) (any, bool, error) {
		return state.cacheGetter(key)
	})
	return &state
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case dlp.Address: // get account
		v, err := s.load(accountCacheKey(k), "account", func() (any, error) {
			return loadAccount(s.accounts, k)
		})
		if err != nil {
			return nil, false, err
		}
		acc := *v.(*Account)
		return &acc, true, nil
	case storageKey: // get storage
		v, err := s.load(k.cacheKey(), "storage", func() (any, error) {
			data, err := s.storage.Get(k.bytes())
			if err != nil {
				if s.storage.IsNotFound(err) {
					return rlp.RawValue(nil), nil
				}
				return nil, err
			}
			return rlp.RawValue(data), nil
		})
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	case logsKey:
		return []*Log(nil), true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

func (s *State) load(key string, typ string, loader func() (any, error)) (any, error) {
	if s.cache == nil {
		metricStateAccess().AddWithLabel(1, map[string]string{"type": typ, "target": "store"})
		return loader()
	}
	v, cached, err := s.cache.load(key, loader)
	if err != nil {
		return nil, err
	}
	target := "store"
	if cached {
		target = "cache"
	}
	metricStateAccess().AddWithLabel(1, map[string]string{"type": typ, "target": target})
	return v, nil
}

// getAccount gets account by address. the returned account should not be modified.
func (s *State) getAccount(addr dlp.Address) (*Account, error) {
	v, _, err := s.sm.Get(addr)
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

func (s *State) updateAccount(addr dlp.Address, acc *Account) {
	s.sm.Put(addr, acc)
}

// GetBalance returns balance for the given address.
func (s *State) GetBalance(addr dlp.Address) (*big.Int, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return new(big.Int).Set(acc.Balance), nil
}

// SetBalance set balance for the given address.
func (s *State) SetBalance(addr dlp.Address, balance *big.Int) error {
	if balance.Sign() < 0 {
		return &Error{fmt.Errorf("negative balance for %v", addr)}
	}
	if _, err := s.getAccount(addr); err != nil {
		return &Error{err}
	}
	s.updateAccount(addr, &Account{Balance: new(big.Int).Set(balance)})
	return nil
}

// Exists returns whether an account exists at the given address.
func (s *State) Exists(addr dlp.Address) (bool, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return false, &Error{err}
	}
	return !acc.IsEmpty(), nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr dlp.Address, key dlp.Bytes32) (dlp.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return dlp.Bytes32{}, err
	}
	if len(raw) == 0 {
		return dlp.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return dlp.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return dlp.Blake2b(raw), nil
	}
	return dlp.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr dlp.Address, key, value dlp.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr dlp.Address, key dlp.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr dlp.Address, key dlp.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr dlp.Address, key dlp.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr dlp.Address, key dlp.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// AddLog appends an event log. Logs are reverted together with the checkpoint they were added in.
func (s *State) AddLog(log *Log) {
	logs := s.Logs()
	s.sm.Put(logsKey{}, append(logs[:len(logs):len(logs)], log))
}

// Logs returns logs added since the state was created.
func (s *State) Logs() []*Log {
	v, _, _ := s.sm.Get(logsKey{})
	return v.([]*Log)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Stage makes a stage object to commit all changes.
func (s *State) Stage() *Stage {
	var (
		accounts = make(map[dlp.Address]*Account)
		storage  = make(map[storageKey]rlp.RawValue)
	)

	// traverse journal to build changes, later entries win
	s.sm.Journal(func(k, v any) bool {
		switch key := k.(type) {
		case dlp.Address:
			accounts[key] = v.(*Account)
		case storageKey:
			storage[key] = v.(rlp.RawValue)
		}
		return true
	})

	return &Stage{
		accounts: accounts,
		storage:  storage,
		dst:      s.store,
		cache:    s.cache,
	}
}

type (
	storageKey struct {
		addr dlp.Address
		key  dlp.Bytes32
	}
	logsKey struct{}
)

func (k storageKey) bytes() []byte {
	return append(append(make([]byte, 0, len(k.addr)+len(k.key)), k.addr[:]...), k.key[:]...)
}

func (k storageKey) cacheKey() string {
	return "s" + string(k.bytes())
}

func accountCacheKey(addr dlp.Address) string {
	return "a" + string(addr[:])
}
