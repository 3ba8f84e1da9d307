// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/dlpnet/dlpnet/cache"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/kv"
)

// Stage abstracts changes accumulated by a state.
type Stage struct {
	accounts map[dlp.Address]*Account
	storage  map[storageKey]rlp.RawValue

	dst   kv.Store
	cache *committed
}

// Len returns the count of changed entries.
func (s *Stage) Len() int {
	return len(s.accounts) + len(s.storage)
}

// Hash computes a digest over all changes, independent of write order.
func (s *Stage) Hash() dlp.Bytes32 {
	keys := make([][]byte, 0, s.Len())
	vals := make(map[string][]byte, s.Len())
	for addr, acc := range s.accounts {
		k := append([]byte("a"), addr[:]...)
		keys = append(keys, k)
		vals[string(k)] = acc.Balance.Bytes()
	}
	for sk, v := range s.storage {
		k := append([]byte("s"), sk.bytes()...)
		keys = append(keys, k)
		vals[string(k)] = v
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	hasher := dlp.NewBlake2b()
	for _, k := range keys {
		hasher.Write(k)
		hasher.Write(vals[string(k)])
	}
	var h dlp.Bytes32
	hasher.Sum(h[:0])
	return h
}

// Commit writes all changes into the underlying store in one batch.
// The writes of extras, such as bookkeeping kept next to the state, join the same batch.
func (s *Stage) Commit(extras ...func(kv.Putter) error) error {
	bulk := s.dst.Bulk()
	if err := s.put(bulk); err != nil {
		return &Error{err}
	}
	for _, extra := range extras {
		if err := extra(bulk); err != nil {
			return &Error{err}
		}
	}
	if s.cache == nil {
		if err := bulk.Write(); err != nil {
			return &Error{err}
		}
		return nil
	}
	if err := s.cache.update(bulk.Write, s.fill); err != nil {
		return &Error{err}
	}
	return nil
}

func (s *Stage) put(bulk kv.Putter) error {
	accounts := AccountBucket.NewPutter(bulk)
	for addr, acc := range s.accounts {
		if err := saveAccount(accounts, addr, acc); err != nil {
			return err
		}
	}
	storage := StorageBucket.NewPutter(bulk)
	for k, v := range s.storage {
		var err error
		if len(v) == 0 {
			err = storage.Delete(k.bytes())
		} else {
			err = storage.Put(k.bytes(), v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage) fill(lru *cache.LRU) {
	for addr, acc := range s.accounts {
		lru.Add(accountCacheKey(addr), acc)
	}
	for k, v := range s.storage {
		lru.Add(k.cacheKey(), v)
	}
}
