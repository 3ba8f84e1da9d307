// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"sync"

	"github.com/dlpnet/dlpnet/cache"
)

// committed caches committed values for the states of one stater.
// A store read and its cache fill happen under the read lock, a commit writes the
// store and refreshes the cache under the write lock. A value read before a commit
// can therefore never land in the cache after it.
type committed struct {
	lock sync.RWMutex
	lru  *cache.LRU
}

func newCommitted(lru *cache.LRU) *committed {
	if lru == nil {
		return nil
	}
	return &committed{lru: lru}
}

// load returns the cached value of key, or the one loaded by loader.
func (c *committed) load(key string, loader func() (any, error)) (v any, cached bool, err error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	cached = true
	v, err = c.lru.GetOrLoad(key, func(any) (any, error) {
		cached = false
		return loader()
	})
	return
}

// update runs write and refreshes the cache with fill once write succeeded.
func (c *committed) update(write func() error, fill func(lru *cache.LRU)) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := write(); err != nil {
		return err
	}
	fill(c.lru)
	return nil
}
