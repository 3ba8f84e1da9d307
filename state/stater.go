// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/dlpnet/dlpnet/cache"
	"github.com/dlpnet/dlpnet/kv"
)

const defaultCacheSize = 16384

// Stater is the state creator. States created by one stater share a cache of committed values.
type Stater struct {
	store kv.Store
	cache *committed
}

// NewStater create a new stater.
func NewStater(store kv.Store) *Stater {
	c, _ := cache.NewLRU(defaultCacheSize)
	return &Stater{store, newCommitted(c)}
}

// NewState create a new state object over committed data.
func (s *Stater) NewState() *State {
	return newState(s.store, s.cache)
}

// CacheStats returns the hit and miss counts of the committed value cache.
// The first value reports whether the hit rate changed since the last call.
func (s *Stater) CacheStats() (bool, int64, int64) {
	return s.cache.lru.Stats()
}
