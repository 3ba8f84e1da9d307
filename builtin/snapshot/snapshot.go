// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package snapshot keeps a versioned history of a membership list.
// Each published version is an immutable full copy addressed by a monotonically increasing id.
package snapshot

import (
	"encoding/binary"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin/reverts"
	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/cache"
	"github.com/dlpnet/dlpnet/dlp"
)

// ID identifies a published list. Zero means no list was ever published.
type ID uint64

// Bytes implements solidity.Key.
func (id ID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// ErrUnknownSnapshot is returned for ids that were never issued.
var ErrUnknownSnapshot = errors.New("unknown snapshot")

var (
	slotLatest = dlp.BytesToBytes32([]byte("snapshot-latest"))
	slotHashes = dlp.BytesToBytes32([]byte("snapshot-hashes"))
	slotLists  = dlp.BytesToBytes32([]byte("snapshot-lists"))
)

// decoded lists by content hash, shared by all instances
var listCache, _ = cache.NewLRU(1024)

// Snapshots is the versioned list store of one contract.
type Snapshots struct {
	latest *solidity.Uint256
	hashes *solidity.Mapping[ID, dlp.Bytes32]
	lists  *solidity.Mapping[dlp.Bytes32, []dlp.Address]
}

func New(ctx *solidity.Context) *Snapshots {
	return &Snapshots{
		latest: solidity.NewUint256(ctx, slotLatest),
		hashes: solidity.NewMapping[ID, dlp.Bytes32](ctx, slotHashes),
		lists:  solidity.NewMapping[dlp.Bytes32, []dlp.Address](ctx, slotLists),
	}
}

// Latest returns the id of the most recently published list.
func (s *Snapshots) Latest() (ID, error) {
	latest, err := s.latest.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest snapshot")
	}
	return ID(latest.Uint64()), nil
}

// Get returns a copy of the list published as id. Id 0 is the empty list.
func (s *Snapshots) Get(id ID) ([]dlp.Address, error) {
	if id == 0 {
		return nil, nil
	}
	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}
	if id > latest {
		return nil, errors.Wrapf(ErrUnknownSnapshot, "id %d, latest %d", id, latest)
	}
	hash, err := s.hashes.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get snapshot hash")
	}
	list, err := listCache.GetOrLoad(hash, func(any) (any, error) {
		return s.lists.Get(hash)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get snapshot list")
	}
	return slices.Clone(list.([]dlp.Address)), nil
}

// Publish stores list as a new version and returns its id.
func (s *Snapshots) Publish(list []dlp.Address) (ID, error) {
	latest, err := s.Latest()
	if err != nil {
		return 0, err
	}
	data, err := rlp.EncodeToBytes(list)
	if err != nil {
		return 0, errors.Wrap(err, "encode snapshot")
	}
	hash := dlp.Blake2b(data)

	// identical content is stored once
	existing, err := s.lists.Get(hash)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get snapshot list")
	}
	if existing == nil && len(list) > 0 {
		if err := s.lists.Set(hash, slices.Clone(list)); err != nil {
			return 0, errors.Wrap(err, "failed to set snapshot list")
		}
	}

	id := latest + 1
	if err := s.hashes.Set(id, hash); err != nil {
		return 0, errors.Wrap(err, "failed to set snapshot hash")
	}
	s.latest.Set(new(big.Int).SetUint64(uint64(id)))
	return id, nil
}

// Append publishes the latest list with addr appended.
func (s *Snapshots) Append(addr dlp.Address) (ID, error) {
	list, err := s.latestList()
	if err != nil {
		return 0, err
	}
	if slices.Contains(list, addr) {
		return 0, reverts.Newf(reverts.InvalidParam, "%v already listed", addr)
	}
	return s.Publish(append(list, addr))
}

// Remove publishes the latest list without addr, keeping the order of the others.
func (s *Snapshots) Remove(addr dlp.Address) (ID, error) {
	list, err := s.latestList()
	if err != nil {
		return 0, err
	}
	i := slices.Index(list, addr)
	if i < 0 {
		return 0, reverts.Newf(reverts.InvalidParam, "%v not listed", addr)
	}
	return s.Publish(slices.Delete(list, i, i+1))
}

func (s *Snapshots) latestList() ([]dlp.Address, error) {
	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return s.Get(latest)
}
