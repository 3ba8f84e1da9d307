// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/builtin/solidity"
	"github.com/dlpnet/dlpnet/dlp"
)

var (
	slotParticipants      = nameToSlot("participants")
	slotParticipantIndex  = nameToSlot("participants-index")
	slotParticipantsCount = nameToSlot("participants-count")
	slotWeights           = nameToSlot("weights")
	slotStakers           = nameToSlot("stakers")
	slotReclaimable       = nameToSlot("reclaimable-granted")
	// config
	slotEpochSize       = nameToSlot("epoch-size")
	slotEpochReward     = nameToSlot("epoch-reward-amount")
	slotMinStake        = nameToSlot("min-stake")
	slotMaxParticipants = nameToSlot("max-participants")
	slotRho             = nameToSlot("consensus-rho")
	slotKappa           = nameToSlot("consensus-kappa")
	slotMinTrust        = nameToSlot("consensus-min-trust")
	slotStartBlock      = nameToSlot("start-block")
)

func nameToSlot(name string) dlp.Bytes32 {
	return dlp.BytesToBytes32([]byte(name))
}

type indexKey uint64

func (k indexKey) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// storage represents the root storage of a registry contract.
type storage struct {
	context      *solidity.Context
	participants *solidity.Mapping[dlp.Address, *Participant]
	index        *solidity.Mapping[indexKey, dlp.Address]
	count        *solidity.Uint256
	weights      *solidity.Mapping[dlp.Address, *WeightRow]
	stakers      *solidity.Mapping[dlp.Address, *big.Int]
	reclaimable  *solidity.Uint256

	epochSize       *solidity.Uint256
	epochReward     *solidity.Uint256
	minStake        *solidity.Uint256
	maxParticipants *solidity.Uint256
	rho             *solidity.Uint256
	kappa           *solidity.Uint256
	minTrust        *solidity.Uint256
	startBlock      *solidity.Uint256
}

func newStorage(context *solidity.Context) *storage {
	return &storage{
		context:      context,
		participants: solidity.NewMapping[dlp.Address, *Participant](context, slotParticipants),
		index:        solidity.NewMapping[indexKey, dlp.Address](context, slotParticipantIndex),
		count:        solidity.NewUint256(context, slotParticipantsCount),
		weights:      solidity.NewMapping[dlp.Address, *WeightRow](context, slotWeights),
		stakers:      solidity.NewMapping[dlp.Address, *big.Int](context, slotStakers),
		reclaimable:  solidity.NewUint256(context, slotReclaimable),

		epochSize:       solidity.NewUint256(context, slotEpochSize),
		epochReward:     solidity.NewUint256(context, slotEpochReward),
		minStake:        solidity.NewUint256(context, slotMinStake),
		maxParticipants: solidity.NewUint256(context, slotMaxParticipants),
		rho:             solidity.NewUint256(context, slotRho),
		kappa:           solidity.NewUint256(context, slotKappa),
		minTrust:        solidity.NewUint256(context, slotMinTrust),
		startBlock:      solidity.NewUint256(context, slotStartBlock),
	}
}

func (s *storage) GetParticipant(id dlp.Address) (*Participant, error) {
	p, err := s.participants.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get participant")
	}
	return p, nil
}

// GetExistingParticipant returns the participant or a status revert when it never registered.
func (s *storage) GetExistingParticipant(kind Kind, id dlp.Address, to Status) (*Participant, error) {
	p, err := s.GetParticipant(id)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return nil, kind.transitionErr(id, StatusNone, to)
	}
	return p, nil
}

func (s *storage) SetParticipant(p *Participant, isNew bool) error {
	if err := s.participants.Set(p.Identity, p); err != nil {
		return errors.Wrap(err, "failed to set participant")
	}
	if !isNew {
		return nil
	}
	count, err := s.count.Get()
	if err != nil {
		return errors.Wrap(err, "failed to get participants count")
	}
	if err := s.index.Set(indexKey(count.Uint64()), p.Identity); err != nil {
		return errors.Wrap(err, "failed to index participant")
	}
	return s.count.Add(big.NewInt(1))
}

func (s *storage) ParticipantsCount() (uint64, error) {
	count, err := s.count.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get participants count")
	}
	return count.Uint64(), nil
}

func (s *storage) ParticipantAt(i uint64) (dlp.Address, error) {
	id, err := s.index.Get(indexKey(i))
	if err != nil {
		return dlp.Address{}, errors.Wrap(err, "failed to get participant index")
	}
	return id, nil
}

func (s *storage) GetWeightRow(id dlp.Address) (*WeightRow, error) {
	row, err := s.weights.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get weights")
	}
	return row, nil
}

func (s *storage) SetWeightRow(id dlp.Address, row *WeightRow) error {
	return errors.Wrap(s.weights.Set(id, row), "failed to set weights")
}

func (s *storage) GetStakerTotal(owner dlp.Address) (*big.Int, error) {
	total, err := s.stakers.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get staker total")
	}
	if total == nil {
		return new(big.Int), nil
	}
	return total, nil
}

func (s *storage) AddStakerTotal(owner dlp.Address, delta *big.Int) error {
	total, err := s.GetStakerTotal(owner)
	if err != nil {
		return err
	}
	total.Add(total, delta)
	if total.Sign() < 0 {
		return errors.Errorf("staker total of %v would be negative", owner)
	}
	if total.Sign() == 0 {
		s.stakers.Delete(owner)
		return nil
	}
	return errors.Wrap(s.stakers.Set(owner, total), "failed to set staker total")
}

func (s *storage) GetConfig() (*Config, error) {
	var (
		cfg Config
		err error
	)
	get := func(u *solidity.Uint256) *big.Int {
		if err != nil {
			return nil
		}
		var v *big.Int
		v, err = u.Get()
		return v
	}
	startBlock := get(s.startBlock)
	epochSize := get(s.epochSize)
	cfg.EpochRewardAmount = get(s.epochReward)
	cfg.MinStake = get(s.minStake)
	maxParticipants := get(s.maxParticipants)
	cfg.Rho = get(s.rho)
	cfg.Kappa = get(s.kappa)
	cfg.MinTrust = get(s.minTrust)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config")
	}
	cfg.StartBlock = startBlock.Uint64()
	cfg.EpochSize = epochSize.Uint64()
	cfg.MaxParticipants = maxParticipants.Uint64()
	return &cfg, nil
}

func (s *storage) SetConfig(cfg *Config) {
	s.startBlock.Set(new(big.Int).SetUint64(cfg.StartBlock))
	s.epochSize.Set(new(big.Int).SetUint64(cfg.EpochSize))
	s.epochReward.Set(cfg.EpochRewardAmount)
	s.minStake.Set(cfg.MinStake)
	s.maxParticipants.Set(new(big.Int).SetUint64(cfg.MaxParticipants))
	s.rho.Set(cfg.Rho)
	s.kappa.Set(cfg.Kappa)
	s.minTrust.Set(cfg.MinTrust)
}
