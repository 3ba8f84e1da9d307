// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/xenv"
)

var (
	EventParticipantRegistered          = xenv.NewEvent("ParticipantRegistered(address,address,uint256)")
	EventParticipantApproved            = xenv.NewEvent("ParticipantApproved(address)")
	EventParticipantInactivated         = xenv.NewEvent("ParticipantInactivated(address)")
	EventParticipantDeregistered        = xenv.NewEvent("ParticipantDeregistered(address)")
	EventParticipantDeregisteredByOwner = xenv.NewEvent("ParticipantDeregisteredByOwner(address,uint256,uint256)")
	EventWeightsUpdated                 = xenv.NewEvent("WeightsUpdated(address)")
	EventScoresUpdated                  = xenv.NewEvent("ScoresUpdated(uint256)")
	EventEpochCreated                   = xenv.NewEvent("EpochCreated(uint256)")
	EventEpochFinalized                 = xenv.NewEvent("EpochFinalized(uint256,uint256,uint256)")
	EventRewardPoolAdded                = xenv.NewEvent("RewardPoolAdded(address,uint256)")
	EventEpochRewardClaimed             = xenv.NewEvent("EpochRewardClaimed(address,uint256,uint256)")
	EventGrantedWithdrawn               = xenv.NewEvent("GrantedWithdrawn(address,uint256)")
	EventConfigUpdated                  = xenv.NewEvent("ConfigUpdated(string,uint256)")
	EventOwnershipTransferred           = xenv.NewEvent("OwnershipTransferred(address,address)")
	EventPaused                         = xenv.NewEvent("Paused(address)")
	EventUnpaused                       = xenv.NewEvent("Unpaused(address)")
)

func addressTopic(addr dlp.Address) dlp.Bytes32 {
	return dlp.BytesToBytes32(addr.Bytes())
}
