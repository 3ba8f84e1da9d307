// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import "github.com/dlpnet/dlpnet/metrics"

var (
	metricOperations         = metrics.LazyLoadCounterVec("registry_operations_count", []string{"kind", "op", "result"})
	metricEpochsCreated      = metrics.LazyLoadCounterVec("registry_epochs_created_count", []string{"kind"})
	metricEpochsFinalized    = metrics.LazyLoadCounterVec("registry_epochs_finalized_count", []string{"kind"})
	metricRewardPayments     = metrics.LazyLoadCounterVec("registry_reward_payments_count", []string{"kind", "result"})
	metricActiveParticipants = metrics.LazyLoadGaugeVec("registry_active_participants", []string{"kind"})
	metricRewardPoolUnits    = metrics.LazyLoadGaugeVec("registry_reward_pool_units", []string{"kind"})
)
