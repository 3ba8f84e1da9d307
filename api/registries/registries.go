// Copyright (c) 2025 The DLPNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registries serves read-only views of the participant registries.
package registries

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/dlpnet/dlpnet/api/utils"
	"github.com/dlpnet/dlpnet/builtin"
	"github.com/dlpnet/dlpnet/builtin/epoch"
	"github.com/dlpnet/dlpnet/builtin/registry"
	"github.com/dlpnet/dlpnet/dlp"
	"github.com/dlpnet/dlpnet/state"
)

const defaultPageLimit = 100

type Registries struct {
	stater   *state.Stater
	maxLimit uint64
}

// New creates the handlers. maxLimit bounds the page size of participant listings.
func New(stater *state.Stater, maxLimit uint64) *Registries {
	if maxLimit == 0 {
		maxLimit = 1000
	}
	return &Registries{stater, maxLimit}
}

func parseKind(s string) (registry.Kind, error) {
	switch s {
	case registry.KindValidator.String():
		return registry.KindValidator, nil
	case registry.KindPool.String():
		return registry.KindPool, nil
	}
	return 0, errors.Errorf("unknown registry kind %q", s)
}

// registry binds the registry named in the request to a fresh view of committed state.
func (r *Registries) registry(req *http.Request) (*registry.Registry, error) {
	kind, err := parseKind(mux.Vars(req)["kind"])
	if err != nil {
		return nil, utils.NotFound(err)
	}
	return builtin.Registry(kind).WithState(r.stater.NewState()), nil
}

func parseEpochID(req *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	return id, nil
}

func parseIdentity(req *http.Request) (dlp.Address, error) {
	addr, err := dlp.ParseAddress(mux.Vars(req)["identity"])
	if err != nil {
		return dlp.Address{}, utils.BadRequest(errors.WithMessage(err, "identity"))
	}
	return addr, nil
}

func (r *Registries) getEpoch(reg *registry.Registry, id uint64) (*Epoch, error) {
	e, err := reg.Epoch(id)
	if err != nil {
		if errors.Is(err, epoch.ErrUnknownEpoch) {
			return nil, utils.NotFound(err)
		}
		return nil, err
	}
	members, err := reg.Snapshot(e.SnapshotID)
	if err != nil {
		return nil, err
	}
	return convertEpoch(e, members), nil
}

func (r *Registries) handleGetSummary(w http.ResponseWriter, req *http.Request) error {
	reg, err := r.registry(req)
	if err != nil {
		return err
	}
	summary := &Summary{Kind: reg.Kind().String(), Address: reg.Address()}
	if summary.Owner, err = reg.Owner(); err != nil {
		return err
	}
	if summary.Paused, err = reg.Paused(); err != nil {
		return err
	}
	if summary.ParticipantsCount, err = reg.ParticipantsCount(); err != nil {
		return err
	}
	if summary.Active, err = reg.ActiveParticipants(); err != nil {
		return err
	}
	if summary.Active == nil {
		summary.Active = []dlp.Address{}
	}
	if summary.EpochsCount, err = reg.EpochsCount(); err != nil {
		return err
	}
	if summary.EpochsCount > 0 {
		if summary.CurrentEpoch, err = r.getEpoch(reg, summary.EpochsCount); err != nil {
			return err
		}
		cfg, err := reg.Config()
		if err != nil {
			return err
		}
		summary.Config = convertConfig(cfg)
	}
	pool, err := reg.RewardPool()
	if err != nil {
		return err
	}
	summary.RewardPool = hex256(pool)
	reclaimable, err := reg.ReclaimableGranted()
	if err != nil {
		return err
	}
	summary.Reclaimable = hex256(reclaimable)
	return utils.WriteJSON(w, summary)
}

func (r *Registries) handleGetParticipants(w http.ResponseWriter, req *http.Request) error {
	reg, err := r.registry(req)
	if err != nil {
		return err
	}
	query := req.URL.Query()
	offset, err := utils.ParseUint(query.Get("offset"), 0)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "offset"))
	}
	limit, err := utils.ParseUint(query.Get("limit"), min(defaultPageLimit, r.maxLimit))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "limit"))
	}
	if limit == 0 || limit > r.maxLimit {
		return utils.BadRequest(errors.Errorf("limit: must be within [1, %d]", r.maxLimit))
	}
	status := query.Get("status")

	count, err := reg.ParticipantsCount()
	if err != nil {
		return err
	}
	list := make([]*Participant, 0)
	for i := offset; i < count && uint64(len(list)) < limit; i++ {
		id, err := reg.ParticipantAt(i)
		if err != nil {
			return err
		}
		p, err := reg.Participant(id)
		if err != nil {
			return err
		}
		if p == nil || (status != "" && p.Status.String() != status) {
			continue
		}
		list = append(list, convertParticipant(p, nil))
	}
	return utils.WriteJSON(w, list)
}

func (r *Registries) handleGetParticipant(w http.ResponseWriter, req *http.Request) error {
	reg, err := r.registry(req)
	if err != nil {
		return err
	}
	identity, err := parseIdentity(req)
	if err != nil {
		return err
	}
	p, err := reg.Participant(identity)
	if err != nil {
		return err
	}
	if p == nil {
		return utils.NotFound(errors.Errorf("participant %v not registered", identity))
	}
	row, err := reg.WeightRow(identity)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertParticipant(p, row))
}

func (r *Registries) handleGetEpoch(w http.ResponseWriter, req *http.Request) error {
	reg, err := r.registry(req)
	if err != nil {
		return err
	}
	id, err := parseEpochID(req)
	if err != nil {
		return err
	}
	e, err := r.getEpoch(reg, id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, e)
}

func (r *Registries) handleGetEpochReward(w http.ResponseWriter, req *http.Request) error {
	reg, err := r.registry(req)
	if err != nil {
		return err
	}
	id, err := parseEpochID(req)
	if err != nil {
		return err
	}
	rec, err := reg.EpochReward(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return utils.NotFound(errors.Errorf("epoch %d not finalized", id))
	}
	return utils.WriteJSON(w, convertEpochReward(id, rec))
}

func (r *Registries) handleGetUnclaimed(w http.ResponseWriter, req *http.Request) error {
	reg, err := r.registry(req)
	if err != nil {
		return err
	}
	id, err := parseEpochID(req)
	if err != nil {
		return err
	}
	identity, err := parseIdentity(req)
	if err != nil {
		return err
	}
	amount, err := reg.Unclaimed(id, identity)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Unclaimed{EpochID: id, Participant: identity, Amount: hex256(amount)})
}

func (r *Registries) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{kind}").Methods(http.MethodGet).Name("registries_get_summary").HandlerFunc(utils.WrapHandlerFunc(r.handleGetSummary))
	sub.Path("/{kind}/participants").Methods(http.MethodGet).Name("registries_get_participants").HandlerFunc(utils.WrapHandlerFunc(r.handleGetParticipants))
	sub.Path("/{kind}/participants/{identity}").Methods(http.MethodGet).Name("registries_get_participant").HandlerFunc(utils.WrapHandlerFunc(r.handleGetParticipant))
	sub.Path("/{kind}/epochs/{id}").Methods(http.MethodGet).Name("registries_get_epoch").HandlerFunc(utils.WrapHandlerFunc(r.handleGetEpoch))
	sub.Path("/{kind}/epochs/{id}/reward").Methods(http.MethodGet).Name("registries_get_epoch_reward").HandlerFunc(utils.WrapHandlerFunc(r.handleGetEpochReward))
	sub.Path("/{kind}/epochs/{id}/unclaimed/{identity}").Methods(http.MethodGet).Name("registries_get_unclaimed").HandlerFunc(utils.WrapHandlerFunc(r.handleGetUnclaimed))
}
