// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/pollbase/actions"
	"github.com/danielhkuo/pollbase/cliparse"
)

type VotingHandler struct {
	service *actions.Service
	cfg     cliparse.Config
}

func NewVotingHandler(service *actions.Service, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{service: service, cfg: cfg}
}

// CastVote handles POST /polls/{id}/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeVoteRequest(r)
	if err != nil {
		badBody(w)
		return
	}

	resp := h.service.CastVote(r.Context(), r.PathValue("id"), req.OptionID)
	writeAction(w, r, resp, http.StatusCreated, h.cfg.LoginURL)
}
