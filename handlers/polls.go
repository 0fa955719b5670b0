// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/pollbase/actions"
	"github.com/danielhkuo/pollbase/cliparse"
	"github.com/danielhkuo/pollbase/middleware"
	"github.com/danielhkuo/pollbase/models"
)

type PollHandler struct {
	service *actions.Service
	cfg     cliparse.Config
}

func NewPollHandler(service *actions.Service, cfg cliparse.Config) *PollHandler {
	return &PollHandler{service: service, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	req, err := decodePollRequest(r)
	if err != nil {
		badBody(w)
		return
	}

	resp := h.service.CreatePoll(r.Context(), req)
	writeAction(w, r, resp, http.StatusCreated, h.cfg.LoginURL)
}

// UpdatePoll handles PUT /polls/{id}
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	req, err := decodePollRequest(r)
	if err != nil {
		badBody(w)
		return
	}

	resp := h.service.UpdatePoll(r.Context(), r.PathValue("id"), req)
	writeAction(w, r, resp, http.StatusOK, h.cfg.LoginURL)
}

// DeletePoll handles DELETE /polls/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	resp := h.service.DeletePoll(r.Context(), r.PathValue("id"))
	writeAction(w, r, resp, http.StatusOK, h.cfg.LoginURL)
}

// CleanupDuplicates handles POST /polls/{id}/cleanup
func (h *PollHandler) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	resp := h.service.CleanupDuplicates(r.Context(), r.PathValue("id"))
	writeAction(w, r, resp, http.StatusOK, h.cfg.LoginURL)
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, r, err, h.cfg.LoginURL)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// ListPolls handles GET /polls?view=dashboard|browse
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	view, polls, err := h.service.ListPolls(r.Context(), r.URL.Query().Get("view"))
	if err != nil {
		writeFailure(w, r, err, h.cfg.LoginURL)
		return
	}
	if polls == nil {
		polls = []models.PollResults{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.PollListResponse{View: view, Polls: polls})
}
