// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/pollbase/actions"
	"github.com/danielhkuo/pollbase/middleware"
	"github.com/danielhkuo/pollbase/models"
)

const healthTimeout = 2 * time.Second

// Pinger is anything the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	database Pinger
	cache    Pinger
}

func NewSystemHandler(database, cache Pinger) *SystemHandler {
	return &SystemHandler{database: database, cache: cache}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := models.HealthResponse{Status: "ok", Database: "ok", Cache: "ok"}
	status := http.StatusOK

	if err := h.database.Ping(ctx); err != nil {
		slog.Error("health check: database unreachable", "error", err)
		resp.Status, resp.Database = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := h.cache.Ping(ctx); err != nil {
		slog.Error("health check: cache unreachable", "error", err)
		resp.Status, resp.Cache = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}

	middleware.JSONResponse(w, status, resp)
}

// Me handles GET /me
func (h *SystemHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := actions.RequireAuthenticated(r.Context())
	if err != nil {
		writeFailure(w, r, err, "")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MeResponse{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
	})
}
