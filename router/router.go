// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/pollbase/actions"
	"github.com/danielhkuo/pollbase/cache"
	"github.com/danielhkuo/pollbase/cliparse"
	"github.com/danielhkuo/pollbase/handlers"
	"github.com/danielhkuo/pollbase/middleware"
	"github.com/danielhkuo/pollbase/store"
)

// NewRouter wires every endpoint. The returned handler authenticates each
// request, recovers panics and applies CORS.
func NewRouter(st *store.SQLStore, c cache.Cache, cfg cliparse.Config) http.Handler {
	if c == nil {
		c = cache.Nop{}
	}
	mux := http.NewServeMux()

	// Initialize handlers
	service := actions.NewService(st, c, cfg)
	pollHandler := handlers.NewPollHandler(service, cfg)
	votingHandler := handlers.NewVotingHandler(service, cfg)
	systemHandler := handlers.NewSystemHandler(st, c)

	// Health check
	mux.HandleFunc("GET /health", systemHandler.Health)

	// Identity
	mux.HandleFunc("GET /me", middleware.WithLogging(systemHandler.Me))

	// Poll management (owner operations)
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("PUT /polls/{id}", middleware.WithLogging(pollHandler.UpdatePoll))
	mux.HandleFunc("DELETE /polls/{id}", middleware.WithLogging(pollHandler.DeletePoll))
	mux.HandleFunc("POST /polls/{id}/cleanup", middleware.WithLogging(pollHandler.CleanupDuplicates))

	// Voting (any signed-in user)
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(votingHandler.CastVote))

	// Results (public, user_vote when signed in)
	mux.HandleFunc("GET /polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pollbase API v1"))
	})

	var handler http.Handler = mux
	handler = middleware.Authenticate(cfg, handler)
	handler = middleware.Recover(handler)
	handler = middleware.CORS(cfg.CORSOrigin, handler)
	return handler
}
