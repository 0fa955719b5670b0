// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /polls", middleware.WithLogging(handler))

Logs completion with method, path, status, duration_ms and user_id.

# Authentication

Authenticate reads a bearer token or the access_token cookie and stores the
identity in the request context. Requests without a valid token continue
anonymously. The cookie only counts on safe methods or when the Origin is
the configured frontend or the API itself (see CookieAllowed).

# CORS and Recovery

Without a configured origin CORS answers "*" and never allows credentials.

	handler = middleware.Recover(handler)
	handler = middleware.CORS(cfg.CORSOrigin, handler)

# JSON and Form Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "VALIDATION", "Invalid request body")

ParseJSONBody and ParseFormBody cap request bodies at 64 KiB.

# Client IP Extraction

	ip := middleware.GetClientIP(r)
*/
package middleware
