// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the pollbase API.

# Route Registration

	handler := router.NewRouter(store.New(db), cache, cfg)

# Endpoints

	GET    /health             - Database and cache status
	GET    /me                 - Current identity
	POST   /polls              - Create poll
	GET    /polls              - List polls (?view=dashboard|browse)
	GET    /polls/{id}         - Poll with results
	PUT    /polls/{id}         - Replace title, description, options
	DELETE /polls/{id}         - Delete poll
	POST   /polls/{id}/votes   - Cast vote
	POST   /polls/{id}/cleanup - Remove duplicate options
*/
package router
