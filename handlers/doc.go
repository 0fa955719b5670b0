// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the pollbase API.

# Handler Types

  - PollHandler: Create, update, delete, cleanup, get, and list polls
  - VotingHandler: Cast votes
  - SystemHandler: Health checks and the current identity

Poll and voting handlers wrap an actions.Service:

	service := actions.NewService(store.New(db), cache, cfg)
	pollHandler := handlers.NewPollHandler(service, cfg)

# Request Bodies

Mutations accept JSON or HTML form posts. Forms use the fields title,
description, one option field per option, and optionId.

# Responses

Mutations return the action envelope:

	{"success": false, "message": "...", "code": "VALIDATION", "errors": {"title": ["..."]}}

The status comes from the error code: VALIDATION 400, AUTH_REQUIRED 401,
PERMISSION_DENIED 403, NOT_FOUND 404, everything else 500. An
unauthenticated form post is redirected to the configured login URL instead.
*/
package handlers
