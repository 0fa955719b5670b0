// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - PollRequest: title, description, options[{id?, text}]
  - CastVoteRequest: optionId

# Response Types

  - ActionResponse: the envelope for every mutation
    (success, message, pollId, code, errors)
  - PollListResponse: view, polls
  - MeResponse: user_id, email, role
  - HealthResponse: status, database, cache

# Domain Types

Persisted rows:

  - Poll: title, optional description, owner, created_at
  - PollOption: option text and its position within the poll
  - Vote: one voter's choice of one option

Derived at read time:

  - OptionResult: option plus vote_count
  - PollResults: poll, option results, total_votes, user_vote

# Constants

Field limits:

	TitleMinLen, TitleMaxLen = 5, 200
	DescriptionMaxLen        = 1000
	OptionMinLen, OptionMaxLen = 1, 100
	MinOptions, MaxOptions   = 2, 10

List views:

	ViewDashboard = "dashboard"
	ViewBrowse    = "browse"
*/
package models
