// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the pollbase API server.

pollbase lets signed-in users create single-choice polls, vote once per poll,
and view live results. Owners can edit, delete, and de-duplicate their polls.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:pollbase.db JWT_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -redis redis://localhost:6379/0

A .env file in the working directory is loaded when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - JWT_SECRET (-jwt-secret): HMAC secret of the identity provider's access tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - REDIS_URL (-redis): Enables the results cache
  - LOG_LEVEL, LOG_FORMAT: slog level and text/json output

# Architecture

Requests flow through the layers below:

  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, authentication, panic recovery, logging, JSON helpers
  - handlers: HTTP decoding and status mapping
  - actions: Authorization, validation, and the error taxonomy
  - validation: Poll input sanitizing and field errors
  - store: SQL access and vote tallying
  - cache: Redis results cache
  - auth: Access token verification
  - db: Connection and schema
  - models: Request, response and domain types
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
