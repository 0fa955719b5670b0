// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connecting

	conn, err := db.Open(ctx, db.TypePostgres, "postgres://...")
	conn, err := db.Open(ctx, db.TypeSQLite, "file:polls.db")

PostgreSQL uses lib/pq; SQLite uses modernc.org/sqlite with foreign keys
enabled and a single connection.

# Schema Creation

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - polls: title, description, owner, created_at
  - poll_options: option text and position per poll
  - votes: one row per voter per poll

# Relationships

	polls 1──* poll_options
	polls 1──* votes
	poll_options 1──* votes

All foreign keys use ON DELETE CASCADE.

# Indexes

  - polls.created_by
  - poll_options.poll_id
  - votes.option_id
  - votes.(poll_id, user_id) (unique)
*/
package db
