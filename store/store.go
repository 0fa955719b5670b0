// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/pollbase/models"
	"github.com/danielhkuo/pollbase/validation"
)

// ErrAlreadyVoted is returned when the voter already has a vote on the poll
var ErrAlreadyVoted = errors.New("already voted on this poll")

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the only component that talks to the database
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreatePollWithOptions inserts the poll and then its options. When the
// options fail the poll is deleted again; a failed cleanup is only logged.
func (s *SQLStore) CreatePollWithOptions(ctx context.Context, data models.PollData, ownerID string) (models.Poll, error) {
	poll := models.Poll{
		ID:          uuid.NewString(),
		Title:       data.Title,
		Description: data.Description,
		CreatedBy:   ownerID,
		CreatedAt:   s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO polls (id, title, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, poll.ID, poll.Title, nullString(poll.Description), poll.CreatedBy, poll.CreatedAt)
	if err != nil {
		return models.Poll{}, fmt.Errorf("insert poll: %w", err)
	}

	if err := insertOptions(ctx, s.db, poll.ID, data.Options); err != nil {
		if _, delErr := s.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, poll.ID); delErr != nil {
			slog.Error("failed to remove poll after option insert failure",
				"poll_id", poll.ID, "error", delErr, "cause", err)
		}
		return models.Poll{}, err
	}

	return poll, nil
}

// UpdatePollWithOptions replaces title, description and the whole option set.
// Option identities are not preserved; votes on replaced options cascade away.
func (s *SQLStore) UpdatePollWithOptions(ctx context.Context, pollID string, data models.PollData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE polls
		SET title = $1, description = $2
		WHERE id = $3
	`, data.Title, nullString(data.Description), pollID)
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, pollID); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}

	if err := insertOptions(ctx, tx, pollID, data.Options); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit poll update: %w", err)
	}
	return nil
}

// DeletePoll removes the poll; options and votes go with it via foreign keys
func (s *SQLStore) DeletePoll(ctx context.Context, pollID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, pollID); err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	return nil
}

// GetPollByID returns nil, nil when the poll does not exist
func (s *SQLStore) GetPollByID(ctx context.Context, pollID string) (*models.Poll, error) {
	var poll models.Poll
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, created_by, created_at
		FROM polls
		WHERE id = $1
	`, pollID).Scan(&poll.ID, &poll.Title, &description, &poll.CreatedBy, &poll.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query poll: %w", err)
	}

	poll.Description = stringPtr(description)
	return &poll, nil
}

// ListOptions returns the poll's options in insert order
func (s *SQLStore) ListOptions(ctx context.Context, pollID string) ([]models.PollOption, error) {
	return listOptions(ctx, s.db, pollID)
}

// GetPollWithResults returns the poll with per-option counts, or nil, nil
// when it does not exist. viewerID may be empty.
func (s *SQLStore) GetPollWithResults(ctx context.Context, pollID, viewerID string) (*models.PollResults, error) {
	poll, err := s.GetPollByID(ctx, pollID)
	if err != nil || poll == nil {
		return nil, err
	}

	options, err := listOptions(ctx, s.db, pollID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.option_id
		FROM votes v
		JOIN poll_options o ON o.id = v.option_id
		WHERE o.poll_id = $1
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	var voteOptionIDs []string
	for rows.Next() {
		var optionID string
		if err := rows.Scan(&optionID); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		voteOptionIDs = append(voteOptionIDs, optionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	rows.Close()

	results, total := Tally(options, voteOptionIDs)
	out := &models.PollResults{
		Poll:       *poll,
		Options:    results,
		TotalVotes: total,
	}

	if viewerID != "" {
		out.UserVote, err = s.GetUserVote(ctx, pollID, viewerID)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// GetUserVote returns the option the user voted for, or nil
func (s *SQLStore) GetUserVote(ctx context.Context, pollID, userID string) (*string, error) {
	var optionID string
	err := s.db.QueryRowContext(ctx, `
		SELECT option_id FROM votes WHERE poll_id = $1 AND user_id = $2
	`, pollID, userID).Scan(&optionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user vote: %w", err)
	}
	return &optionID, nil
}

// CastVote inserts a vote without checking for an earlier one; the unique
// index on (poll_id, user_id) reports repeats as ErrAlreadyVoted.
func (s *SQLStore) CastVote(ctx context.Context, pollID, optionID, voterID string) (models.Vote, error) {
	vote := models.Vote{
		ID:        uuid.NewString(),
		PollID:    pollID,
		OptionID:  optionID,
		UserID:    voterID,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (id, poll_id, option_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.PollID, vote.OptionID, vote.UserID, vote.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return models.Vote{}, ErrAlreadyVoted
		}
		return models.Vote{}, fmt.Errorf("insert vote: %w", err)
	}

	return vote, nil
}

// RemoveDuplicateOptions keeps the first option per normalized text (by
// position, then id) and deletes the rest. Votes on a duplicate move to
// the option that is kept.
func (s *SQLStore) RemoveDuplicateOptions(ctx context.Context, pollID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	options, err := listOptions(ctx, tx, pollID)
	if err != nil {
		return 0, err
	}

	kept := make(map[string]string, len(options))
	removed := 0
	for _, opt := range options {
		key := validation.NormalizeOption(opt.Text)
		keepID, seen := kept[key]
		if !seen {
			kept[key] = opt.ID
			continue
		}

		if _, err := tx.ExecContext(ctx, `UPDATE votes SET option_id = $1 WHERE option_id = $2`, keepID, opt.ID); err != nil {
			return 0, fmt.Errorf("move votes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM poll_options WHERE id = $1`, opt.ID); err != nil {
			return 0, fmt.Errorf("delete duplicate option: %w", err)
		}
		removed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit duplicate cleanup: %w", err)
	}
	return removed, nil
}

// ListPolls returns polls newest first with vote counts. An empty ownerID
// lists every poll; viewerID fills UserVote when set.
func (s *SQLStore) ListPolls(ctx context.Context, ownerID, viewerID string) ([]models.PollResults, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, created_by, created_at
		FROM polls
		WHERE ($1 = '' OR created_by = $1)
		ORDER BY created_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	defer rows.Close()

	polls := []models.PollResults{}
	index := make(map[string]int)
	for rows.Next() {
		var p models.PollResults
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &description, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		p.Description = stringPtr(description)
		p.Options = []models.OptionResult{}
		index[p.ID] = len(polls)
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polls: %w", err)
	}
	rows.Close()

	if len(polls) == 0 {
		return polls, nil
	}

	optRows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.poll_id, o.text, o.position, COUNT(v.id)
		FROM poll_options o
		JOIN polls p ON p.id = o.poll_id
		LEFT JOIN votes v ON v.option_id = o.id
		WHERE ($1 = '' OR p.created_by = $1)
		GROUP BY o.id, o.poll_id, o.text, o.position
		ORDER BY o.poll_id, o.position, o.id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query option counts: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var r models.OptionResult
		if err := optRows.Scan(&r.ID, &r.PollID, &r.Text, &r.Position, &r.VoteCount); err != nil {
			return nil, fmt.Errorf("scan option count: %w", err)
		}
		i, ok := index[r.PollID]
		if !ok {
			// created between the two queries
			continue
		}
		polls[i].Options = append(polls[i].Options, r)
		polls[i].TotalVotes += r.VoteCount
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option counts: %w", err)
	}

	if viewerID == "" {
		return polls, nil
	}

	voteRows, err := s.db.QueryContext(ctx, `
		SELECT poll_id, option_id FROM votes WHERE user_id = $1
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query viewer votes: %w", err)
	}
	defer voteRows.Close()

	for voteRows.Next() {
		var pollID, optionID string
		if err := voteRows.Scan(&pollID, &optionID); err != nil {
			return nil, fmt.Errorf("scan viewer vote: %w", err)
		}
		if i, ok := index[pollID]; ok {
			polls[i].UserVote = &optionID
		}
	}
	if err := voteRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate viewer votes: %w", err)
	}

	return polls, nil
}

func insertOptions(ctx context.Context, q querier, pollID string, options []models.OptionInput) error {
	for i, opt := range options {
		_, err := q.ExecContext(ctx, `
			INSERT INTO poll_options (id, poll_id, text, position)
			VALUES ($1, $2, $3, $4)
		`, uuid.NewString(), pollID, opt.Text, i)
		if err != nil {
			return fmt.Errorf("insert option: %w", err)
		}
	}
	return nil
}

func listOptions(ctx context.Context, q querier, pollID string) ([]models.PollOption, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, poll_id, text, position
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position, id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	options := []models.PollOption{}
	for rows.Next() {
		var opt models.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return options, nil
}

// IsUniqueViolation reports unique/primary key violations from either driver
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
