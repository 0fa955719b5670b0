// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/pollbase/auth"
	"github.com/danielhkuo/pollbase/cliparse"
	"github.com/danielhkuo/pollbase/db"
)

// TestDBURL is an in-memory SQLite database; each SetupTestDB call gets a fresh one
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Open(ctx, db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  TestDBURL,
		DatabaseType: db.TypeSQLite,
		JWTSecret:    "test-jwt-secret",
		CacheTTL:     time.Minute,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// TestToken issues an access token for userID signed with the test config
func TestToken(t *testing.T, cfg cliparse.Config, userID string) string {
	t.Helper()

	token, err := auth.IssueToken(auth.Identity{UserID: userID, Email: userID + "@example.com"}, cfg.JWTSecret, cfg.JWTAudience, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}

// AuthHeader returns the Authorization header map for userID
func AuthHeader(t *testing.T, cfg cliparse.Config, userID string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + TestToken(t, cfg, userID)}
}

// CreateTestPoll inserts a poll with the given options and returns the poll ID
// and option IDs in order
func CreateTestPoll(t *testing.T, db *sql.DB, ownerID, title string, options ...string) (string, []string) {
	t.Helper()

	pollID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO polls (id, title, description, created_by, created_at)
		VALUES ($1, $2, 'A test poll', $3, $4)
	`, pollID, title, ownerID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	optionIDs := make([]string, len(options))
	for i, text := range options {
		optionIDs[i] = AddTestOption(t, db, pollID, text, i)
	}

	return pollID, optionIDs
}

// AddTestOption adds an option to a poll and returns the option ID.
// No uniqueness check, so duplicates can be seeded.
func AddTestOption(t *testing.T, db *sql.DB, pollID, text string, position int) string {
	t.Helper()

	optionID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO poll_options (id, poll_id, text, position)
		VALUES ($1, $2, $3, $4)
	`, optionID, pollID, text, position)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// CastTestVote inserts a vote row and returns its ID
func CastTestVote(t *testing.T, db *sql.DB, pollID, optionID, userID string) string {
	t.Helper()

	voteID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO votes (id, poll_id, option_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, pollID, optionID, userID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// CountRows counts rows in table matching pollID
func CountRows(t *testing.T, db *sql.DB, table, pollID string) int {
	t.Helper()

	var query string
	switch table {
	case "polls":
		query = `SELECT COUNT(*) FROM polls WHERE id = $1`
	case "poll_options", "votes":
		query = `SELECT COUNT(*) FROM ` + table + ` WHERE poll_id = $1`
	default:
		t.Fatalf("Unknown table %q", table)
	}

	var count int
	if err := db.QueryRow(query, pollID).Scan(&count); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return count
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
