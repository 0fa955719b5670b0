// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/danielhkuo/pollbase/auth"
	"github.com/danielhkuo/pollbase/cache"
	"github.com/danielhkuo/pollbase/models"
	"github.com/danielhkuo/pollbase/store"
	"github.com/danielhkuo/pollbase/testutil"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewService(store.New(db), cache.Nop{}, testutil.GetTestConfig()), db
}

func as(userID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID})
}

func pollRequest(title string, texts ...string) models.PollRequest {
	options := make([]models.OptionInput, len(texts))
	for i, text := range texts {
		options[i] = models.OptionInput{Text: text}
	}
	return models.PollRequest{Title: title, Options: options}
}

func expectFailure(t *testing.T, resp models.ActionResponse, kind Kind) {
	t.Helper()
	if resp.Success {
		t.Fatalf("Expected %s failure, got success: %+v", kind, resp)
	}
	if resp.Code != string(kind) {
		t.Errorf("Expected code %s, got %s (%s)", kind, resp.Code, resp.Message)
	}
}

func TestCreatePoll(t *testing.T) {
	svc, db := setupService(t)

	resp := svc.CreatePoll(as("user-1"), pollRequest("Pick one", "A", "B", "C"))
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	if resp.PollID == "" {
		t.Fatal("Expected pollId in response")
	}
	if n := testutil.CountRows(t, db, "poll_options", resp.PollID); n != 3 {
		t.Errorf("Expected 3 stored options, got %d", n)
	}
}

func TestCreatePoll_Failures(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		name  string
		ctx   context.Context
		req   models.PollRequest
		kind  Kind
		field string
	}{
		{"unauthenticated", context.Background(), pollRequest("Pick one", "A", "B"), KindAuthRequired, ""},
		{"one option", as("user-1"), pollRequest("Pick one", "A", "  "), KindValidation, "options"},
		{"duplicate option", as("user-1"), pollRequest("Pick one", "Yes", "YES "), KindValidation, "options"},
		{"short title", as("user-1"), pollRequest("Hi", "A", "B"), KindValidation, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := svc.CreatePoll(tt.ctx, tt.req)
			expectFailure(t, resp, tt.kind)
			if tt.field != "" && len(resp.Errors[tt.field]) == 0 {
				t.Errorf("Expected field error on %q, got %v", tt.field, resp.Errors)
			}
		})
	}
}

func TestUpdatePoll(t *testing.T) {
	svc, db := setupService(t)
	pollID, _ := testutil.CreateTestPoll(t, db, "owner", "Original", "A", "B")

	t.Run("owner replaces options", func(t *testing.T) {
		resp := svc.UpdatePoll(as("owner"), pollID, pollRequest("Renamed poll", "X", "Y", "Z"))
		if !resp.Success {
			t.Fatalf("Expected success, got %+v", resp)
		}
		if n := testutil.CountRows(t, db, "poll_options", pollID); n != 3 {
			t.Errorf("Expected 3 options after update, got %d", n)
		}
	})

	t.Run("non-owner", func(t *testing.T) {
		resp := svc.UpdatePoll(as("intruder"), pollID, pollRequest("Hijacked poll", "A", "B"))
		expectFailure(t, resp, KindPermissionDenied)
	})

	t.Run("missing poll checked before ownership", func(t *testing.T) {
		resp := svc.UpdatePoll(as("intruder"), "does-not-exist", pollRequest("Pick one", "A", "B"))
		expectFailure(t, resp, KindNotFound)
	})

	t.Run("too few options", func(t *testing.T) {
		resp := svc.UpdatePoll(as("owner"), pollID, pollRequest("Pick one", "Only", ""))
		expectFailure(t, resp, KindValidation)
		if len(resp.Errors["options"]) == 0 {
			t.Errorf("Expected options error, got %v", resp.Errors)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := svc.UpdatePoll(context.Background(), pollID, pollRequest("Pick one", "A", "B"))
		expectFailure(t, resp, KindAuthRequired)
	})
}

func TestConcealOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.ConcealOwnership = true
	svc := NewService(store.New(db), nil, cfg)

	pollID, _ := testutil.CreateTestPoll(t, db, "owner", "Pick one", "A", "B")

	resp := svc.DeletePoll(as("intruder"), pollID)
	expectFailure(t, resp, KindNotFound)
	missing := svc.DeletePoll(as("intruder"), "does-not-exist")
	if resp.Message != missing.Message {
		t.Errorf("Expected identical messages, got %q and %q", resp.Message, missing.Message)
	}
}

func TestDeletePoll(t *testing.T) {
	svc, db := setupService(t)
	pollID, optionIDs := testutil.CreateTestPoll(t, db, "owner", "Pick one", "A", "B")
	testutil.CastTestVote(t, db, pollID, optionIDs[0], "voter")

	expectFailure(t, svc.DeletePoll(as("intruder"), pollID), KindPermissionDenied)
	expectFailure(t, svc.DeletePoll(context.Background(), pollID), KindAuthRequired)

	resp := svc.DeletePoll(as("owner"), pollID)
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}
	for _, table := range []string{"polls", "poll_options", "votes"} {
		if n := testutil.CountRows(t, db, table, pollID); n != 0 {
			t.Errorf("Expected %s to be empty, found %d", table, n)
		}
	}

	expectFailure(t, svc.DeletePoll(as("owner"), pollID), KindNotFound)
}

func TestCastVote(t *testing.T) {
	svc, db := setupService(t)
	pollID, optionIDs := testutil.CreateTestPoll(t, db, "owner", "Pick one", "A", "B")
	_, otherOpts := testutil.CreateTestPoll(t, db, "owner", "Other", "X", "Y")

	resp := svc.CastVote(as("voter"), pollID, optionIDs[0])
	if !resp.Success {
		t.Fatalf("Expected success, got %+v", resp)
	}

	tests := []struct {
		name     string
		ctx      context.Context
		pollID   string
		optionID string
		kind     Kind
	}{
		{"unauthenticated", context.Background(), pollID, optionIDs[0], KindAuthRequired},
		{"no option", as("voter-2"), pollID, "", KindValidation},
		{"missing poll", as("voter-2"), "nope", optionIDs[0], KindNotFound},
		{"option from another poll", as("voter-2"), pollID, otherOpts[0], KindNotFound},
		{"second vote", as("voter"), pollID, optionIDs[1], KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectFailure(t, svc.CastVote(tt.ctx, tt.pollID, tt.optionID), tt.kind)
		})
	}

	if n := testutil.CountRows(t, db, "votes", pollID); n != 1 {
		t.Errorf("Expected exactly 1 vote, got %d", n)
	}
}

func TestCleanupDuplicates(t *testing.T) {
	svc, db := setupService(t)
	pollID, _ := testutil.CreateTestPoll(t, db, "owner", "Pick one", "A", "a", "B", " b ", "C")

	expectFailure(t, svc.CleanupDuplicates(as("intruder"), pollID), KindPermissionDenied)

	resp := svc.CleanupDuplicates(as("owner"), pollID)
	if !resp.Success || resp.Message != "Removed 2 duplicate options" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if n := testutil.CountRows(t, db, "poll_options", pollID); n != 3 {
		t.Errorf("Expected 3 distinct options, got %d", n)
	}

	again := svc.CleanupDuplicates(as("owner"), pollID)
	if !again.Success || again.Message != "No duplicate options found" {
		t.Errorf("Expected idempotent cleanup, got %+v", again)
	}
}

func TestEndToEnd(t *testing.T) {
	svc, db := setupService(t)
	owner := as("owner")

	created := svc.CreatePoll(owner, pollRequest("Pick one", "A", "B"))
	if !created.Success || created.PollID == "" {
		t.Fatalf("Expected create success, got %+v", created)
	}
	pollID := created.PollID

	poll, err := svc.GetPoll(owner, pollID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if len(poll.Options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(poll.Options))
	}
	a, b := poll.Options[0].ID, poll.Options[1].ID

	for _, voter := range []string{"v1", "v2", "v3"} {
		if resp := svc.CastVote(as(voter), pollID, a); !resp.Success {
			t.Fatalf("Vote by %s failed: %+v", voter, resp)
		}
	}
	if resp := svc.CastVote(as("v4"), pollID, b); !resp.Success {
		t.Fatalf("Vote by v4 failed: %+v", resp)
	}

	poll, err = svc.GetPoll(as("v4"), pollID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if poll.TotalVotes != 4 || poll.Options[0].VoteCount != 3 || poll.Options[1].VoteCount != 1 {
		t.Errorf("Unexpected tally: total=%d options=%+v", poll.TotalVotes, poll.Options)
	}
	if poll.UserVote == nil || *poll.UserVote != b {
		t.Errorf("Expected v4's vote on B, got %v", poll.UserVote)
	}

	if resp := svc.DeletePoll(owner, pollID); !resp.Success {
		t.Fatalf("Delete failed: %+v", resp)
	}

	if _, err := svc.GetPoll(owner, pollID); KindOf(err) != KindNotFound {
		t.Errorf("Expected NOT_FOUND after delete, got %v", err)
	}
	for _, table := range []string{"poll_options", "votes"} {
		if n := testutil.CountRows(t, db, table, pollID); n != 0 {
			t.Errorf("Expected no orphaned %s, found %d", table, n)
		}
	}
}

func TestListPolls(t *testing.T) {
	svc, db := setupService(t)
	testutil.CreateTestPoll(t, db, "user-1", "Mine", "A", "B")
	testutil.CreateTestPoll(t, db, "user-2", "Theirs", "A", "B")

	tests := []struct {
		name     string
		ctx      context.Context
		view     string
		wantView string
		wantLen  int
	}{
		{"anonymous", context.Background(), "", models.ViewBrowse, 2},
		{"anonymous asks for dashboard", context.Background(), models.ViewDashboard, models.ViewBrowse, 2},
		{"signed in default", as("user-1"), "", models.ViewDashboard, 1},
		{"signed in browse", as("user-1"), models.ViewBrowse, models.ViewBrowse, 2},
		{"no polls yet", as("user-3"), models.ViewDashboard, models.ViewDashboard, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, polls, err := svc.ListPolls(tt.ctx, tt.view)
			if err != nil {
				t.Fatalf("ListPolls() error = %v", err)
			}
			if view != tt.wantView {
				t.Errorf("Expected view %s, got %s", tt.wantView, view)
			}
			if len(polls) != tt.wantLen {
				t.Errorf("Expected %d polls, got %d", tt.wantLen, len(polls))
			}
		})
	}

	if _, _, err := svc.ListPolls(as("user-1"), "everything"); KindOf(err) != KindValidation {
		t.Errorf("Expected VALIDATION for unknown view, got %v", err)
	}
}

func TestGetPoll_UsesAndInvalidatesCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer rc.Close()

	svc := NewService(store.New(db), rc, testutil.GetTestConfig())
	pollID, optionIDs := testutil.CreateTestPoll(t, db, "owner", "Pick one", "A", "B")

	if _, err := svc.GetPoll(context.Background(), pollID); err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if !mr.Exists("poll_results:" + pollID) {
		t.Fatal("Expected results to be cached")
	}

	if resp := svc.CastVote(as("voter"), pollID, optionIDs[1]); !resp.Success {
		t.Fatalf("Vote failed: %+v", resp)
	}
	if mr.Exists("poll_results:" + pollID) {
		t.Error("Expected vote to invalidate cached results")
	}

	poll, err := svc.GetPoll(as("voter"), pollID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if poll.TotalVotes != 1 || poll.UserVote == nil || *poll.UserVote != optionIDs[1] {
		t.Errorf("Expected fresh results with viewer vote, got %+v", poll)
	}

	// Cached copy is shared by all viewers
	anon, _ := svc.GetPoll(context.Background(), pollID)
	if anon.UserVote != nil {
		t.Error("Expected anonymous viewer to see no user_vote")
	}
}

// racingStore runs afterRead once, right after results are loaded from the
// database and before the caller gets them
type racingStore struct {
	*store.SQLStore
	afterRead func()
}

func (r *racingStore) GetPollWithResults(ctx context.Context, pollID, viewerID string) (*models.PollResults, error) {
	results, err := r.SQLStore.GetPollWithResults(ctx, pollID, viewerID)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return results, err
}

func TestGetPoll_VoteDuringReadIsNotCachedStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://"+mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer rc.Close()

	racing := &racingStore{SQLStore: store.New(db)}
	svc := NewService(racing, rc, testutil.GetTestConfig())
	pollID, optionIDs := testutil.CreateTestPoll(t, db, "owner", "Pick one", "A", "B")

	racing.afterRead = func() {
		if resp := svc.CastVote(as("voter"), pollID, optionIDs[0]); !resp.Success {
			t.Errorf("Vote failed: %+v", resp)
		}
	}

	first, err := svc.GetPoll(context.Background(), pollID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if first.TotalVotes != 0 {
		t.Errorf("Expected the in-flight read to see 0 votes, got %d", first.TotalVotes)
	}
	if mr.Exists("poll_results:" + pollID) {
		t.Error("Expected results read before the vote not to be cached")
	}

	second, err := svc.GetPoll(context.Background(), pollID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if second.TotalVotes != 1 {
		t.Errorf("Expected total_votes 1 after the vote committed, got %d", second.TotalVotes)
	}
	if !mr.Exists("poll_results:" + pollID) {
		t.Error("Expected fresh results to be cached")
	}
}

// failingStore fails or panics on every call
type failingStore struct {
	store.SQLStore
	panics bool
}

func (f *failingStore) GetPollByID(ctx context.Context, pollID string) (*models.Poll, error) {
	if f.panics {
		panic("boom")
	}
	return nil, errors.New(`pq: relation "polls" does not exist`)
}

func (f *failingStore) CreatePollWithOptions(ctx context.Context, data models.PollData, ownerID string) (models.Poll, error) {
	return models.Poll{}, errors.New("connection refused")
}

func TestStorageFailuresAreGeneric(t *testing.T) {
	svc := NewService(&failingStore{}, nil, testutil.GetTestConfig())

	resp := svc.CreatePoll(as("user-1"), pollRequest("Pick one", "A", "B"))
	expectFailure(t, resp, KindDatabase)
	if strings.Contains(resp.Message, "refused") {
		t.Errorf("Storage detail leaked to caller: %q", resp.Message)
	}

	resp = svc.DeletePoll(as("user-1"), "poll-1")
	expectFailure(t, resp, KindDatabase)
	if strings.Contains(resp.Message, "relation") {
		t.Errorf("Storage detail leaked to caller: %q", resp.Message)
	}
}

func TestPanicBecomesUnknown(t *testing.T) {
	svc := NewService(&failingStore{panics: true}, nil, testutil.GetTestConfig())

	resp := svc.DeletePoll(as("user-1"), "poll-1")
	expectFailure(t, resp, KindUnknown)
	if resp.Message != msgUnknown {
		t.Errorf("Expected generic message, got %q", resp.Message)
	}
}

func TestFailure_UntypedError(t *testing.T) {
	resp := Failure(errors.New("raw detail"))
	if resp.Code != string(KindUnknown) || resp.Message != msgUnknown {
		t.Errorf("Unexpected envelope: %+v", resp)
	}
}

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, 400},
		{KindAuthRequired, 401},
		{KindPermissionDenied, 403},
		{KindNotFound, 404},
		{KindDatabase, 500},
		{KindUnknown, 500},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
