// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/danielhkuo/pollbase/auth"
	"github.com/danielhkuo/pollbase/cache"
	"github.com/danielhkuo/pollbase/cliparse"
	"github.com/danielhkuo/pollbase/models"
	"github.com/danielhkuo/pollbase/store"
	"github.com/danielhkuo/pollbase/validation"
)

// PollStore is the data access the actions need; store.SQLStore implements it
type PollStore interface {
	CreatePollWithOptions(ctx context.Context, data models.PollData, ownerID string) (models.Poll, error)
	UpdatePollWithOptions(ctx context.Context, pollID string, data models.PollData) error
	DeletePoll(ctx context.Context, pollID string) error
	GetPollByID(ctx context.Context, pollID string) (*models.Poll, error)
	ListOptions(ctx context.Context, pollID string) ([]models.PollOption, error)
	GetPollWithResults(ctx context.Context, pollID, viewerID string) (*models.PollResults, error)
	GetUserVote(ctx context.Context, pollID, userID string) (*string, error)
	CastVote(ctx context.Context, pollID, optionID, voterID string) (models.Vote, error)
	RemoveDuplicateOptions(ctx context.Context, pollID string) (int, error)
	ListPolls(ctx context.Context, ownerID, viewerID string) ([]models.PollResults, error)
}

type Service struct {
	store            PollStore
	cache            cache.Cache
	concealOwnership bool
}

func NewService(s PollStore, c cache.Cache, cfg cliparse.Config) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{store: s, cache: c, concealOwnership: cfg.ConcealOwnership}
}

// RequireAuthenticated returns the caller's identity or AUTH_REQUIRED
func RequireAuthenticated(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, authRequired()
	}
	return id, nil
}

// RequireOwnership fails with PERMISSION_DENIED unless id owns the poll.
// With conceal set the failure looks like a missing poll.
func RequireOwnership(poll *models.Poll, id auth.Identity, conceal bool) error {
	if poll.CreatedBy == id.UserID {
		return nil
	}
	if conceal {
		return notFound(msgPollNotFound)
	}
	return permissionDenied()
}

// CreatePoll handles the create action
func (s *Service) CreatePoll(ctx context.Context, req models.PollRequest) models.ActionResponse {
	var resp models.ActionResponse
	err := s.guard("create poll", func() error {
		id, err := RequireAuthenticated(ctx)
		if err != nil {
			return err
		}

		data, fieldErrs := validation.ValidateCreate(req)
		if !fieldErrs.Empty() {
			return validationError(fieldErrs)
		}

		poll, err := s.store.CreatePollWithOptions(ctx, data, id.UserID)
		if err != nil {
			return databaseError("create poll", err)
		}

		s.invalidate(ctx, poll.ID)
		slog.Info("poll created", "poll_id", poll.ID, "user_id", id.UserID, "options", len(data.Options))

		resp = success("Poll created successfully", poll.ID)
		return nil
	})
	if err != nil {
		return Failure(err)
	}
	return resp
}

// UpdatePoll replaces title, description and options of an owned poll
func (s *Service) UpdatePoll(ctx context.Context, pollID string, req models.PollRequest) models.ActionResponse {
	var resp models.ActionResponse
	err := s.guard("update poll", func() error {
		id, err := RequireAuthenticated(ctx)
		if err != nil {
			return err
		}

		data, fieldErrs := validation.ValidateUpdate(req)
		if !fieldErrs.Empty() {
			return validationError(fieldErrs)
		}

		poll, err := s.loadPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if err := RequireOwnership(poll, id, s.concealOwnership); err != nil {
			return err
		}

		if err := s.store.UpdatePollWithOptions(ctx, pollID, data); err != nil {
			return databaseError("update poll", err)
		}

		s.invalidate(ctx, pollID)
		slog.Info("poll updated", "poll_id", pollID, "user_id", id.UserID, "options", len(data.Options))

		resp = success("Poll updated successfully", pollID)
		return nil
	})
	if err != nil {
		return Failure(err)
	}
	return resp
}

// DeletePoll deletes an owned poll
func (s *Service) DeletePoll(ctx context.Context, pollID string) models.ActionResponse {
	var resp models.ActionResponse
	err := s.guard("delete poll", func() error {
		id, err := RequireAuthenticated(ctx)
		if err != nil {
			return err
		}

		poll, err := s.loadPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if err := RequireOwnership(poll, id, s.concealOwnership); err != nil {
			return err
		}

		if err := s.store.DeletePoll(ctx, pollID); err != nil {
			return databaseError("delete poll", err)
		}

		s.invalidate(ctx, pollID)
		slog.Info("poll deleted", "poll_id", pollID, "user_id", id.UserID)

		resp = success("Poll deleted successfully", pollID)
		return nil
	})
	if err != nil {
		return Failure(err)
	}
	return resp
}

// CastVote records the caller's vote. There is no pre-check for an earlier
// vote; the store reports a repeat.
func (s *Service) CastVote(ctx context.Context, pollID, optionID string) models.ActionResponse {
	var resp models.ActionResponse
	err := s.guard("cast vote", func() error {
		id, err := RequireAuthenticated(ctx)
		if err != nil {
			return err
		}

		if optionID == "" {
			return fieldError("optionId", "Please select an option")
		}

		if _, err := s.loadPoll(ctx, pollID); err != nil {
			return err
		}

		options, err := s.store.ListOptions(ctx, pollID)
		if err != nil {
			return databaseError("list options", err)
		}
		if !hasOption(options, optionID) {
			return notFound(msgOptionNotFound)
		}

		if _, err := s.store.CastVote(ctx, pollID, optionID, id.UserID); err != nil {
			if errors.Is(err, store.ErrAlreadyVoted) {
				return fieldError("optionId", "You have already voted on this poll")
			}
			return databaseError("cast vote", err)
		}

		s.invalidate(ctx, pollID)
		slog.Info("vote cast", "poll_id", pollID, "option_id", optionID, "user_id", id.UserID)

		resp = success("Vote recorded", pollID)
		return nil
	})
	if err != nil {
		return Failure(err)
	}
	return resp
}

// CleanupDuplicates removes later duplicate options from an owned poll
func (s *Service) CleanupDuplicates(ctx context.Context, pollID string) models.ActionResponse {
	var resp models.ActionResponse
	err := s.guard("cleanup duplicates", func() error {
		id, err := RequireAuthenticated(ctx)
		if err != nil {
			return err
		}

		poll, err := s.loadPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if err := RequireOwnership(poll, id, s.concealOwnership); err != nil {
			return err
		}

		removed, err := s.store.RemoveDuplicateOptions(ctx, pollID)
		if err != nil {
			return databaseError("remove duplicate options", err)
		}

		s.invalidate(ctx, pollID)
		slog.Info("duplicate options removed", "poll_id", pollID, "removed", removed)

		message := "No duplicate options found"
		if removed == 1 {
			message = "Removed 1 duplicate option"
		} else if removed > 1 {
			message = fmt.Sprintf("Removed %d duplicate options", removed)
		}
		resp = success(message, pollID)
		return nil
	})
	if err != nil {
		return Failure(err)
	}
	return resp
}

// GetPoll returns the poll with results and, when signed in, the caller's vote.
// Aggregate results are cached; the viewer's vote is always looked up.
func (s *Service) GetPoll(ctx context.Context, pollID string) (*models.PollResults, error) {
	var out *models.PollResults
	err := s.guard("get poll", func() error {
		results, err := s.cache.GetResults(ctx, pollID)
		if err != nil {
			slog.Warn("results cache read failed", "poll_id", pollID, "error", err)
			results = nil
		}

		if results == nil {
			// Read before the query so a concurrent invalidation wins
			gen, genErr := s.cache.Generation(ctx, pollID)
			if genErr != nil {
				slog.Warn("results cache generation read failed", "poll_id", pollID, "error", genErr)
			}

			results, err = s.store.GetPollWithResults(ctx, pollID, "")
			if err != nil {
				return databaseError("get poll results", err)
			}
			if results == nil {
				return notFound(msgPollNotFound)
			}
			if genErr == nil {
				if err := s.cache.SetResults(ctx, results, gen); err != nil {
					slog.Warn("results cache write failed", "poll_id", pollID, "error", err)
				}
			}
		}

		if id, ok := auth.FromContext(ctx); ok {
			results.UserVote, err = s.store.GetUserVote(ctx, pollID, id.UserID)
			if err != nil {
				return databaseError("get user vote", err)
			}
		}

		out = results
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPolls returns the polls for a view. Signed-in callers default to the
// dashboard (their own polls); anonymous callers always browse everything.
func (s *Service) ListPolls(ctx context.Context, view string) (string, []models.PollResults, error) {
	var polls []models.PollResults
	err := s.guard("list polls", func() error {
		id, authed := auth.FromContext(ctx)

		switch view {
		case "":
			view = models.ViewBrowse
			if authed {
				view = models.ViewDashboard
			}
		case models.ViewDashboard, models.ViewBrowse:
		default:
			return fieldError("view", "View must be dashboard or browse")
		}
		if !authed {
			view = models.ViewBrowse
		}

		ownerID := ""
		if view == models.ViewDashboard {
			ownerID = id.UserID
		}

		var err error
		polls, err = s.store.ListPolls(ctx, ownerID, id.UserID)
		if err != nil {
			return databaseError("list polls", err)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return view, polls, nil
}

// loadPoll returns NOT_FOUND before any ownership check can run
func (s *Service) loadPoll(ctx context.Context, pollID string) (*models.Poll, error) {
	if pollID == "" {
		return nil, notFound(msgPollNotFound)
	}
	poll, err := s.store.GetPollByID(ctx, pollID)
	if err != nil {
		return nil, databaseError("load poll", err)
	}
	if poll == nil {
		return nil, notFound(msgPollNotFound)
	}
	return poll, nil
}

func (s *Service) invalidate(ctx context.Context, pollID string) {
	if err := s.cache.Invalidate(ctx, pollID); err != nil {
		slog.Warn("results cache invalidation failed", "poll_id", pollID, "error", err)
	}
}

// guard runs one action. Panics and untyped errors become UNKNOWN; storage
// and unknown failures are logged with full detail here and nowhere else.
func (s *Service) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("action panicked", "op", op, "panic", r, "stack", string(debug.Stack()))
			err = unknownError(fmt.Errorf("panic: %v", r))
		}
	}()

	err = fn()
	if err == nil {
		return nil
	}

	var ae *Error
	if !errors.As(err, &ae) {
		ae = unknownError(err)
	}
	switch ae.Kind {
	case KindDatabase, KindUnknown:
		slog.Error("action failed", "op", op, "kind", ae.Kind, "error", ae.Err)
	default:
		slog.Debug("action rejected", "op", op, "kind", ae.Kind, "message", ae.Message)
	}
	return ae
}

func success(message, pollID string) models.ActionResponse {
	return models.ActionResponse{Success: true, Message: message, PollID: pollID}
}

func hasOption(options []models.PollOption, optionID string) bool {
	for _, opt := range options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
