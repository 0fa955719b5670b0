package models

import "time"

// Field limits
const (
	TitleMinLen       = 5
	TitleMaxLen       = 200
	DescriptionMaxLen = 1000
	OptionMinLen      = 1
	OptionMaxLen      = 100
	MinOptions        = 2
	MaxOptions        = 10
)

// List view constants
const (
	ViewDashboard = "dashboard"
	ViewBrowse    = "browse"
)

// Request types

// Option input. ID is only meaningful on update.
type OptionInput struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type PollRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Options     []OptionInput `json:"options"`
}

type CastVoteRequest struct {
	OptionID string `json:"optionId"`
}

// Validated payloads

type PollData struct {
	Title       string
	Description *string
	Options     []OptionInput
}

// Response types

// ActionResponse is the envelope returned by every mutating endpoint.
type ActionResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	PollID  string              `json:"pollId,omitempty"`
	Code    string              `json:"code,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Domain types

type Poll struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type PollOption struct {
	ID       string `json:"id"`
	PollID   string `json:"poll_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

type Vote struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	OptionID  string    `json:"option_id"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Results types (computed at read time, never stored)

type OptionResult struct {
	PollOption
	VoteCount int `json:"vote_count"`
}

type PollResults struct {
	Poll
	Options    []OptionResult `json:"options"`
	TotalVotes int            `json:"total_votes"`
	UserVote   *string        `json:"user_vote,omitempty"` // option id the viewer voted for
}

type PollListResponse struct {
	View  string        `json:"view"`
	Polls []PollResults `json:"polls"`
}
