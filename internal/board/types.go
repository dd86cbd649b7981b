package board

import (
	"time"

	"github.com/satyaki-up/workboard/internal/workflow"
)

// Actor is whoever performs an operation. Role wins over the stored role of
// UserID when both are set.
type Actor struct {
	UserID string
	Role   workflow.UserRole
}

type CreateBoardInput struct {
	Title       string
	Description string
	Settings    workflow.BoardSettings
	Limits      map[workflow.CardStatus]int
}

type BoardQuery struct {
	Search string
	Page   int
	Limit  int
}

type BoardPage struct {
	Boards []workflow.Board `json:"boards"`
	Total  int              `json:"total"`
	Page   int              `json:"page"`
	Limit  int              `json:"limit"`
}

type CreateUserInput struct {
	Name   string
	Email  string
	Role   workflow.UserRole
	Avatar string
}

type CreateCardInput struct {
	BoardID        string
	Title          string
	Description    string
	Priority       workflow.Priority
	AssigneeID     string
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
	Actor          Actor
}

// UpdateCardInput changes only the non-nil fields. An empty AssigneeID
// clears the assignee.
type UpdateCardInput struct {
	Title          *string
	Description    *string
	Priority       *workflow.Priority
	AssigneeID     *string
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	Tags           *[]string
	Actor          Actor
}

type DependencyRef struct {
	ID       string `json:"id"`
	Required bool   `json:"required"`
}

type MoveInput struct {
	CardID          string
	To              workflow.CardStatus
	Actor           Actor
	ExpectedVersion *int64
}

// MoveCheck is the outcome of a dry-run move.
type MoveCheck struct {
	Card    *workflow.Card      `json:"card"`
	From    workflow.CardStatus `json:"from"`
	To      workflow.CardStatus `json:"to"`
	Verdict workflow.Verdict    `json:"verdict"`
}

type MoveResult struct {
	Card *workflow.Card      `json:"card"`
	From workflow.CardStatus `json:"from"`
	To   workflow.CardStatus `json:"to"`
}

type RuleSettings struct {
	workflow.RuleToggles
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
}
