package workflow

import "time"

type CardStatus string

const (
	StatusBacklog        CardStatus = "backlog"
	StatusInProgress     CardStatus = "in_progress"
	StatusReadyForQA     CardStatus = "ready_for_qa"
	StatusQADone         CardStatus = "qa_done"
	StatusReadyForDeploy CardStatus = "ready_for_deploy"
	StatusDone           CardStatus = "done"
)

type UserRole string

const (
	RoleDeveloper    UserRole = "developer"
	RoleProductOwner UserRole = "product_owner"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	Avatar string   `json:"avatar,omitempty"`
}

// Dependency is a snapshot of another card's lifecycle state taken when the
// owning card was last loaded. It is not a live reference.
type Dependency struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Status   CardStatus `json:"status"`
	Required bool       `json:"required"`
}

type Card struct {
	ID             string       `json:"id"`
	BoardID        string       `json:"board_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         CardStatus   `json:"status"`
	Priority       Priority     `json:"priority"`
	Assignee       *User        `json:"assignee,omitempty"`
	Reviewers      []User       `json:"reviewers"`
	Dependencies   []Dependency `json:"dependencies"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	EstimatedHours *float64     `json:"estimated_hours,omitempty"`
	Tags           []string     `json:"tags"`
	Version        int64        `json:"version"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Column holds the cards whose status places them in it. MaxCards <= 0 means
// the column has no WIP ceiling.
type Column struct {
	ID       string     `json:"id"`
	BoardID  string     `json:"board_id"`
	Title    string     `json:"title"`
	Status   CardStatus `json:"status"`
	Position int        `json:"position"`
	Cards    []Card     `json:"cards"`
	MaxCards int        `json:"max_cards,omitempty"`
}

// BoardSettings is supplied fresh for every evaluation. The zero value is
// valid: adjacency is enforced, reviewers are not required and WIP limits are
// not enforced.
type BoardSettings struct {
	AllowSkipStages  bool `json:"allow_skip_stages"`
	RequireReviewers bool `json:"require_reviewers"`
	MinReviewers     int  `json:"min_reviewers"`
	EnforceWipLimits bool `json:"enforce_wip_limits"`
}

type Board struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Columns     []Column      `json:"columns,omitempty"`
	Settings    BoardSettings `json:"settings"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Column returns the board column for status, if loaded.
func (b *Board) Column(status CardStatus) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].Status == status {
			return &b.Columns[i], true
		}
	}
	return nil, false
}

type ActivityAction string

const (
	ActionCreated  ActivityAction = "created"
	ActionMoved    ActivityAction = "moved"
	ActionUpdated  ActivityAction = "updated"
	ActionAssigned ActivityAction = "assigned"
)

type ActivityLog struct {
	ID          string         `json:"id"`
	CardID      string         `json:"card_id"`
	UserID      string         `json:"user_id,omitempty"`
	UserName    string         `json:"user_name,omitempty"`
	Action      ActivityAction `json:"action"`
	FromStatus  CardStatus     `json:"from_status,omitempty"`
	ToStatus    CardStatus     `json:"to_status,omitempty"`
	Description string         `json:"description,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
