package workflow

// Code identifies why a move was denied. Codes are stable and safe to match
// on; the Reason text that accompanies them is localized.
type Code string

const (
	CodeSameStatus            Code = "same_status"
	CodeTerminalStatus        Code = "terminal_status"
	CodeInvalidStatus         Code = "invalid_status"
	CodeInvalidRole           Code = "invalid_role"
	CodeSkipStage             Code = "skip_stage"
	CodePermissionDenied      Code = "permission_denied"
	CodeProductOwnerOnly      Code = "product_owner_only"
	CodeCircularDependency    Code = "circular_dependency"
	CodePendingDependencies   Code = "pending_dependencies"
	CodeInsufficientReviewers Code = "insufficient_reviewers"
	CodeWipLimitExceeded      Code = "wip_limit_exceeded"
)

// Verdict is the outcome of evaluating a move. A denied verdict always has a
// Code and a Reason; an allowed verdict has neither.
type Verdict struct {
	Allowed      bool              `json:"allowed"`
	Code         Code              `json:"code,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Dependencies *DependencyResult `json:"dependencies,omitempty"`
	Reviewers    *ReviewerResult   `json:"reviewers,omitempty"`
	WIP          *WipResult        `json:"wip,omitempty"`

	// Args are the values interpolated into Reason, kept so the verdict can be
	// re-rendered in another language.
	Args []any `json:"-"`
}

type DependencyResult struct {
	Valid    bool         `json:"valid"`
	Pending  []Dependency `json:"pending"`
	Circular []string     `json:"circular,omitempty"`
}

// PendingTitles returns the titles of the pending dependencies.
func (r DependencyResult) PendingTitles() []string {
	out := make([]string, 0, len(r.Pending))
	for _, d := range r.Pending {
		out = append(out, d.Title)
	}
	return out
}

type ReviewerResult struct {
	Valid         bool `json:"valid"`
	CurrentCount  int  `json:"current_count"`
	RequiredCount int  `json:"required_count"`
}

type WipResult struct {
	Allowed      bool `json:"allowed"`
	CurrentCount int  `json:"current_count"`
	FutureCount  int  `json:"future_count"`
	MaxCards     int  `json:"max_cards"`
}

// ValidateDependencies checks a card's dependency snapshots. A dependency
// whose id equals ownerID is reported in Circular and never in Pending. An
// empty ownerID disables the self-reference check.
func ValidateDependencies(deps []Dependency, ownerID string) DependencyResult {
	res := DependencyResult{Pending: []Dependency{}}
	for _, dep := range deps {
		if ownerID != "" && dep.ID == ownerID {
			res.Circular = append(res.Circular, dep.ID)
			continue
		}
		if dep.Required && !IsCompleted(dep.Status) {
			res.Pending = append(res.Pending, dep)
		}
	}
	res.Valid = len(res.Pending) == 0 && len(res.Circular) == 0
	return res
}

// ValidateReviewers checks the reviewer quorum. When the board does not
// require reviewers the check passes with RequiredCount 0.
func ValidateReviewers(reviewers []User, settings BoardSettings) ReviewerResult {
	current := len(reviewers)
	if !settings.RequireReviewers {
		return ReviewerResult{Valid: true, CurrentCount: current, RequiredCount: 0}
	}
	required := settings.MinReviewers
	if required < 0 {
		required = 0
	}
	return ReviewerResult{
		Valid:         current >= required,
		CurrentCount:  current,
		RequiredCount: required,
	}
}

// ValidateWipLimits checks whether a column can hold its cards, plus one more
// when adding is true. maxCards <= 0 means unlimited.
func ValidateWipLimits(columnCards []Card, maxCards int, adding bool) WipResult {
	return CheckWipCount(len(columnCards), maxCards, adding)
}

// CheckWipCount is ValidateWipLimits for callers that only know the count.
func CheckWipCount(current, maxCards int, adding bool) WipResult {
	future := current
	if adding {
		future++
	}
	res := WipResult{Allowed: true, CurrentCount: current, FutureCount: future, MaxCards: maxCards}
	if maxCards <= 0 {
		res.MaxCards = 0
		return res
	}
	res.Allowed = future <= maxCards
	return res
}
