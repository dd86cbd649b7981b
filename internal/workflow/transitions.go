package workflow

var statusOrder = []CardStatus{
	StatusBacklog,
	StatusInProgress,
	StatusReadyForQA,
	StatusQADone,
	StatusReadyForDeploy,
	StatusDone,
}

// statusTransitions lists the statuses reachable from each status by a single
// advance or retreat. Any pair not listed here is a skip.
var statusTransitions = map[CardStatus][]CardStatus{
	StatusBacklog:        {StatusInProgress},
	StatusInProgress:     {StatusReadyForQA, StatusBacklog},
	StatusReadyForQA:     {StatusQADone, StatusInProgress},
	StatusQADone:         {StatusReadyForDeploy, StatusReadyForQA},
	StatusReadyForDeploy: {StatusDone, StatusQADone},
	StatusDone:           {},
}

// Statuses returns every card status in workflow order.
func Statuses() []CardStatus {
	out := make([]CardStatus, len(statusOrder))
	copy(out, statusOrder)
	return out
}

func IsValidStatus(s CardStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

// Transitions returns the statuses directly reachable from from.
func Transitions(from CardStatus) []CardStatus {
	next := statusTransitions[from]
	out := make([]CardStatus, len(next))
	copy(out, next)
	return out
}

func IsAdjacent(from, to CardStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsCompleted reports whether a dependency in status s counts as finished.
// Only verified work counts; ready_for_deploy is still pending.
func IsCompleted(s CardStatus) bool {
	return s == StatusQADone || s == StatusDone
}
