package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type Rule string

const (
	RuleDependency Rule = "dependency"
	RuleReviewer   Rule = "reviewer"
)

func Rules() []Rule {
	return []Rule{RuleDependency, RuleReviewer}
}

func IsValidRule(r Rule) bool {
	return r == RuleDependency || r == RuleReviewer
}

// RuleToggles selects which optional checks run when a card enters
// ready_for_qa. The reviewer check additionally requires the board setting
// RequireReviewers.
type RuleToggles struct {
	DependencyCheck bool `json:"dependency_check"`
	ReviewerCheck   bool `json:"reviewer_check"`
}

func DefaultToggles() RuleToggles {
	return RuleToggles{DependencyCheck: true, ReviewerCheck: true}
}

// Snapshot lets a plain RuleToggles value act as a ToggleSource.
func (t RuleToggles) Snapshot() RuleToggles {
	return t
}

func (t RuleToggles) Enabled(r Rule) bool {
	switch r {
	case RuleDependency:
		return t.DependencyCheck
	case RuleReviewer:
		return t.ReviewerCheck
	default:
		return false
	}
}

func (t RuleToggles) with(r Rule, enabled bool) RuleToggles {
	switch r {
	case RuleDependency:
		t.DependencyCheck = enabled
	case RuleReviewer:
		t.ReviewerCheck = enabled
	}
	return t
}

type ToggleSource interface {
	Snapshot() RuleToggles
}

type RuleChange struct {
	Rule     Rule `json:"rule"`
	Enabled  bool `json:"enabled"`
	Previous bool `json:"previous"`
}

// ToggleObserver receives rule toggle events. Callbacks run after the store
// has released its lock and may read the store.
type ToggleObserver interface {
	OnRuleChanged(change RuleChange)
	OnRulesReset(toggles RuleToggles)
	OnRestoreFailed(err error)
}

// BaseToggleObserver provides no-op implementations for embedding.
type BaseToggleObserver struct{}

func (BaseToggleObserver) OnRuleChanged(RuleChange) {}
func (BaseToggleObserver) OnRulesReset(RuleToggles) {}
func (BaseToggleObserver) OnRestoreFailed(error) {}

type ToggleLoader interface {
	LoadRuleToggles(ctx context.Context) (RuleToggles, error)
}

type ToggleSaver interface {
	SaveRuleToggles(ctx context.Context, toggles RuleToggles) error
}

// ToggleStore is the process-wide mutable rule toggle state. Mutations are
// serialized; reads are lock-free.
type ToggleStore struct {
	mu        sync.Mutex
	saveMu    sync.Mutex
	current   atomic.Pointer[RuleToggles]
	observers []ToggleObserver
}

func NewToggleStore(observers ...ToggleObserver) *ToggleStore {
	s := &ToggleStore{observers: observers}
	initial := DefaultToggles()
	s.current.Store(&initial)
	return s
}

func (s *ToggleStore) Snapshot() RuleToggles {
	return *s.current.Load()
}

func (s *ToggleStore) IsDependencyCheckEnabled() bool {
	return s.Snapshot().DependencyCheck
}

func (s *ToggleStore) IsReviewerCheckEnabled() bool {
	return s.Snapshot().ReviewerCheck
}

func (s *ToggleStore) ToggleDependencyCheck() RuleToggles {
	t, _ := s.Toggle(RuleDependency)
	return t
}

func (s *ToggleStore) ToggleReviewerCheck() RuleToggles {
	t, _ := s.Toggle(RuleReviewer)
	return t
}

// Toggle flips rule and returns the new state.
func (s *ToggleStore) Toggle(r Rule) (RuleToggles, error) {
	if !IsValidRule(r) {
		return s.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownRule, r)
	}
	s.mu.Lock()
	prev := s.Snapshot()
	next := prev.with(r, !prev.Enabled(r))
	s.current.Store(&next)
	observers := s.observersLocked()
	s.mu.Unlock()

	change := RuleChange{Rule: r, Enabled: next.Enabled(r), Previous: prev.Enabled(r)}
	for _, o := range observers {
		o.OnRuleChanged(change)
	}
	return next, nil
}

// Set replaces the state and reports a change for every rule that moved.
func (s *ToggleStore) Set(t RuleToggles) RuleToggles {
	s.mu.Lock()
	prev := s.Snapshot()
	s.current.Store(&t)
	observers := s.observersLocked()
	s.mu.Unlock()

	for _, change := range diff(prev, t) {
		for _, o := range observers {
			o.OnRuleChanged(change)
		}
	}
	return t
}

// ResetToDefaults reports a change for every rule that moved, then a single
// reset event even when nothing moved.
func (s *ToggleStore) ResetToDefaults() RuleToggles {
	defaults := DefaultToggles()
	s.mu.Lock()
	prev := s.Snapshot()
	s.current.Store(&defaults)
	observers := s.observersLocked()
	s.mu.Unlock()

	for _, change := range diff(prev, defaults) {
		for _, o := range observers {
			o.OnRuleChanged(change)
		}
	}
	for _, o := range observers {
		o.OnRulesReset(defaults)
	}
	return defaults
}

// Restore loads persisted toggles. Any load failure leaves the store at its
// defaults and is reported to observers, never returned.
func (s *ToggleStore) Restore(ctx context.Context, loader ToggleLoader) RuleToggles {
	loaded, err := loader.LoadRuleToggles(ctx)
	if err != nil {
		defaults := DefaultToggles()
		s.mu.Lock()
		s.current.Store(&defaults)
		observers := s.observersLocked()
		s.mu.Unlock()
		for _, o := range observers {
			o.OnRestoreFailed(err)
		}
		return defaults
	}
	s.mu.Lock()
	s.current.Store(&loaded)
	s.mu.Unlock()
	return loaded
}

// Save writes the current state through saver. Saves are serialized and each
// reads the state only once it holds the save lock, so when every mutation is
// followed by a Save the last write carries the latest state.
func (s *ToggleStore) Save(ctx context.Context, saver ToggleSaver) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return saver.SaveRuleToggles(ctx, s.Snapshot())
}

func (s *ToggleStore) observersLocked() []ToggleObserver {
	return append([]ToggleObserver(nil), s.observers...)
}

func diff(prev, next RuleToggles) []RuleChange {
	var out []RuleChange
	for _, r := range Rules() {
		if prev.Enabled(r) != next.Enabled(r) {
			out = append(out, RuleChange{Rule: r, Enabled: next.Enabled(r), Previous: prev.Enabled(r)})
		}
	}
	return out
}
