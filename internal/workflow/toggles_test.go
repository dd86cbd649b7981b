package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	BaseToggleObserver
	mu       sync.Mutex
	changes  []RuleChange
	resets   int
	failures []error
}

func (r *recordingObserver) OnRuleChanged(c RuleChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingObserver) OnRulesReset(RuleToggles) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *recordingObserver) OnRestoreFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

type fakeLoader struct {
	toggles RuleToggles
	err     error
}

func (f fakeLoader) LoadRuleToggles(context.Context) (RuleToggles, error) {
	return f.toggles, f.err
}

type fakeSaver struct {
	saved *RuleToggles
}

func (f *fakeSaver) SaveRuleToggles(_ context.Context, t RuleToggles) error {
	f.saved = &t
	return nil
}

func TestToggleStoreDefaults(t *testing.T) {
	store := NewToggleStore()
	assert.True(t, store.IsDependencyCheckEnabled())
	assert.True(t, store.IsReviewerCheckEnabled())
	assert.Equal(t, DefaultToggles(), store.Snapshot())
}

func TestToggleStoreToggleNotifies(t *testing.T) {
	obs := &recordingObserver{}
	store := NewToggleStore(obs)

	got := store.ToggleDependencyCheck()
	assert.Equal(t, RuleToggles{DependencyCheck: false, ReviewerCheck: true}, got)

	got = store.ToggleReviewerCheck()
	assert.Equal(t, RuleToggles{DependencyCheck: false, ReviewerCheck: false}, got)

	got = store.ToggleDependencyCheck()
	assert.True(t, got.DependencyCheck)

	assert.Equal(t, []RuleChange{
		{Rule: RuleDependency, Enabled: false, Previous: true},
		{Rule: RuleReviewer, Enabled: false, Previous: true},
		{Rule: RuleDependency, Enabled: true, Previous: false},
	}, obs.changes)

	_, err := store.Toggle("wip")
	assert.True(t, errors.Is(err, ErrUnknownRule))
}

func TestToggleStoreResetAndSet(t *testing.T) {
	obs := &recordingObserver{}
	store := NewToggleStore(obs)

	store.Set(RuleToggles{})
	assert.Len(t, obs.changes, 2)
	assert.False(t, store.IsDependencyCheckEnabled())

	store.Set(RuleToggles{})
	assert.Len(t, obs.changes, 2, "unchanged rules are not reported")

	assert.Equal(t, DefaultToggles(), store.ResetToDefaults())
	assert.Equal(t, 1, obs.resets)
	assert.Equal(t, DefaultToggles(), store.Snapshot())
	require.Len(t, obs.changes, 4)
	assert.Equal(t, []RuleChange{
		{Rule: RuleDependency, Enabled: true, Previous: false},
		{Rule: RuleReviewer, Enabled: true, Previous: false},
	}, obs.changes[2:])

	store.ResetToDefaults()
	assert.Equal(t, 2, obs.resets)
	assert.Len(t, obs.changes, 4, "a reset with nothing to undo reports no rule change")
}

func TestToggleStoreRestore(t *testing.T) {
	obs := &recordingObserver{}
	store := NewToggleStore(obs)

	got := store.Restore(context.Background(), fakeLoader{toggles: RuleToggles{DependencyCheck: false, ReviewerCheck: true}})
	assert.False(t, got.DependencyCheck)
	assert.False(t, store.IsDependencyCheckEnabled())
	assert.Empty(t, obs.failures)

	got = store.Restore(context.Background(), fakeLoader{err: errors.New("corrupt settings")})
	assert.Equal(t, DefaultToggles(), got)
	assert.Equal(t, DefaultToggles(), store.Snapshot())
	require.Len(t, obs.failures, 1)
}

func TestToggleStoreSave(t *testing.T) {
	store := NewToggleStore()
	store.ToggleReviewerCheck()
	saver := &fakeSaver{}
	require.NoError(t, store.Save(context.Background(), saver))
	require.NotNil(t, saver.saved)
	assert.False(t, saver.saved.ReviewerCheck)
}

type slowSaver struct {
	mu    sync.Mutex
	calls int
	last  RuleToggles
}

func (f *slowSaver) SaveRuleToggles(_ context.Context, t RuleToggles) error {
	f.mu.Lock()
	f.calls++
	slow := f.calls%2 == 1
	f.mu.Unlock()
	if slow {
		time.Sleep(time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = t
	return nil
}

func TestToggleStoreConcurrentSavesKeepLatestState(t *testing.T) {
	store := NewToggleStore()
	saver := &slowSaver{}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rule := RuleDependency
			if i%3 == 0 {
				rule = RuleReviewer
			}
			_, err := store.Toggle(rule)
			assert.NoError(t, err)
			assert.NoError(t, store.Save(ctx, saver))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, saver.calls)
	assert.Equal(t, store.Snapshot(), saver.last)
}

func TestToggleStoreConcurrentToggles(t *testing.T) {
	store := NewToggleStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.ToggleDependencyCheck()
		}()
		go func() {
			defer wg.Done()
			_ = store.Snapshot()
		}()
	}
	wg.Wait()
	assert.True(t, store.IsDependencyCheckEnabled(), "an even number of flips returns to the start")
}
