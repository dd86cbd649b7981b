package notify

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/satyaki-up/workboard/internal/workflow"
)

func TestMoveSuccess(t *testing.T) {
	b := NewBuilder(language.English)
	n := b.MoveSuccess("Login page", workflow.StatusInProgress, workflow.StatusReadyForQA)
	assert.Equal(t, "In Progress", n.From)
	assert.Equal(t, "Ready for QA", n.To)
	assert.Equal(t, KindSuccess, n.Message.Kind)
	assert.Equal(t, "'Login page' moved from In Progress to Ready for QA", n.Message.Description)
	assert.Equal(t, 3*time.Second, n.Message.Duration)
}

func TestMoveFailureDerivesSuggestion(t *testing.T) {
	b := NewBuilder(language.English)
	v := workflow.Verdict{Code: workflow.CodeInsufficientReviewers, Reason: "not enough reviewers: currently 1, need at least 2"}

	n := b.MoveFailure("Login page", workflow.StatusInProgress, workflow.StatusReadyForQA, v, "")
	assert.Equal(t, KindError, n.Message.Kind)
	assert.Equal(t, v.Reason, n.Reason)
	assert.Contains(t, n.Suggestion, "Add more reviewers")
	assert.True(t, strings.HasPrefix(n.Message.Description, v.Reason))
	assert.Equal(t, 5*time.Second, n.Message.Duration)

	n = b.MoveFailure("Login page", workflow.StatusInProgress, workflow.StatusReadyForQA, v, "ask Bob")
	assert.Equal(t, "ask Bob", n.Suggestion)

	n = b.MoveFailure("Login page", workflow.StatusDone, workflow.StatusQADone, workflow.Verdict{Code: workflow.CodeTerminalStatus, Reason: "card is done"}, "")
	assert.Empty(t, n.Suggestion)
	assert.Equal(t, "card is done", n.Message.Description)

	n = b.MoveFailure("Login page", workflow.StatusDone, workflow.StatusQADone, workflow.Verdict{}, "")
	assert.Equal(t, "unknown error", n.Reason)
}

func TestSuggestionsPerCode(t *testing.T) {
	b := NewBuilder(language.English)
	assert.Contains(t, b.Suggestion(workflow.CodeProductOwnerOnly), "product owner")
	assert.Contains(t, b.Suggestion(workflow.CodePendingDependencies), "dependencies")
	assert.Contains(t, b.Suggestion(workflow.CodeSkipStage), "one stage at a time")
	assert.Empty(t, b.Suggestion(workflow.CodeSameStatus))

	ko := NewBuilder(language.Korean)
	assert.Contains(t, ko.Suggestion(workflow.CodeInsufficientReviewers), "리뷰어")
}

func TestRuleChange(t *testing.T) {
	b := NewBuilder(language.English)

	on := b.RuleChange(workflow.RuleDependency, true)
	assert.Equal(t, KindSuccess, on.Message.Kind)
	assert.Equal(t, "Dependency check enabled", on.Message.Title)
	assert.Equal(t, b.RuleMetadata(workflow.RuleDependency).EnabledDescription, on.Impact)

	off := b.RuleChange(workflow.RuleReviewer, false)
	assert.Equal(t, KindWarning, off.Message.Kind)
	assert.Equal(t, 4*time.Second, off.Message.Duration)
	assert.Equal(t, "users", b.RuleMetadata(workflow.RuleReviewer).Icon)

	ko := NewBuilder(language.Korean).RuleChange(workflow.RuleReviewer, false)
	assert.Equal(t, "필수 리뷰어 검사가 비활성화되었습니다", ko.Message.Title)
}

func TestEmitterObservesToggleStore(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	emitter := NewEmitter(logger, NewBuilder(language.English))

	store := workflow.NewToggleStore(emitter)
	store.ToggleDependencyCheck()
	store.ResetToDefaults()
	emitter.OnRestoreFailed(errors.New("bad json"))

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "Dependency check disabled")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "Rule settings reset")
	assert.Contains(t, out, "bad json")
	assert.Contains(t, out, "level=ERROR")
}
