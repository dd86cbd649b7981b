// Package notify turns engine verdicts and rule toggle events into
// user-facing notifications.
package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/satyaki-up/workboard/internal/i18n"
	"github.com/satyaki-up/workboard/internal/workflow"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

type Message struct {
	Kind        Kind          `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration"`
}

type MoveNotification struct {
	CardTitle  string  `json:"card_title"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Code       string  `json:"code,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Suggestion string  `json:"suggestion,omitempty"`
	Message    Message `json:"message"`
}

type RuleNotification struct {
	Rule    workflow.Rule `json:"rule"`
	Enabled bool          `json:"enabled"`
	Impact  string        `json:"impact"`
	Message Message       `json:"message"`
}

type RuleMetadata struct {
	ID                  workflow.Rule `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	EnabledDescription  string        `json:"enabled_description"`
	DisabledDescription string        `json:"disabled_description"`
	Icon                string        `json:"icon"`
}

var ruleIcons = map[workflow.Rule]string{
	workflow.RuleDependency: "link",
	workflow.RuleReviewer:   "users",
}

// Builder renders notifications in one language.
type Builder struct {
	tag     language.Tag
	printer *message.Printer
}

func NewBuilder(tag language.Tag) *Builder {
	return &Builder{tag: tag, printer: i18n.Printer(tag)}
}

func (b *Builder) Language() language.Tag {
	return b.tag
}

func (b *Builder) StatusName(s workflow.CardStatus) string {
	return i18n.StatusName(b.printer, string(s))
}

func (b *Builder) MoveSuccess(cardTitle string, from, to workflow.CardStatus) MoveNotification {
	fromName, toName := b.StatusName(from), b.StatusName(to)
	return MoveNotification{
		CardTitle: cardTitle,
		From:      fromName,
		To:        toName,
		Message: Message{
			Kind:        KindSuccess,
			Title:       b.printer.Sprintf("notify.move_success.title"),
			Description: b.printer.Sprintf("notify.move_success.body", cardTitle, fromName, toName),
			Duration:    3 * time.Second,
		},
	}
}

// MoveFailure describes a denied move. When suggestion is empty one is
// derived from the verdict code.
func (b *Builder) MoveFailure(cardTitle string, from, to workflow.CardStatus, v workflow.Verdict, suggestion string) MoveNotification {
	reason := v.Reason
	if reason == "" {
		reason = b.printer.Sprintf("notify.unknown_error")
	}
	if suggestion == "" {
		suggestion = b.Suggestion(v.Code)
	}
	description := reason
	if suggestion != "" {
		description = reason + " " + suggestion
	}
	return MoveNotification{
		CardTitle:  cardTitle,
		From:       b.StatusName(from),
		To:         b.StatusName(to),
		Code:       string(v.Code),
		Reason:     reason,
		Suggestion: suggestion,
		Message: Message{
			Kind:        KindError,
			Title:       b.printer.Sprintf("notify.move_failure.title"),
			Description: description,
			Duration:    5 * time.Second,
		},
	}
}

// Suggestion returns a one-line actionable hint for a denial code, or "" when
// there is nothing the user can do.
func (b *Builder) Suggestion(code workflow.Code) string {
	switch code {
	case workflow.CodePendingDependencies,
		workflow.CodeCircularDependency,
		workflow.CodeInsufficientReviewers,
		workflow.CodeProductOwnerOnly,
		workflow.CodePermissionDenied,
		workflow.CodeSkipStage,
		workflow.CodeWipLimitExceeded:
		return b.printer.Sprintf(message.Key("suggest."+string(code), ""))
	default:
		return ""
	}
}

func (b *Builder) RuleMetadata(r workflow.Rule) RuleMetadata {
	prefix := "rule." + string(r)
	return RuleMetadata{
		ID:                  r,
		Name:                b.printer.Sprintf(message.Key(prefix+".name", string(r))),
		Description:         b.printer.Sprintf(message.Key(prefix+".description", "")),
		EnabledDescription:  b.printer.Sprintf(message.Key(prefix+".enabled", "")),
		DisabledDescription: b.printer.Sprintf(message.Key(prefix+".disabled", "")),
		Icon:                ruleIcons[r],
	}
}

func (b *Builder) RuleChange(r workflow.Rule, enabled bool) RuleNotification {
	meta := b.RuleMetadata(r)
	n := RuleNotification{Rule: r, Enabled: enabled}
	if enabled {
		n.Impact = meta.EnabledDescription
		n.Message = Message{
			Kind:        KindSuccess,
			Title:       b.printer.Sprintf("notify.rule_enabled.title", meta.Name),
			Description: n.Impact,
			Duration:    3 * time.Second,
		}
		return n
	}
	n.Impact = meta.DisabledDescription
	n.Message = Message{
		Kind:        KindWarning,
		Title:       b.printer.Sprintf("notify.rule_disabled.title", meta.Name),
		Description: n.Impact,
		Duration:    4 * time.Second,
	}
	return n
}

func (b *Builder) RulesReset() Message {
	return Message{
		Kind:        KindSuccess,
		Title:       b.printer.Sprintf("notify.rule_reset.title"),
		Description: b.printer.Sprintf("notify.rule_reset.body"),
		Duration:    3 * time.Second,
	}
}

func (b *Builder) RestoreFailed() Message {
	return Message{
		Kind:        KindError,
		Title:       b.printer.Sprintf("notify.restore_failed.title"),
		Description: b.printer.Sprintf("notify.restore_failed.body"),
		Duration:    5 * time.Second,
	}
}

// Emitter delivers notifications to a structured logger. It also observes a
// workflow.ToggleStore.
type Emitter struct {
	logger  *slog.Logger
	builder *Builder
}

func NewEmitter(logger *slog.Logger, builder *Builder) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = NewBuilder(i18n.Default())
	}
	return &Emitter{logger: logger, builder: builder}
}

func (e *Emitter) Builder() *Builder {
	return e.builder
}

func (e *Emitter) Emit(m Message) {
	level := slog.LevelInfo
	switch m.Kind {
	case KindError:
		level = slog.LevelError
	case KindWarning:
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, m.Title, slog.String("kind", string(m.Kind)), slog.String("description", m.Description))
}

func (e *Emitter) OnRuleChanged(c workflow.RuleChange) {
	n := e.builder.RuleChange(c.Rule, c.Enabled)
	e.Emit(n.Message)
}

func (e *Emitter) OnRulesReset(workflow.RuleToggles) {
	e.Emit(e.builder.RulesReset())
}

func (e *Emitter) OnRestoreFailed(err error) {
	e.logger.Warn("restore rule toggles", slog.String("error", err.Error()))
	e.Emit(e.builder.RestoreFailed())
}
