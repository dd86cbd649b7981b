package workflow

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/satyaki-up/workboard/internal/i18n"
)

// Engine decides whether a card may move between statuses. It never mutates
// the card or the board; callers apply allowed moves themselves.
//
// An Engine is safe for concurrent use. It reads the rule toggles once per
// evaluation from its ToggleSource.
type Engine struct {
	toggles ToggleSource
	tag     language.Tag
	printer *message.Printer
}

type Option func(*Engine)

// WithLanguage selects the language denial reasons are rendered in.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) {
		e.tag = tag
	}
}

// NewEngine builds an engine reading optional rule toggles from toggles. A nil
// source behaves as DefaultToggles.
func NewEngine(toggles ToggleSource, opts ...Option) *Engine {
	if toggles == nil {
		toggles = DefaultToggles()
	}
	e := &Engine{toggles: toggles, tag: i18n.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.printer = i18n.Printer(e.tag)
	return e
}

// In returns a copy of the engine rendering reasons in tag.
func (e *Engine) In(tag language.Tag) *Engine {
	return &Engine{toggles: e.toggles, tag: tag, printer: i18n.Printer(tag)}
}

func (e *Engine) Language() language.Tag {
	return e.tag
}

// Toggles returns the rule toggles the next evaluation would see.
func (e *Engine) Toggles() RuleToggles {
	return e.toggles.Snapshot()
}

// Move is a proposed status change. Target is optional; when it is set and
// the board enforces WIP limits the move is also checked against the
// column's ceiling.
type Move struct {
	Card     *Card
	From     CardStatus
	To       CardStatus
	Role     UserRole
	Settings BoardSettings
	Target   *Column
}

// CanMove evaluates a move without a target column, so WIP limits are not
// checked. A nil card is a caller bug and is reported as ErrNilCard.
func (e *Engine) CanMove(card *Card, from, to CardStatus, role UserRole, settings BoardSettings) (Verdict, error) {
	return e.Evaluate(Move{Card: card, From: from, To: to, Role: role, Settings: settings})
}

// Evaluate runs the checks in order and stops at the first denial:
// basic validity, stage adjacency, role permission, dependencies and
// reviewers (both only when entering ready_for_qa), then the WIP ceiling.
func (e *Engine) Evaluate(m Move) (Verdict, error) {
	if m.Card == nil {
		return Verdict{}, ErrNilCard
	}
	toggles := e.toggles.Snapshot()

	if v := e.validateBasicRules(m.From, m.To, m.Role); !v.Allowed {
		return v, nil
	}
	if v := e.validateStateTransition(m.From, m.To, m.Settings); !v.Allowed {
		return v, nil
	}
	if v := e.validateRolePermissions(m.To, m.Role); !v.Allowed {
		return v, nil
	}

	if m.To == StatusReadyForQA && toggles.DependencyCheck {
		res := ValidateDependencies(m.Card.Dependencies, m.Card.ID)
		if len(res.Circular) > 0 {
			v := e.deny(CodeCircularDependency, strings.Join(res.Circular, ", "))
			v.Dependencies = &res
			return v, nil
		}
		if !res.Valid {
			v := e.deny(CodePendingDependencies, strings.Join(res.PendingTitles(), ", "))
			v.Dependencies = &res
			return v, nil
		}
	}

	if m.To == StatusReadyForQA && toggles.ReviewerCheck && m.Settings.RequireReviewers {
		res := ValidateReviewers(m.Card.Reviewers, m.Settings)
		if !res.Valid {
			v := e.deny(CodeInsufficientReviewers, res.CurrentCount, res.RequiredCount)
			v.Reviewers = &res
			return v, nil
		}
	}

	if m.Settings.EnforceWipLimits && m.Target != nil {
		if m.Target.Status != m.To {
			return Verdict{}, fmt.Errorf("%w: column %q holds %s, move targets %s", ErrColumnMismatch, m.Target.ID, m.Target.Status, m.To)
		}
		adding := !containsCard(m.Target.Cards, m.Card.ID)
		if v := e.ValidateWipLimits(*m.Target, adding); !v.Allowed {
			return v, nil
		}
	}

	return Verdict{Allowed: true}, nil
}

// ValidateWipLimits checks column against its WIP ceiling, counting one more
// card when adding is true.
func (e *Engine) ValidateWipLimits(column Column, adding bool) Verdict {
	res := ValidateWipLimits(column.Cards, column.MaxCards, adding)
	return e.WipVerdict(column.Title, res)
}

// WipVerdict turns a WIP check for the named column into a verdict.
func (e *Engine) WipVerdict(columnTitle string, res WipResult) Verdict {
	if res.Allowed {
		return Verdict{Allowed: true}
	}
	v := e.deny(CodeWipLimitExceeded, columnTitle, res.MaxCards)
	v.WIP = &res
	return v
}

// Reason renders the reason of v in the engine's language.
func (e *Engine) Reason(v Verdict) string {
	if v.Allowed || v.Code == "" {
		return v.Reason
	}
	return e.printer.Sprintf(reasonKey(v.Code), v.Args...)
}

// Localize returns v with its reason rendered in the engine's language.
func (e *Engine) Localize(v Verdict) Verdict {
	v.Reason = e.Reason(v)
	return v
}

func (e *Engine) validateBasicRules(from, to CardStatus, role UserRole) Verdict {
	if from == to {
		return e.deny(CodeSameStatus)
	}
	if from == StatusDone {
		return e.deny(CodeTerminalStatus)
	}
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return e.deny(CodeInvalidStatus)
	}
	if !IsValidRole(role) {
		return e.deny(CodeInvalidRole)
	}
	return Verdict{Allowed: true}
}

func (e *Engine) validateStateTransition(from, to CardStatus, settings BoardSettings) Verdict {
	if settings.AllowSkipStages {
		return Verdict{Allowed: true}
	}
	if !IsAdjacent(from, to) {
		return e.deny(CodeSkipStage, string(from), string(to))
	}
	return Verdict{Allowed: true}
}

func (e *Engine) validateRolePermissions(to CardStatus, role UserRole) Verdict {
	perms, _ := PermissionsFor(role)
	if perms.CanMoveTo(to) {
		return Verdict{Allowed: true}
	}
	if to == StatusDone {
		return e.deny(CodeProductOwnerOnly)
	}
	return e.deny(CodePermissionDenied, string(role), string(to))
}

func (e *Engine) deny(code Code, args ...any) Verdict {
	return Verdict{
		Allowed: false,
		Code:    code,
		Reason:  e.printer.Sprintf(reasonKey(code), args...),
		Args:    args,
	}
}

func reasonKey(code Code) message.Reference {
	key := "reason." + string(code)
	return message.Key(key, string(code))
}

func containsCard(cards []Card, id string) bool {
	for _, c := range cards {
		if c.ID == id {
			return true
		}
	}
	return false
}
