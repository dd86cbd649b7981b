package board

import (
	"errors"
	"fmt"

	"github.com/satyaki-up/workboard/internal/workflow"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrMoveDenied   = errors.New("move denied")
)

// DeniedError reports a move (or card placement) the rule engine rejected.
// It matches ErrMoveDenied with errors.Is.
type DeniedError struct {
	CardID  string
	From    workflow.CardStatus
	To      workflow.CardStatus
	Verdict workflow.Verdict
}

func (e *DeniedError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("%s: into %s: %s", ErrMoveDenied, e.To, e.Verdict.Reason)
	}
	return fmt.Sprintf("%s: %s -> %s: %s", ErrMoveDenied, e.From, e.To, e.Verdict.Reason)
}

func (e *DeniedError) Unwrap() error {
	return ErrMoveDenied
}
