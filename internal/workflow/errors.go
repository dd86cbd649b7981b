package workflow

import "errors"

var (
	// ErrNilCard is returned when the engine is asked to evaluate a move
	// without a card. It signals a caller bug, not a denied move.
	ErrNilCard = errors.New("card is required")
	// ErrColumnMismatch is returned when the target column handed to Evaluate
	// does not hold the target status.
	ErrColumnMismatch = errors.New("target column does not match target status")
	ErrUnknownRule    = errors.New("unknown rule")
)
