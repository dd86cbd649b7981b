package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/satyaki-up/workboard/internal/workflow"
)

type moveContext struct {
	card  *workflow.Card
	actor actingUser
}

// CheckMove evaluates a move against the current board state without
// applying it.
func (s *Service) CheckMove(ctx context.Context, in MoveInput) (*MoveCheck, error) {
	mc, verdict, err := s.evaluateMove(ctx, s.db, in)
	if err != nil {
		return nil, err
	}
	return &MoveCheck{Card: mc.card, From: mc.card.Status, To: in.To, Verdict: verdict}, nil
}

// MoveCard evaluates and applies a move in one transaction. A denied move
// returns a *DeniedError and leaves the card untouched. Dependents of the
// card see its new status in their dependency snapshots.
func (s *Service) MoveCard(ctx context.Context, in MoveInput) (*MoveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	mc, verdict, err := s.evaluateMove(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	from := mc.card.Status
	if !verdict.Allowed {
		s.logger.InfoContext(ctx, "move denied",
			"card_id", mc.card.ID, "from", from, "to", in.To, "role", mc.actor.role, "code", verdict.Code)
		return nil, &DeniedError{CardID: mc.card.ID, From: from, To: in.To, Verdict: verdict}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`, string(in.To), mc.card.ID, mc.card.Version)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%w: card %q changed during move", ErrConflict, mc.card.ID)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE card_dependencies SET status = ? WHERE dependency_id = ?
	`, string(in.To), mc.card.ID); err != nil {
		return nil, err
	}
	if err := insertActivity(ctx, tx, workflow.ActivityLog{
		CardID:     mc.card.ID,
		Action:     workflow.ActionMoved,
		FromStatus: from,
		ToStatus:   in.To,
	}, mc.actor.user); err != nil {
		return nil, err
	}

	updated, err := getCard(ctx, tx, mc.card.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "card moved", "card_id", updated.ID, "from", from, "to", in.To, "role", mc.actor.role)
	return &MoveResult{Card: updated, From: from, To: in.To}, nil
}

func (s *Service) evaluateMove(ctx context.Context, q queryer, in MoveInput) (moveContext, workflow.Verdict, error) {
	card, err := getCard(ctx, q, strings.TrimSpace(in.CardID))
	if err != nil {
		return moveContext{}, workflow.Verdict{}, err
	}
	if in.ExpectedVersion != nil && *in.ExpectedVersion != card.Version {
		return moveContext{}, workflow.Verdict{}, fmt.Errorf("%w: stale write; expected version %d, have %d", ErrConflict, *in.ExpectedVersion, card.Version)
	}
	actor, err := resolveActor(ctx, q, in.Actor, nil, "")
	if err != nil {
		return moveContext{}, workflow.Verdict{}, err
	}
	board, err := getBoard(ctx, q, card.BoardID, false)
	if err != nil {
		return moveContext{}, workflow.Verdict{}, err
	}

	var target *workflow.Column
	if board.Settings.EnforceWipLimits && workflow.IsValidStatus(in.To) {
		target, err = getColumn(ctx, q, board.ID, in.To)
		if err != nil {
			return moveContext{}, workflow.Verdict{}, err
		}
	}

	verdict, err := s.engine.Evaluate(workflow.Move{
		Card:     card,
		From:     card.Status,
		To:       in.To,
		Role:     actor.role,
		Settings: board.Settings,
		Target:   target,
	})
	if err != nil {
		return moveContext{}, workflow.Verdict{}, err
	}
	return moveContext{card: card, actor: actor}, verdict, nil
}
