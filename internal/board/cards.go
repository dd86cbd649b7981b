package board

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satyaki-up/workboard/internal/workflow"
)

func (s *Service) CreateCard(ctx context.Context, in CreateCardInput) (*workflow.Card, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	priority := in.Priority
	if priority == "" {
		priority = workflow.PriorityMedium
	}
	if !workflow.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}
	if in.EstimatedHours != nil && *in.EstimatedHours < 0 {
		return nil, fmt.Errorf("%w: estimated hours must be >= 0", ErrInvalidInput)
	}
	tagsJSON, err := json.Marshal(normalizeTags(in.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	actor, err := resolveActor(ctx, tx, in.Actor, func(p workflow.Permissions) bool { return p.CanCreateCard }, "create cards")
	if err != nil {
		return nil, err
	}
	board, err := getBoard(ctx, tx, strings.TrimSpace(in.BoardID), false)
	if err != nil {
		return nil, err
	}

	var assignee any
	if id := strings.TrimSpace(in.AssigneeID); id != "" {
		if _, err := getUser(ctx, tx, id); err != nil {
			return nil, err
		}
		assignee = id
	}

	if board.Settings.EnforceWipLimits {
		col, err := getColumn(ctx, tx, board.ID, workflow.StatusBacklog)
		if err != nil {
			return nil, err
		}
		if v := s.engine.ValidateWipLimits(*col, true); !v.Allowed {
			return nil, &DeniedError{To: workflow.StatusBacklog, Verdict: v}
		}
	}

	cardID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cards(id, board_id, title, description, status, priority, assignee_id, due_date, estimated_hours, tags, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, cardID, board.ID, title, strings.TrimSpace(in.Description), string(workflow.StatusBacklog), string(priority),
		assignee, formatDueDate(in.DueDate), nullableHours(in.EstimatedHours), string(tagsJSON))
	if err != nil {
		return nil, err
	}

	if err := insertActivity(ctx, tx, workflow.ActivityLog{
		CardID:      cardID,
		Action:      workflow.ActionCreated,
		ToStatus:    workflow.StatusBacklog,
		Description: title,
	}, actor.user); err != nil {
		return nil, err
	}

	card, err := getCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "card created", "card_id", card.ID, "board_id", card.BoardID)
	return card, nil
}

func (s *Service) GetCard(ctx context.Context, id string) (*workflow.Card, error) {
	return getCard(ctx, s.db, strings.TrimSpace(id))
}

// ListCards returns the cards of a board, optionally only those in status.
func (s *Service) ListCards(ctx context.Context, boardID string, status *workflow.CardStatus) ([]workflow.Card, error) {
	boardID = strings.TrimSpace(boardID)
	if _, err := getBoard(ctx, s.db, boardID, false); err != nil {
		return nil, err
	}
	if status == nil {
		return loadCards(ctx, s.db, "board_id = ?", boardID)
	}
	if !workflow.IsValidStatus(*status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
	}
	return loadCards(ctx, s.db, "board_id = ? AND status = ?", boardID, string(*status))
}

func (s *Service) UpdateCard(ctx context.Context, id string, in UpdateCardInput, expectedVersion *int64) (*workflow.Card, error) {
	id = strings.TrimSpace(id)
	setParts := make([]string, 0, 8)
	params := make([]any, 0, 8)
	changed := make([]string, 0, 8)

	var newTitle string
	if in.Title != nil {
		newTitle = strings.TrimSpace(*in.Title)
		if newTitle == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		setParts = append(setParts, "title = ?")
		params = append(params, newTitle)
		changed = append(changed, "title")
	}
	if in.Description != nil {
		setParts = append(setParts, "description = ?")
		params = append(params, strings.TrimSpace(*in.Description))
		changed = append(changed, "description")
	}
	if in.Priority != nil {
		if !workflow.IsValidPriority(*in.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *in.Priority)
		}
		setParts = append(setParts, "priority = ?")
		params = append(params, string(*in.Priority))
		changed = append(changed, "priority")
	}
	if in.ClearDueDate {
		setParts = append(setParts, "due_date = NULL")
		changed = append(changed, "due_date")
	} else if in.DueDate != nil {
		setParts = append(setParts, "due_date = ?")
		params = append(params, formatDueDate(in.DueDate))
		changed = append(changed, "due_date")
	}
	if in.EstimatedHours != nil {
		if *in.EstimatedHours < 0 {
			return nil, fmt.Errorf("%w: estimated hours must be >= 0", ErrInvalidInput)
		}
		setParts = append(setParts, "estimated_hours = ?")
		params = append(params, *in.EstimatedHours)
		changed = append(changed, "estimated_hours")
	}
	if in.Tags != nil {
		tagsJSON, err := json.Marshal(normalizeTags(*in.Tags))
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		setParts = append(setParts, "tags = ?")
		params = append(params, string(tagsJSON))
		changed = append(changed, "tags")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	actor, err := resolveActor(ctx, tx, in.Actor, nil, "")
	if err != nil {
		return nil, err
	}
	if in.AssigneeID != nil {
		var assignee any
		if aid := strings.TrimSpace(*in.AssigneeID); aid != "" {
			if _, err := getUser(ctx, tx, aid); err != nil {
				return nil, err
			}
			assignee = aid
		}
		setParts = append(setParts, "assignee_id = ?")
		params = append(params, assignee)
		changed = append(changed, "assignee")
	}
	if len(setParts) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	if err := updateCardRow(ctx, tx, id, setParts, params, expectedVersion); err != nil {
		return nil, err
	}
	if in.Title != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE card_dependencies SET title = ? WHERE dependency_id = ?
		`, newTitle, id); err != nil {
			return nil, err
		}
	}
	if err := insertActivity(ctx, tx, workflow.ActivityLog{
		CardID:      id,
		Action:      workflow.ActionUpdated,
		Description: "updated " + strings.Join(changed, ", "),
	}, actor.user); err != nil {
		return nil, err
	}

	card, err := getCard(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) DeleteCard(ctx context.Context, id string, actor Actor, expectedVersion *int64) error {
	id = strings.TrimSpace(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	acting, err := resolveActor(ctx, tx, actor, func(p workflow.Permissions) bool { return p.CanDeleteCard }, "delete cards")
	if err != nil {
		return err
	}
	dependents, err := loadDependents(ctx, tx, id)
	if err != nil {
		return err
	}

	query := "DELETE FROM cards WHERE id = ?"
	params := []any{id}
	if expectedVersion != nil {
		query += " AND version = ?"
		params = append(params, *expectedVersion)
	}
	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, err := getCard(ctx, tx, id); err != nil {
			return err
		}
		if expectedVersion != nil {
			return fmt.Errorf("%w: stale write; expected version %d", ErrConflict, *expectedVersion)
		}
	}

	// The cascade drops the dependency rows, so record the removal on each
	// dependent card.
	for _, d := range dependents {
		if _, err := tx.ExecContext(ctx, `
			UPDATE cards SET version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, d.cardID); err != nil {
			return err
		}
		entry := workflow.ActivityLog{
			CardID:      d.cardID,
			Action:      workflow.ActionUpdated,
			Description: fmt.Sprintf("dependency %q removed: card deleted", d.title),
		}
		if err := insertActivity(ctx, tx, entry, acting.user); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "card deleted", "card_id", id, "dependents", len(dependents))
	return nil
}

type dependent struct {
	cardID string
	title  string
}

// loadDependents lists the cards that depend on id, with the title they hold
// for it.
func loadDependents(ctx context.Context, q queryer, id string) ([]dependent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT card_id, title FROM card_dependencies WHERE dependency_id = ? ORDER BY card_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dependent
	for rows.Next() {
		var d dependent
		if err := rows.Scan(&d.cardID, &d.title); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetReviewers replaces the reviewer list of a card. Duplicate ids are
// dropped, keeping the first occurrence.
func (s *Service) SetReviewers(ctx context.Context, cardID string, userIDs []string, actor Actor, expectedVersion *int64) (*workflow.Card, error) {
	cardID = strings.TrimSpace(cardID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acting, err := resolveActor(ctx, tx, actor, func(p workflow.Permissions) bool { return p.CanAssignReviewers }, "assign reviewers")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(userIDs))
	names := make([]string, 0, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, raw := range userIDs {
		uid := strings.TrimSpace(raw)
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		u, err := getUser(ctx, tx, uid)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uid)
		names = append(names, u.Name)
	}

	if err := updateCardRow(ctx, tx, cardID, nil, nil, expectedVersion); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM card_reviewers WHERE card_id = ?", cardID); err != nil {
		return nil, err
	}
	for i, uid := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO card_reviewers(card_id, user_id, position) VALUES (?, ?, ?)
		`, cardID, uid, i); err != nil {
			return nil, err
		}
	}

	description := "cleared reviewers"
	if len(names) > 0 {
		description = "reviewers: " + strings.Join(names, ", ")
	}
	if err := insertActivity(ctx, tx, workflow.ActivityLog{
		CardID:      cardID,
		Action:      workflow.ActionAssigned,
		Description: description,
	}, acting.user); err != nil {
		return nil, err
	}

	card, err := getCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return card, nil
}

// SetDependencies replaces the dependency list of a card. Each dependency is
// stored as a snapshot of the referenced card's title and status; MoveCard
// keeps the status current.
func (s *Service) SetDependencies(ctx context.Context, cardID string, refs []DependencyRef, expectedVersion *int64) (*workflow.Card, error) {
	cardID = strings.TrimSpace(cardID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	card, err := getCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	deps, err := normalizeDependencies(ctx, tx, card, refs)
	if err != nil {
		return nil, err
	}

	if err := updateCardRow(ctx, tx, cardID, nil, nil, expectedVersion); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM card_dependencies WHERE card_id = ?", cardID); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(deps))
	for i, d := range deps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO card_dependencies(card_id, dependency_id, title, status, required, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, cardID, d.ID, d.Title, string(d.Status), d.Required, i); err != nil {
			return nil, err
		}
		titles = append(titles, d.Title)
	}

	description := "cleared dependencies"
	if len(titles) > 0 {
		description = "dependencies: " + strings.Join(titles, ", ")
	}
	if err := insertActivity(ctx, tx, workflow.ActivityLog{
		CardID:      cardID,
		Action:      workflow.ActionUpdated,
		Description: description,
	}, nil); err != nil {
		return nil, err
	}

	updated, err := getCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) History(ctx context.Context, cardID string) ([]workflow.ActivityLog, error) {
	cardID = strings.TrimSpace(cardID)
	if _, err := getCard(ctx, s.db, cardID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, user_id, user_name, action, from_status, to_status, description, created_at
		FROM activity_logs
		WHERE card_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]workflow.ActivityLog, 0)
	for rows.Next() {
		var l workflow.ActivityLog
		var created string
		if err := rows.Scan(&l.ID, &l.CardID, &l.UserID, &l.UserName, &l.Action, &l.FromStatus, &l.ToStatus, &l.Description, &created); err != nil {
			return nil, err
		}
		if l.Timestamp, err = parseSQLiteTime(created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type actingUser struct {
	user *workflow.User
	role workflow.UserRole
}

// resolveActor loads the acting user, if any, and settles the effective role.
// When allowed is non-nil the role must carry that capability.
func resolveActor(ctx context.Context, q queryer, a Actor, allowed func(workflow.Permissions) bool, action string) (actingUser, error) {
	var out actingUser
	if id := strings.TrimSpace(a.UserID); id != "" {
		u, err := getUser(ctx, q, id)
		if err != nil {
			return actingUser{}, err
		}
		out.user = u
		out.role = u.Role
	}
	if a.Role != "" {
		out.role = a.Role
	}
	if allowed == nil {
		return out, nil
	}
	perms, ok := workflow.PermissionsFor(out.role)
	if !ok {
		return actingUser{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, out.role)
	}
	if !allowed(perms) {
		return actingUser{}, fmt.Errorf("%w: role %s cannot %s", ErrForbidden, out.role, action)
	}
	return out, nil
}

// updateCardRow applies setParts to a card and bumps its version, honoring
// expectedVersion.
func updateCardRow(ctx context.Context, tx *sql.Tx, id string, setParts []string, params []any, expectedVersion *int64) error {
	parts := append(append([]string{}, setParts...), "version = version + 1", "updated_at = CURRENT_TIMESTAMP")
	query := fmt.Sprintf("UPDATE cards SET %s WHERE id = ?", strings.Join(parts, ", "))
	args := append(append([]any{}, params...), id)
	if expectedVersion != nil {
		query += " AND version = ?"
		args = append(args, *expectedVersion)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		if expectedVersion != nil {
			if _, err := getCard(ctx, tx, id); err != nil {
				return err
			}
			return fmt.Errorf("%w: stale write; expected version %d", ErrConflict, *expectedVersion)
		}
		return fmt.Errorf("%w: card %q not found", ErrNotFound, id)
	}
	return nil
}

func normalizeDependencies(ctx context.Context, tx *sql.Tx, card *workflow.Card, refs []DependencyRef) ([]workflow.Dependency, error) {
	seen := make(map[string]bool, len(refs))
	out := make([]workflow.Dependency, 0, len(refs))
	for _, ref := range refs {
		id := strings.TrimSpace(ref.ID)
		if id == "" {
			continue
		}
		if id == card.ID {
			return nil, fmt.Errorf("%w: dependencies cannot include self", ErrInvalidInput)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		dep, err := getCard(ctx, tx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: dependency %q not found", ErrNotFound, id)
			}
			return nil, err
		}
		if dep.BoardID != card.BoardID {
			return nil, fmt.Errorf("%w: dependency must be on the same board: %q", ErrInvalidInput, id)
		}
		out = append(out, workflow.Dependency{ID: dep.ID, Title: dep.Title, Status: dep.Status, Required: ref.Required})
	}
	return out, nil
}

func insertActivity(ctx context.Context, tx *sql.Tx, l workflow.ActivityLog, by *workflow.User) error {
	var userID, userName string
	if by != nil {
		userID, userName = by.ID, by.Name
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity_logs(id, card_id, user_id, user_name, action, from_status, to_status, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), l.CardID, userID, userName, string(l.Action), string(l.FromStatus), string(l.ToStatus), l.Description)
	return err
}

func getCard(ctx context.Context, q queryer, id string) (*workflow.Card, error) {
	cards, err := loadCards(ctx, q, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: card %q not found", ErrNotFound, id)
	}
	return &cards[0], nil
}

// loadCards reads the cards matching where and hydrates assignee, reviewers
// and dependencies. The card rows are fully read before the follow-up
// queries so a transaction never has two result sets open.
func loadCards(ctx context.Context, q queryer, where string, args ...any) ([]workflow.Card, error) {
	query := fmt.Sprintf(`
		SELECT id, board_id, title, description, status, priority, assignee_id, due_date, estimated_hours, tags, version, created_at, updated_at
		FROM cards
		WHERE %s
		ORDER BY created_at ASC, rowid ASC
	`, where)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	cards := make([]workflow.Card, 0)
	assignees := make([]string, 0)
	for rows.Next() {
		card, assignee, err := scanCard(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		cards = append(cards, card)
		assignees = append(assignees, assignee)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range cards {
		if assignees[i] != "" {
			u, err := getUser(ctx, q, assignees[i])
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			cards[i].Assignee = u
		}
		if cards[i].Reviewers, err = loadReviewers(ctx, q, cards[i].ID); err != nil {
			return nil, err
		}
		if cards[i].Dependencies, err = loadDependencies(ctx, q, cards[i].ID); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

func loadReviewers(ctx context.Context, q queryer, cardID string) ([]workflow.User, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.avatar
		FROM card_reviewers r
		JOIN users u ON u.id = r.user_id
		WHERE r.card_id = ?
		ORDER BY r.position ASC
	`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]workflow.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func loadDependencies(ctx context.Context, q queryer, cardID string) ([]workflow.Dependency, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT dependency_id, title, status, required
		FROM card_dependencies
		WHERE card_id = ?
		ORDER BY position ASC
	`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]workflow.Dependency, 0)
	for rows.Next() {
		var d workflow.Dependency
		if err := rows.Scan(&d.ID, &d.Title, &d.Status, &d.Required); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanCard(row scanner) (workflow.Card, string, error) {
	var c workflow.Card
	var assignee, dueDate sql.NullString
	var hours sql.NullFloat64
	var tagsRaw string
	var created, updated string
	if err := row.Scan(
		&c.ID,
		&c.BoardID,
		&c.Title,
		&c.Description,
		&c.Status,
		&c.Priority,
		&assignee,
		&dueDate,
		&hours,
		&tagsRaw,
		&c.Version,
		&created,
		&updated,
	); err != nil {
		return workflow.Card{}, "", err
	}

	c.Tags = []string{}
	if strings.TrimSpace(tagsRaw) != "" {
		if err := json.Unmarshal([]byte(tagsRaw), &c.Tags); err != nil {
			return workflow.Card{}, "", fmt.Errorf("parse tags for %s: %w", c.ID, err)
		}
	}
	if dueDate.Valid && dueDate.String != "" {
		t, err := time.Parse(time.RFC3339Nano, dueDate.String)
		if err != nil {
			return workflow.Card{}, "", fmt.Errorf("parse due date for %s: %w", c.ID, err)
		}
		c.DueDate = &t
	}
	if hours.Valid {
		h := hours.Float64
		c.EstimatedHours = &h
	}

	var err error
	if c.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return workflow.Card{}, "", err
	}
	if c.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return workflow.Card{}, "", err
	}
	return c, assignee.String, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func formatDueDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableHours(h *float64) any {
	if h == nil {
		return nil
	}
	return *h
}
