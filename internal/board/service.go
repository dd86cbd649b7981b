package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satyaki-up/workboard/internal/i18n"
	"github.com/satyaki-up/workboard/internal/workflow"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// columnTitles renders stored column titles; boards are created in the
// default language and titles can be localized on read.
var columnTitles = i18n.Printer(i18n.Default())

type Service struct {
	db        *sql.DB
	engine    *workflow.Engine
	logger    *slog.Logger
	ruleScope string
}

type Option func(*Service)

func WithEngine(e *workflow.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithRuleScope selects the rule_settings row toggles are persisted under.
func WithRuleScope(scope string) Option {
	return func(s *Service) {
		s.ruleScope = scope
	}
}

func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{db: db, ruleScope: DefaultRuleScope}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = workflow.NewEngine(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Service) Engine() *workflow.Engine {
	return s.engine
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ queryer = (*sql.DB)(nil)
	_ queryer = (*sql.Tx)(nil)
)

func (s *Service) CreateBoard(ctx context.Context, in CreateBoardInput) (*workflow.Board, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := validateSettings(in.Settings); err != nil {
		return nil, err
	}
	for status, limit := range in.Limits {
		if !workflow.IsValidStatus(status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		if limit < 0 {
			return nil, fmt.Errorf("%w: column limit must be >= 0", ErrInvalidInput)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	boardID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO boards(id, title, description, allow_skip_stages, require_reviewers, min_reviewers, enforce_wip_limits)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, boardID, title, strings.TrimSpace(in.Description),
		in.Settings.AllowSkipStages, in.Settings.RequireReviewers, in.Settings.MinReviewers, in.Settings.EnforceWipLimits)
	if err != nil {
		return nil, err
	}

	for i, status := range workflow.Statuses() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO board_columns(id, board_id, title, status, position, max_cards)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), boardID, i18n.StatusName(columnTitles, string(status)), string(status), i, nullableLimit(in.Limits[status]))
		if err != nil {
			return nil, err
		}
	}

	board, err := getBoard(ctx, tx, boardID, true)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "board created", "board_id", board.ID, "title", board.Title)
	return board, nil
}

// GetBoard returns the board with its columns and the cards in each column.
func (s *Service) GetBoard(ctx context.Context, id string) (*workflow.Board, error) {
	return getBoard(ctx, s.db, strings.TrimSpace(id), true)
}

func (s *Service) ListBoards(ctx context.Context, q BoardQuery) (*BoardPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	where := "1=1"
	args := make([]any, 0, 2)
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		where = "(lower(title) LIKE ? OR lower(description) LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM boards WHERE "+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, title, description, allow_skip_stages, require_reviewers, min_reviewers, enforce_wip_limits, created_at, updated_at
		FROM boards
		WHERE %s
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, where)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &BoardPage{Boards: make([]workflow.Board, 0), Total: total, Page: page, Limit: limit}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		out.Boards = append(out.Boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateSettings(ctx context.Context, boardID string, settings workflow.BoardSettings) (*workflow.Board, error) {
	boardID = strings.TrimSpace(boardID)
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE boards
		SET allow_skip_stages = ?, require_reviewers = ?, min_reviewers = ?, enforce_wip_limits = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, settings.AllowSkipStages, settings.RequireReviewers, settings.MinReviewers, settings.EnforceWipLimits, boardID)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%w: board %q not found", ErrNotFound, boardID)
	}

	board, err := getBoard(ctx, tx, boardID, true)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "board settings updated", "board_id", boardID,
		"allow_skip_stages", settings.AllowSkipStages,
		"require_reviewers", settings.RequireReviewers,
		"min_reviewers", settings.MinReviewers,
		"enforce_wip_limits", settings.EnforceWipLimits)
	return board, nil
}

// SetColumnLimit sets the WIP ceiling of one column. Zero removes it.
func (s *Service) SetColumnLimit(ctx context.Context, boardID string, status workflow.CardStatus, maxCards int) (*workflow.Column, error) {
	boardID = strings.TrimSpace(boardID)
	if !workflow.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if maxCards < 0 {
		return nil, fmt.Errorf("%w: column limit must be >= 0", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE board_columns SET max_cards = ? WHERE board_id = ? AND status = ?
	`, nullableLimit(maxCards), boardID, string(status))
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%w: board %q has no %s column", ErrNotFound, boardID, status)
	}
	col, err := getColumn(ctx, tx, boardID, status)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return col, nil
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*workflow.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, in.Email)
	}
	if !workflow.IsValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users(id, name, email, role, avatar) VALUES (?, ?, ?, ?, ?)
	`, id, name, email, string(in.Role), strings.TrimSpace(in.Avatar))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email %q already registered", ErrConflict, email)
		}
		return nil, err
	}
	return getUser(ctx, s.db, id)
}

func (s *Service) GetUser(ctx context.Context, id string) (*workflow.User, error) {
	return getUser(ctx, s.db, strings.TrimSpace(id))
}

func (s *Service) ListUsers(ctx context.Context) ([]workflow.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, avatar FROM users ORDER BY name ASC, id ASC
	`)
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

func validateSettings(settings workflow.BoardSettings) error {
	if settings.MinReviewers < 0 {
		return fmt.Errorf("%w: min reviewers must be >= 0", ErrInvalidInput)
	}
	return nil
}

func getBoard(ctx context.Context, q queryer, id string, withCards bool) (*workflow.Board, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, description, allow_skip_stages, require_reviewers, min_reviewers, enforce_wip_limits, created_at, updated_at
		FROM boards
		WHERE id = ?
	`, id)
	board, err := scanBoard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: board %q not found", ErrNotFound, id)
		}
		return nil, err
	}

	columns, err := listColumns(ctx, q, id)
	if err != nil {
		return nil, err
	}
	board.Columns = columns

	if withCards {
		cards, err := loadCards(ctx, q, "board_id = ?", id)
		if err != nil {
			return nil, err
		}
		for _, card := range cards {
			if col, ok := board.Column(card.Status); ok {
				col.Cards = append(col.Cards, card)
			}
		}
	}
	return &board, nil
}

func listColumns(ctx context.Context, q queryer, boardID string) ([]workflow.Column, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, board_id, title, status, position, max_cards
		FROM board_columns
		WHERE board_id = ?
		ORDER BY position ASC
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]workflow.Column, 0, len(workflow.Statuses()))
	for rows.Next() {
		col, err := scanColumn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

// getColumn returns one column together with the cards currently in it.
func getColumn(ctx context.Context, q queryer, boardID string, status workflow.CardStatus) (*workflow.Column, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, board_id, title, status, position, max_cards
		FROM board_columns
		WHERE board_id = ? AND status = ?
	`, boardID, string(status))
	col, err := scanColumn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: board %q has no %s column", ErrNotFound, boardID, status)
		}
		return nil, err
	}
	cards, err := loadCards(ctx, q, "board_id = ? AND status = ?", boardID, string(status))
	if err != nil {
		return nil, err
	}
	col.Cards = cards
	return &col, nil
}

func getUser(ctx context.Context, q queryer, id string) (*workflow.User, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, email, role, avatar FROM users WHERE id = ?
	`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q not found", ErrNotFound, id)
		}
		return nil, err
	}
	return &u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBoard(row scanner) (workflow.Board, error) {
	var b workflow.Board
	var created, updated string
	if err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Description,
		&b.Settings.AllowSkipStages,
		&b.Settings.RequireReviewers,
		&b.Settings.MinReviewers,
		&b.Settings.EnforceWipLimits,
		&created,
		&updated,
	); err != nil {
		return workflow.Board{}, err
	}
	var err error
	if b.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return workflow.Board{}, err
	}
	if b.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return workflow.Board{}, err
	}
	return b, nil
}

func scanColumn(row scanner) (workflow.Column, error) {
	var c workflow.Column
	var maxCards sql.NullInt64
	if err := row.Scan(&c.ID, &c.BoardID, &c.Title, &c.Status, &c.Position, &maxCards); err != nil {
		return workflow.Column{}, err
	}
	if maxCards.Valid {
		c.MaxCards = int(maxCards.Int64)
	}
	c.Cards = []workflow.Card{}
	return c, nil
}

func scanUser(row scanner) (workflow.User, error) {
	var u workflow.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Avatar); err != nil {
		return workflow.User{}, err
	}
	return u, nil
}

func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func parseSQLiteTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, value, time.UTC)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
