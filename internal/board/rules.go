package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/satyaki-up/workboard/internal/workflow"
)

const (
	DefaultRuleScope = "default"

	// RuleSettingsVersion is written with every save. Rows with another major
	// version are not loaded.
	RuleSettingsVersion = "1.0.0"
)

var ErrRuleSettingsVersion = errors.New("unsupported rule settings version")

// LoadRuleToggles reads the persisted toggles. A scope that was never saved
// yields the defaults.
func (s *Service) LoadRuleToggles(ctx context.Context) (workflow.RuleToggles, error) {
	rs, err := s.RuleSettings(ctx)
	if err != nil {
		return workflow.RuleToggles{}, err
	}
	return rs.RuleToggles, nil
}

func (s *Service) RuleSettings(ctx context.Context) (*RuleSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT dependency_check, reviewer_check, version, last_updated
		FROM rule_settings
		WHERE scope = ?
	`, s.ruleScope)
	var rs RuleSettings
	var lastUpdated string
	err := row.Scan(&rs.DependencyCheck, &rs.ReviewerCheck, &rs.Version, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return &RuleSettings{RuleToggles: workflow.DefaultToggles(), Version: RuleSettingsVersion}, nil
	}
	if err != nil {
		return nil, err
	}
	if majorVersion(rs.Version) != majorVersion(RuleSettingsVersion) {
		return nil, fmt.Errorf("%w: %q", ErrRuleSettingsVersion, rs.Version)
	}
	// Rows carried over from before last_updated existed hold ''.
	if lastUpdated == "" {
		return &rs, nil
	}
	if rs.LastUpdated, err = parseSQLiteTime(lastUpdated); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *Service) SaveRuleToggles(ctx context.Context, t workflow.RuleToggles) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_settings(scope, dependency_check, reviewer_check, version, last_updated)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope) DO UPDATE SET
			dependency_check = excluded.dependency_check,
			reviewer_check = excluded.reviewer_check,
			version = excluded.version,
			last_updated = excluded.last_updated
	`, s.ruleScope, t.DependencyCheck, t.ReviewerCheck, RuleSettingsVersion)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "rule toggles saved", "scope", s.ruleScope,
		"dependency_check", t.DependencyCheck, "reviewer_check", t.ReviewerCheck)
	return nil
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	return major
}
