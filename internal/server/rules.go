package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satyaki-up/workboard/internal/notify"
	"github.com/satyaki-up/workboard/internal/workflow"
)

type ruleState struct {
	notify.RuleMetadata
	Enabled bool `json:"enabled"`
}

func (s *Server) rulesPayload(c *gin.Context, toggles workflow.RuleToggles) []ruleState {
	builder := s.notifier(c)
	out := make([]ruleState, 0, len(workflow.Rules()))
	for _, r := range workflow.Rules() {
		out = append(out, ruleState{RuleMetadata: builder.RuleMetadata(r), Enabled: toggles.Enabled(r)})
	}
	return out
}

func (s *Server) handleListRules(c *gin.Context) {
	toggles := s.toggles.Snapshot()
	respondSuccess(c, http.StatusOK, gin.H{
		"toggles": toggles,
		"rules":   s.rulesPayload(c, toggles),
	})
}

// handleToggleRule flips one rule and persists the new state. A failed save
// keeps the in-memory change and is reported in the log only.
func (s *Server) handleToggleRule(c *gin.Context) {
	rule := workflow.Rule(c.Param("rule"))
	if !workflow.IsValidRule(rule) {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("unknown rule %q", rule))
		return
	}
	toggles, err := s.toggles.Toggle(rule)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.persistToggles(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"toggles":      toggles,
		"rules":        s.rulesPayload(c, toggles),
		"notification": s.notifier(c).RuleChange(rule, toggles.Enabled(rule)),
	})
}

func (s *Server) handleResetRules(c *gin.Context) {
	toggles := s.toggles.ResetToDefaults()
	s.persistToggles(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"toggles":      toggles,
		"rules":        s.rulesPayload(c, toggles),
		"notification": s.notifier(c).RulesReset(),
	})
}

// persistToggles runs after every mutation; ToggleStore.Save serializes the
// writes so a racing request cannot persist an older snapshot last.
func (s *Server) persistToggles(c *gin.Context) {
	if err := s.toggles.Save(c.Request.Context(), s.boards); err != nil {
		s.logger.Error("save rule toggles", slog.String("error", err.Error()))
	}
}
