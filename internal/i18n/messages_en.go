package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	// Card statuses
	message.SetString(lang, "status.backlog", "Backlog")
	message.SetString(lang, "status.in_progress", "In Progress")
	message.SetString(lang, "status.ready_for_qa", "Ready for QA")
	message.SetString(lang, "status.qa_done", "QA Done")
	message.SetString(lang, "status.ready_for_deploy", "Ready for Deploy")
	message.SetString(lang, "status.done", "Done")

	// Move denials
	message.SetString(lang, "reason.same_status", "cannot move a card to the status it is already in")
	message.SetString(lang, "reason.terminal_status", "card is done; no further moves are allowed")
	message.SetString(lang, "reason.invalid_status", "invalid status")
	message.SetString(lang, "reason.invalid_role", "invalid role")
	message.SetString(lang, "reason.skip_stage", "cannot skip stages: %s -> %s is not an adjacent move")
	message.SetString(lang, "reason.permission_denied", "permission denied: role %s cannot move cards to %s")
	message.SetString(lang, "reason.product_owner_only", "permission denied: role must be product owner to move cards to done")
	message.SetString(lang, "reason.circular_dependency", "card cannot depend on itself: %s")
	message.SetString(lang, "reason.pending_dependencies", "dependencies are not complete: %s")
	message.SetString(lang, "reason.insufficient_reviewers", "not enough reviewers: currently %d, need at least %d")
	message.SetString(lang, "reason.wip_limit_exceeded", "WIP limit exceeded: column %s allows at most %d cards")

	// Suggestions
	message.SetString(lang, "suggest.pending_dependencies", "Wait for the dependencies to finish QA, or disable the dependency check.")
	message.SetString(lang, "suggest.circular_dependency", "Remove the card from its own dependency list.")
	message.SetString(lang, "suggest.insufficient_reviewers", "Add more reviewers, or disable the reviewer check.")
	message.SetString(lang, "suggest.product_owner_only", "Switch to the product owner role.")
	message.SetString(lang, "suggest.permission_denied", "Switch to a user with the required permission.")
	message.SetString(lang, "suggest.skip_stage", "Move the card one stage at a time, or allow skipping stages in the board settings.")
	message.SetString(lang, "suggest.wip_limit_exceeded", "Finish or move out work in the target column first.")

	// Notifications
	message.SetString(lang, "notify.move_success.title", "Card moved")
	message.SetString(lang, "notify.move_success.body", "'%s' moved from %s to %s")
	message.SetString(lang, "notify.move_failure.title", "Card move failed")
	message.SetString(lang, "notify.rule_enabled.title", "%s enabled")
	message.SetString(lang, "notify.rule_disabled.title", "%s disabled")
	message.SetString(lang, "notify.rule_reset.title", "Rule settings reset")
	message.SetString(lang, "notify.rule_reset.body", "All rules were reset to their defaults")
	message.SetString(lang, "notify.restore_failed.title", "Failed to load rule settings")
	message.SetString(lang, "notify.restore_failed.body", "Saved settings could not be loaded; defaults are in effect")
	message.SetString(lang, "notify.unknown_error", "unknown error")

	// Rules
	message.SetString(lang, "rule.dependency.name", "Dependency check")
	message.SetString(lang, "rule.dependency.description", "Verifies that required dependencies are complete when a card is sent to QA")
	message.SetString(lang, "rule.dependency.enabled", "Cards can only be sent to QA once their required dependencies have passed QA")
	message.SetString(lang, "rule.dependency.disabled", "Cards can be sent to QA regardless of their dependencies")
	message.SetString(lang, "rule.reviewer.name", "Required reviewer check")
	message.SetString(lang, "rule.reviewer.description", "Verifies the minimum number of reviewers before QA is requested")
	message.SetString(lang, "rule.reviewer.enabled", "The board's minimum number of reviewers must be assigned before QA is requested")
	message.SetString(lang, "rule.reviewer.disabled", "QA can be requested without assigning reviewers")
}
