package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyaki-up/workboard/internal/board"
	"github.com/satyaki-up/workboard/internal/db"
	"github.com/satyaki-up/workboard/internal/server"
	"github.com/satyaki-up/workboard/internal/workflow"
)

type fixture struct {
	t       *testing.T
	handler http.Handler
	boards  *board.Service
	toggles *workflow.ToggleStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	toggles := workflow.NewToggleStore()
	boards := board.NewService(database, board.WithEngine(workflow.NewEngine(toggles)), board.WithLogger(logger))
	srv := server.New(boards, toggles, logger)
	return &fixture{t: t, handler: srv.Engine(), boards: boards, toggles: toggles}
}

func (f *fixture) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (f *fixture) createBoard(settings map[string]any) string {
	f.t.Helper()
	rec, out := f.do(http.MethodPost, "/api/boards", map[string]any{"title": "Web", "settings": settings})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["board"].(map[string]any)["id"].(string)
}

func (f *fixture) createCard(boardID, title string) string {
	f.t.Helper()
	rec, out := f.do(http.MethodPost, "/api/boards/"+boardID+"/cards", map[string]any{"title": title, "role": "developer"})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["card"].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestUnknownEndpoint(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoardEndpoints(t *testing.T) {
	f := newFixture(t)
	id := f.createBoard(map[string]any{"allow_skip_stages": true})

	rec, out := f.do(http.MethodGet, "/api/boards/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	b := out["board"].(map[string]any)
	assert.Len(t, b["columns"], 6)
	assert.Equal(t, true, b["settings"].(map[string]any)["allow_skip_stages"])

	rec, out = f.do(http.MethodGet, "/api/boards?search=we&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, out["total"])
	assert.EqualValues(t, 5, out["limit"])

	rec, _ = f.do(http.MethodGet, "/api/boards?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = f.do(http.MethodPut, "/api/boards/"+id+"/settings", map[string]any{"require_reviewers": true, "min_reviewers": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	settings := out["board"].(map[string]any)["settings"].(map[string]any)
	assert.Equal(t, false, settings["allow_skip_stages"])
	assert.EqualValues(t, 2, settings["min_reviewers"])

	rec, out = f.do(http.MethodPut, "/api/boards/"+id+"/columns/in_progress/limit", map[string]any{"max_cards": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, out["column"].(map[string]any)["max_cards"])

	rec, _ = f.do(http.MethodGet, "/api/boards/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/boards", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoveEndpoint(t *testing.T) {
	f := newFixture(t)
	boardID := f.createBoard(nil)
	cardID := f.createCard(boardID, "Checkout")

	rec, out := f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"status": "in_progress", "role": "developer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["allowed"])
	assert.Equal(t, "backlog", out["from"])
	assert.Equal(t, "in_progress", out["card"].(map[string]any)["status"])
	notification := out["notification"].(map[string]any)
	assert.Equal(t, "Checkout", notification["card_title"])
	assert.Equal(t, "success", notification["message"].(map[string]any)["kind"])

	rec, out = f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"status": "qa_done", "role": "developer"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, out["allowed"])
	assert.Equal(t, string(workflow.CodeSkipStage), out["code"])
	assert.Contains(t, out["reason"], "cannot skip stages")
	assert.NotEmpty(t, out["notification"].(map[string]any)["suggestion"])

	rec, _ = f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"role": "developer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"status": "ready_for_qa", "role": "developer", "expected_version": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, out = f.do(http.MethodGet, "/api/cards/"+cardID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["history"], 2)
}

func TestMoveDryRunDoesNotApply(t *testing.T) {
	f := newFixture(t)
	boardID := f.createBoard(nil)
	cardID := f.createCard(boardID, "Dry")

	rec, out := f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"status": "in_progress", "role": "developer", "dry_run": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["allowed"])

	rec, out = f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"status": "done", "role": "developer", "dry_run": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["allowed"])
	assert.Equal(t, string(workflow.CodeSkipStage), out["code"])

	rec, out = f.do(http.MethodGet, "/api/cards/"+cardID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backlog", out["card"].(map[string]any)["status"])
}

func TestMoveDenialIsLocalized(t *testing.T) {
	f := newFixture(t)
	boardID := f.createBoard(map[string]any{"allow_skip_stages": true})
	cardID := f.createCard(boardID, "배포")

	rec, out := f.do(http.MethodPatch, "/api/cards/"+cardID+"/move?lang=ko", map[string]any{"status": "done", "role": "developer"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(workflow.CodeProductOwnerOnly), out["code"])
	assert.NotContains(t, out["reason"], "permission denied")

	rec, out = f.do(http.MethodPatch, "/api/cards/"+cardID+"/move", map[string]any{"status": "done", "role": "developer"}, "Accept-Language", "en-US")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, out["reason"], "product owner")
}

func TestReviewersAndDependenciesEndpoints(t *testing.T) {
	f := newFixture(t)
	boardID := f.createBoard(map[string]any{"require_reviewers": true, "min_reviewers": 1})
	api := f.createCard(boardID, "API")
	ui := f.createCard(boardID, "UI")

	rec, out := f.do(http.MethodPost, "/api/users", map[string]any{"name": "Alice", "email": "alice@example.com", "role": "developer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alice := out["user"].(map[string]any)["id"].(string)

	rec, out = f.do(http.MethodGet, "/api/users/"+alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["permissions"].(map[string]any)["can_delete_card"])

	rec, _ = f.do(http.MethodPut, "/api/cards/"+ui+"/dependencies", map[string]any{
		"dependencies": []map[string]any{{"id": api, "required": true}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodPut, "/api/cards/"+ui+"/dependencies", map[string]any{
		"dependencies": []map[string]any{{"id": ui, "required": true}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.do(http.MethodPatch, "/api/cards/"+ui+"/move", map[string]any{"status": "in_progress", "role": "developer"})

	rec, out = f.do(http.MethodPatch, "/api/cards/"+ui+"/move", map[string]any{"status": "ready_for_qa", "role": "developer"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(workflow.CodePendingDependencies), out["code"])

	rec, _ = f.do(http.MethodPost, "/api/rules/dependency/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = f.do(http.MethodPatch, "/api/cards/"+ui+"/move", map[string]any{"status": "ready_for_qa", "role": "developer"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(workflow.CodeInsufficientReviewers), out["code"])

	rec, _ = f.do(http.MethodPut, "/api/cards/"+ui+"/reviewers", map[string]any{"user_ids": []string{alice}, "role": "developer"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = f.do(http.MethodPatch, "/api/cards/"+ui+"/move", map[string]any{"status": "ready_for_qa", "role": "developer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ready_for_qa", out["card"].(map[string]any)["status"])
}

func TestRuleEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := out["rules"].([]any)
	require.Len(t, rules, 2)
	assert.Equal(t, "dependency", rules[0].(map[string]any)["id"])
	assert.Equal(t, true, rules[0].(map[string]any)["enabled"])

	rec, out = f.do(http.MethodPost, "/api/rules/reviewer/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["toggles"].(map[string]any)["reviewer_check"])
	assert.Equal(t, "warning", out["notification"].(map[string]any)["message"].(map[string]any)["kind"])
	assert.False(t, f.toggles.IsReviewerCheckEnabled())

	saved, err := f.boards.LoadRuleToggles(context.Background())
	require.NoError(t, err)
	assert.False(t, saved.ReviewerCheck)

	rec, _ = f.do(http.MethodPost, "/api/rules/bogus/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = f.do(http.MethodPost, "/api/rules/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["toggles"].(map[string]any)["reviewer_check"])
	assert.True(t, f.toggles.IsReviewerCheckEnabled())
}

func TestDeleteCardEndpoint(t *testing.T) {
	f := newFixture(t)
	boardID := f.createBoard(nil)
	cardID := f.createCard(boardID, "Temp")

	rec, _ := f.do(http.MethodDelete, "/api/cards/"+cardID+"?role=developer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(http.MethodDelete, "/api/cards/"+cardID+"?role=product_owner&expected_version=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(http.MethodDelete, "/api/cards/"+cardID+"?role=product_owner", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodGet, "/api/cards/"+cardID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCardEndpoint(t *testing.T) {
	f := newFixture(t)
	boardID := f.createBoard(nil)
	cardID := f.createCard(boardID, "Draft")

	rec, out := f.do(http.MethodPatch, "/api/cards/"+cardID, map[string]any{"title": "Final", "priority": "urgent", "tags": []string{"a"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	card := out["card"].(map[string]any)
	assert.Equal(t, "Final", card["title"])
	assert.Equal(t, "urgent", card["priority"])

	rec, _ = f.do(http.MethodPatch, "/api/cards/"+cardID, map[string]any{"priority": "someday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = f.do(http.MethodGet, "/api/boards/"+boardID+"/cards?status=backlog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["cards"], 1)
}
