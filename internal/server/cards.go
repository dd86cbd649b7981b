package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/satyaki-up/workboard/internal/board"
	"github.com/satyaki-up/workboard/internal/workflow"
)

type actorFields struct {
	Role    workflow.UserRole `json:"role"`
	ActorID string            `json:"actor_id"`
}

func (a actorFields) actor() board.Actor {
	return board.Actor{UserID: a.ActorID, Role: a.Role}
}

type createCardRequest struct {
	actorFields
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Priority       workflow.Priority `json:"priority"`
	AssigneeID     string            `json:"assignee_id"`
	DueDate        *time.Time        `json:"due_date"`
	EstimatedHours *float64          `json:"estimated_hours"`
	Tags           []string          `json:"tags"`
}

type updateCardRequest struct {
	actorFields
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	Priority        *workflow.Priority `json:"priority"`
	AssigneeID      *string            `json:"assignee_id"`
	DueDate         *time.Time         `json:"due_date"`
	ClearDueDate    bool               `json:"clear_due_date"`
	EstimatedHours  *float64           `json:"estimated_hours"`
	Tags            *[]string          `json:"tags"`
	ExpectedVersion *int64             `json:"expected_version"`
}

type moveRequest struct {
	actorFields
	Status          workflow.CardStatus `json:"status" binding:"required"`
	ExpectedVersion *int64              `json:"expected_version"`
	DryRun          bool                `json:"dry_run"`
}

type reviewersRequest struct {
	actorFields
	UserIDs         []string `json:"user_ids"`
	ExpectedVersion *int64   `json:"expected_version"`
}

type dependenciesRequest struct {
	Dependencies    []board.DependencyRef `json:"dependencies"`
	ExpectedVersion *int64                `json:"expected_version"`
}

func (s *Server) handleListCards(c *gin.Context) {
	var status *workflow.CardStatus
	if raw := c.Query("status"); raw != "" {
		st := workflow.CardStatus(raw)
		status = &st
	}
	cards, err := s.boards.ListCards(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"cards": cards})
}

func (s *Server) handleCreateCard(c *gin.Context) {
	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	card, err := s.boards.CreateCard(c.Request.Context(), board.CreateCardInput{
		BoardID:        c.Param("id"),
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
		Actor:          req.actor(),
	})
	if err != nil {
		var denied *board.DeniedError
		if errors.As(err, &denied) {
			s.respondDenied(c, req.Title, denied)
			return
		}
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"card": card})
}

func (s *Server) handleGetCard(c *gin.Context) {
	card, err := s.boards.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"card": card})
}

func (s *Server) handleUpdateCard(c *gin.Context) {
	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	card, err := s.boards.UpdateCard(c.Request.Context(), c.Param("id"), board.UpdateCardInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		ClearDueDate:   req.ClearDueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
		Actor:          req.actor(),
	}, req.ExpectedVersion)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"card": card})
}

// handleDeleteCard reads the actor and expected version from the query
// string since DELETE carries no body.
func (s *Server) handleDeleteCard(c *gin.Context) {
	var expected *int64
	if raw := c.Query("expected_version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected_version"})
			return
		}
		expected = &v
	}
	actor := board.Actor{UserID: c.Query("actor_id"), Role: workflow.UserRole(c.Query("role"))}
	if err := s.boards.DeleteCard(c.Request.Context(), c.Param("id"), actor, expected); err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleMoveCard applies a move, or only evaluates it when dry_run is set.
// A dry run always answers 200 with the verdict.
func (s *Server) handleMoveCard(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	in := board.MoveInput{
		CardID:          c.Param("id"),
		To:              req.Status,
		Actor:           req.actor(),
		ExpectedVersion: req.ExpectedVersion,
	}
	notifier := s.notifier(c)

	if req.DryRun {
		check, err := s.boards.CheckMove(ctx, in)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		v := s.boards.Engine().In(lang(c)).Localize(check.Verdict)
		payload := gin.H{"allowed": v.Allowed, "verdict": v}
		if v.Allowed {
			payload["notification"] = notifier.MoveSuccess(check.Card.Title, check.From, check.To)
		} else {
			payload["code"] = v.Code
			payload["reason"] = v.Reason
			payload["notification"] = notifier.MoveFailure(check.Card.Title, check.From, check.To, v, "")
		}
		respondSuccess(c, http.StatusOK, payload)
		return
	}

	res, err := s.boards.MoveCard(ctx, in)
	if err != nil {
		var denied *board.DeniedError
		if errors.As(err, &denied) {
			title := ""
			if current, err := s.boards.GetCard(ctx, denied.CardID); err == nil {
				title = current.Title
			}
			s.respondDenied(c, title, denied)
			return
		}
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"allowed":      true,
		"card":         res.Card,
		"from":         res.From,
		"notification": notifier.MoveSuccess(res.Card.Title, res.From, res.To),
	})
}

func (s *Server) handleSetReviewers(c *gin.Context) {
	var req reviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	card, err := s.boards.SetReviewers(c.Request.Context(), c.Param("id"), req.UserIDs, req.actor(), req.ExpectedVersion)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"card": card})
}

func (s *Server) handleSetDependencies(c *gin.Context) {
	var req dependenciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	card, err := s.boards.SetDependencies(c.Request.Context(), c.Param("id"), req.Dependencies, req.ExpectedVersion)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"card": card})
}

func (s *Server) handleHistory(c *gin.Context) {
	history, err := s.boards.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"history": history})
}
