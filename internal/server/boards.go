package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satyaki-up/workboard/internal/board"
	"github.com/satyaki-up/workboard/internal/workflow"
)

type createBoardRequest struct {
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Settings    workflow.BoardSettings      `json:"settings"`
	Limits      map[workflow.CardStatus]int `json:"limits"`
}

type columnLimitRequest struct {
	MaxCards int `json:"max_cards"`
}

func (s *Server) handleListBoards(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	result, err := s.boards.ListBoards(c.Request.Context(), board.BoardQuery{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

func (s *Server) handleCreateBoard(c *gin.Context) {
	var req createBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	b, err := s.boards.CreateBoard(c.Request.Context(), board.CreateBoardInput{
		Title:       req.Title,
		Description: req.Description,
		Settings:    req.Settings,
		Limits:      req.Limits,
	})
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"board": b})
}

func (s *Server) handleGetBoard(c *gin.Context) {
	b, err := s.boards.GetBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"board": b})
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings workflow.BoardSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	b, err := s.boards.UpdateSettings(c.Request.Context(), c.Param("id"), settings)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"board": b})
}

func (s *Server) handleSetColumnLimit(c *gin.Context) {
	var req columnLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	col, err := s.boards.SetColumnLimit(c.Request.Context(), c.Param("id"), workflow.CardStatus(c.Param("status")), req.MaxCards)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"column": col})
}
