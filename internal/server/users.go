package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satyaki-up/workboard/internal/board"
	"github.com/satyaki-up/workboard/internal/workflow"
)

type createUserRequest struct {
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Role   workflow.UserRole `json:"role"`
	Avatar string            `json:"avatar"`
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.boards.ListUsers(c.Request.Context())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	u, err := s.boards.CreateUser(c.Request.Context(), board.CreateUserInput{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Avatar: req.Avatar,
	})
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": u})
}

func (s *Server) handleGetUser(c *gin.Context) {
	u, err := s.boards.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	perms, _ := workflow.PermissionsFor(u.Role)
	respondSuccess(c, http.StatusOK, gin.H{"user": u, "permissions": perms})
}
