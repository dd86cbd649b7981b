package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/satyaki-up/workboard/internal/board"
	"github.com/satyaki-up/workboard/internal/i18n"
	"github.com/satyaki-up/workboard/internal/notify"
	"github.com/satyaki-up/workboard/internal/workflow"
)

// Server exposes the board service over HTTP.
type Server struct {
	engine  *gin.Engine
	boards  *board.Service
	toggles *workflow.ToggleStore
	logger  *slog.Logger
}

// New constructs the HTTP server. toggles must be the store the board
// service's engine reads from.
func New(boards *board.Service, toggles *workflow.ToggleStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:  router,
		boards:  boards,
		toggles: toggles,
		logger:  logger,
	}
	router.Use(srv.requestLogger())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		boards := api.Group("/boards")
		{
			boards.GET("", s.handleListBoards)
			boards.POST("", s.handleCreateBoard)
			boards.GET(":id", s.handleGetBoard)
			boards.PUT(":id/settings", s.handleUpdateSettings)
			boards.PUT(":id/columns/:status/limit", s.handleSetColumnLimit)
			boards.GET(":id/cards", s.handleListCards)
			boards.POST(":id/cards", s.handleCreateCard)
		}

		cards := api.Group("/cards")
		{
			cards.GET(":id", s.handleGetCard)
			cards.PATCH(":id", s.handleUpdateCard)
			cards.DELETE(":id", s.handleDeleteCard)
			cards.PATCH(":id/move", s.handleMoveCard)
			cards.PUT(":id/reviewers", s.handleSetReviewers)
			cards.PUT(":id/dependencies", s.handleSetDependencies)
			cards.GET(":id/history", s.handleHistory)
		}

		users := api.Group("/users")
		{
			users.GET("", s.handleListUsers)
			users.POST("", s.handleCreateUser)
			users.GET(":id", s.handleGetUser)
		}

		rules := api.Group("/rules")
		{
			rules.GET("", s.handleListRules)
			rules.POST(":rule/toggle", s.handleToggleRule)
			rules.POST("reset", s.handleResetRules)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}

// lang resolves the response language from ?lang= or Accept-Language.
func lang(c *gin.Context) language.Tag {
	return i18n.ResolveTag(c.Request)
}

func (s *Server) notifier(c *gin.Context) *notify.Builder {
	return notify.NewBuilder(lang(c))
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, board.ErrMoveDenied):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondServiceError handles errors returned by the board service.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	var denied *board.DeniedError
	if errors.As(err, &denied) {
		s.respondDenied(c, "", denied)
		return
	}
	s.respondError(c, statusFor(err), err)
}

func (s *Server) respondDenied(c *gin.Context, cardTitle string, denied *board.DeniedError) {
	v := s.boards.Engine().In(lang(c)).Localize(denied.Verdict)
	n := s.notifier(c).MoveFailure(cardTitle, denied.From, denied.To, v, "")
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"allowed":      false,
		"code":         v.Code,
		"reason":       v.Reason,
		"verdict":      v,
		"notification": n,
	})
}

func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
