package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"virtual_persona_bot/internal/app"
	"virtual_persona_bot/internal/domain/queue"
)

// Server exposes the cron trigger endpoints and the read-only statistics
// surface. Trigger endpoints mutate state and are protected by a shared
// bearer secret; everything else is unauthenticated.
type Server struct {
	echo         *echo.Echo
	db           *sql.DB
	reset        *app.ResetService
	posting      *app.PostingService
	interactions *app.InteractionService
	tokens       *app.TokenService
	queueStats   QueueStatsProvider
	cronSecret   string
	logger       *logrus.Entry
}

// QueueStatsProvider is the slice of the queue repository the stats surface
// needs.
type QueueStatsProvider interface {
	Stats(ctx context.Context) (*queue.Stats, error)
}

func NewServer(
	db *sql.DB,
	reset *app.ResetService,
	posting *app.PostingService,
	interactions *app.InteractionService,
	tokens *app.TokenService,
	queueStats QueueStatsProvider,
	cronSecret string,
	logger *logrus.Entry,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:         e,
		db:           db,
		reset:        reset,
		posting:      posting,
		interactions: interactions,
		tokens:       tokens,
		queueStats:   queueStats,
		cronSecret:   cronSecret,
		logger:       logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	cron := s.echo.Group("/cron", s.requireCronSecret)
	cron.POST("/token-reset", s.handleTokenReset)
	cron.POST("/publish", s.handlePublish)
	cron.POST("/interactions", s.handleInteractions)

	s.echo.GET("/stats/tokens", s.handleTokenStats)
	s.echo.GET("/stats/queue", s.handleQueueStats)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// requireCronSecret guards the trigger endpoints with a constant shared
// bearer token. An unset secret disables the triggers entirely rather than
// leaving them open.
func (s *Server) requireCronSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cronSecret == "" {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "cron triggers are not configured"})
		}
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if auth != "Bearer "+s.cronSecret {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return next(c)
	}
}

func (s *Server) handleTokenReset(c echo.Context) error {
	start := time.Now()
	summary, err := s.reset.RunDailyReset(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("Token reset trigger failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"summary":     summary,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handlePublish(c echo.Context) error {
	start := time.Now()
	result, err := s.posting.RunPublishPass(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("Publish trigger failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"result":      result,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleInteractions(c echo.Context) error {
	start := time.Now()
	result, err := s.interactions.RunInteractionPass(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("Interaction trigger failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"result":      result,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleTokenStats(c echo.Context) error {
	stats, err := s.tokens.TokenStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleQueueStats(c echo.Context) error {
	stats, err := s.queueStats.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
