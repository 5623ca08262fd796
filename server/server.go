package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"livechat-bot/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Subscriptions upgrades display clients and attaches them to a guild room.
type Subscriptions interface {
	Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, guildID string) error
}

// BlacklistChecker answers the overlay's blacklist lookups.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error)
}

// MediaFiles resolves public names of converted media to local paths.
type MediaFiles interface {
	Open(name string) (string, error)
}

// Liveness reports whether the delivery loop is alive.
type Liveness interface {
	Healthy(now time.Time) bool
}

// Server is the HTTP surface used by display clients.
type Server struct {
	echo *echo.Echo
	addr string

	hub       Subscriptions
	blacklist BlacklistChecker
	media     MediaFiles
	health    Liveness
	log       zerolog.Logger
}

func New(cfg models.ServerConfig, hub Subscriptions, blacklist BlacklistChecker, media MediaFiles, health Liveness, log zerolog.Logger) *Server {
	s := &Server{
		echo:      echo.New(),
		addr:      cfg.Addr,
		hub:       hub,
		blacklist: blacklist,
		media:     media,
		health:    health,
		log:       log.With().Str("component", "http").Logger(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.log.Debug()
			if v.Status >= http.StatusInternalServerError {
				ev = s.log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if err2 := c.JSON(he.Code, map[string]any{"error": he.Message}); err2 != nil {
				s.log.Error().Err(err2).Msg("failed to write http error")
			}
			return
		}
		s.log.Warn().Err(err).Str("path", c.Path()).Msg("handler error")
		_ = c.JSON(http.StatusInternalServerError, map[string]any{"error": "Internal server error"})
	}

	e.GET("/client/ws/:guildId", s.handleSubscribe)
	e.GET("/client/api/blacklist/check/:userId", s.handleBlacklistCheck)
	e.GET("/client/api/media/:file", s.handleMedia)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", s.handleHealth)

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.addr).Msg("HTTP server listening")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithListener serves on an existing listener.
func (s *Server) StartWithListener(lis net.Listener) error {
	s.echo.Listener = lis
	if err := s.echo.StartServer(&http.Server{}); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleSubscribe(c echo.Context) error {
	guildID := c.Param("guildId")
	if guildID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "GuildId is required")
	}
	if err := s.hub.Serve(c.Request().Context(), c.Response(), c.Request(), guildID); err != nil {
		s.log.Debug().Err(err).Str("guild_id", guildID).Msg("subscription ended")
	}
	return nil
}

func (s *Server) handleBlacklistCheck(c echo.Context) error {
	userID := c.Param("userId")
	guildID := c.QueryParam("guildId")
	if guildID == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "GuildId is required"})
	}

	blacklisted, err := s.blacklist.IsBlacklisted(c.Request().Context(), userID, guildID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("guild_id", guildID).Msg("blacklist lookup failed")
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"isBlacklisted": blacklisted})
}

func (s *Server) handleMedia(c echo.Context) error {
	path, err := s.media.Open(c.Param("file"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound, "Media not found")
		}
		return err
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.File(path)
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.health != nil && !s.health.Healthy(time.Now()) {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "stale"})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}
