// Package adminhttp serves a small operator API: health, per-user progress
// and the user's growth chart.
package adminhttp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/creatorbot/core/buildinfo"
	"github.com/m3rciful/creatorbot/core/logger"
	"github.com/m3rciful/creatorbot/internal/analytics"
	"github.com/m3rciful/creatorbot/internal/challenge"
	"github.com/m3rciful/creatorbot/internal/chart"
)

const component = "http.admin"

// Config holds the listen address; an empty address disables the server.
type Config struct {
	Listen string `yaml:"listen" envconfig:"ADMIN_LISTEN"`
}

// Progress reads user progress from the challenge tracker.
type Progress interface {
	Progress(ctx context.Context, userID int64) (*challenge.Progress, error)
}

// Renderer turns a history into an encoded image.
type Renderer interface {
	Render(points []analytics.Point) ([]byte, error)
}

// NewRouter builds the gin engine with every admin route.
func NewRouter(progress Progress, renderer Renderer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", HealthHandler())
	users := r.Group("/users/:id")
	users.GET("/progress", ProgressHandler(progress))
	users.GET("/chart.png", ChartHandler(progress, renderer))
	return r
}

// HealthHandler reports liveness and the build version.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
	}
}

// ProgressHandler returns the user's challenge snapshot as JSON.
func ProgressHandler(progress Progress) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		p, err := progress.Progress(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// ChartHandler renders the user's full history as PNG.
func ChartHandler(progress Progress, renderer Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c)
		if !ok {
			return
		}
		p, err := progress.Progress(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		img, err := renderer.Render(p.History)
		if errors.Is(err, chart.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analytics history"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", img)
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), component, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}

// Server owns the admin listener.
type Server struct {
	srv *http.Server
}

// NewServer prepares a server for addr around handler.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	logger.Info(ctx, component, "server.started", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(logger.Background(), component, "server.failed", slog.String("err", err.Error()))
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
