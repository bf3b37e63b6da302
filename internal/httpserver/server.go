package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server owns the storefront HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type pinger interface {
	Ping(ctx context.Context) error
}

// New builds a Server with all storefront routes. A nil pool reports not ready.
func New(addr string, logger *slog.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var p pinger
	if db != nil {
		p = db
	}
	router, err := buildRouter(logger, p, deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server draining")
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Optional gauges surfaced on /readyz when the wired services expose them.
type (
	sessionCounter interface{ Len() int }
	backlogCounter interface{ Pending() int }
)

func readyHandler(db pinger, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		body := gin.H{"status": "ready"}
		if sc, ok := deps.Sessions.(sessionCounter); ok {
			body["sessions"] = sc.Len()
		}
		if bc, ok := deps.Sink.(backlogCounter); ok {
			body["telemetryBacklog"] = bc.Pending()
		}
		c.JSON(http.StatusOK, body)
	}
}
