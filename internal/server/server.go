// Package server exposes the generation passes over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/growwit/internal/campaign"
	"github.com/vinayprograms/growwit/internal/pipeline"
	"golang.org/x/net/netutil"
)

// Pipeline runs the generation passes.
type Pipeline interface {
	Run(ctx context.Context, req campaign.Request, w io.Writer) (*pipeline.Result, error)
	Craft(ctx context.Context, req campaign.CraftRequest, w io.Writer) (*pipeline.CraftResult, error)
}

// Config configures the server.
type Config struct {
	// Addr is the listen address, e.g. ":3001".
	Addr string

	// MaxConnections caps concurrent connections. Zero means no cap.
	MaxConnections int

	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	CORSOrigin string

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server serves the campaign API.
type Server struct {
	cfg      Config
	pipeline Pipeline
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// New creates a server.
func New(cfg Config, p Pipeline) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg:      cfg,
		pipeline: p,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the mobile client sends no stable origin
			},
		},
		logger: logging.New().WithComponent("server"),
	}
}

// Handler returns the HTTP handler with every route and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-campaign", s.handleGenerate)
	mux.HandleFunc("POST /api/craft-real-posts", s.handleCraft)
	mux.HandleFunc("GET /ws/generate-campaign", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/ping", s.handlePing)
	return s.withCORS(s.withLogging(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", map[string]interface{}{
		"addr":            ln.Addr().String(),
		"max_connections": s.cfg.MaxConnections,
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down", nil)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
