package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonny/logtail/internal/adapter/inbound/httpapi/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	// BearerToken and HMACSecret guard /v1 when set.
	BearerToken string
	HMACSecret  string
}

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	limiter *middleware.RateLimiter
	logger  *slog.Logger
	srv     *http.Server
}

// NewServer creates a Server. limiter may be nil to disable rate limiting.
func NewServer(cfg ServerConfig, handler *Handler, limiter *middleware.RateLimiter, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		limiter: limiter,
		logger:  logger,
	}
}

// SetupRoutes builds and returns an http.Handler with all middleware applied.
// Route layout:
//
//	GET  /health  - Health check
//	     /v1/...  - Entry and key API, see Handler.Register
func (s *Server) SetupRoutes() http.Handler {
	api := http.NewServeMux()
	s.handler.Register(api)

	var v1 http.Handler = api
	if s.cfg.HMACSecret != "" {
		v1 = middleware.HMACAuth(s.cfg.HMACSecret)(v1)
	}
	if s.cfg.BearerToken != "" {
		v1 = middleware.BearerAuth(s.cfg.BearerToken)(v1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", HealthHandler())
	mux.Handle("/v1/", v1)

	// Apply middleware stack (outermost = first to execute):
	//   BodyReader -> Logging -> RateLimit
	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	h = middleware.Logging(s.logger)(h)
	h = middleware.BodyReader(s.cfg.MaxBodyBytes)(h)

	return h
}

// Start starts the HTTP server and blocks until ctx is cancelled, then performs
// a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.SetupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "port", s.cfg.Port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
