package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultListen is the scrape address used when none is configured.
const DefaultListen = ":9090"

const shutdownTimeout = 5 * time.Second

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Listen is the host:port to bind. Default: DefaultListen
	Listen string
}

// Server exposes the global registry for scraping.
//
// Routes:
//   - /metrics: registry contents, 503 when the registry is not initialized
//   - /healthz: liveness, always 200
type Server struct {
	listen string
	http   *http.Server

	mu       sync.Mutex
	addr     net.Addr
	stopOnce sync.Once
}

// NewServer creates a stopped metrics server.
func NewServer(config ServerConfig) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}

	s := &Server{listen: config.Listen}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if registry := GetRegistry(); registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics registry not initialized", http.StatusServiceUnavailable)
		})
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "ok")
	})

	return mux
}

// Start binds the listen address and serves until ctx is cancelled or the
// server fails. Cancellation shuts the server down and returns nil.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("metrics server: listen %s: %w", s.listen, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	logger.Info("Metrics available at http://%s/metrics", ln.Addr())

	served := make(chan error, 1)
	go func() {
		served <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// Stop shuts the server down. Later calls are no-ops.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if err = s.http.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown: %v", err)
			return
		}
		logger.Debug("Metrics server stopped")
	})
	return err
}

// Listen returns the configured listen address.
func (s *Server) Listen() string {
	return s.listen
}

// Addr returns the bound address once Start has bound it, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
