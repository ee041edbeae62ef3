package gridsim

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/metrics"
)

// Server accepts client connections and answers them with a Handler.
//
// Lifecycle:
//  1. New() with a seeded Store
//  2. Listen() binds the address (Addr is valid afterwards)
//  3. Serve() accepts until the context is cancelled or Stop is called
//
// On shutdown the listener is closed first, then active connections get
// ShutdownTimeout to finish their current request before being closed.
type Server struct {
	config  Config
	handler *Handler
	metrics metrics.ServerMetrics

	listener net.Listener

	// activeConns tracks serving goroutines for graceful shutdown
	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// connections maps remote address to net.Conn for forced closure
	connections sync.Map

	// connSemaphore limits concurrent connections when MaxConnections > 0
	connSemaphore chan struct{}

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New returns a Server over store. m may be nil.
func New(store Store, config Config, m metrics.ServerMetrics) (*Server, error) {
	config.ApplyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid gridsim config: %w", err)
	}
	if m == nil {
		m = metrics.NewNoopServerMetrics()
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
	}

	return &Server{
		config:        config,
		handler:       NewHandler(store, config),
		metrics:       m,
		connSemaphore: connSemaphore,
		shutdown:      make(chan struct{}),
	}, nil
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = listener
	logger.Info("Grid simulator listening on %s (zone %s, release %s)",
		listener.Addr(), s.config.Zone, s.config.ReleaseVersion)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Stop is called.
// It binds the listener first when Listen was not called.
//
// Returns nil after a graceful shutdown, or an error when the listener
// cannot be bound or connections had to be force-closed.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Grid simulator shutdown signal received: %v", ctx.Err())
			s.Stop()
		case <-s.shutdown:
		}
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting connection: %v", err)
				continue
			}
		}

		s.activeConns.Add(1)
		current := s.connCount.Add(1)
		addr := tcpConn.RemoteAddr().String()
		s.connections.Store(addr, tcpConn)

		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(current)
		logger.Debug("Connection accepted from %s (active: %d)", addr, current)

		go func() {
			defer func() {
				s.connections.Delete(addr)
				s.activeConns.Done()
				current := s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
				s.metrics.RecordConnectionClosed()
				s.metrics.SetActiveConnections(current)
				logger.Debug("Connection closed from %s (active: %d)", addr, current)
			}()

			newConn(s, tcpConn).serve(ctx)
		}()
	}
}

// Stop closes the listener. Serve returns once active connections finish.
// Safe to call more than once.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener: %v", err)
			}
		}
	})
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

func (s *Server) gracefulShutdown() error {
	logger.Info("Grid simulator shutdown: waiting for %d connection(s) (timeout: %v)",
		s.connCount.Load(), s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Grid simulator stopped")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		s.connections.Range(func(key, value any) bool {
			_ = value.(net.Conn).Close()
			return true
		})
		return fmt.Errorf("shutdown timeout: %d connection(s) force-closed", remaining)
	}
}
