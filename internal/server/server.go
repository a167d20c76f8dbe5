// Package server runs the TCP listener that serves both RPC programs, NFS
// and MOUNT, on a single port. Each accepted connection gets its own
// goroutine; graceful shutdown cancels in-flight requests, waits for active
// connections up to a timeout and then force-closes the stragglers.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/mount"
	"github.com/benignx/nfsmirror/internal/protocol/nfs"
	"github.com/benignx/nfsmirror/pkg/vfs"
)

// Config holds the listener settings. Zero values are replaced with
// defaults by New.
type Config struct {
	// IP is the address to bind. Empty binds all interfaces.
	IP string

	// Port is the TCP port for both the NFS and MOUNT programs.
	Port int

	// MaxConnections caps concurrent client connections. Connections over
	// the cap are rejected immediately, not queued. 0 means unlimited.
	MaxConnections int

	// ReadTimeout bounds reading one complete RPC record.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one reply record.
	WriteTimeout time.Duration

	// IdleTimeout closes connections with no traffic between requests.
	IdleTimeout time.Duration

	// ShutdownTimeout is how long Serve waits for active connections to
	// drain before force-closing them.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max connections %d", c.MaxConnections)
	}
	return nil
}

// Server accepts NFS and MOUNT traffic for one composed namespace.
type Server struct {
	config       Config
	nfsHandler   *nfs.Handler
	mountHandler *mount.Handler

	listener net.Listener
	started  atomic.Bool

	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// connTrack maps remote address to net.Conn so shutdown can
	// force-close connections that outlive the drain timeout.
	connTrack sync.Map

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// requestCtx is cancelled at shutdown so in-flight handlers abort.
	requestCtx     context.Context
	cancelRequests context.CancelFunc
}

// New builds a stopped server around the shared dispatcher.
func New(config Config, v *vfs.VFS) (*Server, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	requestCtx, cancelRequests := context.WithCancel(context.Background())
	return &Server{
		config:         config,
		nfsHandler:     nfs.NewHandler(v),
		mountHandler:   mount.NewHandler(v),
		shutdown:       make(chan struct{}),
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
	}, nil
}

// Addr returns the bound listener address, or nil before Serve runs. Useful
// when the configured port is 0.
func (s *Server) Addr() net.Addr {
	if !s.started.Load() || s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Alive reports whether the server is accepting connections.
func (s *Server) Alive() bool {
	if !s.started.Load() {
		return false
	}
	select {
	case <-s.shutdown:
		return false
	default:
		return true
	}
}

// Serve listens and blocks until the context is cancelled or the listener
// fails. Cancellation triggers the graceful shutdown sequence.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.IP, fmt.Sprintf("%d", s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.started.Store(true)
	logger.Info("Server listening on %s (max_connections=%d)", listener.Addr(), s.config.MaxConnections)

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.drainConnections()
			default:
				logger.Debug("Accept error: %v", err)
				continue
			}
		}

		// Reject over the cap instead of queueing, so a full server
		// stays responsive to the clients it already has.
		if s.config.MaxConnections > 0 && int(s.connCount.Load()) >= s.config.MaxConnections {
			logger.Warn("Connection from %s rejected: %d connections already active",
				tcpConn.RemoteAddr(), s.connCount.Load())
			tcpConn.Close()
			continue
		}

		s.activeConns.Add(1)
		count := s.connCount.Add(1)
		remote := tcpConn.RemoteAddr().String()
		s.connTrack.Store(remote, tcpConn)
		logger.Debug("Connection accepted from %s (active: %d)", remote, count)

		c := s.newConn(tcpConn)
		go func() {
			defer func() {
				s.connTrack.Delete(remote)
				s.connCount.Add(-1)
				s.activeConns.Done()
				logger.Debug("Connection closed from %s", remote)
			}()
			c.serve(s.requestCtx)
		}()
	}
}

// Stop triggers shutdown from outside Serve's context.
func (s *Server) Stop() {
	s.initiateShutdown()
}

func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Info("Server shutdown initiated")
		close(s.shutdown)
		if s.listener != nil {
			s.listener.Close()
		}
		s.cancelRequests()
	})
}

// drainConnections waits for active connections up to ShutdownTimeout, then
// force-closes whatever is left.
func (s *Server) drainConnections() error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Server shut down cleanly")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
	}

	forced := 0
	s.connTrack.Range(func(_, value any) bool {
		if tcpConn, ok := value.(net.Conn); ok {
			tcpConn.Close()
			forced++
		}
		return true
	})
	logger.Warn("Shutdown timeout after %v: force-closed %d connections", s.config.ShutdownTimeout, forced)

	s.activeConns.Wait()
	return nil
}
