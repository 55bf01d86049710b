package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cruciblehq/triggerd/internal/metrics"
	"github.com/cruciblehq/triggerd/internal/registry"
	"github.com/cruciblehq/triggerd/internal/runner"
)

const (

	// First pause after a failed accept.
	minAcceptDelay = 5 * time.Millisecond

	// Longest pause between failed accepts.
	maxAcceptDelay = time.Second
)

// Runs registry commands. Implemented by [*runner.Runner].
type Executor interface {
	Run(cmd registry.Command) (*runner.Result, error)
}

// Holds server configuration.
type Config struct {
	SocketPath string             // Path of the Unix socket to create. Required.
	Group      string             // Group to hand the socket to. Empty keeps the default group.
	Registry   *registry.Registry // Key to command mapping. Required.
	Executor   Executor           // Command executor. Nil uses [runner.New].
	Metrics    *metrics.Metrics   // Collectors to update. Nil disables metrics.
}

// Listens on a Unix domain socket and dispatches keys to commands.
type Server struct {
	socketPath string             // Path to the Unix socket file.
	group      string             // Group owning the socket, if any.
	registry   *registry.Registry // Shared read-only by all handlers.
	executor   Executor           // Runs matched commands.
	metrics    *metrics.Metrics   // Optional collectors.
	listener   net.Listener       // Listener for incoming connections.
	shutdown   *coordinator       // Halting flag and handler drain.
	accepting  chan struct{}      // Closed when the accept loop returns.
	stopOnce   sync.Once          // Guards Stop.
}

// Creates a new server instance.
//
// The socket is not opened until [Server.Start] is called.
func New(cfg Config) (*Server, error) {
	if cfg.SocketPath == "" {
		return nil, fmt.Errorf("%w: socket path is required", ErrServer)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrServer)
	}

	executor := cfg.Executor
	if executor == nil {
		executor = runner.New()
	}

	return &Server{
		socketPath: cfg.SocketPath,
		group:      cfg.Group,
		registry:   cfg.Registry,
		executor:   executor,
		metrics:    cfg.Metrics,
		shutdown:   newCoordinator(),
		accepting:  make(chan struct{}),
	}, nil
}

// Opens the Unix socket and begins accepting connections.
func (s *Server) Start() error {
	listener, err := Listen(s.socketPath, s.group)
	if err != nil {
		return err
	}

	slog.Info("server listening on socket", "path", s.socketPath, "keys", s.registry.Len())

	s.serve(listener)
	return nil
}

// Starts the accept loop on listener.
func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	go s.accept()
}

// Shuts the server down and waits for every handler to finish.
//
// New connections are refused immediately. Handlers running a command
// finish it and deliver its response, then close; idle handlers close right
// away. Stop blocks until all of them have exited and removes the socket
// file. Calling Stop more than once is safe.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.shutdown.halt()

		if s.listener == nil {
			return
		}
		s.listener.Close()
		<-s.accepting

		slog.Info("waiting for connections to finish")
		s.shutdown.drain()

		if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove socket", "path", s.socketPath, "error", err)
		}
	})
	return nil
}

// Accepts connections in a loop until the server shuts down.
//
// Accept errors are logged and retried with exponential backoff; they never
// stop the loop on their own.
func (s *Server) accept() {
	defer close(s.accepting)

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.halting() {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				slog.Error("listener closed unexpectedly", "error", err)
				return
			}

			delay = min(max(2*delay, minAcceptDelay), maxAcceptDelay)
			slog.Error("accept error", "error", err, "retry", delay)

			select {
			case <-time.After(delay):
			case <-s.shutdown.halted():
				return
			}
			continue
		}
		delay = 0

		if s.shutdown.halting() {
			conn.Close()
			return
		}

		s.shutdown.enter()
		go func() {
			defer s.shutdown.exit()
			newHandler(s, conn).serve()
		}()
	}
}
