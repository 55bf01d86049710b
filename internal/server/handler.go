package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cruciblehq/triggerd/internal/protocol"
	"github.com/cruciblehq/triggerd/internal/registry"
	"github.com/cruciblehq/triggerd/internal/runner"
)

const (

	// First pause after a read error of unknown kind.
	minReadDelay = 5 * time.Millisecond

	// Longest pause between read retries.
	maxReadDelay = 250 * time.Millisecond

	// Consecutive read errors after which the connection is dropped.
	maxReadFailures = 8

	// How long a halting handler keeps reading to drain unread input.
	discardWindow = 100 * time.Millisecond
)

// Serves one connection.
//
// The handler alternates between awaiting a key and dispatching it. Only
// after a response has been written does it look at the next frame or at
// the halting flag, so requests on a connection never overlap and an
// in-flight command always reports back before the connection closes.
type handler struct {
	srv      *Server
	conn     net.Conn
	scanner  *protocol.Scanner
	log      *slog.Logger
	failures int // Consecutive read errors of unknown kind.

	mu       sync.Mutex // Orders the halt wakeup against discardPending.
	draining bool       // Set once the handler is discarding unread input.
}

func newHandler(srv *Server, conn net.Conn) *handler {
	return &handler{
		srv:     srv,
		conn:    conn,
		scanner: protocol.NewScanner(conn, srv.registry.MaxKeyLen()),
		log:     slog.With("conn", uuid.NewString()),
	}
}

// Runs the request loop until the peer goes away, the stream breaks or the
// server halts.
func (h *handler) serve() {
	defer h.srv.metrics.ConnectionOpened()()

	stop := h.srv.shutdown.onHalt(h.wake)
	defer func() {
		stop()
		h.close()
	}()

	h.log.Debug("connection established")
	defer h.log.Debug("connection closed")

	for {
		frame, err := h.scanner.Next()
		if err != nil && !errors.Is(err, protocol.ErrFrameTooLong) {
			if h.recoverRead(err) {
				continue
			}
			return
		}
		h.failures = 0

		// A frame may already have been buffered when the server halted.
		if h.srv.shutdown.halting() {
			h.log.Debug("server halting, refusing key")
			return
		}

		var resp []byte
		if err != nil {
			h.log.Warn("received key longer than any configured key")
			resp = protocol.Reject()
		} else {
			resp = h.dispatch(frame)
		}

		if !h.respond(resp) {
			return
		}

		if h.srv.shutdown.halting() {
			h.log.Debug("server halting, refusing further keys")
			return
		}
	}
}

// Decides whether the loop survives a read error. The partial frame, if
// any, is already gone.
func (h *handler) recoverRead(err error) bool {
	switch {
	case errors.Is(err, io.EOF):
		return false
	case errors.Is(err, io.ErrUnexpectedEOF):
		h.log.Warn("connection closed in the middle of a key")
		return false
	case errors.Is(err, os.ErrDeadlineExceeded) && h.srv.shutdown.halting():
		return false
	case isTransient(err):
		return true
	case isBroken(err):
		h.log.Error("could not read from socket", "error", err)
		return false
	}

	h.failures++
	if h.failures >= maxReadFailures {
		h.log.Error("giving up on connection after repeated read errors", "error", err, "attempts", h.failures)
		return false
	}

	delay := min(minReadDelay<<(h.failures-1), maxReadDelay)
	h.log.Error("could not read from socket", "error", err, "retry", delay)

	select {
	case <-time.After(delay):
		return true
	case <-h.srv.shutdown.halted():
		return false
	}
}

// Wakes a handler blocked awaiting a key. A read in progress fails with a
// deadline error; writes are unaffected.
func (h *handler) wake() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.draining {
		h.conn.SetReadDeadline(time.Now())
	}
}

// Closes the connection. When the server is halting, input the peer already
// sent is read and dropped first, since closing a Unix socket with unread
// data resets the connection and the peer would lose the last response.
func (h *handler) close() {
	if h.srv.shutdown.halting() {
		h.discardPending()
	}
	h.conn.Close()
}

// Reads and drops whatever arrives within discardWindow.
func (h *handler) discardPending() {
	h.mu.Lock()
	h.draining = true
	h.conn.SetReadDeadline(time.Now().Add(discardWindow))
	h.mu.Unlock()

	n, _ := io.Copy(io.Discard, h.conn)
	if n > 0 {
		h.log.Debug("discarded unread input", "bytes", n)
	}
}

// Maps a frame to its response, running the command if the key matches.
func (h *handler) dispatch(frame []byte) []byte {
	if !utf8.Valid(frame) {
		h.log.Warn("received non-matching key with invalid utf8", "key", strings.ToValidUTF8(string(frame), "\uFFFD"))
		return protocol.Reject()
	}

	key := string(frame)
	cmd, ok := h.srv.registry.Lookup(key)
	if !ok {
		h.log.Warn("received non-matching key", "key", key)
		return protocol.Reject()
	}

	log := h.log.With("key", key)
	log.Debug("running command", "config", cmd.Raw(), "command", cmd.String())

	res, err := h.srv.executor.Run(cmd)
	if err != nil {
		log.Error("error starting command", "command", cmd.String(), "error", err)
		return protocol.SpawnFailed()
	}

	h.srv.metrics.ObserveCommand(key, res.Duration)
	report(log, cmd, res)

	if res.Signaled {
		return protocol.Signaled(int(res.Signal))
	}
	return protocol.Exited(res.ExitCode)
}

// Logs a finished command and its captured output. Clean exits log at info
// with output at debug; anything else logs both at warn.
func report(log *slog.Logger, cmd registry.Command, res *runner.Result) {
	level, outLevel := slog.LevelInfo, slog.LevelDebug
	if res.Signaled || res.ExitCode != 0 {
		level, outLevel = slog.LevelWarn, slog.LevelWarn
	}

	ctx := context.Background()
	log.Log(ctx, level, "command finished",
		"command", cmd.String(),
		"status", res.Disposition(),
		"duration", res.Duration,
	)
	log.Log(ctx, outLevel, "command output",
		"stdout", string(res.Stdout),
		"stderr", string(res.Stderr),
	)
}

// Writes a response. Returns false if the connection is no longer usable.
func (h *handler) respond(resp []byte) bool {
	h.srv.metrics.ObserveResponse(protocol.Describe(resp))

	if _, err := h.conn.Write(resp); err != nil {
		h.log.Error("could not write to socket", "error", err)
		return !isBroken(err)
	}
	return true
}

// Whether a failed call may simply be repeated.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

// Whether err means the connection can carry no more traffic.
func isBroken(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ENOTCONN) ||
		errors.Is(err, syscall.EBADF)
}
