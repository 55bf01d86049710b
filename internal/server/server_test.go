//go:build unix

package server

import (
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruciblehq/triggerd/internal/metrics"
	"github.com/cruciblehq/triggerd/internal/registry"
	"github.com/cruciblehq/triggerd/internal/runner"
)

// Returns a short socket path; sun_path is limited to about 100 bytes.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "trg")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func testRegistry(t *testing.T, entries map[string]string) *registry.Registry {
	t.Helper()
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	reg, err := registry.Parse(data)
	require.NoError(t, err)
	return reg
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.SocketPath == "" {
		cfg.SocketPath = socketPath(t)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func dial(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", srv.socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func send(t *testing.T, conn net.Conn, frames string) {
	t.Helper()
	_, err := conn.Write([]byte(frames))
	require.NoError(t, err)
}

func read(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return buf
}

// Asserts that the server closed the connection without sending anything.
func requireClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

var basicCommands = map[string]string{
	"true":    "/bin/true",
	"false":   "/bin/false",
	"exit7":   "/bin/sh -c 'exit 7'",
	"missing": "/nonexistent/command",
	"killed":  `/bin/sh -c 'kill -TERM $$'`,
}

func TestResponses(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	conn := dial(t, srv)

	tests := []struct {
		key  string
		want []byte
	}{
		{key: "true", want: []byte{'C', 0}},
		{key: "false", want: []byte{'C', 1}},
		{key: "exit7", want: []byte{'C', 7}},
		{key: "killed", want: []byte{'S', 15}},
		{key: "missing", want: []byte{'F'}},
		{key: "unknown", want: []byte{'X'}},
		{key: "", want: []byte{'X'}},
		{key: "true", want: []byte{'C', 0}},
	}

	// All on one connection: rejected and failed keys leave it open.
	for _, tt := range tests {
		send(t, conn, tt.key+"\x00")
		assert.Equal(t, tt.want, read(t, conn, len(tt.want)), "key %q", tt.key)
	}
}

func TestInvalidUTF8KeepsConnectionOpen(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	conn := dial(t, srv)

	send(t, conn, "\xff\xfe\x00")
	assert.Equal(t, []byte("X"), read(t, conn, 1))

	send(t, conn, "true\x00")
	assert.Equal(t, []byte{'C', 0}, read(t, conn, 2))
}

func TestBackToBackKeys(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	conn := dial(t, srv)

	send(t, conn, "true\x00false\x00nope\x00exit7\x00")
	assert.Equal(t, []byte{'C', 0, 'C', 1, 'X', 'C', 7}, read(t, conn, 7))
}

func TestKeySplitAcrossWrites(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	conn := dial(t, srv)

	send(t, conn, "fa")
	time.Sleep(20 * time.Millisecond)
	send(t, conn, "lse\x00")
	assert.Equal(t, []byte{'C', 1}, read(t, conn, 2))
}

func TestOversizedKey(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	conn := dial(t, srv)

	send(t, conn, strings.Repeat("t", 10000)+"\x00true\x00")
	assert.Equal(t, []byte{'X', 'C', 0}, read(t, conn, 3))
}

func TestSanitizedEnvironment(t *testing.T) {
	t.Setenv("TRIGGERD_LEAK", "secret")

	srv := startServer(t, Config{Registry: testRegistry(t, map[string]string{
		"assign": `FOO=bar /bin/sh -c 'test "$FOO" = bar'`,
		"leak":   `/bin/sh -c 'test -z "$TRIGGERD_LEAK"'`,
	})})
	conn := dial(t, srv)

	send(t, conn, "assign\x00leak\x00")
	assert.Equal(t, []byte{'C', 0, 'C', 0}, read(t, conn, 4))
}

func TestPartialKeyAtEOF(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	conn := dial(t, srv)

	send(t, conn, "tru")
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())
	requireClosed(t, conn)
}

func TestConcurrentConnections(t *testing.T) {
	exec := newBlockingExecutor()
	srv := startServer(t, Config{
		Registry: testRegistry(t, map[string]string{"block": "/bin/block", "true": "/bin/true"}),
		Executor: exec,
	})

	slow := dial(t, srv)
	send(t, slow, "block\x00")
	<-exec.started

	fast := dial(t, srv)
	send(t, fast, "true\x00")
	assert.Equal(t, []byte{'C', 0}, read(t, fast, 2))

	close(exec.release)
	assert.Equal(t, []byte{'C', 0}, read(t, slow, 2))
}

func TestSocketPermissions(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})

	info, err := os.Stat(srv.socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSocket, info.Mode().Type())
	assert.Equal(t, os.FileMode(0o660), info.Mode().Perm())
}

func TestStartReplacesStaleArtifacts(t *testing.T) {
	reg := testRegistry(t, basicCommands)

	t.Run("empty file", func(t *testing.T) {
		path := socketPath(t)
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		srv := startServer(t, Config{SocketPath: path, Registry: reg})
		send(t, dial(t, srv), "true\x00")
	})

	t.Run("stale socket", func(t *testing.T) {
		path := socketPath(t)
		l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
		require.NoError(t, err)
		l.SetUnlinkOnClose(false)
		require.NoError(t, l.Close())

		srv := startServer(t, Config{SocketPath: path, Registry: reg})
		conn := dial(t, srv)
		send(t, conn, "true\x00")
		assert.Equal(t, []byte{'C', 0}, read(t, conn, 2))
	})
}

func TestStartRefusesNonEmptyFile(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, []byte("precious"), 0o600))

	srv, err := New(Config{SocketPath: path, Registry: testRegistry(t, basicCommands)})
	require.NoError(t, err)

	err = srv.Start()
	assert.ErrorIs(t, err, ErrPathOccupied)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data))
	assert.NoError(t, srv.Stop())
}

func TestStartRefusesDirectory(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.Mkdir(path, 0o700))

	srv, err := New(Config{SocketPath: path, Registry: testRegistry(t, basicCommands)})
	require.NoError(t, err)
	assert.ErrorIs(t, srv.Start(), ErrPathOccupied)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Registry: testRegistry(t, basicCommands)})
	assert.ErrorIs(t, err, ErrServer)

	_, err = New(Config{SocketPath: "/tmp/x.sock"})
	assert.ErrorIs(t, err, ErrServer)
}

func TestStopDrainsInFlightCommand(t *testing.T) {
	exec := newBlockingExecutor()
	srv := startServer(t, Config{
		Registry: testRegistry(t, map[string]string{"block": "/bin/block", "true": "/bin/true"}),
		Executor: exec,
	})

	conn := dial(t, srv)
	send(t, conn, "block\x00")
	<-exec.started

	stopped := make(chan struct{})
	go func() {
		srv.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a command was still running")
	case <-time.After(100 * time.Millisecond):
	}

	// The listener is gone, so new connections are refused.
	_, err := net.Dial("unix", srv.socketPath)
	assert.Error(t, err)

	// Queue another key; it must not run after the in-flight one.
	send(t, conn, "true\x00")

	close(exec.release)
	assert.Equal(t, []byte{'C', 0}, read(t, conn, 2))
	requireClosed(t, conn)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the handler drained")
	}
	assert.Equal(t, 1, exec.calls())

	_, err = os.Stat(srv.socketPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStopClosesIdleConnections(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})

	idle := dial(t, srv)
	send(t, idle, "true\x00")
	assert.Equal(t, []byte{'C', 0}, read(t, idle, 2))

	partial := dial(t, srv)
	send(t, partial, "tr")

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on idle connections")
	}
	requireClosed(t, idle)
	requireClosed(t, partial)
}

func TestStopIsIdempotent(t *testing.T) {
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands)})
	assert.NoError(t, srv.Stop())
	assert.NoError(t, srv.Stop())
}

func TestMetricsUpdated(t *testing.T) {
	m := metrics.New()
	srv := startServer(t, Config{Registry: testRegistry(t, basicCommands), Metrics: m})
	conn := dial(t, srv)

	send(t, conn, "true\x00nope\x00missing\x00")
	read(t, conn, 4)

	// The counter is bumped before the write, so it is visible by now.
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `triggerd_responses_total{code="exited"} 1`)
	assert.Contains(t, body, `triggerd_responses_total{code="reject"} 1`)
	assert.Contains(t, body, `triggerd_responses_total{code="spawn_failed"} 1`)
	assert.Contains(t, body, "triggerd_connections_total 1")
}

// Executor that blocks on /bin/block until released and succeeds
// immediately for anything else.
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	n       int
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
}

func (e *blockingExecutor) Run(cmd registry.Command) (*runner.Result, error) {
	e.mu.Lock()
	e.n++
	e.mu.Unlock()

	if cmd.Executable() == "/bin/block" {
		e.once.Do(func() { close(e.started) })
		<-e.release
	}
	return &runner.Result{}, nil
}

func (e *blockingExecutor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n
}
