package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cruciblehq/triggerd/internal/metrics"
	"github.com/cruciblehq/triggerd/internal/registry"
	"github.com/cruciblehq/triggerd/internal/server"
)

// How long the metrics endpoint may take to finish in-flight scrapes.
const metricsShutdownTimeout = 5 * time.Second

// Runs the daemon.
//
// Loads the command configuration, opens the socket and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM). In-flight commands are
// allowed to finish before Run returns.
func (r *Root) Run(ctx context.Context) error {
	slog.Info("loading configuration file", "path", r.Config)
	reg, err := registry.Load(r.Config)
	if err != nil {
		return err
	}
	slog.Info("configuration loaded", "keys", reg.Keys())

	m := metrics.New()
	srv, err := server.New(server.Config{
		SocketPath: r.Socket,
		Group:      r.Group,
		Registry:   reg,
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	// Bound only after the trigger socket, so a refused socket path fails
	// startup before any other socket exists.
	if r.MetricsSocket != "" {
		stop, err := serveMetrics(r.MetricsSocket, r.Group, m)
		if err != nil {
			srv.Stop()
			return err
		}
		defer stop()
	}

	slog.Info("triggerd is running")

	<-ctx.Done()

	slog.Info("shutting down, finishing current commands")
	err = srv.Stop()
	slog.Info("exiting")
	return err
}

// Serves metrics over HTTP on a Unix socket. The returned function shuts the
// endpoint down and removes the socket.
func serveMetrics(socketPath, group string, m *metrics.Metrics) (stop func(), err error) {
	listener, err := server.Listen(socketPath, group)
	if err != nil {
		return nil, fmt.Errorf("metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := hs.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics endpoint failed", "error", err)
		}
	}()

	slog.Info("serving metrics", "path", socketPath)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(ctx); err != nil {
			slog.Warn("metrics endpoint did not shut down cleanly", "error", err)
		}
		if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove metrics socket", "path", socketPath, "error", err)
		}
	}, nil
}
