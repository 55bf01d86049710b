// Package logging builds the daemon's slog handler.
//
// Records always go to an append-mode log file and are duplicated to stderr
// unless console output is suppressed.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruciblehq/triggerd/internal/paths"
)

// Holds logger configuration.
type Options struct {
	File    string     // Log file path. Parent directories are created.
	Level   slog.Level // Minimum level written to any sink.
	Quiet   bool       // Skip the stderr duplicate.
	Console io.Writer  // Console sink. Nil means os.Stderr.
}

// Creates a logger writing to the configured sinks.
//
// The returned closer releases the log file and must be called once the
// logger is no longer in use.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), paths.DefaultDirMode); err != nil {
		return nil, nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, paths.DefaultFileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file: %w", err)
	}

	var w io.Writer = f
	if !opts.Quiet {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		w = io.MultiWriter(f, console)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level})
	return slog.New(handler), f, nil
}

// Returns the level implied by the debug and quiet switches. Quiet only
// drops the console copy, so it does not raise the level.
func Level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
