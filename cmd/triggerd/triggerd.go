package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cruciblehq/triggerd/internal"
	"github.com/cruciblehq/triggerd/internal/cli"
)

// The entry point for the triggerd daemon.
//
// Installs a bootstrap logger, displays startup information, and executes the
// root command. If any error occurs during execution, it exits with a non-zero
// code.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("triggerd is starting",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		if cli.ConsoleSuppressed() {
			fmt.Fprintf(os.Stderr, "%s: %v\n", internal.Name, err)
		}
		os.Exit(1)
	}
}

// Creates a stderr logger seeded from build-time linker flags.
//
// The logger is replaced after flag parsing via cli.Execute.
func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
}

// Returns the log level derived from build-time linker flags.
func logLevel() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
