package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/triggerd/internal"
	"github.com/cruciblehq/triggerd/internal/logging"
	"github.com/cruciblehq/triggerd/internal/paths"
)

// Represents the root command for the triggerd daemon.
type Root struct {
	Socket        string           `arg:"" type:"path" help:"Location to create the socket at."`
	Config        string           `arg:"" type:"path" help:"Location of the command configuration file."`
	Quiet         bool             `short:"q" help:"Do not duplicate log output to stderr."`
	Debug         bool             `short:"d" help:"Enable debug output."`
	LogFile       string           `type:"path" default:"${log_file}" help:"Log file path." placeholder:"PATH"`
	Group         string           `help:"Group whose members may connect to the socket." placeholder:"NAME"`
	MetricsSocket string           `type:"path" help:"Serve Prometheus metrics on this Unix socket." placeholder:"PATH"`
	Version       kong.VersionFlag `help:"Show version information."`
}

// Parsed command line.
var RootCmd Root

// Whether console logging was suppressed once the file logger took over.
var consoleSuppressed bool

// Parses arguments, configures logging, and runs the daemon.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kong.Parse(&RootCmd, options()...)

	closer, err := configureLogger(&RootCmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	return RootCmd.Run(ctx)
}

// Whether startup errors must be printed to stderr because the logger no
// longer writes there.
func ConsoleSuppressed() bool {
	return consoleSuppressed
}

// Parser options shared by [Execute] and tests.
func options() []kong.Option {
	return []kong.Option{
		kong.Name(internal.Name),
		kong.Description("Runs configured commands when keys arrive on a Unix domain socket.\n\n" +
			"Each null-terminated key sent to the socket runs the command mapped to it in the\n" +
			"configuration file and is answered with the command's outcome."),
		kong.UsageOnError(),
		kong.Vars{
			"version":  internal.VersionString(),
			"log_file": paths.LogFile(),
		},
	}
}

// Installs the file logger as the global logger based on CLI flags.
func configureLogger(root *Root) (io.Closer, error) {
	quiet := root.Quiet || internal.IsQuiet()
	debug := root.Debug || internal.IsDebug()

	logger, closer, err := logging.New(logging.Options{
		File:  root.LogFile,
		Level: logging.Level(debug),
		Quiet: quiet,
	})
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	consoleSuppressed = quiet

	slog.Debug("logging configured", "file", root.LogFile, "quiet", quiet, "pid", os.Getpid())
	return closer, nil
}
