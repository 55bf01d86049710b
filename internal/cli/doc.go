// Parses arguments, configures logging and runs the triggerd daemon.
//
// Usage:
//
//	triggerd [flags] <socket> <config>
//
// The daemon accepts the following flags:
//
//	-q, --quiet            Do not duplicate log output to stderr.
//	-d, --debug            Enable debug output.
//	    --log-file         Log file path.
//	    --group            Group allowed to connect to the socket.
//	    --metrics-socket   Serve Prometheus metrics on this Unix socket.
//	    --version          Show version information.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is replaced by one writing to the log file, and the daemon
// runs until SIGINT or SIGTERM.
package cli
