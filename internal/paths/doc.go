// Provides platform-appropriate default paths for the daemon.
//
// Paths follow XDG conventions on Linux and platform-native conventions on
// macOS. The daemon name is used as the subdirectory under each base path.
// Only the log file has a default; the socket and command configuration
// paths are always given explicitly on the command line.
package paths
