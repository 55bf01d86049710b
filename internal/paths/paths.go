package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/cruciblehq/triggerd/internal"
)

const (

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for log files. Command output is logged, so
	// the file is not world-readable.
	DefaultFileMode os.FileMode = 0640
)

// Path to the directory for persistent state (logs).
//
//	Linux:   $XDG_STATE_HOME/triggerd or ~/.local/state/triggerd
//	macOS:   ~/Library/Application Support/triggerd
func State() string {
	return filepath.Join(xdg.StateHome, internal.Name)
}

// Default path to the log file.
//
//	Linux:   $XDG_STATE_HOME/triggerd/triggerd.log
//	macOS:   ~/Library/Application Support/triggerd/triggerd.log
func LogFile() string {
	return filepath.Join(State(), internal.Name+".log")
}
