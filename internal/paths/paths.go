package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "crated"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/crated or /run/user/<uid>/crated
//	macOS:   ~/Library/Caches/crated/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
//
//	Linux:   $XDG_RUNTIME_DIR/crated/crated.sock
//	macOS:   ~/Library/Caches/crated/run/crated.sock
func Socket() string {
	return filepath.Join(Runtime(), daemonName+".sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/crated/crated.pid
//	macOS:   ~/Library/Caches/crated/run/crated.pid
func PIDFile() string {
	return filepath.Join(Runtime(), daemonName+".pid")
}

// Default directory for exported image archives when a build does not name
// an output directory.
//
//	Linux:   ~/.local/state/crated/builds
//	macOS:   ~/Library/Application Support/crated/builds
func Builds() string {
	return filepath.Join(xdg.StateHome, daemonName, "builds")
}
