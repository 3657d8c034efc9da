package cargo

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Filename of the lock file within a project directory.
const LockFilename = "Cargo.lock"

// Mirrors the subset of Cargo.lock the pipeline consumes.
type lockFile struct {
	Version  int           `toml:"version"`
	Packages []lockPackage `toml:"package"`
}

// A [[package]] entry in the lock file.
type lockPackage struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Source   string `toml:"source"`
	Checksum string `toml:"checksum"`
}

// Parses a lock file.
func parseLock(data []byte) (*lockFile, error) {
	var lf lockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLock, err)
	}

	if len(lf.Packages) == 0 {
		return nil, fmt.Errorf("%w: no package entries", ErrLock)
	}

	return &lf, nil
}

// Returns the lock entry for a crate name, if present.
//
// Workspace-style locks can carry multiple versions of a crate; the pipeline
// only needs existence, so the first entry wins.
func (lf *lockFile) find(name string) (lockPackage, bool) {
	for _, pkg := range lf.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return lockPackage{}, false
}
