package cargo

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Filename of the package manifest within a project directory.
const ManifestFilename = "Cargo.toml"

// Mirrors the subset of Cargo.toml the pipeline consumes.
type manifestFile struct {
	Package      packageSection `toml:"package"`
	Bin          []binSection   `toml:"bin"`
	Dependencies map[string]any `toml:"dependencies"`
}

// The [package] section of a manifest.
type packageSection struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
}

// A [[bin]] target declaration.
type binSection struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Parses a package manifest.
//
// The manifest must declare a package name; everything else is optional.
func parseManifest(data []byte) (*manifestFile, error) {
	var mf manifestFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	if mf.Package.Name == "" {
		return nil, fmt.Errorf("%w: missing package name", ErrManifest)
	}

	return &mf, nil
}

// Returns the name of the executable this manifest builds.
//
// A [[bin]] target overrides the package name. Manifests with multiple bin
// targets use the first; the pipeline packages exactly one executable.
func (mf *manifestFile) binaryName() string {
	if len(mf.Bin) > 0 && mf.Bin[0].Name != "" {
		return mf.Bin[0].Name
	}
	return mf.Package.Name
}

// Returns the crate names of the manifest's direct dependencies.
//
// A dependency key can be renamed via an inline "package" field; the crate
// name recorded in the lock file is the renamed one.
func (mf *manifestFile) dependencyNames() []string {
	names := make([]string, 0, len(mf.Dependencies))
	for key, value := range mf.Dependencies {
		name := key
		if table, ok := value.(map[string]any); ok {
			if renamed, ok := table["package"].(string); ok && renamed != "" {
				name = renamed
			}
		}
		names = append(names, name)
	}
	return names
}
