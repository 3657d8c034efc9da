package cargo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

const (

	// Directory containing the package's source tree, relative to the
	// project root.
	SourceDir = "src"

	// Directory cargo writes release-mode artifacts to, relative to the
	// build workdir inside the builder container.
	releaseDir = "target/release"
)

// Crates whose presence in the lock file indicates the binary links against
// the OpenSSL runtime library.
var tlsCrates = []string{"openssl-sys", "native-tls"}

// A buildable Cargo package, loaded from a project directory.
//
// The manifest and lock file are read once at load time; a Package is
// immutable afterwards.
type Package struct {
	Name         string   // Package name from the manifest.
	Version      string   // Package version from the manifest.
	Edition      string   // Rust edition, informational.
	Binary       string   // Name of the produced executable.
	Dependencies []string // Direct dependency crate names.

	lock *lockFile // Pinned dependency set.
}

// Loads a package from a project directory.
//
// The directory must contain Cargo.toml, Cargo.lock, and a src tree. The
// root package must appear in the lock file at the manifest's version, and
// every direct dependency must be pinned. Any violation is a build-time
// failure; the pipeline never starts for an invalid package.
func Load(dir string) (*Package, error) {
	manifestData, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	lockData, err := os.ReadFile(filepath.Join(dir, LockFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLock, err)
	}

	pkg, err := Parse(manifestData, lockData)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filepath.Join(dir, SourceDir))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: missing %s directory", ErrManifest, SourceDir)
	}

	return pkg, nil
}

// Parses and cross-validates a manifest and lock file pair.
func Parse(manifestData, lockData []byte) (*Package, error) {
	mf, err := parseManifest(manifestData)
	if err != nil {
		return nil, err
	}

	lf, err := parseLock(lockData)
	if err != nil {
		return nil, err
	}

	root, ok := lf.find(mf.Package.Name)
	if !ok {
		return nil, fmt.Errorf("%w: root package %q not in lock file", ErrLock, mf.Package.Name)
	}
	if mf.Package.Version != "" && root.Version != mf.Package.Version {
		return nil, fmt.Errorf("%w: lock has %s %s, manifest declares %s",
			ErrLock, root.Name, root.Version, mf.Package.Version)
	}

	deps := mf.dependencyNames()
	for _, dep := range deps {
		if _, ok := lf.find(dep); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnpinned, dep)
		}
	}

	return &Package{
		Name:         mf.Package.Name,
		Version:      mf.Package.Version,
		Edition:      mf.Package.Edition,
		Binary:       mf.binaryName(),
		Dependencies: deps,
		lock:         lf,
	}, nil
}

// Returns the path the release build writes the executable to, relative to
// the build workdir.
//
// The location is fixed by cargo's layout: target/release/<binary>. The
// pipeline relies on this path being deterministic across rebuilds.
func (p *Package) ArtifactPath() string {
	return path.Join(releaseDir, p.Binary)
}

// Reports whether the locked dependency graph links against the OpenSSL
// runtime library.
//
// The lock file is the authoritative record of what the binary links
// against: a crate that binds libssl always appears there, transitively or
// not. Statically-linked TLS stacks (rustls) need no runtime library and are
// deliberately not matched.
func (p *Package) LinksTLS() bool {
	for _, crate := range tlsCrates {
		if _, ok := p.lock.find(crate); ok {
			return true
		}
	}
	return false
}

// Returns the number of pinned packages in the lock file.
func (p *Package) LockedPackages() int {
	return len(p.lock.Packages)
}
